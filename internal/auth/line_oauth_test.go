package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestGetLoginURL_ContainsRequiredParams(t *testing.T) {
	provider := NewLineOAuthProvider(LineOAuthConfig{
		ChannelID:   "channel-1",
		RedirectURL: "https://app.example.com/api/auth/line/callback",
	})

	raw := provider.GetLoginURL("state-abc", false)

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid login URL: %v", err)
	}
	q := parsed.Query()

	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want %q", q.Get("response_type"), "code")
	}
	if q.Get("client_id") != "channel-1" {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), "channel-1")
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q, want %q", q.Get("state"), "state-abc")
	}
	if q.Get("scope") != "profile openid" {
		t.Errorf("scope = %q, want %q", q.Get("scope"), "profile openid")
	}
	if q.Has("disable_auto_login") {
		t.Error("disable_auto_login should be absent by default")
	}
}

func TestGetLoginURL_DisableAutoLogin(t *testing.T) {
	provider := NewLineOAuthProvider(LineOAuthConfig{ChannelID: "channel-1"})

	raw := provider.GetLoginURL("state-abc", true)
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid login URL: %v", err)
	}
	if parsed.Query().Get("disable_auto_login") != "true" {
		t.Error("disable_auto_login=true should be present")
	}
}

func TestExchangeCode_Success(t *testing.T) {
	// トークンエンドポイントのスタブ
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want %q", got, "authorization_code")
		}
		if got := r.PostForm.Get("code"); got != "code-123" {
			t.Errorf("code = %q, want %q", got, "code-123")
		}
		if got := r.PostForm.Get("client_secret"); got != "secret-1" {
			t.Errorf("client_secret = %q, want %q", got, "secret-1")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-token-xyz",
			"token_type":   "Bearer",
			"expires_in":   2592000,
		})
	}))
	defer tokenServer.Close()

	// プロフィールエンドポイントのスタブ
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-token-xyz" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"userId":      "U1234567890",
			"displayName": "山田太郎",
			"pictureUrl":  "https://profile.line-scdn.net/abc",
		})
	}))
	defer profileServer.Close()

	provider := NewLineOAuthProvider(LineOAuthConfig{
		ChannelID:     "channel-1",
		ChannelSecret: "secret-1",
		RedirectURL:   "https://app.example.com/api/auth/line/callback",
		TokenURL:      tokenServer.URL,
		ProfileURL:    profileServer.URL,
	})

	info, err := provider.ExchangeCode(context.Background(), "code-123")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if info.LineUserID != "U1234567890" {
		t.Errorf("LineUserID = %q, want %q", info.LineUserID, "U1234567890")
	}
	if info.DisplayName != "山田太郎" {
		t.Errorf("DisplayName = %q, want %q", info.DisplayName, "山田太郎")
	}
	if info.ProfileImageURL != "https://profile.line-scdn.net/abc" {
		t.Errorf("ProfileImageURL = %q, want %q", info.ProfileImageURL, "https://profile.line-scdn.net/abc")
	}
}

func TestExchangeCode_TokenEndpointError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer tokenServer.Close()

	provider := NewLineOAuthProvider(LineOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("error should mention status 400: %v", err)
	}
}

func TestExchangeCode_EmptyAccessToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer tokenServer.Close()

	provider := NewLineOAuthProvider(LineOAuthConfig{TokenURL: tokenServer.URL})

	_, err := provider.ExchangeCode(context.Background(), "code-123")
	if err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestExchangeCode_ProfileMissingUserID(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token"})
	}))
	defer tokenServer.Close()

	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"displayName": "名無し"})
	}))
	defer profileServer.Close()

	provider := NewLineOAuthProvider(LineOAuthConfig{
		TokenURL:   tokenServer.URL,
		ProfileURL: profileServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "code-123")
	if err == nil {
		t.Fatal("expected error for missing userId")
	}
}
