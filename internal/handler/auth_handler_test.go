package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takeshi/shiftman/internal/auth"
	"github.com/takeshi/shiftman/internal/invitation"
	"github.com/takeshi/shiftman/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	beginLoginFn     func(inviteToken, redirectURL string, disableAutoLogin bool) (*auth.BeginLoginResult, error)
	decodeSessionFn  func(value string) (*auth.LoginSession, error)
	handleCallbackFn func(ctx context.Context, code, inviteToken string) (*model.User, error)
}

func (m *mockAuthService) BeginLogin(inviteToken, redirectURL string, disableAutoLogin bool) (*auth.BeginLoginResult, error) {
	return m.beginLoginFn(inviteToken, redirectURL, disableAutoLogin)
}

func (m *mockAuthService) DecodeSession(value string) (*auth.LoginSession, error) {
	return m.decodeSessionFn(value)
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code, inviteToken string) (*model.User, error) {
	return m.handleCallbackFn(ctx, code, inviteToken)
}

type mockTokenIssuer struct {
	parseFn func(token string, kind auth.TokenKind) (*auth.AuthClaims, error)
}

func (m *mockTokenIssuer) IssueAuthToken(user *model.User) (string, error) {
	return "auth-token-for-" + user.ID, nil
}

func (m *mockTokenIssuer) IssueRefreshToken(user *model.User) (string, error) {
	return "refresh-token-for-" + user.ID, nil
}

func (m *mockTokenIssuer) AuthTTL() time.Duration    { return 48 * time.Hour }
func (m *mockTokenIssuer) RefreshTTL() time.Duration { return 7 * 24 * time.Hour }

func (m *mockTokenIssuer) Parse(token string, kind auth.TokenKind) (*auth.AuthClaims, error) {
	if m.parseFn != nil {
		return m.parseFn(token, kind)
	}
	return nil, auth.ErrInvalidToken
}

type mockUserGetter struct {
	getFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserGetter) Get(ctx context.Context, id string) (*model.User, error) {
	return m.getFn(ctx, id)
}

type mockInvitationVerifier struct {
	validateFn func(ctx context.Context, token string) (invitation.Result, error)
}

func (m *mockInvitationVerifier) Validate(ctx context.Context, token string) (invitation.Result, error) {
	return m.validateFn(ctx, token)
}

type mockInvitationMetrics struct {
	results []string
}

func (m *mockInvitationMetrics) InvitationChecked(result string) {
	m.results = append(m.results, result)
}

// --- compile-time interface checks ---
var _ AuthServiceInterface = (*mockAuthService)(nil)
var _ TokenIssuerInterface = (*mockTokenIssuer)(nil)
var _ UserGetter = (*mockUserGetter)(nil)
var _ InvitationVerifier = (*mockInvitationVerifier)(nil)
var _ InvitationMetrics = (*mockInvitationMetrics)(nil)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:         "https://app.example.com",
		CookieSecure:    true,
		LoginSessionTTL: 10 * time.Minute,
	}
}

func activeUser() *model.User {
	return &model.User{
		ID:       "user-1",
		Role:     model.RoleMember,
		IsActive: true,
	}
}

func findCookie(t *testing.T, res *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func assertReasonRedirect(t *testing.T, res *http.Response, reason string) {
	t.Helper()
	if res.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", res.StatusCode)
	}
	want := "https://app.example.com/login?reason=" + reason
	if got := res.Header.Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

// --- テスト ---

func TestLogin_SetsSessionCookieAndRedirects(t *testing.T) {
	service := &mockAuthService{
		beginLoginFn: func(inviteToken, redirectURL string, disableAutoLogin bool) (*auth.BeginLoginResult, error) {
			if inviteToken != "invite-1" {
				t.Errorf("inviteToken = %q, want %q", inviteToken, "invite-1")
			}
			if redirectURL != "/shifts" {
				t.Errorf("redirectURL = %q, want %q", redirectURL, "/shifts")
			}
			if disableAutoLogin {
				t.Error("disableAutoLogin should default to false")
			}
			return &auth.BeginLoginResult{
				LoginURL:     "https://access.line.me/oauth2/v2.1/authorize?state=abc",
				SessionValue: "session-jwt",
			}, nil
		},
	}
	h := NewAuthHandler(service, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/login?invite=invite-1&redirect=/shifts", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	res := rec.Result()

	if res.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", res.StatusCode)
	}
	if got := res.Header.Get("Location"); !strings.HasPrefix(got, "https://access.line.me/") {
		t.Errorf("Location = %q, want provider URL", got)
	}

	cookie := findCookie(t, res, "auth-session")
	if cookie == nil {
		t.Fatal("auth-session cookie not set")
	}
	if cookie.Value != "session-jwt" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "session-jwt")
	}
	if !cookie.HttpOnly {
		t.Error("auth-session cookie should be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("auth-session cookie should be SameSite=Lax for the OAuth round trip")
	}
}

func TestLogin_DisableAutoLoginParam(t *testing.T) {
	var gotDisable bool
	service := &mockAuthService{
		beginLoginFn: func(inviteToken, redirectURL string, disableAutoLogin bool) (*auth.BeginLoginResult, error) {
			gotDisable = disableAutoLogin
			return &auth.BeginLoginResult{
				LoginURL:     "https://access.line.me/oauth2/v2.1/authorize?state=abc",
				SessionValue: "session-jwt",
			}, nil
		},
	}
	h := NewAuthHandler(service, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/login?disable_auto_login=true", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if !gotDisable {
		t.Error("disable_auto_login=true should be passed through to the service")
	}
}

func TestCallback_MissingSessionCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/callback?code=c&state=s", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assertReasonRedirect(t, rec.Result(), auth.ReasonSessionInvalid)
}

func TestCallback_MalformedSessionCookie(t *testing.T) {
	service := &mockAuthService{
		decodeSessionFn: func(value string) (*auth.LoginSession, error) {
			return nil, auth.ErrSessionMalformed
		},
	}
	h := NewAuthHandler(service, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/callback?code=c&state=s", nil)
	req.AddCookie(&http.Cookie{Name: "auth-session", Value: "broken"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	res := rec.Result()

	assertReasonRedirect(t, res, auth.ReasonSessionInvalid)

	// 壊れたセッションCookieは削除される
	cleared := findCookie(t, res, "auth-session")
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("auth-session cookie should be cleared")
	}
}

func TestCallback_StaleSession(t *testing.T) {
	service := &mockAuthService{
		decodeSessionFn: func(value string) (*auth.LoginSession, error) {
			return &auth.LoginSession{
				State:     "state-1",
				CreatedAt: time.Now().Add(-time.Hour),
			}, nil
		},
	}
	h := NewAuthHandler(service, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/callback?code=c&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "auth-session", Value: "session-jwt"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assertReasonRedirect(t, rec.Result(), auth.ReasonSessionExpired)
}

func TestCallback_StateMismatch(t *testing.T) {
	service := &mockAuthService{
		decodeSessionFn: func(value string) (*auth.LoginSession, error) {
			return &auth.LoginSession{State: "expected-state", CreatedAt: time.Now()}, nil
		},
	}
	h := NewAuthHandler(service, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/callback?code=c&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: "auth-session", Value: "session-jwt"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assertReasonRedirect(t, rec.Result(), auth.ReasonCSRFMismatch)
}

func TestCallback_LoginErrorReasonPassedThrough(t *testing.T) {
	service := &mockAuthService{
		decodeSessionFn: func(value string) (*auth.LoginSession, error) {
			return &auth.LoginSession{State: "state-1", CreatedAt: time.Now(), InviteToken: "invite-1"}, nil
		},
		handleCallbackFn: func(ctx context.Context, code, inviteToken string) (*model.User, error) {
			return nil, &auth.LoginError{Reason: auth.ReasonInvitationExpired, Err: errors.New("expired")}
		},
	}
	h := NewAuthHandler(service, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/callback?code=c&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "auth-session", Value: "session-jwt"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assertReasonRedirect(t, rec.Result(), auth.ReasonInvitationExpired)
}

func TestCallback_Success(t *testing.T) {
	service := &mockAuthService{
		decodeSessionFn: func(value string) (*auth.LoginSession, error) {
			return &auth.LoginSession{
				State:       "state-1",
				CreatedAt:   time.Now(),
				RedirectURL: "/shifts",
			}, nil
		},
		handleCallbackFn: func(ctx context.Context, code, inviteToken string) (*model.User, error) {
			if code != "code-1" {
				t.Errorf("code = %q, want %q", code, "code-1")
			}
			return activeUser(), nil
		},
	}
	h := NewAuthHandler(service, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/line/callback?code=code-1&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "auth-session", Value: "session-jwt"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	res := rec.Result()

	if res.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", res.StatusCode)
	}
	if got := res.Header.Get("Location"); got != "https://app.example.com/shifts" {
		t.Errorf("Location = %q, want app redirect", got)
	}

	authCookie := findCookie(t, res, "auth-token")
	if authCookie == nil {
		t.Fatal("auth-token cookie not set")
	}
	if !authCookie.HttpOnly || !authCookie.Secure {
		t.Error("auth-token cookie should be HttpOnly and Secure")
	}
	if authCookie.SameSite != http.SameSiteStrictMode {
		t.Error("auth-token cookie should be SameSite=Strict")
	}
	if authCookie.Path != "/" {
		t.Errorf("auth-token path = %q, want /", authCookie.Path)
	}

	refreshCookie := findCookie(t, res, "refresh-token")
	if refreshCookie == nil {
		t.Fatal("refresh-token cookie not set")
	}
	if refreshCookie.Path != "/api/auth" {
		t.Errorf("refresh-token path = %q, want /api/auth", refreshCookie.Path)
	}
}

func TestLogout_ClearsCookies(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	res := rec.Result()

	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", res.StatusCode)
	}
	// 一時セッションを含む3つのCookieすべてが破棄される
	for _, name := range []string{"auth-session", "auth-token", "refresh-token"} {
		c := findCookie(t, res, name)
		if c == nil || c.MaxAge != -1 {
			t.Errorf("%s cookie should be cleared", name)
		}
	}
}

func TestRefresh_Success(t *testing.T) {
	tokens := &mockTokenIssuer{
		parseFn: func(token string, kind auth.TokenKind) (*auth.AuthClaims, error) {
			if kind != auth.TokenKindRefresh {
				t.Errorf("kind = %q, want refresh", kind)
			}
			return &auth.AuthClaims{UserID: "user-1", Role: model.RoleMember}, nil
		},
	}
	users := &mockUserGetter{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			return activeUser(), nil
		},
	}
	h := NewAuthHandler(&mockAuthService{}, tokens, users, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh-token", Value: "refresh-jwt"})
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)
	res := rec.Result()

	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", res.StatusCode)
	}
	if findCookie(t, res, "auth-token") == nil {
		t.Error("auth-token cookie should be reissued")
	}
}

func TestRefresh_MissingCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockTokenIssuer{}, nil, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRefresh_DeactivatedUser(t *testing.T) {
	tokens := &mockTokenIssuer{
		parseFn: func(token string, kind auth.TokenKind) (*auth.AuthClaims, error) {
			return &auth.AuthClaims{UserID: "user-1"}, nil
		},
	}
	users := &mockUserGetter{
		getFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: "user-1", IsActive: false}, nil
		},
	}
	h := NewAuthHandler(&mockAuthService{}, tokens, users, nil, nil, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh-token", Value: "refresh-jwt"})
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)
	res := rec.Result()

	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	// 無効化ユーザーのCookieは破棄される
	c := findCookie(t, res, "auth-token")
	if c == nil || c.MaxAge != -1 {
		t.Error("auth-token cookie should be cleared for deactivated user")
	}
}

func TestVerifyInvitation(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		result     invitation.Result
		wantStatus int
		wantValid  bool
		wantCode   string
		wantMetric string
	}{
		{
			name:       "有効なトークン",
			token:      "good",
			result:     invitation.Result{IsValid: true},
			wantStatus: http.StatusOK,
			wantValid:  true,
			wantMetric: "valid",
		},
		{
			name:       "存在しないトークン",
			token:      "missing",
			result:     invitation.Result{ErrorCode: model.InvitationNotFound},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMetric: "NOT_FOUND",
		},
		{
			name:       "期限切れトークン",
			token:      "expired",
			result:     invitation.Result{ErrorCode: model.InvitationExpired},
			wantStatus: http.StatusGone,
			wantCode:   "EXPIRED",
			wantMetric: "EXPIRED",
		},
		{
			name:       "使用上限超過トークン",
			token:      "used-up",
			result:     invitation.Result{ErrorCode: model.InvitationMaxUsesExceeded},
			wantStatus: http.StatusGone,
			wantCode:   "MAX_USES_EXCEEDED",
			wantMetric: "MAX_USES_EXCEEDED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockInvitationVerifier{
				validateFn: func(ctx context.Context, token string) (invitation.Result, error) {
					return tt.result, nil
				},
			}
			metrics := &mockInvitationMetrics{}
			h := NewAuthHandler(&mockAuthService{}, &mockTokenIssuer{}, nil, verifier, metrics, testAuthConfig())

			req := newVerifyInvitationRequest(tt.token)
			rec := httptest.NewRecorder()
			h.VerifyInvitation(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["isValid"] != tt.wantValid {
				t.Errorf("isValid = %v, want %v", body["isValid"], tt.wantValid)
			}
			if tt.wantCode != "" && body["errorCode"] != tt.wantCode {
				t.Errorf("errorCode = %v, want %q", body["errorCode"], tt.wantCode)
			}
			if len(metrics.results) != 1 || metrics.results[0] != tt.wantMetric {
				t.Errorf("metrics = %v, want [%s]", metrics.results, tt.wantMetric)
			}
		})
	}
}

func TestVerifyInvitation_EmptyToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockTokenIssuer{}, nil, &mockInvitationVerifier{}, &mockInvitationMetrics{}, testAuthConfig())

	req := newVerifyInvitationRequest("")
	rec := httptest.NewRecorder()
	h.VerifyInvitation(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// newVerifyInvitationRequest はパスパラメータ付きの検証リクエストを組み立てる。
func newVerifyInvitationRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/invitations/"+token+"/verify", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("token", token)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
