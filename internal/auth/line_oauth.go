package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultLineAuthURL    = "https://access.line.me/oauth2/v2.1/authorize"
	defaultLineTokenURL   = "https://api.line.me/oauth2/v2.1/token"
	defaultLineProfileURL = "https://api.line.me/v2/profile"
)

// LineOAuthConfig はLINE Loginプロバイダーの設定。
type LineOAuthConfig struct {
	ChannelID     string
	ChannelSecret string
	RedirectURL   string

	// テスト用にオーバーライド可能なURL
	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// LineOAuthProvider はLINE Login v2.1による認証を提供する。
type LineOAuthProvider struct {
	config LineOAuthConfig
}

// NewLineOAuthProvider はLineOAuthProviderを生成する。
func NewLineOAuthProvider(config LineOAuthConfig) *LineOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultLineAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultLineTokenURL
	}
	if config.ProfileURL == "" {
		config.ProfileURL = defaultLineProfileURL
	}
	return &LineOAuthProvider{config: config}
}

// GetLoginURL はLINE Loginの認可URLを生成する。
// disableAutoLoginがtrueの場合、LINEアプリによる自動ログインを無効化する。
func (p *LineOAuthProvider) GetLoginURL(state string, disableAutoLogin bool) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {p.config.ChannelID},
		"redirect_uri":  {p.config.RedirectURL},
		"state":         {state},
		"scope":         {"profile openid"},
	}
	if disableAutoLogin {
		params.Set("disable_auto_login", "true")
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// lineTokenResponse はLINEのトークンエンドポイントのレスポンス。
type lineTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// lineProfile はLINEのプロフィールエンドポイントのレスポンス。
type lineProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、プロフィールを取得する。
func (p *LineOAuthProvider) ExchangeCode(ctx context.Context, code string) (*LineUserInfo, error) {
	tokenResp, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	profile, err := p.fetchProfile(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return &LineUserInfo{
		LineUserID:      profile.UserID,
		DisplayName:     profile.DisplayName,
		ProfileImageURL: profile.PictureURL,
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *LineOAuthProvider) exchangeToken(ctx context.Context, code string) (*lineTokenResponse, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {p.config.RedirectURL},
		"client_id":     {p.config.ChannelID},
		"client_secret": {p.config.ChannelSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp lineTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResp, nil
}

// fetchProfile はアクセストークンでLINEのプロフィールを取得する。
func (p *LineOAuthProvider) fetchProfile(ctx context.Context, accessToken string) (*lineProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile lineProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}

	if profile.UserID == "" {
		return nil, fmt.Errorf("empty userId in profile response")
	}

	return &profile, nil
}

// compile-time interface check
var _ OAuthProvider = (*LineOAuthProvider)(nil)
