// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takeshi/shiftman/internal/auth"
	"github.com/takeshi/shiftman/internal/invitation"
	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/model"
)

const (
	// loginSessionCookie はOAuth往復の間だけ使う一時セッションCookie。
	loginSessionCookie = "auth-session"
	// authTokenCookie は認証トークンCookie。
	authTokenCookie = "auth-token"
	// refreshTokenCookie はリフレッシュトークンCookie。
	// /api/auth配下でのみ送信されるようPathを制限する。
	refreshTokenCookie = "refresh-token"
	// refreshTokenPath はリフレッシュトークンCookieのPath。
	refreshTokenPath = "/api/auth"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BeginLogin(inviteToken, redirectURL string, disableAutoLogin bool) (*auth.BeginLoginResult, error)
	DecodeSession(value string) (*auth.LoginSession, error)
	HandleCallback(ctx context.Context, code, inviteToken string) (*model.User, error)
}

// TokenIssuerInterface は認証トークンの発行・検証インターフェース。
type TokenIssuerInterface interface {
	IssueAuthToken(user *model.User) (string, error)
	IssueRefreshToken(user *model.User) (string, error)
	AuthTTL() time.Duration
	RefreshTTL() time.Duration
	Parse(token string, kind auth.TokenKind) (*auth.AuthClaims, error)
}

// UserGetter はユーザー取得インターフェース。リフレッシュと/me用。
type UserGetter interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// InvitationVerifier は招待トークンの事前検証インターフェース。
type InvitationVerifier interface {
	Validate(ctx context.Context, token string) (invitation.Result, error)
}

// InvitationMetrics は招待トークン検証のメトリクス記録インターフェース。
type InvitationMetrics interface {
	InvitationChecked(result string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL         string
	CookieDomain    string
	CookieSecure    bool
	LoginSessionTTL time.Duration
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service     AuthServiceInterface
	tokens      TokenIssuerInterface
	users       UserGetter
	invitations InvitationVerifier
	metrics     InvitationMetrics
	config      AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AuthServiceInterface,
	tokens TokenIssuerInterface,
	users UserGetter,
	invitations InvitationVerifier,
	metrics InvitationMetrics,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service:     service,
		tokens:      tokens,
		users:       users,
		invitations: invitations,
		metrics:     metrics,
		config:      config,
	}
}

// Login はLINEログインフローを開始する。
// GET /api/auth/line/login?invite=xxx&redirect=/shifts&disable_auto_login=true
// 招待トークンとリダイレクト先は一時セッションCookieに載せてOAuth往復を通す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	inviteToken := r.URL.Query().Get("invite")
	redirectURL := r.URL.Query().Get("redirect")
	disableAutoLogin, _ := strconv.ParseBool(r.URL.Query().Get("disable_auto_login"))

	result, err := h.service.BeginLogin(inviteToken, redirectURL, disableAutoLogin)
	if err != nil {
		slog.Error("failed to begin login", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     loginSessionCookie,
		Value:    result.SessionValue,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.config.LoginSessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, result.LoginURL, http.StatusTemporaryRedirect)
}

// Callback はLINEログインのコールバックを処理する。
// GET /api/auth/line/callback?code=xxx&state=yyy
// 一時セッションの検証に失敗した場合は理由コード付きでログインページに戻す。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(loginSessionCookie)
	if err != nil || cookie.Value == "" {
		h.redirectLoginError(w, r, auth.ReasonSessionInvalid)
		return
	}

	session, err := h.service.DecodeSession(cookie.Value)
	if err != nil {
		slog.Warn("malformed login session cookie")
		h.clearLoginSession(w)
		h.redirectLoginError(w, r, auth.ReasonSessionInvalid)
		return
	}

	h.clearLoginSession(w)

	if session.IsStale(time.Now(), h.config.LoginSessionTTL) {
		h.redirectLoginError(w, r, auth.ReasonSessionExpired)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || state != session.State {
		slog.Warn("oauth state mismatch")
		h.redirectLoginError(w, r, auth.ReasonCSRFMismatch)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectLoginError(w, r, auth.ReasonAuthFailed)
		return
	}

	user, err := h.service.HandleCallback(r.Context(), code, session.InviteToken)
	if err != nil {
		var loginErr *auth.LoginError
		if errors.As(err, &loginErr) {
			slog.Warn("login failed", slog.String("reason", loginErr.Reason))
			h.redirectLoginError(w, r, loginErr.Reason)
			return
		}
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirectLoginError(w, r, auth.ReasonAuthFailed)
		return
	}

	if err := h.issueTokenCookies(w, user); err != nil {
		slog.Error("failed to issue tokens", slog.String("error", err.Error()))
		h.redirectLoginError(w, r, auth.ReasonAuthFailed)
		return
	}

	http.Redirect(w, r, h.config.BaseURL+session.RedirectURL, http.StatusTemporaryRedirect)
}

// Logout は認証Cookieを破棄する。
// POST /api/auth/logout
// トークンはステートレスなため、サーバー側の破棄処理はCookieクリアのみ。
// 中断されたログインフローの一時セッションCookieも無条件で破棄する。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearLoginSession(w)
	h.clearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh はリフレッシュトークンで認証トークンを再発行する。
// POST /api/auth/refresh
// 無効化されたユーザーのトークンは再発行しない。
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		h.writeRefreshFailure(w)
		return
	}

	claims, err := h.tokens.Parse(cookie.Value, auth.TokenKindRefresh)
	if err != nil {
		h.writeRefreshFailure(w)
		return
	}

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		h.writeRefreshFailure(w)
		return
	}
	if !user.IsActive {
		h.clearTokenCookies(w)
		h.writeRefreshFailure(w)
		return
	}

	if err := h.issueTokenCookies(w, user); err != nil {
		slog.Error("failed to reissue tokens", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me（認証ミドルウェア必須）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse(user))
}

// VerifyInvitation は招待トークンを登録前に検証する。
// GET /api/auth/invitations/{token}/verify
// 検証は副作用を持たず、使用回数は消費されない。
func (h *AuthHandler) VerifyInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("招待トークンを指定してください"))
		return
	}

	result, err := h.invitations.Validate(r.Context(), token)
	if err != nil {
		slog.Error("failed to verify invitation", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if result.IsValid {
		h.metrics.InvitationChecked("valid")
		writeJSON(w, http.StatusOK, map[string]any{"isValid": true})
		return
	}

	h.metrics.InvitationChecked(string(result.ErrorCode))
	writeJSON(w, invitationStatus(result.ErrorCode), map[string]any{
		"isValid":   false,
		"errorCode": result.ErrorCode,
	})
}

// invitationStatus は検証エラーコードをHTTPステータスに対応付ける。
// 存在しないトークンは404、かつて有効だったが使えなくなったトークンは410。
func invitationStatus(code model.InvitationErrorCode) int {
	if code == model.InvitationNotFound {
		return http.StatusNotFound
	}
	return http.StatusGone
}

// issueTokenCookies は認証・リフレッシュトークンを発行してCookieに設定する。
func (h *AuthHandler) issueTokenCookies(w http.ResponseWriter, user *model.User) error {
	authToken, err := h.tokens.IssueAuthToken(user)
	if err != nil {
		return err
	}
	refreshToken, err := h.tokens.IssueRefreshToken(user)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    authToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.tokens.AuthTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     refreshTokenPath,
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// clearTokenCookies は認証・リフレッシュトークンCookieを削除する。
func (h *AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authTokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     refreshTokenPath,
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearLoginSession は一時セッションCookieを削除する。
func (h *AuthHandler) clearLoginSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     loginSessionCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectLoginError は理由コード付きでログインページにリダイレクトする。
func (h *AuthHandler) redirectLoginError(w http.ResponseWriter, r *http.Request, reason string) {
	q := url.Values{"reason": {reason}}
	http.Redirect(w, r, h.config.BaseURL+"/login?"+q.Encode(), http.StatusTemporaryRedirect)
}

// writeRefreshFailure はリフレッシュ失敗の401レスポンスを書き込む。
func (h *AuthHandler) writeRefreshFailure(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "REFRESH_FAILED",
		Message:  "セッションの更新に失敗しました。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	})
}

// userResponse はユーザーのAPIレスポンス表現を組み立てる。
// プロフィール画像キャッシュのバイト列は含めない。
func userResponse(u *model.User) map[string]any {
	return map[string]any{
		"id":              u.ID,
		"displayName":     u.DisplayName,
		"profileImageUrl": u.ProfileImageURL,
		"role":            u.Role,
		"instructorId":    u.InstructorID,
		"isActive":        u.IsActive,
		"createdAt":       u.CreatedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
