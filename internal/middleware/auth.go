// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/takeshi/shiftman/internal/auth"
	"github.com/takeshi/shiftman/internal/model"
)

// authCookieName は認証トークンを保持するCookieの名前。
const authCookieName = "auth-token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// roleContextKey はリクエストコンテキストにロールを格納するためのキー。
	roleContextKey = contextKey("role")
)

// TokenParser は認証トークンの検証に必要なインターフェース。
// auth.TokenIssuerの部分集合として定義する。
type TokenParser interface {
	Parse(token string, kind auth.TokenKind) (*auth.AuthClaims, error)
}

// NewAuthMiddleware はHTTP Only Cookieから認証トークンを読み取り、
// 検証するミドルウェアを返す。認証済みユーザーIDとロールを
// リクエストコンテキストに注入する。未認証リクエストには401を返す。
func NewAuthMiddleware(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(authCookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := parser.Parse(cookie.Value, auth.TokenKindAuth)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := ContextWithUser(r.Context(), claims.UserID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// roleRank はロールの包含関係。上位ロールは下位ロールの操作をすべて行える。
var roleRank = map[model.Role]int{
	model.RoleMember:  1,
	model.RoleManager: 2,
	model.RoleAdmin:   3,
}

// RequireRole は指定ロール以上の権限を要求するミドルウェアを返す。
// ADMINはMANAGERを要求するエンドポイントにもアクセスできる。
// NewAuthMiddlewareの後に配置する必要がある。
func RequireRole(minimum model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := RoleFromContext(r.Context())
			if err != nil {
				writeUnauthorized(w)
				return
			}
			if roleRank[role] < roleRank[minimum] {
				WriteErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// RoleFromContext はリクエストコンテキストからロールを取得する。
func RoleFromContext(ctx context.Context) (model.Role, error) {
	role, ok := ctx.Value(roleContextKey).(model.Role)
	if !ok || !role.IsValid() {
		return "", fmt.Errorf("role not found in context")
	}
	return role, nil
}

// ContextWithUser はコンテキストにユーザーIDとロールを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, userID string, role model.Role) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, userID)
	return context.WithValue(ctx, roleContextKey, role)
}

// writeUnauthorized は401の統一エラーレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "AUTH_REQUIRED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}
