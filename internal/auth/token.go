package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/takeshi/shiftman/internal/model"
)

// TokenKind は発行するトークンの種別。
type TokenKind string

const (
	// TokenKindAuth は認証トークン（短命、全APIで使用）。
	TokenKindAuth TokenKind = "auth"
	// TokenKindRefresh はリフレッシュトークン（長命、/api/auth配下でのみ送信される）。
	TokenKindRefresh TokenKind = "refresh"
)

// ErrInvalidToken はトークンの署名不正・期限切れ・種別不一致を表す。
var ErrInvalidToken = errors.New("invalid token")

// AuthClaims は認証トークン・リフレッシュトークンのクレーム。
type AuthClaims struct {
	UserID string     `json:"uid"`
	Role   model.Role `json:"role"`
	Kind   TokenKind  `json:"kind"`
	jwt.RegisteredClaims
}

// TokenIssuer は認証トークンとリフレッシュトークンの発行・検証を行う。
type TokenIssuer struct {
	secret     []byte
	authTTL    time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(secret string, authTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		authTTL:    authTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAuthToken はユーザーの認証トークンを発行する。
func (i *TokenIssuer) IssueAuthToken(user *model.User) (string, error) {
	return i.issue(user, TokenKindAuth, i.authTTL)
}

// IssueRefreshToken はユーザーのリフレッシュトークンを発行する。
func (i *TokenIssuer) IssueRefreshToken(user *model.User) (string, error) {
	return i.issue(user, TokenKindRefresh, i.refreshTTL)
}

// AuthTTL は認証トークンの有効期間を返す。Cookieのmax-age設定に使用する。
func (i *TokenIssuer) AuthTTL() time.Duration { return i.authTTL }

// RefreshTTL はリフレッシュトークンの有効期間を返す。
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *TokenIssuer) issue(user *model.User, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		UserID: user.ID,
		Role:   user.Role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Parse はトークンを検証し、クレームを返す。
// 署名不正・期限切れ・種別不一致の場合はErrInvalidTokenを返す。
func (i *TokenIssuer) Parse(token string, kind TokenKind) (*AuthClaims, error) {
	t, err := jwt.ParseWithClaims(token, &AuthClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := t.Claims.(*AuthClaims)
	if !ok || !t.Valid || claims.UserID == "" || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
