package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionMalformed はセッションCookieの値が壊れている（署名不正・形式不正）
// ことを表す。期限切れ等の意味的な失敗とは区別される。
var ErrSessionMalformed = errors.New("login session cookie is malformed")

// LoginSession はOAuth往復の間だけ生きる一時セッション。
// サーバー側には保存せず、署名付きCookieとしてクライアントに持たせる。
type LoginSession struct {
	// State はCSRF対策用のランダム値。認可リダイレクトとコールバックを紐付ける。
	State string
	// CreatedAt はセッション発行時刻。CookieのTTLとは独立に、
	// アプリケーションポリシーとしての経過時間チェックに使用する。
	CreatedAt time.Time
	// InviteToken は新規登録時の招待トークン。OAuth往復を通して運ばれる。
	InviteToken string
	// RedirectURL はログイン成功後の遷移先（相対パスのみ）。
	RedirectURL string
}

// IsStale はセッションがmaxAgeを超えて経過しているかを判定する。
func (s *LoginSession) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.CreatedAt) > maxAge
}

// loginSessionClaims はLoginSessionのJWT表現。
// expクレームは意図的に設定しない: 期限切れはパース失敗ではなく
// 意味的な失敗としてIsStaleで判定し、エラーメッセージを区別する。
type loginSessionClaims struct {
	State       string `json:"state"`
	CreatedAtMs int64  `json:"created_at"`
	InviteToken string `json:"invite_token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	jwt.RegisteredClaims
}

// SessionCodec はLoginSessionをHS256署名付きJWTとしてCookie値に変換する。
type SessionCodec struct {
	secret []byte
}

// NewSessionCodec はSessionCodecを生成する。
func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret)}
}

// Encode はLoginSessionを署名付き文字列に変換する。
func (c *SessionCodec) Encode(session *LoginSession) (string, error) {
	claims := loginSessionClaims{
		State:       session.State,
		CreatedAtMs: session.CreatedAt.UnixMilli(),
		InviteToken: session.InviteToken,
		RedirectURL: session.RedirectURL,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign login session: %w", err)
	}
	return signed, nil
}

// Decode は署名付き文字列をLoginSessionに復元する。
// 署名不正・形式不正の場合はErrSessionMalformedを返す。
func (c *SessionCodec) Decode(value string) (*LoginSession, error) {
	t, err := jwt.ParseWithClaims(value, &loginSessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrSessionMalformed
	}

	claims, ok := t.Claims.(*loginSessionClaims)
	if !ok || !t.Valid || claims.State == "" {
		return nil, ErrSessionMalformed
	}

	return &LoginSession{
		State:       claims.State,
		CreatedAt:   time.UnixMilli(claims.CreatedAtMs),
		InviteToken: claims.InviteToken,
		RedirectURL: claims.RedirectURL,
	}, nil
}

// GenerateState はCSRF対策用のランダムなstate値を生成する。
// 固定長32文字（16バイトのhex表現）。秘匿性は不要だが予測不能であること。
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
