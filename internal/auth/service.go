// Package auth はLINEログインによる認証とトークン管理を提供する。
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/takeshi/shiftman/internal/invitation"
	"github.com/takeshi/shiftman/internal/logger"
	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// LineUserInfo はOAuthプロバイダーから取得したユーザー情報。
type LineUserInfo struct {
	LineUserID      string
	DisplayName     string
	ProfileImageURL string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL は認可エンドポイントのURLを生成する。
	GetLoginURL(state string, disableAutoLogin bool) string

	// ExchangeCode は認可コードをユーザー情報に交換する。
	ExchangeCode(ctx context.Context, code string) (*LineUserInfo, error)
}

// InvitationValidator は招待トークンの検証インターフェース。
type InvitationValidator interface {
	Validate(ctx context.Context, token string) (invitation.Result, error)
}

// AvatarFetcher はプロフィール画像の取得インターフェース。
type AvatarFetcher interface {
	// Fetch は画像を取得し、バイト列とMIMEタイプを返す。
	Fetch(ctx context.Context, imageURL string) ([]byte, string, error)
}

// MetricsRecorder はログイン結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	LoginSucceeded()
	LoginFailed(reason string)
}

// ログイン失敗時にフロントエンドへリダイレクトで伝える理由コード。
// エラーページはこのコードを対処方法の文言に対応付ける。
const (
	ReasonSessionInvalid      = "session_invalid"
	ReasonSessionExpired      = "session_expired"
	ReasonCSRFMismatch        = "csrf_mismatch"
	ReasonInvitationRequired  = "invitation_required"
	ReasonInvitationExpired   = "invitation_expired"
	ReasonInvitationExhausted = "invitation_exhausted"
	ReasonInvitationInactive  = "invitation_inactive"
	ReasonAccountDisabled     = "account_disabled"
	ReasonAuthFailed          = "auth_failed"
)

// LoginError は理由コード付きのログイン失敗を表す。
type LoginError struct {
	Reason string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("login failed (%s)", e.Reason)
}

// Unwrap はラップされたエラーを返す。
func (e *LoginError) Unwrap() error { return e.Err }

// Service はログインフローのオーケストレーションを行う。
type Service struct {
	provider   OAuthProvider
	users      repository.UserRepository
	invitation InvitationValidator
	avatars    AvatarFetcher
	codec      *SessionCodec
	metrics    MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(
	provider OAuthProvider,
	users repository.UserRepository,
	invitationValidator InvitationValidator,
	avatars AvatarFetcher,
	codec *SessionCodec,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		provider:   provider,
		users:      users,
		invitation: invitationValidator,
		avatars:    avatars,
		codec:      codec,
		metrics:    metrics,
	}
}

// BeginLoginResult はログイン開始時の成果物。
type BeginLoginResult struct {
	// LoginURL はブラウザをリダイレクトする認可URL。
	LoginURL string
	// SessionValue は一時セッションCookieにセットする署名済み値。
	SessionValue string
}

// BeginLogin はCSRF用のstateを生成し、一時セッションと認可URLを組み立てる。
// 招待トークン付き（新規登録）の場合はdisableAutoLoginの指定によらず
// LINEアプリの自動ログインを無効化し、アカウント選択を強制する。
func (s *Service) BeginLogin(inviteToken, redirectURL string, disableAutoLogin bool) (*BeginLoginResult, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	session := &LoginSession{
		State:       state,
		CreatedAt:   time.Now(),
		InviteToken: inviteToken,
		RedirectURL: SafeRedirectPath(redirectURL),
	}
	value, err := s.codec.Encode(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login session: %w", err)
	}

	return &BeginLoginResult{
		LoginURL:     s.provider.GetLoginURL(state, disableAutoLogin || inviteToken != ""),
		SessionValue: value,
	}, nil
}

// DecodeSession は一時セッションCookieの値を復元する。
func (s *Service) DecodeSession(value string) (*LoginSession, error) {
	return s.codec.Decode(value)
}

// HandleCallback は認可コードをユーザー情報に交換し、ユーザーを解決する。
// 既存ユーザーはプロフィールを同期して返す。未登録ユーザーは招待トークンを
// 検証した上で、ユーザー作成とトークン消費を単一トランザクションで行う。
// 失敗は理由コード付きの*LoginErrorとして返す。
func (s *Service) HandleCallback(ctx context.Context, code, inviteToken string) (*model.User, error) {
	info, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, s.fail(ReasonAuthFailed, err)
	}

	user, err := s.users.FindByLineUserID(ctx, info.LineUserID)
	if err != nil {
		return nil, s.fail(ReasonAuthFailed, err)
	}

	if user != nil {
		if !user.IsActive {
			return nil, s.fail(ReasonAccountDisabled, nil)
		}
		if err := s.syncProfile(ctx, user, info); err != nil {
			return nil, s.fail(ReasonAuthFailed, err)
		}
		s.metrics.LoginSucceeded()
		return user, nil
	}

	user, err = s.register(ctx, info, inviteToken)
	if err != nil {
		return nil, err
	}
	s.metrics.LoginSucceeded()
	return user, nil
}

// register は招待トークンを検証して新規ユーザーを登録する。
func (s *Service) register(ctx context.Context, info *LineUserInfo, inviteToken string) (*model.User, error) {
	if inviteToken == "" {
		return nil, s.fail(ReasonInvitationRequired, nil)
	}

	result, err := s.invitation.Validate(ctx, inviteToken)
	if err != nil {
		return nil, s.fail(ReasonAuthFailed, err)
	}
	if !result.IsValid {
		return nil, s.fail(invitationReason(result.ErrorCode), nil)
	}

	now := time.Now()
	user := &model.User{
		ID:              uuid.NewString(),
		LineUserID:      info.LineUserID,
		DisplayName:     info.DisplayName,
		ProfileImageURL: info.ProfileImageURL,
		Role:            model.RoleMember,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.CreateWithInvitationUse(ctx, user, inviteToken); err != nil {
		// 検証と消費の間に他のリクエストが残回数を使い切った場合
		if errors.Is(err, repository.ErrInvitationExhausted) {
			return nil, s.fail(ReasonInvitationExhausted, nil)
		}
		return nil, s.fail(ReasonAuthFailed, err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("line_user_id", logger.Mask(user.LineUserID)),
		slog.String("invite_token", logger.Mask(inviteToken)),
	)

	s.refreshAvatar(ctx, user)
	return user, nil
}

// syncProfile はLINE側のプロフィール変更をユーザーに反映する。
func (s *Service) syncProfile(ctx context.Context, user *model.User, info *LineUserInfo) error {
	if user.DisplayName == info.DisplayName && user.ProfileImageURL == info.ProfileImageURL {
		return nil
	}

	imageChanged := user.ProfileImageURL != info.ProfileImageURL
	if err := s.users.UpdateProfile(ctx, user.ID, info.DisplayName, info.ProfileImageURL); err != nil {
		return fmt.Errorf("failed to sync profile: %w", err)
	}
	user.DisplayName = info.DisplayName
	user.ProfileImageURL = info.ProfileImageURL

	if imageChanged {
		s.refreshAvatar(ctx, user)
	}
	return nil
}

// refreshAvatar はプロフィール画像のキャッシュを更新する。
// ログイン自体を阻害しないよう、失敗してもエラーにはしない。
func (s *Service) refreshAvatar(ctx context.Context, user *model.User) {
	if user.ProfileImageURL == "" {
		return
	}

	data, mime, err := s.avatars.Fetch(ctx, user.ProfileImageURL)
	if err != nil {
		slog.Warn("failed to fetch avatar",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if bytes.Equal(data, user.AvatarData) {
		return
	}

	if err := s.users.UpdateAvatar(ctx, user.ID, data, mime); err != nil {
		slog.Warn("failed to store avatar",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	user.AvatarData = data
	user.AvatarMime = mime
}

// fail はメトリクスを記録してLoginErrorを生成する。
func (s *Service) fail(reason string, err error) *LoginError {
	s.metrics.LoginFailed(reason)
	return &LoginError{Reason: reason, Err: err}
}

// invitationReason は招待トークンのエラーコードを理由コードに対応付ける。
func invitationReason(code model.InvitationErrorCode) string {
	switch code {
	case model.InvitationInactive:
		return ReasonInvitationInactive
	case model.InvitationExpired:
		return ReasonInvitationExpired
	case model.InvitationMaxUsesExceeded:
		return ReasonInvitationExhausted
	default:
		return ReasonInvitationRequired
	}
}

// SafeRedirectPath はログイン後のリダイレクト先を相対パスに制限する。
// 外部サイトへのオープンリダイレクトを防ぐため、"/"始まりの相対パス
// 以外はすべてルートに置き換える。
func SafeRedirectPath(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	if strings.Contains(raw, "\\") {
		return "/"
	}
	return raw
}
