package invitation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/takeshi/shiftman/internal/logger"
	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// Sanitizer は自由入力テキストのサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(input string) string
}

// Service は招待トークンの発行・管理を提供する。ADMIN専用の操作群。
type Service struct {
	repo      repository.InvitationRepository
	sanitizer Sanitizer
}

// NewService はServiceを生成する。
func NewService(repo repository.InvitationRepository, sanitizer Sanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// CreateInput は招待トークン作成の入力。
type CreateInput struct {
	Description string
	ExpiresAt   time.Time
	MaxUses     *int
	CreatedBy   string
}

// Create は新しい招待トークンを発行する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.InvitationToken, error) {
	if input.ExpiresAt.Before(time.Now()) {
		return nil, model.NewValidationError("有効期限は未来の日時を指定してください")
	}
	if input.MaxUses != nil && *input.MaxUses < 1 {
		return nil, model.NewValidationError("使用回数上限は1以上を指定してください")
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation token: %w", err)
	}

	now := time.Now()
	inv := &model.InvitationToken{
		Token:       token,
		Description: s.sanitizer.Sanitize(input.Description),
		ExpiresAt:   input.ExpiresAt,
		IsActive:    true,
		MaxUses:     input.MaxUses,
		UsedCount:   0,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation token: %w", err)
	}

	slog.Info("invitation token created",
		slog.String("token", logger.Mask(token)),
		slog.String("created_by", input.CreatedBy),
	)
	return inv, nil
}

// List は全招待トークンを返す。
func (s *Service) List(ctx context.Context) ([]*model.InvitationToken, error) {
	invs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitation tokens: %w", err)
	}
	return invs, nil
}

// SetActive は招待トークンの有効フラグを切り替える。
// 招待トークンは物理削除されない（論理無効化のみ）。
func (s *Service) SetActive(ctx context.Context, token string, isActive bool) error {
	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to find invitation token: %w", err)
	}
	if inv == nil {
		return model.NewInvitationNotFoundError()
	}

	if err := s.repo.SetActive(ctx, token, isActive); err != nil {
		return fmt.Errorf("failed to update invitation token: %w", err)
	}

	slog.Info("invitation token active flag updated",
		slog.String("token", logger.Mask(token)),
		slog.Bool("is_active", isActive),
	)
	return nil
}

// generateToken はURLセーフなランダムトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
