package instructor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// CertificationService は資格マスタのユースケースを提供する。
type CertificationService struct {
	repo      repository.CertificationRepository
	sanitizer Sanitizer
}

// NewCertificationService はCertificationServiceを生成する。
func NewCertificationService(repo repository.CertificationRepository, sanitizer Sanitizer) *CertificationService {
	return &CertificationService{repo: repo, sanitizer: sanitizer}
}

// CertificationInput は資格作成・更新の入力。
type CertificationInput struct {
	Name         string
	Organization string
}

// Create は資格を作成する。
func (s *CertificationService) Create(ctx context.Context, input CertificationInput) (*model.Certification, error) {
	name := s.sanitizer.Sanitize(input.Name)
	if name == "" {
		return nil, model.NewValidationError("資格名は必須です")
	}

	now := time.Now()
	c := &model.Certification{
		ID:           uuid.NewString(),
		Name:         name,
		Organization: s.sanitizer.Sanitize(input.Organization),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create certification: %w", err)
	}

	slog.Info("certification created", slog.String("certification_id", c.ID), slog.String("name", c.Name))
	return c, nil
}

// Update は資格を更新する。
func (s *CertificationService) Update(ctx context.Context, id string, input CertificationInput) (*model.Certification, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find certification: %w", err)
	}
	if c == nil {
		return nil, model.NewCertificationNotFoundError(id)
	}

	name := s.sanitizer.Sanitize(input.Name)
	if name == "" {
		return nil, model.NewValidationError("資格名は必須です")
	}

	c.Name = name
	c.Organization = s.sanitizer.Sanitize(input.Organization)
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update certification: %w", err)
	}
	return c, nil
}

// List は資格一覧を名前順で返す。
func (s *CertificationService) List(ctx context.Context) ([]*model.Certification, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	return list, nil
}

// Delete は資格を削除する。インストラクターとの紐付けも同時に削除される。
func (s *CertificationService) Delete(ctx context.Context, id string) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find certification: %w", err)
	}
	if c == nil {
		return model.NewCertificationNotFoundError(id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete certification: %w", err)
	}
	slog.Info("certification deleted", slog.String("certification_id", id))
	return nil
}
