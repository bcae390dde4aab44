// Package instructor はインストラクターと資格のマスタデータ管理を提供する。
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

// Sanitizer は自由入力テキストのサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(input string) string
}

// Service はインストラクターのユースケースを提供する。
type Service struct {
	repo      repository.InstructorRepository
	certs     repository.CertificationRepository
	sanitizer Sanitizer
}

// NewService はServiceを生成する。
func NewService(repo repository.InstructorRepository, certs repository.CertificationRepository, sanitizer Sanitizer) *Service {
	return &Service{repo: repo, certs: certs, sanitizer: sanitizer}
}

// Input はインストラクター作成・更新の入力。
type Input struct {
	LastName         string
	FirstName        string
	LastNameKana     string
	FirstNameKana    string
	CertificationIDs []string
}

// Create はインストラクターを作成する。資格紐付けも同時に登録される。
func (s *Service) Create(ctx context.Context, input Input) (*model.Instructor, error) {
	ins, err := s.build(ctx, uuid.NewString(), input)
	if err != nil {
		return nil, err
	}
	ins.IsActive = true

	if err := s.repo.Create(ctx, ins); err != nil {
		return nil, fmt.Errorf("failed to create instructor: %w", err)
	}

	slog.Info("instructor created",
		slog.String("instructor_id", ins.ID),
		slog.String("name", ins.LastName+" "+ins.FirstName),
	)
	return ins, nil
}

// Update はインストラクターを更新する。資格紐付けは全置換される。
func (s *Service) Update(ctx context.Context, id string, input Input) (*model.Instructor, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find instructor: %w", err)
	}
	if existing == nil {
		return nil, model.NewInstructorNotFoundError(id)
	}

	ins, err := s.build(ctx, id, input)
	if err != nil {
		return nil, err
	}
	ins.IsActive = existing.IsActive
	ins.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, ins); err != nil {
		return nil, fmt.Errorf("failed to update instructor: %w", err)
	}
	return ins, nil
}

// build は入力を検証してInstructorを組み立てる。
func (s *Service) build(ctx context.Context, id string, input Input) (*model.Instructor, error) {
	lastName := s.sanitizer.Sanitize(input.LastName)
	firstName := s.sanitizer.Sanitize(input.FirstName)
	if lastName == "" || firstName == "" {
		return nil, model.NewValidationError("姓と名は必須です")
	}

	certIDs := dedup(input.CertificationIDs)
	for _, certID := range certIDs {
		cert, err := s.certs.FindByID(ctx, certID)
		if err != nil {
			return nil, fmt.Errorf("failed to find certification: %w", err)
		}
		if cert == nil {
			return nil, model.NewCertificationNotFoundError(certID)
		}
	}

	now := time.Now()
	return &model.Instructor{
		ID:               id,
		LastName:         lastName,
		FirstName:        firstName,
		LastNameKana:     s.sanitizer.Sanitize(input.LastNameKana),
		FirstNameKana:    s.sanitizer.Sanitize(input.FirstNameKana),
		CertificationIDs: certIDs,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Get は指定IDのインストラクターを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Instructor, error) {
	ins, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find instructor: %w", err)
	}
	if ins == nil {
		return nil, model.NewInstructorNotFoundError(id)
	}
	return ins, nil
}

// List はインストラクター一覧をかな順で返す。
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*model.Instructor, error) {
	list, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructors: %w", err)
	}
	return list, nil
}

// Deactivate はインストラクターを論理無効化する。
// 過去のシフト割り当ては保たれるが、新規割り当ての候補には出なくなる。
func (s *Service) Deactivate(ctx context.Context, id string) error {
	ins, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find instructor: %w", err)
	}
	if ins == nil {
		return model.NewInstructorNotFoundError(id)
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate instructor: %w", err)
	}
	slog.Info("instructor deactivated", slog.String("instructor_id", id))
	return nil
}

// dedup は順序を保ったまま重複を除去する。
func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
