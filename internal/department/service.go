// Package department は部門とシフト区分のマスタデータ管理を提供する。
package department

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

// Service は部門のユースケースを提供する。
type Service struct {
	repo      repository.DepartmentRepository
	sanitizer Sanitizer
}

// NewService はServiceを生成する。
func NewService(repo repository.DepartmentRepository, sanitizer Sanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// CreateInput は部門作成・更新の入力。
type CreateInput struct {
	Name        string
	Description string
	SortOrder   int
}

// Create は部門を作成する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Department, error) {
	name := s.sanitizer.Sanitize(input.Name)
	if name == "" {
		return nil, model.NewValidationError("部門名は必須です")
	}

	now := time.Now()
	d := &model.Department{
		ID:          uuid.NewString(),
		Name:        name,
		Description: s.sanitizer.Sanitize(input.Description),
		SortOrder:   input.SortOrder,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}

	slog.Info("department created", slog.String("department_id", d.ID), slog.String("name", d.Name))
	return d, nil
}

// Update は部門を更新する。
func (s *Service) Update(ctx context.Context, id string, input CreateInput) (*model.Department, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find department: %w", err)
	}
	if d == nil {
		return nil, model.NewDepartmentNotFoundError(id)
	}

	name := s.sanitizer.Sanitize(input.Name)
	if name == "" {
		return nil, model.NewValidationError("部門名は必須です")
	}

	d.Name = name
	d.Description = s.sanitizer.Sanitize(input.Description)
	d.SortOrder = input.SortOrder
	d.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update department: %w", err)
	}
	return d, nil
}

// List は部門一覧をsort_order順で返す。
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*model.Department, error) {
	list, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return list, nil
}

// Deactivate は部門を論理無効化する。既存シフトの参照は保たれる。
func (s *Service) Deactivate(ctx context.Context, id string) error {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find department: %w", err)
	}
	if d == nil {
		return model.NewDepartmentNotFoundError(id)
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate department: %w", err)
	}
	slog.Info("department deactivated", slog.String("department_id", id))
	return nil
}
