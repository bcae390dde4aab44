package department

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// timePattern は "09:00" 形式の時刻文字列。
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// colorPattern は "#RRGGBB" 形式のカラーコード。
var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ShiftTypeService はシフト区分のユースケースを提供する。
type ShiftTypeService struct {
	repo      repository.ShiftTypeRepository
	sanitizer Sanitizer
}

// NewShiftTypeService はShiftTypeServiceを生成する。
func NewShiftTypeService(repo repository.ShiftTypeRepository, sanitizer Sanitizer) *ShiftTypeService {
	return &ShiftTypeService{repo: repo, sanitizer: sanitizer}
}

// ShiftTypeInput はシフト区分作成・更新の入力。
type ShiftTypeInput struct {
	Name      string
	StartTime string
	EndTime   string
	Color     string
}

// validate は入力を検証する。ナイター等の日またぎ区分を許容するため、
// 開始時刻と終了時刻の前後関係はチェックしない。
func (i ShiftTypeInput) validate(name string) error {
	if name == "" {
		return model.NewValidationError("シフト区分名は必須です")
	}
	if !timePattern.MatchString(i.StartTime) {
		return model.NewValidationError("開始時刻は HH:MM 形式で指定してください")
	}
	if !timePattern.MatchString(i.EndTime) {
		return model.NewValidationError("終了時刻は HH:MM 形式で指定してください")
	}
	if i.Color != "" && !colorPattern.MatchString(i.Color) {
		return model.NewValidationError("カラーコードは #RRGGBB 形式で指定してください")
	}
	return nil
}

// Create はシフト区分を作成する。
func (s *ShiftTypeService) Create(ctx context.Context, input ShiftTypeInput) (*model.ShiftType, error) {
	name := s.sanitizer.Sanitize(input.Name)
	if err := input.validate(name); err != nil {
		return nil, err
	}

	now := time.Now()
	st := &model.ShiftType{
		ID:        uuid.NewString(),
		Name:      name,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Color:     input.Color,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to create shift type: %w", err)
	}

	slog.Info("shift type created", slog.String("shift_type_id", st.ID), slog.String("name", st.Name))
	return st, nil
}

// Update はシフト区分を更新する。
func (s *ShiftTypeService) Update(ctx context.Context, id string, input ShiftTypeInput) (*model.ShiftType, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find shift type: %w", err)
	}
	if st == nil {
		return nil, model.NewShiftTypeNotFoundError(id)
	}

	name := s.sanitizer.Sanitize(input.Name)
	if err := input.validate(name); err != nil {
		return nil, err
	}

	st.Name = name
	st.StartTime = input.StartTime
	st.EndTime = input.EndTime
	st.Color = input.Color
	st.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to update shift type: %w", err)
	}
	return st, nil
}

// List はシフト区分一覧を開始時刻順で返す。
func (s *ShiftTypeService) List(ctx context.Context, activeOnly bool) ([]*model.ShiftType, error) {
	list, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift types: %w", err)
	}
	return list, nil
}

// Deactivate はシフト区分を論理無効化する。
func (s *ShiftTypeService) Deactivate(ctx context.Context, id string) error {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find shift type: %w", err)
	}
	if st == nil {
		return model.NewShiftTypeNotFoundError(id)
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate shift type: %w", err)
	}
	slog.Info("shift type deactivated", slog.String("shift_type_id", id))
	return nil
}
