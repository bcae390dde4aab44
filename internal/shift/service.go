// Package shift はシフトの作成・編集と重複解決フローを提供する。
package shift

import (
	"context"
	"errors"
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

// Metrics はシフト重複解決のメトリクス記録インターフェース。
type Metrics interface {
	ShiftConflictDetected()
	ShiftConflictResolved(resolution string)
}

// Service はシフトのユースケースを提供する。
type Service struct {
	shifts      repository.ShiftRepository
	departments repository.DepartmentRepository
	shiftTypes  repository.ShiftTypeRepository
	instructors repository.InstructorRepository
	sanitizer   Sanitizer
	metrics     Metrics
}

// NewService はServiceを生成する。
func NewService(
	shifts repository.ShiftRepository,
	departments repository.DepartmentRepository,
	shiftTypes repository.ShiftTypeRepository,
	instructors repository.InstructorRepository,
	sanitizer Sanitizer,
	metrics Metrics,
) *Service {
	return &Service{
		shifts:      shifts,
		departments: departments,
		shiftTypes:  shiftTypes,
		instructors: instructors,
		sanitizer:   sanitizer,
		metrics:     metrics,
	}
}

// CreateInput はシフト作成の入力。
type CreateInput struct {
	Date                  time.Time
	DepartmentID          string
	ShiftTypeID           string
	Description           string
	AssignedInstructorIDs []string

	// Force がtrueの場合、既存シフトとの重複をResolutionに従って解決する。
	Force      bool
	Resolution model.ConflictResolution
}

// CreateResult はシフト作成の結果。重複が検出され解決待ちの場合は
// ShiftがnilでConflictが設定される。
type CreateResult struct {
	Shift    *model.Shift
	Conflict *model.ShiftConflict
}

// Create はシフトを作成する。(日付, 部門, シフト区分) が既存シフトと重複する場合、
// forceなしでは何も変更せずに衝突情報を返し、クライアントの明示的な選択を待つ。
// force付きではresolution（merge/replace）に従って既存シフトを更新する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if err := s.validateRefs(ctx, input.DepartmentID, input.ShiftTypeID, input.AssignedInstructorIDs); err != nil {
		return nil, err
	}

	date := NormalizeDate(input.Date)
	assigned := dedup(input.AssignedInstructorIDs)
	description := s.sanitizer.Sanitize(input.Description)

	if input.Force {
		return s.createResolved(ctx, date, input, assigned, description)
	}

	now := time.Now()
	shift := &model.Shift{
		ID:                    uuid.NewString(),
		Date:                  date,
		DepartmentID:          input.DepartmentID,
		ShiftTypeID:           input.ShiftTypeID,
		Description:           description,
		AssignedInstructorIDs: assigned,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err := s.shifts.Create(ctx, shift)
	if err == nil {
		return &CreateResult{Shift: shift}, nil
	}
	if !errors.Is(err, repository.ErrDuplicateShift) {
		return nil, fmt.Errorf("failed to create shift: %w", err)
	}

	// 一意制約違反: 既存シフトを取得して衝突情報を返す。ここでは何も変更しない。
	existing, findErr := s.shifts.FindByKey(ctx, date, input.DepartmentID, input.ShiftTypeID)
	if findErr != nil {
		return nil, fmt.Errorf("failed to load conflicting shift: %w", findErr)
	}
	if existing == nil {
		// 制約違反の直後に既存シフトが削除された稀なケース。再試行を促す。
		return nil, fmt.Errorf("conflicting shift disappeared: %w", err)
	}

	s.metrics.ShiftConflictDetected()
	slog.Info("shift conflict detected",
		slog.String("date", date.Format("2006-01-02")),
		slog.String("department_id", input.DepartmentID),
		slog.String("shift_type_id", input.ShiftTypeID),
	)

	return &CreateResult{
		Conflict: &model.ShiftConflict{
			Existing: existing,
			CanForce: true,
			Options:  []string{"merge", "replace", "cancel"},
		},
	}, nil
}

// createResolved はforce付き作成を処理する。既存シフトがあればresolutionに従って
// 更新し、なければ通常作成にフォールバックする。
func (s *Service) createResolved(ctx context.Context, date time.Time, input CreateInput, assigned []string, description string) (*CreateResult, error) {
	if input.Resolution != model.ResolutionMerge && input.Resolution != model.ResolutionReplace {
		return nil, model.NewInvalidResolutionError(string(input.Resolution))
	}

	existing, err := s.shifts.FindByKey(ctx, date, input.DepartmentID, input.ShiftTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing shift: %w", err)
	}
	if existing == nil {
		// 衝突確認とforce再送の間に既存シフトが削除された場合は通常作成になる。
		now := time.Now()
		shift := &model.Shift{
			ID:                    uuid.NewString(),
			Date:                  date,
			DepartmentID:          input.DepartmentID,
			ShiftTypeID:           input.ShiftTypeID,
			Description:           description,
			AssignedInstructorIDs: assigned,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := s.shifts.Create(ctx, shift); err != nil {
			return nil, fmt.Errorf("failed to create shift: %w", err)
		}
		return &CreateResult{Shift: shift}, nil
	}

	switch input.Resolution {
	case model.ResolutionMerge:
		// 既存の割り当てを先頭に置き、新規分を追加して重複を除去する。
		existing.AssignedInstructorIDs = dedup(append(existing.AssignedInstructorIDs, assigned...))
		// 説明は新規入力があるときだけ上書きする。
		if description != "" {
			existing.Description = description
		}
	case model.ResolutionReplace:
		existing.AssignedInstructorIDs = assigned
		existing.Description = description
	}
	existing.UpdatedAt = time.Now()

	if err := s.shifts.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update shift: %w", err)
	}

	s.metrics.ShiftConflictResolved(string(input.Resolution))
	slog.Info("shift conflict resolved",
		slog.String("shift_id", existing.ID),
		slog.String("resolution", string(input.Resolution)),
	)
	return &CreateResult{Shift: existing}, nil
}

// UpdateInput はシフト編集の入力。
type UpdateInput struct {
	Description           string
	AssignedInstructorIDs []string
}

// Update は既存シフトの説明と割り当てを更新する。
// 日付・部門・シフト区分の変更は削除と再作成で行う。
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*model.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find shift: %w", err)
	}
	if shift == nil {
		return nil, model.NewShiftNotFoundError(id)
	}

	if err := s.validateInstructors(ctx, input.AssignedInstructorIDs); err != nil {
		return nil, err
	}

	shift.Description = s.sanitizer.Sanitize(input.Description)
	shift.AssignedInstructorIDs = dedup(input.AssignedInstructorIDs)
	shift.UpdatedAt = time.Now()

	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, fmt.Errorf("failed to update shift: %w", err)
	}
	return shift, nil
}

// Delete は指定IDのシフトを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find shift: %w", err)
	}
	if shift == nil {
		return model.NewShiftNotFoundError(id)
	}

	if err := s.shifts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	slog.Info("shift deleted", slog.String("shift_id", id))
	return nil
}

// Get は指定IDのシフトを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find shift: %w", err)
	}
	if shift == nil {
		return nil, model.NewShiftNotFoundError(id)
	}
	return shift, nil
}

// ListByDateRange は期間内のシフト一覧を返す。departmentIDが空でない場合は
// 部門で絞り込む。fromがtoより後の場合はエラー。
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time, departmentID string) ([]*model.Shift, error) {
	from = NormalizeDate(from)
	to = NormalizeDate(to)
	if from.After(to) {
		return nil, model.NewValidationError("開始日は終了日以前を指定してください")
	}

	shifts, err := s.shifts.ListByDateRange(ctx, from, to, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	return shifts, nil
}

// validateRefs は部門・シフト区分・インストラクターの参照が有効かを確認する。
func (s *Service) validateRefs(ctx context.Context, departmentID, shiftTypeID string, instructorIDs []string) error {
	dept, err := s.departments.FindByID(ctx, departmentID)
	if err != nil {
		return fmt.Errorf("failed to find department: %w", err)
	}
	if dept == nil {
		return model.NewDepartmentNotFoundError(departmentID)
	}

	st, err := s.shiftTypes.FindByID(ctx, shiftTypeID)
	if err != nil {
		return fmt.Errorf("failed to find shift type: %w", err)
	}
	if st == nil {
		return model.NewShiftTypeNotFoundError(shiftTypeID)
	}

	return s.validateInstructors(ctx, instructorIDs)
}

// validateInstructors は割り当て対象のインストラクターが全員存在するかを確認する。
func (s *Service) validateInstructors(ctx context.Context, instructorIDs []string) error {
	for _, id := range instructorIDs {
		ins, err := s.instructors.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to find instructor: %w", err)
		}
		if ins == nil {
			return model.NewInstructorNotFoundError(id)
		}
	}
	return nil
}

// NormalizeDate は時刻成分を落としてUTCの日付のみにする。
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
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
