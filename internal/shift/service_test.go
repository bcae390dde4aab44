package shift

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// --- モック定義 ---

type mockShiftRepo struct {
	findByIDFn        func(ctx context.Context, id string) (*model.Shift, error)
	findByKeyFn       func(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error)
	createFn          func(ctx context.Context, shift *model.Shift) error
	updateFn          func(ctx context.Context, shift *model.Shift) error
	deleteFn          func(ctx context.Context, id string) error
	listByDateRangeFn func(ctx context.Context, from, to time.Time, departmentID string) ([]*model.Shift, error)
}

func (m *mockShiftRepo) FindByID(ctx context.Context, id string) (*model.Shift, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockShiftRepo) FindByKey(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error) {
	if m.findByKeyFn != nil {
		return m.findByKeyFn(ctx, date, departmentID, shiftTypeID)
	}
	return nil, nil
}

func (m *mockShiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	if m.createFn != nil {
		return m.createFn(ctx, shift)
	}
	return nil
}

func (m *mockShiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, shift)
	}
	return nil
}

func (m *mockShiftRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockShiftRepo) ListByDateRange(ctx context.Context, from, to time.Time, departmentID string) ([]*model.Shift, error) {
	if m.listByDateRangeFn != nil {
		return m.listByDateRangeFn(ctx, from, to, departmentID)
	}
	return nil, nil
}

type mockDepartmentRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Department, error)
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*model.Department, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Department{ID: id, IsActive: true}, nil
}

func (m *mockDepartmentRepo) List(_ context.Context, _ bool) ([]*model.Department, error) {
	return nil, nil
}
func (m *mockDepartmentRepo) Create(_ context.Context, _ *model.Department) error { return nil }
func (m *mockDepartmentRepo) Update(_ context.Context, _ *model.Department) error { return nil }
func (m *mockDepartmentRepo) Deactivate(_ context.Context, _ string) error        { return nil }

type mockShiftTypeRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.ShiftType, error)
}

func (m *mockShiftTypeRepo) FindByID(ctx context.Context, id string) (*model.ShiftType, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.ShiftType{ID: id, IsActive: true}, nil
}

func (m *mockShiftTypeRepo) List(_ context.Context, _ bool) ([]*model.ShiftType, error) {
	return nil, nil
}
func (m *mockShiftTypeRepo) Create(_ context.Context, _ *model.ShiftType) error { return nil }
func (m *mockShiftTypeRepo) Update(_ context.Context, _ *model.ShiftType) error { return nil }
func (m *mockShiftTypeRepo) Deactivate(_ context.Context, _ string) error       { return nil }

type mockInstructorRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Instructor, error)
}

func (m *mockInstructorRepo) FindByID(ctx context.Context, id string) (*model.Instructor, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Instructor{ID: id, IsActive: true}, nil
}

func (m *mockInstructorRepo) List(_ context.Context, _ bool) ([]*model.Instructor, error) {
	return nil, nil
}
func (m *mockInstructorRepo) Create(_ context.Context, _ *model.Instructor) error { return nil }
func (m *mockInstructorRepo) Update(_ context.Context, _ *model.Instructor) error { return nil }
func (m *mockInstructorRepo) Deactivate(_ context.Context, _ string) error        { return nil }

type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(input string) string { return input }

type mockShiftMetrics struct {
	detected    int
	resolutions []string
}

func (m *mockShiftMetrics) ShiftConflictDetected() { m.detected++ }
func (m *mockShiftMetrics) ShiftConflictResolved(resolution string) {
	m.resolutions = append(m.resolutions, resolution)
}

// --- compile-time interface checks ---
var _ repository.ShiftRepository = (*mockShiftRepo)(nil)
var _ repository.DepartmentRepository = (*mockDepartmentRepo)(nil)
var _ repository.ShiftTypeRepository = (*mockShiftTypeRepo)(nil)
var _ repository.InstructorRepository = (*mockInstructorRepo)(nil)

func newTestShiftService(shifts *mockShiftRepo, m *mockShiftMetrics) *Service {
	if m == nil {
		m = &mockShiftMetrics{}
	}
	return NewService(shifts, &mockDepartmentRepo{}, &mockShiftTypeRepo{}, &mockInstructorRepo{}, passthroughSanitizer{}, m)
}

func testDate() time.Time {
	return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
}

// --- テスト ---

func TestCreate_Success(t *testing.T) {
	var created *model.Shift
	shifts := &mockShiftRepo{
		createFn: func(ctx context.Context, shift *model.Shift) error {
			created = shift
			return nil
		},
	}
	svc := newTestShiftService(shifts, nil)

	result, err := svc.Create(context.Background(), CreateInput{
		Date:                  time.Date(2026, 1, 10, 15, 30, 0, 0, time.Local),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		Description:           "午前レッスン",
		AssignedInstructorIDs: []string{"ins-1", "ins-2", "ins-1"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if result.Conflict != nil {
		t.Fatal("expected no conflict")
	}
	if created == nil {
		t.Fatal("expected shift to be created")
	}

	// 時刻成分は落とされる
	if !created.Date.Equal(testDate()) {
		t.Errorf("date = %v, want %v", created.Date, testDate())
	}
	// 割り当ての重複は除去される
	want := []string{"ins-1", "ins-2"}
	if !reflect.DeepEqual(created.AssignedInstructorIDs, want) {
		t.Errorf("assigned = %v, want %v", created.AssignedInstructorIDs, want)
	}
}

func TestCreate_UnknownDepartment(t *testing.T) {
	svc := NewService(
		&mockShiftRepo{},
		&mockDepartmentRepo{
			findByIDFn: func(ctx context.Context, id string) (*model.Department, error) {
				return nil, nil
			},
		},
		&mockShiftTypeRepo{}, &mockInstructorRepo{}, passthroughSanitizer{}, &mockShiftMetrics{},
	)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:         testDate(),
		DepartmentID: "missing",
		ShiftTypeID:  "type-1",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDepartmentNotFound {
		t.Errorf("error = %v, want DEPARTMENT_NOT_FOUND", err)
	}
}

func TestCreate_UnknownInstructor(t *testing.T) {
	svc := NewService(
		&mockShiftRepo{}, &mockDepartmentRepo{}, &mockShiftTypeRepo{},
		&mockInstructorRepo{
			findByIDFn: func(ctx context.Context, id string) (*model.Instructor, error) {
				return nil, nil
			},
		},
		passthroughSanitizer{}, &mockShiftMetrics{},
	)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:                  testDate(),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		AssignedInstructorIDs: []string{"ghost"},
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInstructorNotFound {
		t.Errorf("error = %v, want INSTRUCTOR_NOT_FOUND", err)
	}
}

func TestCreate_Duplicate_ReturnsConflictWithoutChanges(t *testing.T) {
	existing := &model.Shift{
		ID:                    "shift-existing",
		Date:                  testDate(),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		Description:           "既存シフト",
		AssignedInstructorIDs: []string{"ins-1"},
	}
	updated := false
	shifts := &mockShiftRepo{
		createFn: func(ctx context.Context, shift *model.Shift) error {
			return repository.ErrDuplicateShift
		},
		findByKeyFn: func(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, shift *model.Shift) error {
			updated = true
			return nil
		},
	}
	m := &mockShiftMetrics{}
	svc := newTestShiftService(shifts, m)

	result, err := svc.Create(context.Background(), CreateInput{
		Date:                  testDate(),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		AssignedInstructorIDs: []string{"ins-2"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if result.Shift != nil {
		t.Error("expected no shift on conflict")
	}
	if result.Conflict == nil {
		t.Fatal("expected conflict")
	}
	if result.Conflict.Existing.ID != "shift-existing" {
		t.Errorf("existing ID = %q, want %q", result.Conflict.Existing.ID, "shift-existing")
	}
	if !result.Conflict.CanForce {
		t.Error("canForce should be true")
	}
	wantOptions := []string{"merge", "replace", "cancel"}
	if !reflect.DeepEqual(result.Conflict.Options, wantOptions) {
		t.Errorf("options = %v, want %v", result.Conflict.Options, wantOptions)
	}

	// forceなしでは何も変更されない
	if updated {
		t.Error("existing shift must not be updated without force")
	}
	if m.detected != 1 {
		t.Errorf("detected = %d, want 1", m.detected)
	}
}

func TestCreate_ForceMerge_UnionsAssignments(t *testing.T) {
	existing := &model.Shift{
		ID:                    "shift-1",
		Date:                  testDate(),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		Description:           "既存の説明",
		AssignedInstructorIDs: []string{"ins-1", "ins-2"},
	}
	var saved *model.Shift
	shifts := &mockShiftRepo{
		findByKeyFn: func(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, shift *model.Shift) error {
			saved = shift
			return nil
		},
	}
	m := &mockShiftMetrics{}
	svc := newTestShiftService(shifts, m)

	result, err := svc.Create(context.Background(), CreateInput{
		Date:                  testDate(),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		AssignedInstructorIDs: []string{"ins-2", "ins-3"},
		Force:                 true,
		Resolution:            model.ResolutionMerge,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// 既存の割り当てを保ちつつ新規分を統合、重複は1つにまとめる
	want := []string{"ins-1", "ins-2", "ins-3"}
	if !reflect.DeepEqual(saved.AssignedInstructorIDs, want) {
		t.Errorf("merged assignments = %v, want %v", saved.AssignedInstructorIDs, want)
	}
	// 新規の説明が空ならば既存の説明を保つ
	if saved.Description != "既存の説明" {
		t.Errorf("description = %q, want %q", saved.Description, "既存の説明")
	}
	if result.Shift.ID != "shift-1" {
		t.Errorf("shift ID = %q, want existing ID", result.Shift.ID)
	}
	if !reflect.DeepEqual(m.resolutions, []string{"merge"}) {
		t.Errorf("resolutions = %v, want [merge]", m.resolutions)
	}
}

func TestCreate_ForceMerge_NewDescriptionOverwrites(t *testing.T) {
	existing := &model.Shift{
		ID:           "shift-1",
		Date:         testDate(),
		DepartmentID: "dept-1",
		ShiftTypeID:  "type-1",
		Description:  "既存の説明",
	}
	var saved *model.Shift
	shifts := &mockShiftRepo{
		findByKeyFn: func(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, shift *model.Shift) error {
			saved = shift
			return nil
		},
	}
	svc := newTestShiftService(shifts, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:         testDate(),
		DepartmentID: "dept-1",
		ShiftTypeID:  "type-1",
		Description:  "新しい説明",
		Force:        true,
		Resolution:   model.ResolutionMerge,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if saved.Description != "新しい説明" {
		t.Errorf("description = %q, want %q", saved.Description, "新しい説明")
	}
}

func TestCreate_ForceReplace_OverwritesEverything(t *testing.T) {
	existing := &model.Shift{
		ID:                    "shift-1",
		Date:                  testDate(),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		Description:           "既存の説明",
		AssignedInstructorIDs: []string{"ins-1", "ins-2"},
	}
	var saved *model.Shift
	shifts := &mockShiftRepo{
		findByKeyFn: func(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, shift *model.Shift) error {
			saved = shift
			return nil
		},
	}
	m := &mockShiftMetrics{}
	svc := newTestShiftService(shifts, m)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:                  testDate(),
		DepartmentID:          "dept-1",
		ShiftTypeID:           "type-1",
		Description:           "",
		AssignedInstructorIDs: []string{"ins-3"},
		Force:                 true,
		Resolution:            model.ResolutionReplace,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// replaceは説明も割り当ても新規入力で上書きする（空の説明も含む）
	if saved.Description != "" {
		t.Errorf("description = %q, want empty", saved.Description)
	}
	if !reflect.DeepEqual(saved.AssignedInstructorIDs, []string{"ins-3"}) {
		t.Errorf("assignments = %v, want [ins-3]", saved.AssignedInstructorIDs)
	}
	if !reflect.DeepEqual(m.resolutions, []string{"replace"}) {
		t.Errorf("resolutions = %v, want [replace]", m.resolutions)
	}
}

func TestCreate_ForceWithInvalidResolution(t *testing.T) {
	svc := newTestShiftService(&mockShiftRepo{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:         testDate(),
		DepartmentID: "dept-1",
		ShiftTypeID:  "type-1",
		Force:        true,
		Resolution:   "cancel",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidResolution {
		t.Errorf("error = %v, want INVALID_RESOLUTION", err)
	}
}

func TestCreate_ForceWhenExistingDisappeared_FallsBackToCreate(t *testing.T) {
	var created *model.Shift
	shifts := &mockShiftRepo{
		findByKeyFn: func(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error) {
			// 衝突確認とforce再送の間に既存シフトが削除された
			return nil, nil
		},
		createFn: func(ctx context.Context, shift *model.Shift) error {
			created = shift
			return nil
		},
	}
	svc := newTestShiftService(shifts, nil)

	result, err := svc.Create(context.Background(), CreateInput{
		Date:         testDate(),
		DepartmentID: "dept-1",
		ShiftTypeID:  "type-1",
		Force:        true,
		Resolution:   model.ResolutionMerge,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created == nil {
		t.Fatal("expected new shift to be created")
	}
	if result.Shift.ID != created.ID {
		t.Errorf("result shift = %q, want created shift %q", result.Shift.ID, created.ID)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestShiftService(&mockShiftRepo{}, nil)

	_, err := svc.Update(context.Background(), "missing", UpdateInput{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeShiftNotFound {
		t.Errorf("error = %v, want SHIFT_NOT_FOUND", err)
	}
}

func TestListByDateRange_InvalidRange(t *testing.T) {
	svc := newTestShiftService(&mockShiftRepo{}, nil)

	_, err := svc.ListByDateRange(context.Background(),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"",
	)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("error = %v, want VALIDATION_FAILED", err)
	}
}

func TestDelete_Success(t *testing.T) {
	deleted := ""
	shifts := &mockShiftRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Shift, error) {
			return &model.Shift{ID: id}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestShiftService(shifts, nil)

	if err := svc.Delete(context.Background(), "shift-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != "shift-1" {
		t.Errorf("deleted = %q, want %q", deleted, "shift-1")
	}
}
