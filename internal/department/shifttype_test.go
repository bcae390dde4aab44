package department

import (
	"context"
	"errors"
	"testing"

	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// --- モック定義 ---

type mockShiftTypeRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.ShiftType, error)
	createFn   func(ctx context.Context, st *model.ShiftType) error
	updateFn   func(ctx context.Context, st *model.ShiftType) error
}

func (m *mockShiftTypeRepo) FindByID(ctx context.Context, id string) (*model.ShiftType, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.ShiftType{ID: id, Name: "午前", StartTime: "09:00", EndTime: "12:00", IsActive: true}, nil
}

func (m *mockShiftTypeRepo) List(_ context.Context, _ bool) ([]*model.ShiftType, error) {
	return nil, nil
}

func (m *mockShiftTypeRepo) Create(ctx context.Context, st *model.ShiftType) error {
	if m.createFn != nil {
		return m.createFn(ctx, st)
	}
	return nil
}

func (m *mockShiftTypeRepo) Update(ctx context.Context, st *model.ShiftType) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, st)
	}
	return nil
}

func (m *mockShiftTypeRepo) Deactivate(_ context.Context, _ string) error { return nil }

var _ repository.ShiftTypeRepository = (*mockShiftTypeRepo)(nil)

type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(input string) string { return input }

func newTestShiftTypeService(repo *mockShiftTypeRepo) *ShiftTypeService {
	return NewShiftTypeService(repo, passthroughSanitizer{})
}

// --- テスト ---

func TestShiftTypeCreate_Success(t *testing.T) {
	var created *model.ShiftType
	repo := &mockShiftTypeRepo{
		createFn: func(ctx context.Context, st *model.ShiftType) error {
			created = st
			return nil
		},
	}
	svc := newTestShiftTypeService(repo)

	st, err := svc.Create(context.Background(), ShiftTypeInput{
		Name:      "午前",
		StartTime: "09:00",
		EndTime:   "12:00",
		Color:     "#3B82F6",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created == nil {
		t.Fatal("expected shift type to be created")
	}
	if !st.IsActive {
		t.Error("new shift type should be active")
	}
	if st.ID == "" {
		t.Error("ID should be generated")
	}
}

func TestShiftTypeCreate_OvernightAllowed(t *testing.T) {
	svc := newTestShiftTypeService(&mockShiftTypeRepo{})

	// ナイター: 終了が開始より前でも有効
	_, err := svc.Create(context.Background(), ShiftTypeInput{
		Name:      "ナイター",
		StartTime: "18:00",
		EndTime:   "01:00",
	})
	if err != nil {
		t.Errorf("Create() error = %v, overnight shift type should be allowed", err)
	}
}

func TestShiftTypeCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input ShiftTypeInput
	}{
		{"名前が空", ShiftTypeInput{Name: "", StartTime: "09:00", EndTime: "12:00"}},
		{"開始時刻の形式不正", ShiftTypeInput{Name: "午前", StartTime: "9:00", EndTime: "12:00"}},
		{"開始時刻が範囲外", ShiftTypeInput{Name: "午前", StartTime: "25:00", EndTime: "12:00"}},
		{"終了時刻の分が範囲外", ShiftTypeInput{Name: "午前", StartTime: "09:00", EndTime: "12:60"}},
		{"終了時刻が空", ShiftTypeInput{Name: "午前", StartTime: "09:00", EndTime: ""}},
		{"カラーコードの形式不正", ShiftTypeInput{Name: "午前", StartTime: "09:00", EndTime: "12:00", Color: "blue"}},
		{"カラーコードが短い", ShiftTypeInput{Name: "午前", StartTime: "09:00", EndTime: "12:00", Color: "#FFF"}},
	}

	svc := newTestShiftTypeService(&mockShiftTypeRepo{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("error = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestShiftTypeCreate_EmptyColorAllowed(t *testing.T) {
	svc := newTestShiftTypeService(&mockShiftTypeRepo{})

	_, err := svc.Create(context.Background(), ShiftTypeInput{
		Name:      "午後",
		StartTime: "13:00",
		EndTime:   "17:00",
	})
	if err != nil {
		t.Errorf("Create() error = %v, empty color should be allowed", err)
	}
}

func TestShiftTypeUpdate_NotFound(t *testing.T) {
	repo := &mockShiftTypeRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.ShiftType, error) {
			return nil, nil
		},
	}
	svc := newTestShiftTypeService(repo)

	_, err := svc.Update(context.Background(), "missing", ShiftTypeInput{
		Name: "午前", StartTime: "09:00", EndTime: "12:00",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeShiftTypeNotFound {
		t.Errorf("error = %v, want SHIFT_TYPE_NOT_FOUND", err)
	}
}

func TestShiftTypeUpdate_Success(t *testing.T) {
	var saved *model.ShiftType
	repo := &mockShiftTypeRepo{
		updateFn: func(ctx context.Context, st *model.ShiftType) error {
			saved = st
			return nil
		},
	}
	svc := newTestShiftTypeService(repo)

	_, err := svc.Update(context.Background(), "type-1", ShiftTypeInput{
		Name:      "早朝",
		StartTime: "06:00",
		EndTime:   "09:00",
		Color:     "#10B981",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if saved.Name != "早朝" || saved.StartTime != "06:00" {
		t.Errorf("saved = %+v, want updated fields", saved)
	}
}
