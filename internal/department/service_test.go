package department

import (
	"context"
	"errors"
	"testing"

	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

type mockDepartmentRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Department, error)
	createFn   func(ctx context.Context, d *model.Department) error
	updateFn   func(ctx context.Context, d *model.Department) error
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*model.Department, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Department{ID: id, Name: "スキー", IsActive: true}, nil
}

func (m *mockDepartmentRepo) List(_ context.Context, _ bool) ([]*model.Department, error) {
	return nil, nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, d *model.Department) error {
	if m.createFn != nil {
		return m.createFn(ctx, d)
	}
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, d *model.Department) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, d)
	}
	return nil
}

func (m *mockDepartmentRepo) Deactivate(_ context.Context, _ string) error { return nil }

var _ repository.DepartmentRepository = (*mockDepartmentRepo)(nil)

func TestDepartmentCreate_Success(t *testing.T) {
	var created *model.Department
	repo := &mockDepartmentRepo{
		createFn: func(ctx context.Context, d *model.Department) error {
			created = d
			return nil
		},
	}
	svc := NewService(repo, passthroughSanitizer{})

	d, err := svc.Create(context.Background(), CreateInput{
		Name:        "スノーボード",
		Description: "スノーボードレッスン担当",
		SortOrder:   2,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created == nil {
		t.Fatal("expected department to be created")
	}
	if !d.IsActive {
		t.Error("new department should be active")
	}
	if d.SortOrder != 2 {
		t.Errorf("SortOrder = %d, want 2", d.SortOrder)
	}
}

func TestDepartmentCreate_EmptyNameRejected(t *testing.T) {
	svc := NewService(&mockDepartmentRepo{}, passthroughSanitizer{})

	_, err := svc.Create(context.Background(), CreateInput{Name: ""})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("error = %v, want VALIDATION_FAILED", err)
	}
}

func TestDepartmentUpdate_NotFound(t *testing.T) {
	repo := &mockDepartmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Department, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, passthroughSanitizer{})

	_, err := svc.Update(context.Background(), "missing", CreateInput{Name: "スキー"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDepartmentNotFound {
		t.Errorf("error = %v, want DEPARTMENT_NOT_FOUND", err)
	}
}

func TestDepartmentDeactivate_NotFound(t *testing.T) {
	repo := &mockDepartmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Department, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, passthroughSanitizer{})

	err := svc.Deactivate(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDepartmentNotFound {
		t.Errorf("error = %v, want DEPARTMENT_NOT_FOUND", err)
	}
}
