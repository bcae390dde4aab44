package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takeshi/shiftman/internal/model"
)

// PostgresDepartmentRepo はPostgreSQLを使用した部門リポジトリ。
type PostgresDepartmentRepo struct {
	db *sql.DB
}

// NewPostgresDepartmentRepo はPostgresDepartmentRepoを生成する。
func NewPostgresDepartmentRepo(db *sql.DB) *PostgresDepartmentRepo {
	return &PostgresDepartmentRepo{db: db}
}

// FindByID は指定IDの部門を取得する。見つからない場合はnilを返す。
func (r *PostgresDepartmentRepo) FindByID(ctx context.Context, id string) (*model.Department, error) {
	d := &model.Department{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, sort_order, is_active, created_at, updated_at
		 FROM departments WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Name, &d.Description, &d.SortOrder, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find department by ID: %w", err)
	}
	return d, nil
}

// List は部門一覧をsort_order順で返す。
func (r *PostgresDepartmentRepo) List(ctx context.Context, activeOnly bool) ([]*model.Department, error) {
	query := `SELECT id, name, description, sort_order, is_active, created_at, updated_at FROM departments`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*model.Department
	for rows.Next() {
		d := &model.Department{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.SortOrder, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate departments: %w", err)
	}
	return departments, nil
}

// Create は部門を作成する。
func (r *PostgresDepartmentRepo) Create(ctx context.Context, d *model.Department) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO departments (id, name, description, sort_order, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Name, d.Description, d.SortOrder, d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert department: %w", err)
	}
	return nil
}

// Update は部門情報を更新する。
func (r *PostgresDepartmentRepo) Update(ctx context.Context, d *model.Department) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE departments SET name = $2, description = $3, sort_order = $4, updated_at = $5 WHERE id = $1`,
		d.ID, d.Name, d.Description, d.SortOrder, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("department not found: %s", d.ID)
	}
	return nil
}

// Deactivate は部門を論理無効化する。
func (r *PostgresDepartmentRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE departments SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate department: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("department not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ DepartmentRepository = (*PostgresDepartmentRepo)(nil)
