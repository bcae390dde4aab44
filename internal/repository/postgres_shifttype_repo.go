package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takeshi/shiftman/internal/model"
)

// PostgresShiftTypeRepo はPostgreSQLを使用したシフト区分リポジトリ。
type PostgresShiftTypeRepo struct {
	db *sql.DB
}

// NewPostgresShiftTypeRepo はPostgresShiftTypeRepoを生成する。
func NewPostgresShiftTypeRepo(db *sql.DB) *PostgresShiftTypeRepo {
	return &PostgresShiftTypeRepo{db: db}
}

// FindByID は指定IDのシフト区分を取得する。見つからない場合はnilを返す。
func (r *PostgresShiftTypeRepo) FindByID(ctx context.Context, id string) (*model.ShiftType, error) {
	st := &model.ShiftType{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, start_time, end_time, color, is_active, created_at, updated_at
		 FROM shift_types WHERE id = $1`,
		id,
	).Scan(&st.ID, &st.Name, &st.StartTime, &st.EndTime, &st.Color, &st.IsActive, &st.CreatedAt, &st.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shift type by ID: %w", err)
	}
	return st, nil
}

// List はシフト区分一覧を開始時刻順で返す。
func (r *PostgresShiftTypeRepo) List(ctx context.Context, activeOnly bool) ([]*model.ShiftType, error) {
	query := `SELECT id, name, start_time, end_time, color, is_active, created_at, updated_at FROM shift_types`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY start_time, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift types: %w", err)
	}
	defer rows.Close()

	var shiftTypes []*model.ShiftType
	for rows.Next() {
		st := &model.ShiftType{}
		if err := rows.Scan(&st.ID, &st.Name, &st.StartTime, &st.EndTime, &st.Color, &st.IsActive, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shift type: %w", err)
		}
		shiftTypes = append(shiftTypes, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shift types: %w", err)
	}
	return shiftTypes, nil
}

// Create はシフト区分を作成する。
func (r *PostgresShiftTypeRepo) Create(ctx context.Context, st *model.ShiftType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shift_types (id, name, start_time, end_time, color, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		st.ID, st.Name, st.StartTime, st.EndTime, st.Color, st.IsActive, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert shift type: %w", err)
	}
	return nil
}

// Update はシフト区分を更新する。
func (r *PostgresShiftTypeRepo) Update(ctx context.Context, st *model.ShiftType) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shift_types SET name = $2, start_time = $3, end_time = $4, color = $5, updated_at = $6 WHERE id = $1`,
		st.ID, st.Name, st.StartTime, st.EndTime, st.Color, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update shift type: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("shift type not found: %s", st.ID)
	}
	return nil
}

// Deactivate はシフト区分を論理無効化する。
func (r *PostgresShiftTypeRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shift_types SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate shift type: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("shift type not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ ShiftTypeRepository = (*PostgresShiftTypeRepo)(nil)
