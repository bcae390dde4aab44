package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/takeshi/shiftman/internal/model"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATEコード。
const uniqueViolationCode = "23505"

// PostgresShiftRepo はPostgreSQLを使用したシフトリポジトリ。
type PostgresShiftRepo struct {
	db *sql.DB
}

// NewPostgresShiftRepo はPostgresShiftRepoを生成する。
func NewPostgresShiftRepo(db *sql.DB) *PostgresShiftRepo {
	return &PostgresShiftRepo{db: db}
}

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}

// FindByID は指定IDのシフトを割り当て付きで取得する。見つからない場合はnilを返す。
func (r *PostgresShiftRepo) FindByID(ctx context.Context, id string) (*model.Shift, error) {
	shift := &model.Shift{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, date, department_id, shift_type_id, description, created_at, updated_at
		 FROM shifts WHERE id = $1`,
		id,
	).Scan(&shift.ID, &shift.Date, &shift.DepartmentID, &shift.ShiftTypeID,
		&shift.Description, &shift.CreatedAt, &shift.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shift by ID: %w", err)
	}

	if err := r.loadAssignments(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// FindByKey は (date, departmentID, shiftTypeID) でシフトを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresShiftRepo) FindByKey(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error) {
	shift := &model.Shift{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, date, department_id, shift_type_id, description, created_at, updated_at
		 FROM shifts WHERE date = $1 AND department_id = $2 AND shift_type_id = $3`,
		date, departmentID, shiftTypeID,
	).Scan(&shift.ID, &shift.Date, &shift.DepartmentID, &shift.ShiftTypeID,
		&shift.Description, &shift.CreatedAt, &shift.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shift by key: %w", err)
	}

	if err := r.loadAssignments(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// Create はシフトと割り当てを同一トランザクションで作成する。
// 一意制約違反の場合はErrDuplicateShiftを返す。
func (r *PostgresShiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO shifts (id, date, department_id, shift_type_id, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		shift.ID, shift.Date, shift.DepartmentID, shift.ShiftTypeID,
		shift.Description, shift.CreatedAt, shift.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateShift
		}
		return fmt.Errorf("failed to insert shift: %w", err)
	}

	if err := insertAssignments(ctx, tx, shift.ID, shift.AssignedInstructorIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update はシフトの説明と割り当て集合を同一トランザクションで全置換する。
func (r *PostgresShiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE shifts SET description = $2, updated_at = $3 WHERE id = $1`,
		shift.ID, shift.Description, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("shift not found: %s", shift.ID)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM shift_assignments WHERE shift_id = $1`,
		shift.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete shift assignments: %w", err)
	}

	if err := insertAssignments(ctx, tx, shift.ID, shift.AssignedInstructorIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete は指定IDのシフトを削除する。割り当てはCASCADE削除される。
func (r *PostgresShiftRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM shifts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("shift not found: %s", id)
	}
	return nil
}

// ListByDateRange は期間内のシフト一覧を割り当て付きで返す。
func (r *PostgresShiftRepo) ListByDateRange(ctx context.Context, from, to time.Time, departmentID string) ([]*model.Shift, error) {
	query := `SELECT id, date, department_id, shift_type_id, description, created_at, updated_at
		 FROM shifts WHERE date >= $1 AND date <= $2`
	args := []any{from, to}
	if departmentID != "" {
		query += ` AND department_id = $3`
		args = append(args, departmentID)
	}
	query += ` ORDER BY date, department_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift := &model.Shift{}
		if err := rows.Scan(&shift.ID, &shift.Date, &shift.DepartmentID, &shift.ShiftTypeID,
			&shift.Description, &shift.CreatedAt, &shift.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shifts: %w", err)
	}

	for _, shift := range shifts {
		if err := r.loadAssignments(ctx, shift); err != nil {
			return nil, err
		}
	}
	return shifts, nil
}

// loadAssignments はシフトの割り当てインストラクターID一覧を読み込む。
func (r *PostgresShiftRepo) loadAssignments(ctx context.Context, shift *model.Shift) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT instructor_id FROM shift_assignments WHERE shift_id = $1 ORDER BY instructor_id`,
		shift.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load shift assignments: %w", err)
	}
	defer rows.Close()

	shift.AssignedInstructorIDs = nil
	for rows.Next() {
		var instructorID string
		if err := rows.Scan(&instructorID); err != nil {
			return fmt.Errorf("failed to scan shift assignment: %w", err)
		}
		shift.AssignedInstructorIDs = append(shift.AssignedInstructorIDs, instructorID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shift assignments: %w", err)
	}
	return nil
}

// insertAssignments は割り当て行をまとめて挿入する。
func insertAssignments(ctx context.Context, tx *sql.Tx, shiftID string, instructorIDs []string) error {
	for _, instructorID := range instructorIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shift_assignments (shift_id, instructor_id) VALUES ($1, $2)`,
			shiftID, instructorID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert shift assignment: %w", err)
		}
	}
	return nil
}

// compile-time interface check
var _ ShiftRepository = (*PostgresShiftRepo)(nil)
