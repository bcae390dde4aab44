package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takeshi/shiftman/internal/model"
)

// PostgresInstructorRepo はPostgreSQLを使用したインストラクターリポジトリ。
type PostgresInstructorRepo struct {
	db *sql.DB
}

// NewPostgresInstructorRepo はPostgresInstructorRepoを生成する。
func NewPostgresInstructorRepo(db *sql.DB) *PostgresInstructorRepo {
	return &PostgresInstructorRepo{db: db}
}

// FindByID は指定IDのインストラクターを資格ID付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresInstructorRepo) FindByID(ctx context.Context, id string) (*model.Instructor, error) {
	ins := &model.Instructor{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, last_name, first_name, last_name_kana, first_name_kana, is_active, created_at, updated_at
		 FROM instructors WHERE id = $1`,
		id,
	).Scan(&ins.ID, &ins.LastName, &ins.FirstName, &ins.LastNameKana, &ins.FirstNameKana,
		&ins.IsActive, &ins.CreatedAt, &ins.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find instructor by ID: %w", err)
	}

	if err := r.loadCertifications(ctx, ins); err != nil {
		return nil, err
	}
	return ins, nil
}

// List はインストラクター一覧をかな順で返す。
func (r *PostgresInstructorRepo) List(ctx context.Context, activeOnly bool) ([]*model.Instructor, error) {
	query := `SELECT id, last_name, first_name, last_name_kana, first_name_kana, is_active, created_at, updated_at
		 FROM instructors`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY last_name_kana, first_name_kana`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructors: %w", err)
	}
	defer rows.Close()

	var instructors []*model.Instructor
	for rows.Next() {
		ins := &model.Instructor{}
		if err := rows.Scan(&ins.ID, &ins.LastName, &ins.FirstName, &ins.LastNameKana, &ins.FirstNameKana,
			&ins.IsActive, &ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan instructor: %w", err)
		}
		instructors = append(instructors, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instructors: %w", err)
	}

	for _, ins := range instructors {
		if err := r.loadCertifications(ctx, ins); err != nil {
			return nil, err
		}
	}
	return instructors, nil
}

// Create はインストラクターと資格紐付けを同一トランザクションで作成する。
func (r *PostgresInstructorRepo) Create(ctx context.Context, ins *model.Instructor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO instructors (id, last_name, first_name, last_name_kana, first_name_kana, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ins.ID, ins.LastName, ins.FirstName, ins.LastNameKana, ins.FirstNameKana,
		ins.IsActive, ins.CreatedAt, ins.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert instructor: %w", err)
	}

	if err := insertCertifications(ctx, tx, ins.ID, ins.CertificationIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update はインストラクター情報と資格紐付けを同一トランザクションで更新する。
// 資格紐付けは全置換となる。
func (r *PostgresInstructorRepo) Update(ctx context.Context, ins *model.Instructor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE instructors SET last_name = $2, first_name = $3, last_name_kana = $4, first_name_kana = $5, updated_at = $6
		 WHERE id = $1`,
		ins.ID, ins.LastName, ins.FirstName, ins.LastNameKana, ins.FirstNameKana, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update instructor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("instructor not found: %s", ins.ID)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM instructor_certifications WHERE instructor_id = $1`,
		ins.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete instructor certifications: %w", err)
	}

	if err := insertCertifications(ctx, tx, ins.ID, ins.CertificationIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Deactivate はインストラクターを論理無効化する。
func (r *PostgresInstructorRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE instructors SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate instructor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("instructor not found: %s", id)
	}
	return nil
}

// loadCertifications はインストラクターの資格ID一覧を読み込む。
func (r *PostgresInstructorRepo) loadCertifications(ctx context.Context, ins *model.Instructor) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT certification_id FROM instructor_certifications WHERE instructor_id = $1 ORDER BY certification_id`,
		ins.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load instructor certifications: %w", err)
	}
	defer rows.Close()

	ins.CertificationIDs = nil
	for rows.Next() {
		var certID string
		if err := rows.Scan(&certID); err != nil {
			return fmt.Errorf("failed to scan instructor certification: %w", err)
		}
		ins.CertificationIDs = append(ins.CertificationIDs, certID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate instructor certifications: %w", err)
	}
	return nil
}

// insertCertifications は資格紐付け行をまとめて挿入する。
func insertCertifications(ctx context.Context, tx *sql.Tx, instructorID string, certIDs []string) error {
	for _, certID := range certIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO instructor_certifications (instructor_id, certification_id) VALUES ($1, $2)`,
			instructorID, certID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert instructor certification: %w", err)
		}
	}
	return nil
}

// compile-time interface check
var _ InstructorRepository = (*PostgresInstructorRepo)(nil)
