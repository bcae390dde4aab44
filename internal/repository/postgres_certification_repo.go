package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takeshi/shiftman/internal/model"
)

// PostgresCertificationRepo はPostgreSQLを使用した資格リポジトリ。
type PostgresCertificationRepo struct {
	db *sql.DB
}

// NewPostgresCertificationRepo はPostgresCertificationRepoを生成する。
func NewPostgresCertificationRepo(db *sql.DB) *PostgresCertificationRepo {
	return &PostgresCertificationRepo{db: db}
}

// FindByID は指定IDの資格を取得する。見つからない場合はnilを返す。
func (r *PostgresCertificationRepo) FindByID(ctx context.Context, id string) (*model.Certification, error) {
	c := &model.Certification{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, organization, created_at, updated_at FROM certifications WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Organization, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find certification by ID: %w", err)
	}
	return c, nil
}

// List は資格一覧を名前順で返す。
func (r *PostgresCertificationRepo) List(ctx context.Context) ([]*model.Certification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, organization, created_at, updated_at FROM certifications ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	defer rows.Close()

	var certs []*model.Certification
	for rows.Next() {
		c := &model.Certification{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Organization, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan certification: %w", err)
		}
		certs = append(certs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certifications: %w", err)
	}
	return certs, nil
}

// Create は資格を作成する。
func (r *PostgresCertificationRepo) Create(ctx context.Context, c *model.Certification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO certifications (id, name, organization, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Organization, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert certification: %w", err)
	}
	return nil
}

// Update は資格を更新する。
func (r *PostgresCertificationRepo) Update(ctx context.Context, c *model.Certification) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE certifications SET name = $2, organization = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.Name, c.Organization, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update certification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("certification not found: %s", c.ID)
	}
	return nil
}

// Delete は資格を削除する。インストラクターとの紐付けはCASCADE削除される。
func (r *PostgresCertificationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM certifications WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete certification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("certification not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ CertificationRepository = (*PostgresCertificationRepo)(nil)
