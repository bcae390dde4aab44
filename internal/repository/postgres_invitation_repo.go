package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takeshi/shiftman/internal/model"
)

// PostgresInvitationRepo はPostgreSQLを使用した招待トークンリポジトリ。
type PostgresInvitationRepo struct {
	db *sql.DB
}

// NewPostgresInvitationRepo はPostgresInvitationRepoを生成する。
func NewPostgresInvitationRepo(db *sql.DB) *PostgresInvitationRepo {
	return &PostgresInvitationRepo{db: db}
}

const invitationColumns = `token, description, expires_at, is_active, max_uses, used_count, created_by, created_at, updated_at`

// scanInvitation は1行をmodel.InvitationTokenに読み取る。
func scanInvitation(row interface{ Scan(...any) error }) (*model.InvitationToken, error) {
	inv := &model.InvitationToken{}
	var maxUses sql.NullInt64
	err := row.Scan(
		&inv.Token, &inv.Description, &inv.ExpiresAt, &inv.IsActive,
		&maxUses, &inv.UsedCount, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if maxUses.Valid {
		v := int(maxUses.Int64)
		inv.MaxUses = &v
	}
	return inv, nil
}

// FindByToken は指定トークンを取得する。見つからない場合はnilを返す。
func (r *PostgresInvitationRepo) FindByToken(ctx context.Context, token string) (*model.InvitationToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitation_tokens WHERE token = $1`,
		token,
	)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation token: %w", err)
	}
	return inv, nil
}

// Create は招待トークンを作成する。
func (r *PostgresInvitationRepo) Create(ctx context.Context, inv *model.InvitationToken) error {
	var maxUses sql.NullInt64
	if inv.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*inv.MaxUses), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitation_tokens (token, description, expires_at, is_active, max_uses, used_count, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.Token, inv.Description, inv.ExpiresAt, inv.IsActive,
		maxUses, inv.UsedCount, inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invitation token: %w", err)
	}
	return nil
}

// List は全招待トークンを作成日時降順で返す。
func (r *PostgresInvitationRepo) List(ctx context.Context) ([]*model.InvitationToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitation_tokens ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitation tokens: %w", err)
	}
	defer rows.Close()

	var invs []*model.InvitationToken
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation token: %w", err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitation tokens: %w", err)
	}
	return invs, nil
}

// SetActive は招待トークンの有効フラグを切り替える。
func (r *PostgresInvitationRepo) SetActive(ctx context.Context, token string, isActive bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invitation_tokens SET is_active = $2, updated_at = $3 WHERE token = $1`,
		token, isActive, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invitation token not found")
	}
	return nil
}

// compile-time interface check
var _ InvitationRepository = (*PostgresInvitationRepo)(nil)
