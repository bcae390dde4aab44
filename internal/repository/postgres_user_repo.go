package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/takeshi/shiftman/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, line_user_id, display_name, profile_image_url, avatar_data, avatar_mime, role, instructor_id, is_active, created_at, updated_at`

// scanUser は1行をmodel.Userに読み取る。
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	var instructorID sql.NullString
	var avatarMime sql.NullString
	err := row.Scan(
		&user.ID, &user.LineUserID, &user.DisplayName, &user.ProfileImageURL,
		&user.AvatarData, &avatarMime, &user.Role, &instructorID,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if instructorID.Valid {
		user.InstructorID = &instructorID.String
	}
	if avatarMime.Valid {
		user.AvatarMime = avatarMime.String
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByLineUserID はLINEユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByLineUserID(ctx context.Context, lineUserID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE line_user_id = $1`,
		lineUserID,
	)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by line user ID: %w", err)
	}
	return user, nil
}

// CreateWithInvitationUse はユーザー作成と招待トークンの使用回数増加を
// 同一トランザクションで行う。
// used_countの増加はUPDATE文内の条件付きインクリメントで行い、
// 並行リクエストが上限を超えて消費することをDBレベルで防ぐ。
func (r *PostgresUserRepo) CreateWithInvitationUse(ctx context.Context, user *model.User, inviteToken string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, line_user_id, display_name, profile_image_url, role, instructor_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.LineUserID, user.DisplayName, user.ProfileImageURL,
		user.Role, user.InstructorID, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if inviteToken != "" {
		result, err := tx.ExecContext(ctx,
			`UPDATE invitation_tokens
			 SET used_count = used_count + 1, updated_at = $2
			 WHERE token = $1
			   AND (max_uses IS NULL OR used_count < max_uses)`,
			inviteToken, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("failed to consume invitation token: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			// 検証後にトークンが使い切られた競合ケース。ユーザー作成ごとロールバックする。
			return ErrInvitationExhausted
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateProfile は表示名とプロフィール画像URLを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, displayName, profileImageURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = $2, profile_image_url = $3, updated_at = $4 WHERE id = $1`,
		id, displayName, profileImageURL, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

// UpdateAvatar はプロフィール画像のキャッシュを更新する。
func (r *PostgresUserRepo) UpdateAvatar(ctx context.Context, id string, data []byte, mime string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_data = $2, avatar_mime = NULLIF($3, ''), updated_at = $4 WHERE id = $1`,
		id, data, mime, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user avatar: %w", err)
	}
	return nil
}

// UpdateRole はユーザーのロールを更新する。
func (r *PostgresUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`,
		id, role, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// Deactivate はユーザーを論理無効化する。
func (r *PostgresUserRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// List は全ユーザーを作成日時順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
