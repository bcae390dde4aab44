// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/takeshi/shiftman/internal/model"
)

// ErrDuplicateShift は (date, department_id, shift_type_id) の一意制約違反を表す。
// シフト重複解決フローのトリガーとしてサービス層が判別する。
var ErrDuplicateShift = errors.New("shift already exists for date, department and shift type")

// ErrInvitationExhausted は招待トークンの使用回数が上限に達していて
// 消費できなかったことを表す。同一トランザクション内の検証と登録の間に
// 他のリクエストが使用回数を進めた場合に発生する。
var ErrInvitationExhausted = errors.New("invitation token has no remaining uses")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByLineUserID はLINEユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
	FindByLineUserID(ctx context.Context, lineUserID string) (*model.User, error)

	// CreateWithInvitationUse はユーザー作成と招待トークンの使用回数増加を
	// 同一トランザクションで行う。どちらか一方だけがコミットされることはない。
	// トークンの残使用回数が尽きている場合はErrInvitationExhaustedを返す。
	CreateWithInvitationUse(ctx context.Context, user *model.User, inviteToken string) error

	// UpdateProfile は表示名とプロフィール画像URLを更新する。
	UpdateProfile(ctx context.Context, id, displayName, profileImageURL string) error

	// UpdateAvatar はプロフィール画像のキャッシュを更新する。
	UpdateAvatar(ctx context.Context, id string, data []byte, mime string) error

	// UpdateRole はユーザーのロールを更新する。
	UpdateRole(ctx context.Context, id string, role model.Role) error

	// Deactivate はユーザーを論理無効化する。物理削除は行わない。
	Deactivate(ctx context.Context, id string) error

	// List は全ユーザーを作成日時順で返す。
	List(ctx context.Context) ([]*model.User, error)
}

// InvitationRepository は招待トークンの永続化インターフェース。
type InvitationRepository interface {
	// FindByToken は指定トークンを取得する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.InvitationToken, error)

	// Create は招待トークンを作成する。
	Create(ctx context.Context, inv *model.InvitationToken) error

	// List は全招待トークンを作成日時降順で返す。
	List(ctx context.Context) ([]*model.InvitationToken, error)

	// SetActive は招待トークンの有効フラグを切り替える。
	// 招待トークンは物理削除されない（論理無効化のみ）。
	SetActive(ctx context.Context, token string, isActive bool) error
}

// DepartmentRepository は部門データの永続化インターフェース。
type DepartmentRepository interface {
	// FindByID は指定IDの部門を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Department, error)

	// List は部門一覧をsort_order順で返す。
	// activeOnlyがtrueの場合は有効な部門のみを返す。
	List(ctx context.Context, activeOnly bool) ([]*model.Department, error)

	// Create は部門を作成する。
	Create(ctx context.Context, d *model.Department) error

	// Update は部門情報を更新する。
	Update(ctx context.Context, d *model.Department) error

	// Deactivate は部門を論理無効化する。
	Deactivate(ctx context.Context, id string) error
}

// ShiftTypeRepository はシフト区分データの永続化インターフェース。
type ShiftTypeRepository interface {
	// FindByID は指定IDのシフト区分を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ShiftType, error)

	// List はシフト区分一覧を開始時刻順で返す。
	List(ctx context.Context, activeOnly bool) ([]*model.ShiftType, error)

	// Create はシフト区分を作成する。
	Create(ctx context.Context, st *model.ShiftType) error

	// Update はシフト区分を更新する。
	Update(ctx context.Context, st *model.ShiftType) error

	// Deactivate はシフト区分を論理無効化する。
	Deactivate(ctx context.Context, id string) error
}

// CertificationRepository は資格データの永続化インターフェース。
type CertificationRepository interface {
	// FindByID は指定IDの資格を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Certification, error)

	// List は資格一覧を名前順で返す。
	List(ctx context.Context) ([]*model.Certification, error)

	// Create は資格を作成する。
	Create(ctx context.Context, c *model.Certification) error

	// Update は資格を更新する。
	Update(ctx context.Context, c *model.Certification) error

	// Delete は資格を削除する。インストラクターとの紐付けはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// InstructorRepository はインストラクターデータの永続化インターフェース。
type InstructorRepository interface {
	// FindByID は指定IDのインストラクターを資格ID付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Instructor, error)

	// List はインストラクター一覧をかな順で返す。
	List(ctx context.Context, activeOnly bool) ([]*model.Instructor, error)

	// Create はインストラクターと資格紐付けを同一トランザクションで作成する。
	Create(ctx context.Context, ins *model.Instructor) error

	// Update はインストラクター情報と資格紐付けを同一トランザクションで更新する。
	// 資格紐付けは全置換となる。
	Update(ctx context.Context, ins *model.Instructor) error

	// Deactivate はインストラクターを論理無効化する。
	Deactivate(ctx context.Context, id string) error
}

// ShiftRepository はシフトデータの永続化インターフェース。
type ShiftRepository interface {
	// FindByID は指定IDのシフトを割り当て付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Shift, error)

	// FindByKey は (date, departmentID, shiftTypeID) でシフトを検索する。
	// 重複解決フローで既存シフトの取得に使用する。見つからない場合はnilを返す。
	FindByKey(ctx context.Context, date time.Time, departmentID, shiftTypeID string) (*model.Shift, error)

	// Create はシフトと割り当てを同一トランザクションで作成する。
	// 一意制約 (date, department_id, shift_type_id) に違反した場合は
	// ErrDuplicateShiftを返し、何も作成しない。
	Create(ctx context.Context, shift *model.Shift) error

	// Update はシフトの説明と割り当て集合を同一トランザクションで全置換する。
	Update(ctx context.Context, shift *model.Shift) error

	// Delete は指定IDのシフトを削除する。割り当てはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// ListByDateRange は期間内のシフト一覧を割り当て付きで返す。
	// departmentIDが空でない場合は部門で絞り込む。
	ListByDateRange(ctx context.Context, from, to time.Time, departmentID string) ([]*model.Shift, error)
}
