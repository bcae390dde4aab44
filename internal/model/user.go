// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleAdmin は招待・ユーザー管理を含む全操作が可能なロール。
	RoleAdmin Role = "ADMIN"
	// RoleManager はシフト・マスタデータの編集が可能なロール。
	RoleManager Role = "MANAGER"
	// RoleMember は閲覧中心のデフォルトロール。新規登録時はこのロールになる。
	RoleMember Role = "MEMBER"
)

// IsValid はロールが定義済みの値かどうかを判定する。
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	default:
		return false
	}
}

// User はLINEログインで認証されるサービス利用ユーザーを表す。
// line_user_idで一意に識別される。物理削除はせずIsActiveで論理無効化する。
type User struct {
	ID              string
	LineUserID      string
	DisplayName     string
	ProfileImageURL string
	// AvatarData / AvatarMime はプロフィール画像のキャッシュ。取得失敗時はnil。
	AvatarData []byte
	AvatarMime string
	Role       Role
	// InstructorID はインストラクターとの紐付け。
	// LINEアカウント再発行等の運用を許容するため、複数ユーザーが同一
	// インストラクターを指すことがある（一意制約は設けない）。
	InstructorID *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
