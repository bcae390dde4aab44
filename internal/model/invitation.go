package model

import "time"

// InvitationErrorCode は招待トークン検証の失敗理由を表す閉じた列挙。
type InvitationErrorCode string

const (
	// InvitationNotFound はトークンが存在しないことを示す。
	InvitationNotFound InvitationErrorCode = "NOT_FOUND"
	// InvitationInactive はトークンが手動で無効化されていることを示す。
	InvitationInactive InvitationErrorCode = "INACTIVE"
	// InvitationExpired はトークンの有効期限が切れていることを示す。
	InvitationExpired InvitationErrorCode = "EXPIRED"
	// InvitationMaxUsesExceeded は使用回数が上限に達していることを示す。
	InvitationMaxUsesExceeded InvitationErrorCode = "MAX_USES_EXCEEDED"
)

// InvitationToken は新規ユーザー登録を許可する招待トークンを表す。
// 物理削除はせずIsActiveで論理無効化する。UsedCountは登録成功時のみ増加する。
type InvitationToken struct {
	Token       string
	Description string
	ExpiresAt   time.Time
	IsActive    bool
	// MaxUses がnilの場合は無制限。非nilの場合、UsedCount <= *MaxUses が不変条件。
	MaxUses   *int
	UsedCount int
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
