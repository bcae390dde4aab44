package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateShift       = "DUPLICATE_SHIFT"
	ErrCodeShiftNotFound        = "SHIFT_NOT_FOUND"
	ErrCodeDepartmentNotFound   = "DEPARTMENT_NOT_FOUND"
	ErrCodeInstructorNotFound   = "INSTRUCTOR_NOT_FOUND"
	ErrCodeShiftTypeNotFound    = "SHIFT_TYPE_NOT_FOUND"
	ErrCodeCertNotFound         = "CERTIFICATION_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeInvitationNotFound   = "INVITATION_NOT_FOUND"
	ErrCodeInvalidRole          = "INVALID_ROLE"
	ErrCodeInvalidDate          = "INVALID_DATE"
	ErrCodeInvalidResolution    = "INVALID_RESOLUTION"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
)

// NewShiftNotFoundError はシフト未検出エラーを生成する。
func NewShiftNotFoundError(shiftID string) *APIError {
	return &APIError{
		Code:     ErrCodeShiftNotFound,
		Message:  fmt.Sprintf("指定されたシフトが見つかりません: %s", shiftID),
		Category: "validation",
		Action:   "シフトIDを確認してください。",
	}
}

// NewDepartmentNotFoundError は部門未検出エラーを生成する。
func NewDepartmentNotFoundError(departmentID string) *APIError {
	return &APIError{
		Code:     ErrCodeDepartmentNotFound,
		Message:  fmt.Sprintf("指定された部門が見つかりません: %s", departmentID),
		Category: "validation",
		Action:   "部門IDを確認してください。",
	}
}

// NewInstructorNotFoundError はインストラクター未検出エラーを生成する。
func NewInstructorNotFoundError(instructorID string) *APIError {
	return &APIError{
		Code:     ErrCodeInstructorNotFound,
		Message:  fmt.Sprintf("指定されたインストラクターが見つかりません: %s", instructorID),
		Category: "validation",
		Action:   "インストラクターIDを確認してください。",
	}
}

// NewShiftTypeNotFoundError はシフト区分未検出エラーを生成する。
func NewShiftTypeNotFoundError(shiftTypeID string) *APIError {
	return &APIError{
		Code:     ErrCodeShiftTypeNotFound,
		Message:  fmt.Sprintf("指定されたシフト区分が見つかりません: %s", shiftTypeID),
		Category: "validation",
		Action:   "シフト区分IDを確認してください。",
	}
}

// NewCertificationNotFoundError は資格未検出エラーを生成する。
func NewCertificationNotFoundError(certID string) *APIError {
	return &APIError{
		Code:     ErrCodeCertNotFound,
		Message:  fmt.Sprintf("指定された資格が見つかりません: %s", certID),
		Category: "validation",
		Action:   "資格IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvitationNotFoundError は招待トークン未検出エラーを生成する。
func NewInvitationNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeInvitationNotFound,
		Message:  "指定された招待トークンが見つかりません。",
		Category: "validation",
		Action:   "招待トークンを確認してください。",
	}
}

// NewInvalidRoleError は無効なロール指定エラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには ADMIN、MANAGER、MEMBER のいずれかを指定してください。",
	}
}

// NewInvalidDateError は無効な日付指定エラーを生成する。
func NewInvalidDateError(date string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", date),
		Category: "validation",
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidResolutionError は無効な重複解決方法エラーを生成する。
func NewInvalidResolutionError(resolution string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResolution,
		Message:  fmt.Sprintf("無効な重複解決方法です: %s", resolution),
		Category: "validation",
		Action:   "forceを指定する場合、resolutionには merge または replace を指定してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewPermissionDeniedError は権限不足エラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者に権限の付与を依頼してください。",
	}
}
