package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/takeshi/shiftman/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// *model.APIErrorはコードに応じたステータスで返し、それ以外は500として扱う。
func WriteServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		WriteInternalServerError(w)
		return
	}
	WriteErrorResponse(w, statusForCode(apiErr.Code), apiErr)
}

// statusForCode はエラーコードをHTTPステータスに対応付ける。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeShiftNotFound,
		model.ErrCodeDepartmentNotFound,
		model.ErrCodeInstructorNotFound,
		model.ErrCodeShiftTypeNotFound,
		model.ErrCodeCertNotFound,
		model.ErrCodeUserNotFound,
		model.ErrCodeInvitationNotFound:
		return http.StatusNotFound
	case model.ErrCodePermissionDenied:
		return http.StatusForbidden
	case model.ErrCodeDuplicateShift:
		return http.StatusConflict
	case model.ErrCodeValidationFailed,
		model.ErrCodeInvalidRole,
		model.ErrCodeInvalidDate,
		model.ErrCodeInvalidResolution:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
