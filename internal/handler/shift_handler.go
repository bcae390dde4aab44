package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/shift"
)

// dateLayout はAPIで使う日付形式。
const dateLayout = "2006-01-02"

// ShiftServiceInterface はシフトハンドラーが必要とするサービスインターフェース。
type ShiftServiceInterface interface {
	Create(ctx context.Context, input shift.CreateInput) (*shift.CreateResult, error)
	Update(ctx context.Context, id string, input shift.UpdateInput) (*model.Shift, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Shift, error)
	ListByDateRange(ctx context.Context, from, to time.Time, departmentID string) ([]*model.Shift, error)
}

// ShiftHandler はシフト関連のHTTPハンドラー。
type ShiftHandler struct {
	service ShiftServiceInterface
}

// NewShiftHandler はShiftHandlerを生成する。
func NewShiftHandler(service ShiftServiceInterface) *ShiftHandler {
	return &ShiftHandler{service: service}
}

// shiftRequest はシフト作成リクエストのボディ。
type shiftRequest struct {
	Date                  string   `json:"date"`
	DepartmentID          string   `json:"departmentId"`
	ShiftTypeID           string   `json:"shiftTypeId"`
	Description           string   `json:"description"`
	AssignedInstructorIDs []string `json:"assignedInstructorIds"`
	Force                 bool     `json:"force"`
	Resolution            string   `json:"resolution"`
}

// shiftUpdateRequest はシフト更新リクエストのボディ。
type shiftUpdateRequest struct {
	Description           string   `json:"description"`
	AssignedInstructorIDs []string `json:"assignedInstructorIds"`
}

// Create はシフトを作成する。
// POST /api/shifts
// 重複が検出された場合は409と衝突情報を返し、クライアントの選択を待つ。
// force付きの再送で解決された場合は200、新規作成は201を返す。
func (h *ShiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(req.Date))
		return
	}
	if req.DepartmentID == "" || req.ShiftTypeID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("部門とシフト区分は必須です"))
		return
	}

	result, err := h.service.Create(r.Context(), shift.CreateInput{
		Date:                  date,
		DepartmentID:          req.DepartmentID,
		ShiftTypeID:           req.ShiftTypeID,
		Description:           req.Description,
		AssignedInstructorIDs: req.AssignedInstructorIDs,
		Force:                 req.Force,
		Resolution:            model.ConflictResolution(req.Resolution),
	})
	if err != nil {
		slog.Error("failed to create shift", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	if result.Conflict != nil {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    model.ErrCodeDuplicateShift,
			"message":  "同じ日付・部門・シフト区分のシフトが既に存在します。",
			"category": "conflict",
			"action":   "既存シフトへの統合、置き換え、またはキャンセルを選択してください。",
			"data": map[string]any{
				"existing": shiftResponse(result.Conflict.Existing),
				"canForce": result.Conflict.CanForce,
				"options":  result.Conflict.Options,
			},
		})
		return
	}

	status := http.StatusCreated
	if req.Force {
		status = http.StatusOK
	}
	writeJSON(w, status, shiftResponse(result.Shift))
}

// List は期間内のシフト一覧を返す。
// GET /api/shifts?from=2026-01-01&to=2026-01-31&department_id=xxx
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(r.URL.Query().Get("from")))
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(r.URL.Query().Get("to")))
		return
	}

	shifts, err := h.service.ListByDateRange(r.Context(), from, to, r.URL.Query().Get("department_id"))
	if err != nil {
		slog.Error("failed to list shifts", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(shifts))
	for _, s := range shifts {
		items = append(items, shiftResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"shifts": items})
}

// Get は指定IDのシフトを返す。
// GET /api/shifts/{id}
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shiftResponse(s))
}

// Update はシフトの説明と割り当てを更新する。
// PUT /api/shifts/{id}
func (h *ShiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req shiftUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	s, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), shift.UpdateInput{
		Description:           req.Description,
		AssignedInstructorIDs: req.AssignedInstructorIDs,
	})
	if err != nil {
		slog.Error("failed to update shift", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shiftResponse(s))
}

// Delete は指定IDのシフトを削除する。
// DELETE /api/shifts/{id}
func (h *ShiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// shiftResponse はシフトのAPIレスポンス表現を組み立てる。
func shiftResponse(s *model.Shift) map[string]any {
	ids := s.AssignedInstructorIDs
	if ids == nil {
		ids = []string{}
	}
	return map[string]any{
		"id":                    s.ID,
		"date":                  s.Date.Format(dateLayout),
		"departmentId":          s.DepartmentID,
		"shiftTypeId":           s.ShiftTypeID,
		"description":           s.Description,
		"assignedInstructorIds": ids,
		"createdAt":             s.CreatedAt,
		"updatedAt":             s.UpdatedAt,
	}
}
