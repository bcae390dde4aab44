package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/takeshi/shiftman/internal/department"
	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/model"
)

// DepartmentServiceInterface は部門ハンドラーが必要とするサービスインターフェース。
type DepartmentServiceInterface interface {
	Create(ctx context.Context, input department.CreateInput) (*model.Department, error)
	Update(ctx context.Context, id string, input department.CreateInput) (*model.Department, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Department, error)
	Deactivate(ctx context.Context, id string) error
}

// ShiftTypeServiceInterface はシフト区分ハンドラーが必要とするサービスインターフェース。
type ShiftTypeServiceInterface interface {
	Create(ctx context.Context, input department.ShiftTypeInput) (*model.ShiftType, error)
	Update(ctx context.Context, id string, input department.ShiftTypeInput) (*model.ShiftType, error)
	List(ctx context.Context, activeOnly bool) ([]*model.ShiftType, error)
	Deactivate(ctx context.Context, id string) error
}

// DepartmentHandler は部門・シフト区分マスタのHTTPハンドラー。
type DepartmentHandler struct {
	departments DepartmentServiceInterface
	shiftTypes  ShiftTypeServiceInterface
}

// NewDepartmentHandler はDepartmentHandlerを生成する。
func NewDepartmentHandler(departments DepartmentServiceInterface, shiftTypes ShiftTypeServiceInterface) *DepartmentHandler {
	return &DepartmentHandler{departments: departments, shiftTypes: shiftTypes}
}

// departmentRequest は部門作成・更新リクエストのボディ。
type departmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
}

// CreateDepartment は部門を作成する。
// POST /api/departments
func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	d, err := h.departments.Create(r.Context(), department.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		slog.Error("failed to create department", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, departmentResponse(d))
}

// UpdateDepartment は部門を更新する。
// PUT /api/departments/{id}
func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	d, err := h.departments.Update(r.Context(), chi.URLParam(r, "id"), department.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, departmentResponse(d))
}

// ListDepartments は部門一覧を返す。
// GET /api/departments?active_only=true
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	list, err := h.departments.List(r.Context(), activeOnly)
	if err != nil {
		slog.Error("failed to list departments", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(list))
	for _, d := range list {
		items = append(items, departmentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": items})
}

// DeactivateDepartment は部門を論理無効化する。
// DELETE /api/departments/{id}
func (h *DepartmentHandler) DeactivateDepartment(w http.ResponseWriter, r *http.Request) {
	if err := h.departments.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// shiftTypeRequest はシフト区分作成・更新リクエストのボディ。
type shiftTypeRequest struct {
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Color     string `json:"color"`
}

// CreateShiftType はシフト区分を作成する。
// POST /api/shift-types
func (h *DepartmentHandler) CreateShiftType(w http.ResponseWriter, r *http.Request) {
	var req shiftTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	st, err := h.shiftTypes.Create(r.Context(), department.ShiftTypeInput{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Color:     req.Color,
	})
	if err != nil {
		slog.Error("failed to create shift type", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shiftTypeResponse(st))
}

// UpdateShiftType はシフト区分を更新する。
// PUT /api/shift-types/{id}
func (h *DepartmentHandler) UpdateShiftType(w http.ResponseWriter, r *http.Request) {
	var req shiftTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	st, err := h.shiftTypes.Update(r.Context(), chi.URLParam(r, "id"), department.ShiftTypeInput{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Color:     req.Color,
	})
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shiftTypeResponse(st))
}

// ListShiftTypes はシフト区分一覧を返す。
// GET /api/shift-types?active_only=true
func (h *DepartmentHandler) ListShiftTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	list, err := h.shiftTypes.List(r.Context(), activeOnly)
	if err != nil {
		slog.Error("failed to list shift types", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(list))
	for _, st := range list {
		items = append(items, shiftTypeResponse(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{"shiftTypes": items})
}

// DeactivateShiftType はシフト区分を論理無効化する。
// DELETE /api/shift-types/{id}
func (h *DepartmentHandler) DeactivateShiftType(w http.ResponseWriter, r *http.Request) {
	if err := h.shiftTypes.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// departmentResponse は部門のAPIレスポンス表現を組み立てる。
func departmentResponse(d *model.Department) map[string]any {
	return map[string]any{
		"id":          d.ID,
		"name":        d.Name,
		"description": d.Description,
		"sortOrder":   d.SortOrder,
		"isActive":    d.IsActive,
		"createdAt":   d.CreatedAt,
		"updatedAt":   d.UpdatedAt,
	}
}

// shiftTypeResponse はシフト区分のAPIレスポンス表現を組み立てる。
func shiftTypeResponse(st *model.ShiftType) map[string]any {
	return map[string]any{
		"id":        st.ID,
		"name":      st.Name,
		"startTime": st.StartTime,
		"endTime":   st.EndTime,
		"color":     st.Color,
		"isActive":  st.IsActive,
		"createdAt": st.CreatedAt,
		"updatedAt": st.UpdatedAt,
	}
}
