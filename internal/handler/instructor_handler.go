package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/takeshi/shiftman/internal/instructor"
	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/model"
)

// InstructorServiceInterface はインストラクターハンドラーが必要とするサービスインターフェース。
type InstructorServiceInterface interface {
	Create(ctx context.Context, input instructor.Input) (*model.Instructor, error)
	Update(ctx context.Context, id string, input instructor.Input) (*model.Instructor, error)
	Get(ctx context.Context, id string) (*model.Instructor, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Instructor, error)
	Deactivate(ctx context.Context, id string) error
}

// CertificationServiceInterface は資格ハンドラーが必要とするサービスインターフェース。
type CertificationServiceInterface interface {
	Create(ctx context.Context, input instructor.CertificationInput) (*model.Certification, error)
	Update(ctx context.Context, id string, input instructor.CertificationInput) (*model.Certification, error)
	List(ctx context.Context) ([]*model.Certification, error)
	Delete(ctx context.Context, id string) error
}

// InstructorHandler はインストラクター・資格マスタのHTTPハンドラー。
type InstructorHandler struct {
	instructors    InstructorServiceInterface
	certifications CertificationServiceInterface
}

// NewInstructorHandler はInstructorHandlerを生成する。
func NewInstructorHandler(instructors InstructorServiceInterface, certifications CertificationServiceInterface) *InstructorHandler {
	return &InstructorHandler{instructors: instructors, certifications: certifications}
}

// instructorRequest はインストラクター作成・更新リクエストのボディ。
type instructorRequest struct {
	LastName         string   `json:"lastName"`
	FirstName        string   `json:"firstName"`
	LastNameKana     string   `json:"lastNameKana"`
	FirstNameKana    string   `json:"firstNameKana"`
	CertificationIDs []string `json:"certificationIds"`
}

// input はリクエストボディをサービス入力に変換する。
func (req instructorRequest) input() instructor.Input {
	return instructor.Input{
		LastName:         req.LastName,
		FirstName:        req.FirstName,
		LastNameKana:     req.LastNameKana,
		FirstNameKana:    req.FirstNameKana,
		CertificationIDs: req.CertificationIDs,
	}
}

// CreateInstructor はインストラクターを作成する。
// POST /api/instructors
func (h *InstructorHandler) CreateInstructor(w http.ResponseWriter, r *http.Request) {
	var req instructorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	ins, err := h.instructors.Create(r.Context(), req.input())
	if err != nil {
		slog.Error("failed to create instructor", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, instructorResponse(ins))
}

// UpdateInstructor はインストラクターを更新する。
// PUT /api/instructors/{id}
func (h *InstructorHandler) UpdateInstructor(w http.ResponseWriter, r *http.Request) {
	var req instructorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	ins, err := h.instructors.Update(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instructorResponse(ins))
}

// GetInstructor は指定IDのインストラクターを返す。
// GET /api/instructors/{id}
func (h *InstructorHandler) GetInstructor(w http.ResponseWriter, r *http.Request) {
	ins, err := h.instructors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instructorResponse(ins))
}

// ListInstructors はインストラクター一覧を返す。
// GET /api/instructors?active_only=true
func (h *InstructorHandler) ListInstructors(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	list, err := h.instructors.List(r.Context(), activeOnly)
	if err != nil {
		slog.Error("failed to list instructors", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(list))
	for _, ins := range list {
		items = append(items, instructorResponse(ins))
	}
	writeJSON(w, http.StatusOK, map[string]any{"instructors": items})
}

// DeactivateInstructor はインストラクターを論理無効化する。
// DELETE /api/instructors/{id}
func (h *InstructorHandler) DeactivateInstructor(w http.ResponseWriter, r *http.Request) {
	if err := h.instructors.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// certificationRequest は資格作成・更新リクエストのボディ。
type certificationRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
}

// CreateCertification は資格を作成する。
// POST /api/certifications
func (h *InstructorHandler) CreateCertification(w http.ResponseWriter, r *http.Request) {
	var req certificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	c, err := h.certifications.Create(r.Context(), instructor.CertificationInput{
		Name:         req.Name,
		Organization: req.Organization,
	})
	if err != nil {
		slog.Error("failed to create certification", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, certificationResponse(c))
}

// UpdateCertification は資格を更新する。
// PUT /api/certifications/{id}
func (h *InstructorHandler) UpdateCertification(w http.ResponseWriter, r *http.Request) {
	var req certificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	c, err := h.certifications.Update(r.Context(), chi.URLParam(r, "id"), instructor.CertificationInput{
		Name:         req.Name,
		Organization: req.Organization,
	})
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, certificationResponse(c))
}

// ListCertifications は資格一覧を返す。
// GET /api/certifications
func (h *InstructorHandler) ListCertifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.certifications.List(r.Context())
	if err != nil {
		slog.Error("failed to list certifications", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(list))
	for _, c := range list {
		items = append(items, certificationResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"certifications": items})
}

// DeleteCertification は資格を削除する。
// DELETE /api/certifications/{id}
func (h *InstructorHandler) DeleteCertification(w http.ResponseWriter, r *http.Request) {
	if err := h.certifications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// instructorResponse はインストラクターのAPIレスポンス表現を組み立てる。
func instructorResponse(ins *model.Instructor) map[string]any {
	certIDs := ins.CertificationIDs
	if certIDs == nil {
		certIDs = []string{}
	}
	return map[string]any{
		"id":               ins.ID,
		"lastName":         ins.LastName,
		"firstName":        ins.FirstName,
		"lastNameKana":     ins.LastNameKana,
		"firstNameKana":    ins.FirstNameKana,
		"isActive":         ins.IsActive,
		"certificationIds": certIDs,
		"createdAt":        ins.CreatedAt,
		"updatedAt":        ins.UpdatedAt,
	}
}

// certificationResponse は資格のAPIレスポンス表現を組み立てる。
func certificationResponse(c *model.Certification) map[string]any {
	return map[string]any{
		"id":           c.ID,
		"name":         c.Name,
		"organization": c.Organization,
		"createdAt":    c.CreatedAt,
		"updatedAt":    c.UpdatedAt,
	}
}
