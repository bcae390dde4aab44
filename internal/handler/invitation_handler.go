package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takeshi/shiftman/internal/invitation"
	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/model"
)

// InvitationServiceInterface は招待トークンハンドラーが必要とするサービスインターフェース。
type InvitationServiceInterface interface {
	Create(ctx context.Context, input invitation.CreateInput) (*model.InvitationToken, error)
	List(ctx context.Context) ([]*model.InvitationToken, error)
	SetActive(ctx context.Context, token string, isActive bool) error
}

// InvitationHandler はADMIN専用の招待トークン管理ハンドラー。
type InvitationHandler struct {
	service InvitationServiceInterface
}

// NewInvitationHandler はInvitationHandlerを生成する。
func NewInvitationHandler(service InvitationServiceInterface) *InvitationHandler {
	return &InvitationHandler{service: service}
}

// invitationRequest は招待トークン作成リクエストのボディ。
type invitationRequest struct {
	Description string `json:"description"`
	ExpiresAt   string `json:"expiresAt"` // RFC 3339形式
	MaxUses     *int   `json:"maxUses"`   // nullで無制限
}

// Create は招待トークンを発行する。
// POST /api/admin/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("有効期限はRFC 3339形式で指定してください"))
		return
	}

	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	inv, err := h.service.Create(r.Context(), invitation.CreateInput{
		Description: req.Description,
		ExpiresAt:   expiresAt,
		MaxUses:     req.MaxUses,
		CreatedBy:   userID,
	})
	if err != nil {
		slog.Error("failed to create invitation", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invitationResponse(inv))
}

// List は全招待トークンを返す。
// GET /api/admin/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list invitations", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(list))
	for _, inv := range list {
		items = append(items, invitationResponse(inv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": items})
}

// setActiveRequest は有効フラグ切り替えリクエストのボディ。
type setActiveRequest struct {
	IsActive bool `json:"isActive"`
}

// SetActive は招待トークンの有効フラグを切り替える。
// PATCH /api/admin/invitations/{token}
func (h *InvitationHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	if err := h.service.SetActive(r.Context(), chi.URLParam(r, "token"), req.IsActive); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// invitationResponse は招待トークンのAPIレスポンス表現を組み立てる。
func invitationResponse(inv *model.InvitationToken) map[string]any {
	return map[string]any{
		"token":       inv.Token,
		"description": inv.Description,
		"expiresAt":   inv.ExpiresAt,
		"isActive":    inv.IsActive,
		"maxUses":     inv.MaxUses,
		"usedCount":   inv.UsedCount,
		"createdBy":   inv.CreatedBy,
		"createdAt":   inv.CreatedAt,
	}
}
