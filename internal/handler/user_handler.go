package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/model"
)

// UserServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	UpdateRole(ctx context.Context, actorID, targetID string, role model.Role) (*model.User, error)
	Deactivate(ctx context.Context, actorID, targetID string) error
}

// UserHandler はADMIN専用のユーザー管理ハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// List は全ユーザーを返す。
// GET /api/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", slog.String("error", err.Error()))
		middleware.WriteServiceError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(users))
	for _, u := range users {
		items = append(items, userResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": items})
}

// Avatar はキャッシュ済みプロフィール画像を返す。
// GET /api/users/{id}/avatar
// キャッシュがない場合はLINE側の画像URLへリダイレクトする。どちらもない場合は404。
func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	if len(user.AvatarData) > 0 {
		w.Header().Set("Content-Type", user.AvatarMime)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.Write(user.AvatarData)
		return
	}
	if user.ProfileImageURL != "" {
		http.Redirect(w, r, user.ProfileImageURL, http.StatusTemporaryRedirect)
		return
	}
	middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
}

// roleRequest はロール変更リクエストのボディ。
type roleRequest struct {
	Role string `json:"role"`
}

// UpdateRole は対象ユーザーのロールを変更する。
// PATCH /api/admin/users/{id}/role
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	user, err := h.service.UpdateRole(r.Context(), actorID, chi.URLParam(r, "id"), model.Role(req.Role))
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

// Deactivate は対象ユーザーを論理無効化する。
// DELETE /api/admin/users/{id}
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError())
		return
	}

	if err := h.service.Deactivate(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
