// Package user はユーザー情報の取得とADMIN向けユーザー管理を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// Service はユーザーのユースケースを提供する。
type Service struct {
	repo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.UserRepository) *Service {
	return &Service{repo: repo}
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// List は全ユーザーを作成日時順で返す。ADMIN専用。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateRole は対象ユーザーのロールを変更する。ADMIN専用。
// 自分自身のロール変更は、最後のADMINが権限を失う事故を防ぐため拒否する。
func (s *Service) UpdateRole(ctx context.Context, actorID, targetID string, role model.Role) (*model.User, error) {
	if !role.IsValid() {
		return nil, model.NewInvalidRoleError(string(role))
	}
	if actorID == targetID {
		return nil, model.NewValidationError("自分自身のロールは変更できません")
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	slog.Info("user role updated",
		slog.String("actor_id", actorID),
		slog.String("target_id", targetID),
		slog.String("role", string(role)),
	)
	target.Role = role
	return target, nil
}

// Deactivate は対象ユーザーを論理無効化する。ADMIN専用。
// 無効化されたユーザーは以後ログインできない。自分自身の無効化は拒否する。
func (s *Service) Deactivate(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return model.NewValidationError("自分自身を無効化することはできません")
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.repo.Deactivate(ctx, targetID); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	slog.Info("user deactivated",
		slog.String("actor_id", actorID),
		slog.String("target_id", targetID),
	)
	return nil
}
