// Package invitation は招待トークンの検証と管理を提供する。
package invitation

import (
	"context"
	"fmt"
	"time"

	"github.com/takeshi/shiftman/internal/model"
	"github.com/takeshi/shiftman/internal/repository"
)

// Result は招待トークン検証の結果を表す。
type Result struct {
	IsValid   bool
	ErrorCode model.InvitationErrorCode
}

// Validator は招待トークンの検証を行う。
// 検証自体は副作用を持たない: used_countの増加はユーザー作成の
// トランザクション内でのみ行われるため、検証の繰り返しは冪等である。
type Validator struct {
	repo repository.InvitationRepository
	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewValidator はValidatorを生成する。
func NewValidator(repo repository.InvitationRepository) *Validator {
	return &Validator{
		repo: repo,
		now:  time.Now,
	}
}

// Validate はトークンを固定の優先順位で検証する。
// 優先順位: NOT_FOUND → INACTIVE → EXPIRED → MAX_USES_EXCEEDED。
// 期限切れかつ使用上限超過のトークンは常にEXPIREDを先に報告する。
// 呼び出し側はエラーコードをHTTPステータスとユーザー向けメッセージに対応付ける。
func (v *Validator) Validate(ctx context.Context, token string) (Result, error) {
	inv, err := v.repo.FindByToken(ctx, token)
	if err != nil {
		return Result{}, fmt.Errorf("failed to look up invitation token: %w", err)
	}
	if inv == nil {
		return Result{ErrorCode: model.InvitationNotFound}, nil
	}
	if !inv.IsActive {
		return Result{ErrorCode: model.InvitationInactive}, nil
	}
	if inv.ExpiresAt.Before(v.now()) {
		return Result{ErrorCode: model.InvitationExpired}, nil
	}
	if inv.MaxUses != nil && inv.UsedCount >= *inv.MaxUses {
		return Result{ErrorCode: model.InvitationMaxUsesExceeded}, nil
	}
	return Result{IsValid: true}, nil
}
