// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由入力テキスト（シフト説明、招待の説明、表示名等）から
// マークアップを除去する。保存するのはプレーンテキストのみで、
// タグを許可する用途はないためbluemondayのStrictPolicyを使用する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
// bluemonday.Policyはスレッドセーフであり、1インスタンスを共有してよい。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去し、前後の空白を取り除く。
func (s *TextSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}
