// Package logger はJSON構造化ログのセットアップと機密情報のマスキングを提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// sensitiveKeywords はマスキング対象とみなすフィールド名のキーワード。
// 属性キーがこれらのいずれかを含む場合、値は前後数文字を残してマスクされる。
var sensitiveKeywords = []string{
	"token",
	"secret",
	"code",
	"authorization",
	"cookie",
	"password",
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 機密キーワードを含むフィールドの値は自動的にマスクされる。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: maskSensitiveAttr,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w)
	slog.SetDefault(logger)
}

// maskSensitiveAttr は機密キーワードを含む属性の値をマスクする。
func maskSensitiveAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if !isSensitiveKey(a.Key) {
		return a
	}
	return slog.String(a.Key, Mask(a.Value.String()))
}

// isSensitiveKey は属性キーが機密キーワードを含むかを判定する。
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Mask は値の先頭と末尾のみを残してマスクした文字列を返す。
// トークンや認可コードをログに残す際は必ずこの関数を通すこと。
func Mask(v string) string {
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***" + v[len(v)-2:]
}
