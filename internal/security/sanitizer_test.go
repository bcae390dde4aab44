package security

import "testing"

func TestSanitize(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "午前レッスン担当", "午前レッスン担当"},
		{"scriptタグを除去", `<script>alert("x")</script>hello`, "hello"},
		{"HTMLタグを除去", "<b>重要</b>な説明", "重要な説明"},
		{"前後の空白を除去", "  スキー教室  ", "スキー教室"},
		{"空文字列", "", ""},
		{"タグのみの入力", "<img src=x onerror=alert(1)>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
