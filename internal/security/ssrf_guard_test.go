package security

import "testing"

func TestValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"正規のHTTPS URL", "https://profile.line-scdn.net/abc123", false},
		{"HTTP URLも許可", "http://example.com/image.png", false},
		{"空URL", "", true},
		{"不正なスキーム", "file:///etc/passwd", true},
		{"gopherスキーム", "gopher://example.com", true},
		{"ホストなし", "https://", true},
		{"localhost", "http://localhost/admin", true},
		{"ループバックIP", "http://127.0.0.1/admin", true},
		{"プライベートIP 10.x", "http://10.0.0.5/internal", true},
		{"プライベートIP 192.168.x", "http://192.168.1.1/router", true},
		{"プライベートIP 172.16.x", "http://172.16.0.1/", true},
		{"クラウドメタデータIP", "http://169.254.169.254/latest/meta-data", true},
		{"IPv6ループバック", "http://[::1]/admin", true},
		{"グローバルIP", "http://203.0.113.10/image.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()

	client := guard.NewSafeClient(0)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Transport == nil {
		t.Error("safe client should carry a validating transport")
	}
}
