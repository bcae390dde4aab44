package user

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/takeshi/shiftman/internal/security"
)

// AvatarFetcher はLINEプロフィール画像をSSRF防止付きで取得する。
// 画像URLは外部由来の値であるため、プライベートIPやメタデータIPへの
// アクセスはクライアント側で遮断される。
type AvatarFetcher struct {
	guard   security.SSRFGuardService
	client  *http.Client
	maxSize int64
}

// NewAvatarFetcher はAvatarFetcherを生成する。
func NewAvatarFetcher(guard security.SSRFGuardService, timeout time.Duration, maxSize int64) *AvatarFetcher {
	return &AvatarFetcher{
		guard:   guard,
		client:  guard.NewSafeClient(timeout),
		maxSize: maxSize,
	}
}

// Fetch は画像を取得し、バイト列とMIMEタイプを返す。
// maxSizeを超える画像、画像以外のコンテンツはエラーになる。
func (f *AvatarFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	if err := f.guard.ValidateURL(imageURL); err != nil {
		return nil, "", fmt.Errorf("unsafe avatar URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create avatar request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("avatar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("avatar fetch failed with status %d", resp.StatusCode)
	}

	// maxSizeちょうどと超過を区別するため1バイト余分に読む
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read avatar body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, "", fmt.Errorf("avatar exceeds max size %d bytes", f.maxSize)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty avatar body")
	}

	mimeType := detectMime(resp.Header.Get("Content-Type"), data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unexpected avatar content type: %s", mimeType)
	}

	return data, mimeType, nil
}

// detectMime はContent-Typeヘッダーを優先し、無効な場合はバイト列から判定する。
func detectMime(contentType string, data []byte) string {
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil && parsed != "" {
			return parsed
		}
	}
	return http.DetectContentType(data)
}
