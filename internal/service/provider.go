package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"Lee_Meet/internal/pkg"
)

// MeetingProvider 外部会议供应商：只要一个 joinUrl，音视频传输不归我们管。
// 同一 (房间, 用户) 重复调用返回等价 URL。
type MeetingProvider interface {
	JoinURL(ctx context.Context, meetID string, userID uint64) (string, error)
}

// HTTPMeetingProvider 真实供应商的 HTTP 客户端，超时封顶，失败统一上报 provider_unavailable
type HTTPMeetingProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPMeetingProvider(baseURL string, timeout time.Duration) *HTTPMeetingProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPMeetingProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPMeetingProvider) JoinURL(ctx context.Context, meetID string, userID uint64) (string, error) {
	u := fmt.Sprintf("%s/meetings/%s/join-url?uid=%d", p.baseURL, url.PathEscape(meetID), userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", pkg.E(pkg.KindProviderUnavailable, "meeting provider unavailable")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", pkg.E(pkg.KindProviderUnavailable, "meeting provider unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pkg.Ef(pkg.KindProviderUnavailable, "meeting provider returned %d", resp.StatusCode)
	}

	var body struct {
		JoinURL string `json:"join_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.JoinURL == "" {
		return "", pkg.E(pkg.KindProviderUnavailable, "meeting provider unavailable")
	}
	return body.JoinURL, nil
}

// StaticMeetingProvider 本地开发用：直接拼 URL，不出网
type StaticMeetingProvider struct {
	Base string
}

func (p *StaticMeetingProvider) JoinURL(ctx context.Context, meetID string, userID uint64) (string, error) {
	return fmt.Sprintf("%s/%s?uid=%d", p.Base, meetID, userID), nil
}
