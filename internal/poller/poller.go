package poller

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rejdysan/home-hub/internal/hub"
)

// Broadcaster 广播出口（由 hub.Hub 实现，测试用假实现）
type Broadcaster interface {
	Broadcast(msg hub.Message)
}

// newHTTPClient 外部 API 的统一 resty 客户端配置
func newHTTPClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")
}

// runLoop 先立即执行一次，之后按固定周期执行到 ctx 取消
// 外部数据轮询都是无状态的 fetch-diff-broadcast 循环，共用同一骨架
func runLoop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
