package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/hub"
)

const namedayURL = "https://nameday.abalin.net"

// namedayResponse abalin API 响应的相关子集
type namedayResponse struct {
	Nameday struct {
		SK string `json:"sk"`
	} `json:"nameday"`
}

// NamedayPoller 每日命名日轮询器
type NamedayPoller struct {
	client   *resty.Client
	hub      Broadcaster
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	latest string
}

// NewNamedayPoller 创建命名日轮询器
func NewNamedayPoller(hub Broadcaster, interval time.Duration, logger *zap.Logger) *NamedayPoller {
	return &NamedayPoller{
		client:   newHTTPClient(namedayURL),
		hub:      hub,
		interval: interval,
		logger:   logger,
	}
}

// Latest 返回最近一次成功获取的命名日
func (p *NamedayPoller) Latest() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Run 运行到 ctx 取消为止
func (p *NamedayPoller) Run(ctx context.Context) {
	runLoop(ctx, p.interval, p.poll)
}

func (p *NamedayPoller) poll(ctx context.Context) {
	name, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("Failed to fetch nameday", zap.Error(err))
		return
	}

	p.mu.Lock()
	changed := p.latest != name
	p.latest = name
	p.mu.Unlock()

	if changed {
		p.hub.Broadcast(hub.NamedayMessage{Nameday: name})
	}
}

func (p *NamedayPoller) fetch(ctx context.Context) (string, error) {
	var response namedayResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("country", "sk").
		SetResult(&response).
		Get("/api/V2/today")
	if err != nil {
		return "", fmt.Errorf("failed to call nameday API: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("nameday API returned status %d", resp.StatusCode())
	}
	return response.Nameday.SK, nil
}
