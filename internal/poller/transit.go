package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/hub"
	"github.com/rejdysan/home-hub/internal/models"
)

const golemioURL = "https://api.golemio.cz"

// 布拉格站点与关注线路
const (
	stopMalesicka = "U357Z1P"
	stopOlgy      = "U1064Z2P"
)

var stopLines = map[string]map[string]bool{
	stopMalesicka: {"146": true, "155": true},
	stopOlgy:      {"133": true},
}

// golemioResponse Golemio 发车板响应的相关子集
type golemioResponse struct {
	Departures []golemioDeparture `json:"departures"`
}

type golemioDeparture struct {
	Route struct {
		ShortName string `json:"short_name"`
	} `json:"route"`
	Trip struct {
		Headsign string `json:"headsign"`
	} `json:"trip"`
	Stop struct {
		ID string `json:"id"`
	} `json:"stop"`
	DepartureTimestamp struct {
		Scheduled string `json:"scheduled"`
		Predicted string `json:"predicted"`
		Minutes   int    `json:"minutes"`
	} `json:"departure_timestamp"`
	Delay struct {
		IsAvailable bool `json:"is_available"`
		Minutes     int  `json:"minutes"`
		Seconds     int  `json:"seconds"`
	} `json:"delay"`
}

// TransitPoller Golemio 公交发车轮询器
type TransitPoller struct {
	client   *resty.Client
	hub      Broadcaster
	apiKey   string
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	latest *models.BusDepartures
}

// NewTransitPoller 创建公交轮询器
func NewTransitPoller(hub Broadcaster, apiKey string, interval time.Duration, logger *zap.Logger) *TransitPoller {
	return &TransitPoller{
		client:   newHTTPClient(golemioURL),
		hub:      hub,
		apiKey:   apiKey,
		interval: interval,
		logger:   logger,
	}
}

// Latest 返回最近一次成功获取的发车数据
func (p *TransitPoller) Latest() models.BusDepartures {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return models.BusDepartures{}
	}
	return *p.latest
}

// Run 运行到 ctx 取消为止
func (p *TransitPoller) Run(ctx context.Context) {
	if p.apiKey == "" {
		p.logger.Info("Golemio API key not configured, transit poller disabled")
		return
	}
	runLoop(ctx, p.interval, p.poll)
}

// poll 拉取一次发车板，数据变化时广播
func (p *TransitPoller) poll(ctx context.Context) {
	departures, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("Failed to fetch departures", zap.Error(err))
		return
	}

	p.mu.Lock()
	changed := p.latest == nil || !p.latest.Equal(*departures)
	p.latest = departures
	p.mu.Unlock()

	if changed {
		p.hub.Broadcast(hub.TransportMessage{Transport: *departures})
	}
}

// fetch 调用 Golemio 发车板 API，按站点和线路过滤
func (p *TransitPoller) fetch(ctx context.Context) (*models.BusDepartures, error) {
	var response golemioResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-Access-Token", p.apiKey).
		SetQueryParamsFromValues(map[string][]string{
			"ids":   {stopMalesicka, stopOlgy},
			"mode":  {"departures"},
			"limit": {"20"},
		}).
		SetResult(&response).
		Get("/v2/pid/departureboards")
	if err != nil {
		return nil, fmt.Errorf("failed to call Golemio API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("Golemio API returned status %d", resp.StatusCode())
	}

	return groupDepartures(response.Departures), nil
}

// groupDepartures 按站点分组并过滤关注线路
func groupDepartures(departures []golemioDeparture) *models.BusDepartures {
	result := &models.BusDepartures{
		Malesicka: []models.BusDeparture{},
		Olgy:      []models.BusDeparture{},
	}

	for _, dep := range departures {
		lines, ok := stopLines[dep.Stop.ID]
		if !ok || !lines[dep.Route.ShortName] {
			continue
		}

		entry := models.BusDeparture{
			Line:          dep.Route.ShortName,
			Direction:     dep.Trip.Headsign,
			Mins:          dep.DepartureTimestamp.Minutes,
			TimeScheduled: dep.DepartureTimestamp.Scheduled,
			TimePredicted: dep.DepartureTimestamp.Predicted,
		}
		if dep.Delay.IsAvailable {
			entry.DelayMinutes = dep.Delay.Minutes
			entry.DelaySeconds = dep.Delay.Seconds
		}

		switch dep.Stop.ID {
		case stopMalesicka:
			result.Malesicka = append(result.Malesicka, entry)
		case stopOlgy:
			result.Olgy = append(result.Olgy, entry)
		}
	}

	return result
}
