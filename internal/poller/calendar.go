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

const googleCalendarURL = "https://www.googleapis.com"

// calendarEventsResponse Google Calendar events.list 响应的相关子集
type calendarEventsResponse struct {
	Summary string `json:"summary"`
	Items   []struct {
		Summary string `json:"summary"`
		Start   struct {
			Date     string `json:"date"`
			DateTime string `json:"dateTime"`
		} `json:"start"`
		End struct {
			Date     string `json:"date"`
			DateTime string `json:"dateTime"`
		} `json:"end"`
	} `json:"items"`
}

// CalendarPoller 日历事件轮询器，拉取未来七天的事件
type CalendarPoller struct {
	client     *resty.Client
	hub        Broadcaster
	apiKey     string
	calendarID string
	interval   time.Duration
	logger     *zap.Logger
	nowFn      func() time.Time

	mu     sync.Mutex
	latest *models.CalendarData
}

// NewCalendarPoller 创建日历轮询器
func NewCalendarPoller(hub Broadcaster, apiKey, calendarID string, interval time.Duration, logger *zap.Logger) *CalendarPoller {
	return &CalendarPoller{
		client:     newHTTPClient(googleCalendarURL),
		hub:        hub,
		apiKey:     apiKey,
		calendarID: calendarID,
		interval:   interval,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// Latest 返回最近一次成功获取的日历数据，未获取过时返回 nil
func (p *CalendarPoller) Latest() *models.CalendarData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Run 运行到 ctx 取消为止
func (p *CalendarPoller) Run(ctx context.Context) {
	if p.apiKey == "" || p.calendarID == "" {
		p.logger.Info("Google Calendar not configured, calendar poller disabled")
		return
	}
	runLoop(ctx, p.interval, p.poll)
}

func (p *CalendarPoller) poll(ctx context.Context) {
	data, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("Failed to fetch calendar events", zap.Error(err))
		return
	}

	p.mu.Lock()
	changed := p.latest == nil || !p.latest.Equal(*data)
	p.latest = data
	p.mu.Unlock()

	if changed {
		p.hub.Broadcast(hub.CalendarMessage{Calendar: *data})
	}
}

func (p *CalendarPoller) fetch(ctx context.Context) (*models.CalendarData, error) {
	now := p.nowFn().UTC()
	var response calendarEventsResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":          p.apiKey,
			"timeMin":      now.Format(time.RFC3339),
			"timeMax":      now.Add(7 * 24 * time.Hour).Format(time.RFC3339),
			"singleEvents": "true",
			"orderBy":      "startTime",
			"maxResults":   "50",
		}).
		SetResult(&response).
		Get(fmt.Sprintf("/calendar/v3/calendars/%s/events", p.calendarID))
	if err != nil {
		return nil, fmt.Errorf("failed to call calendar API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("calendar API returned status %d", resp.StatusCode())
	}

	data := &models.CalendarData{Events: []models.CalendarEvent{}}
	for _, item := range response.Items {
		event := models.CalendarEvent{
			Summary:  item.Summary,
			Calendar: response.Summary,
		}
		// 全天事件只有 date，定时事件只有 dateTime
		if item.Start.DateTime != "" {
			event.Start = item.Start.DateTime
			event.End = item.End.DateTime
		} else {
			event.Start = item.Start.Date
			event.End = item.End.Date
			event.AllDay = true
		}
		data.Events = append(data.Events, event)
	}
	return data, nil
}
