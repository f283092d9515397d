package poller

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/hub"
	"github.com/rejdysan/home-hub/internal/models"
)

const todoistURL = "https://api.todoist.com"

type todoistProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type todoistTask struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"is_completed"`
	Priority    int    `json:"priority"`
	Order       int    `json:"order"`
	ProjectID   string `json:"project_id"`
}

// TodoistPoller 任务列表轮询器，只同步配置中列出的项目
type TodoistPoller struct {
	client   *resty.Client
	hub      Broadcaster
	apiKey   string
	projects map[string]bool
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	latest *models.TodoistData
}

// NewTodoistPoller 创建 Todoist 轮询器
func NewTodoistPoller(hub Broadcaster, apiKey string, projects []string, interval time.Duration, logger *zap.Logger) *TodoistPoller {
	wanted := make(map[string]bool, len(projects))
	for _, name := range projects {
		wanted[name] = true
	}
	return &TodoistPoller{
		client:   newHTTPClient(todoistURL),
		hub:      hub,
		apiKey:   apiKey,
		projects: wanted,
		interval: interval,
		logger:   logger,
	}
}

// Latest 返回最近一次成功获取的任务数据，未获取过时返回 nil
func (p *TodoistPoller) Latest() *models.TodoistData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Run 运行到 ctx 取消为止
func (p *TodoistPoller) Run(ctx context.Context) {
	if p.apiKey == "" {
		p.logger.Info("Todoist API key not configured, todoist poller disabled")
		return
	}
	runLoop(ctx, p.interval, p.poll)
}

func (p *TodoistPoller) poll(ctx context.Context) {
	data, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("Failed to fetch todoist data", zap.Error(err))
		return
	}

	p.mu.Lock()
	changed := p.latest == nil || !p.latest.Equal(*data)
	p.latest = data
	p.mu.Unlock()

	if changed {
		p.hub.Broadcast(hub.TodoistMessage{Todoist: *data})
	}
}

// fetch 先列出项目，再逐项目拉取活动任务
func (p *TodoistPoller) fetch(ctx context.Context) (*models.TodoistData, error) {
	var projects []todoistProject
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetResult(&projects).
		Get("/rest/v2/projects")
	if err != nil {
		return nil, fmt.Errorf("failed to list todoist projects: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("todoist API returned status %d", resp.StatusCode())
	}

	data := &models.TodoistData{Projects: []models.TodoistProject{}}
	for _, project := range projects {
		if len(p.projects) > 0 && !p.projects[project.Name] {
			continue
		}

		tasks, err := p.fetchTasks(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		data.Projects = append(data.Projects, models.TodoistProject{
			ID:    project.ID,
			Name:  project.Name,
			Tasks: tasks,
		})
	}

	sort.Slice(data.Projects, func(i, j int) bool {
		return data.Projects[i].Name < data.Projects[j].Name
	})
	return data, nil
}

func (p *TodoistPoller) fetchTasks(ctx context.Context, projectID string) ([]models.TodoistTask, error) {
	var tasks []todoistTask
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetQueryParam("project_id", projectID).
		SetResult(&tasks).
		Get("/rest/v2/tasks")
	if err != nil {
		return nil, fmt.Errorf("failed to list todoist tasks: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("todoist API returned status %d", resp.StatusCode())
	}

	result := make([]models.TodoistTask, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, models.TodoistTask{
			ID:          t.ID,
			Content:     t.Content,
			IsCompleted: t.IsCompleted,
			Priority:    t.Priority,
			Order:       t.Order,
			ProjectID:   t.ProjectID,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})
	return result, nil
}
