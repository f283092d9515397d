package service

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/config"
	"github.com/rejdysan/home-hub/internal/database"
	"github.com/rejdysan/home-hub/internal/hub"
	"github.com/rejdysan/home-hub/internal/ingest"
	"github.com/rejdysan/home-hub/internal/models"
	"github.com/rejdysan/home-hub/internal/mqttclient"
	"github.com/rejdysan/home-hub/internal/poller"
	"github.com/rejdysan/home-hub/internal/realtime"
	"github.com/rejdysan/home-hub/internal/repository"
	"github.com/rejdysan/home-hub/internal/server"
	"github.com/rejdysan/home-hub/internal/sysmon"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	healthTimeout   = 2 * time.Second
	healthInterval  = 30 * time.Second
)

// Service 家庭监控中心的组合根
// 持有全部组件并负责启动顺序、调度循环和优雅关停
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client
	repo        *repository.ReadingRepository

	tracker *realtime.StatusTracker
	cache   *realtime.LiveCache
	bridge  *ingest.Bridge
	hub     *hub.Hub
	sweeper *hub.Sweeper
	httpSrv *server.Server
	mqtt    *mqttclient.Client

	weather  *poller.WeatherPoller
	transit  *poller.TransitPoller
	nameday  *poller.NamedayPoller
	todoist  *poller.TodoistPoller
	calendar *poller.CalendarPoller
	monitor  *sysmon.Monitor

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 健康状态由后台周期采样，组装 initial 消息时只读缓存
	healthMu   sync.Mutex
	lastHealth models.SystemHealth
	netProbe   func() bool
}

// New 构建全部组件，不产生任何 I/O
func New(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) *Service {
	s := &Service{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		netProbe:    networkUp,
	}

	s.repo = repository.NewReadingRepository(db, redisClient, logger)
	s.tracker = realtime.NewStatusTracker(cfg.Status.OfflineTimeout)
	s.cache = realtime.NewLiveCache()
	s.bridge = ingest.NewBridge(
		s.tracker,
		s.cache,
		realtime.NewThrottleGate(),
		s.repo,
		cfg.Ingest.ThrottleWindow,
		cfg.Ingest.BufferCapacity,
		cfg.Ingest.QueueCapacity,
		logger,
	)
	s.hub = hub.NewHub(cfg.Server.MaxViewers, logger)
	s.sweeper = hub.NewSweeper(s.tracker, s.hub, cfg.Status.SweepInterval, logger)

	s.weather = poller.NewWeatherPoller(s.hub, cfg.Poller.Latitude, cfg.Poller.Longitude, cfg.Poller.WeatherInterval, logger)
	s.transit = poller.NewTransitPoller(s.hub, cfg.Poller.GolemioAPIKey, cfg.Poller.TransitInterval, logger)
	s.nameday = poller.NewNamedayPoller(s.hub, cfg.Poller.NamedayInterval, logger)
	s.todoist = poller.NewTodoistPoller(s.hub, cfg.Poller.TodoistAPIKey, cfg.Poller.TodoistProjects, cfg.Poller.TodoistInterval, logger)
	s.calendar = poller.NewCalendarPoller(s.hub, cfg.Poller.GoogleAPIKey, cfg.Poller.GoogleCalendar, cfg.Poller.CalendarInterval, logger)
	s.monitor = sysmon.NewMonitor(s.hub, cfg.Poller.SystemInterval, logger)

	s.httpSrv = server.NewServer(cfg.Server.Addr, s.hub, s, cfg.Server.StaticDir, cfg.Viewer.HeartbeatIdle, logger)
	return s
}

// Start 按固定顺序拉起系统，任何一步失败都视为启动失败
func (s *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()

	if err := s.repo.EnsureSchema(startupCtx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	// 先从持久层灌入缓存，再接 MQTT，避免旧数据覆盖实时写入
	readings, err := s.repo.CurrentReadings(startupCtx)
	if err != nil {
		return fmt.Errorf("failed to load current readings: %w", err)
	}
	s.cache.Seed(readings)
	s.logger.Info("Live cache seeded", zap.Int("readings", len(readings)))

	// 订阅生效的瞬间 Bridge 还未就绪，事件进启动缓冲
	mqttClient, err := mqttclient.NewClient(&s.cfg.MQTT, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect MQTT: %w", err)
	}
	s.mqtt = mqttClient
	if err := s.mqtt.Subscribe(s.cfg.MQTT.Topic, s.cfg.MQTT.QoS, s.bridge.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.runWorker(ctx, s.dispatch)
	s.runWorker(ctx, s.sweeper.Run)
	s.runWorker(ctx, s.weather.Run)
	s.runWorker(ctx, s.transit.Run)
	s.runWorker(ctx, s.nameday.Run)
	s.runWorker(ctx, s.todoist.Run)
	s.runWorker(ctx, s.calendar.Run)
	s.runWorker(ctx, s.monitor.Run)
	s.runWorker(ctx, s.retentionLoop)
	s.runWorker(ctx, s.healthLoop)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Run(); err != nil {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	s.logger.Info("Home hub started",
		zap.String("addr", s.cfg.Server.Addr),
		zap.String("mqtt_topic", s.cfg.MQTT.Topic),
	)
	return nil
}

// Stop 优雅关停：停 HTTP → 断开观察端 → 断开 MQTT → 关闭存储
func (s *Service) Stop() {
	s.logger.Info("Shutting down")
	if s.cancel != nil {
		s.cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown error", zap.Error(err))
	}

	s.hub.CloseAll()
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.wg.Wait()

	if err := database.Close(s.db); err != nil {
		s.logger.Warn("Error closing database", zap.Error(err))
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Warn("Error closing redis", zap.Error(err))
		}
	}
	s.logger.Info("Shutdown complete")
}

// runWorker 在受管 goroutine 中运行一个循环
func (s *Service) runWorker(ctx context.Context, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// dispatch 调度循环：先翻转就绪状态并按序重放启动缓冲，
// 再消费交接通道，两段走同一条广播路径
func (s *Service) dispatch(ctx context.Context) {
	replayed := s.bridge.MarkReady()
	for _, event := range replayed {
		s.publish(event)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-s.bridge.Events():
			s.publish(event)
		}
	}
}

func (s *Service) publish(event ingest.Event) {
	switch e := event.(type) {
	case ingest.TelemetryEvent:
		s.hub.Broadcast(hub.SensorsMessage{Sensors: []models.Reading{e.Reading}})
	case ingest.StatusEvent:
		status, ok := s.tracker.Status(e.Transition.Sensor, time.Now())
		if !ok {
			return
		}
		s.hub.Broadcast(hub.SensorStatusMessage{
			Status: map[string]models.SensorStatus{e.Transition.Sensor: status},
		})
	}
}

// retentionLoop 周期清理超过保留期的历史读数
func (s *Service) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Retention.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupOnce(ctx)
		}
	}
}

func (s *Service) cleanupOnce(ctx context.Context) {
	opCtx, opCancel := context.WithTimeout(ctx, time.Minute)
	defer opCancel()

	deleted, err := s.repo.DeleteOlderThan(opCtx, s.cfg.Retention.Days)
	if err != nil {
		s.logger.Error("Failed to clean up old readings", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("Cleaned up old readings",
			zap.Int64("deleted", deleted),
			zap.Int("retention_days", s.cfg.Retention.Days),
		)
	}
}

// InitialState 组装新观察端的全量状态
func (s *Service) InitialState() hub.InitialStateMessage {
	return hub.InitialStateMessage{
		Sensors:      s.cache.GetAll(),
		SensorStatus: s.tracker.Snapshot(time.Now()),
		System:       s.monitor.Current(),
		Weather:      s.weather.Latest(),
		Nameday:      s.nameday.Latest(),
		Health:       s.health(),
		Transport:    s.transit.Latest(),
		Todoist:      s.todoist.Latest(),
	}
}

// healthLoop 周期采样健康状态，握手路径只读缓存，从不探测
func (s *Service) healthLoop(ctx context.Context) {
	s.sampleHealth()

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleHealth()
		}
	}
}

func (s *Service) sampleHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	health := models.SystemHealth{
		MQTT: s.mqtt != nil && s.mqtt.IsConnected(),
	}
	if err := s.repo.Ping(ctx); err == nil {
		health.Database = true
	}
	health.Network = s.netProbe()

	s.healthMu.Lock()
	s.lastHealth = health
	s.healthMu.Unlock()
}

func (s *Service) health() models.SystemHealth {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	return s.lastHealth
}

// networkUp 探测对外连通性
func networkUp() bool {
	conn, err := net.DialTimeout("tcp", "1.1.1.1:53", healthTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
