package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// MQTTConfig MQTT 配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Config 家庭监控中心配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	Server struct {
		Addr       string
		StaticDir  string
		MaxViewers int
	}

	Ingest struct {
		ThrottleWindow time.Duration // 同一 (sensor, property) 两次落库的最小间隔
		BufferCapacity int           // 调度器启动前的事件缓冲上限
		QueueCapacity  int           // 跨线程交接通道容量
	}

	Status struct {
		OfflineTimeout time.Duration
		SweepInterval  time.Duration
	}

	Viewer struct {
		HeartbeatIdle time.Duration // 空闲多久后发送心跳
	}

	Poller struct {
		WeatherInterval  time.Duration
		TransitInterval  time.Duration
		NamedayInterval  time.Duration
		TodoistInterval  time.Duration
		CalendarInterval time.Duration
		SystemInterval   time.Duration

		GolemioAPIKey   string
		TodoistAPIKey   string
		TodoistProjects []string
		GoogleAPIKey    string
		GoogleCalendar  string
		Latitude        string
		Longitude       string
	}

	Retention struct {
		Days          int
		CheckInterval time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "homehub")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 5)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 2)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "true") == "true"

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "home-hub")
	cfg.MQTT.Username = getEnv("MQTT_USER", "")
	cfg.MQTT.Password = getEnv("MQTT_PASS", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "pico/+/+")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 0))

	cfg.Server.Addr = getEnv("SERVER_ADDR", "0.0.0.0:8000")
	cfg.Server.StaticDir = getEnv("STATIC_DIR", "static")
	cfg.Server.MaxViewers = getEnvInt("MAX_VIEWERS", 10)

	cfg.Ingest.ThrottleWindow = getEnvDuration("MQTT_SAVE_THROTTLE", 5*time.Second)
	cfg.Ingest.BufferCapacity = getEnvInt("STARTUP_BUFFER_CAPACITY", 1000)
	cfg.Ingest.QueueCapacity = getEnvInt("INGEST_QUEUE_CAPACITY", 256)

	cfg.Status.OfflineTimeout = getEnvDuration("SENSOR_OFFLINE_TIMEOUT", 30*time.Second)
	cfg.Status.SweepInterval = getEnvDuration("SENSOR_STATUS_CHECK_INTERVAL", 5*time.Second)

	cfg.Viewer.HeartbeatIdle = getEnvDuration("HEARTBEAT_IDLE", 30*time.Second)

	cfg.Poller.WeatherInterval = getEnvDuration("WEATHER_UPDATE_INTERVAL", 10*time.Minute)
	cfg.Poller.TransitInterval = getEnvDuration("BUS_UPDATE_INTERVAL", 30*time.Second)
	cfg.Poller.NamedayInterval = getEnvDuration("NAMEDAY_UPDATE_INTERVAL", 6*time.Hour)
	cfg.Poller.TodoistInterval = getEnvDuration("TODOIST_UPDATE_INTERVAL", 60*time.Second)
	cfg.Poller.CalendarInterval = getEnvDuration("GOOGLE_CALENDAR_UPDATE_INTERVAL", 5*time.Minute)
	cfg.Poller.SystemInterval = getEnvDuration("SYSTEM_MONITOR_INTERVAL", 5*time.Second)

	cfg.Poller.GolemioAPIKey = getEnv("GOLEMIO_API_KEY", "")
	cfg.Poller.TodoistAPIKey = getEnv("TODOIST_API_KEY", "")
	if projects := getEnv("TODOIST_PROJECTS", ""); projects != "" {
		cfg.Poller.TodoistProjects = strings.Split(projects, ",")
	}
	cfg.Poller.GoogleAPIKey = getEnv("GOOGLE_API_KEY", "")
	cfg.Poller.GoogleCalendar = getEnv("GOOGLE_CALENDAR_ID", "")
	cfg.Poller.Latitude = getEnv("LOCATION_LATITUDE", "50.0878433")
	cfg.Poller.Longitude = getEnv("LOCATION_LONGITUDE", "14.478581")

	cfg.Retention.Days = getEnvInt("DB_CLEANUP_DAYS", 30)
	cfg.Retention.CheckInterval = getEnvDuration("DB_CLEANUP_INTERVAL", 24*time.Hour)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration 解析时长，支持 "30s" 形式或纯秒数
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
