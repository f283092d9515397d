package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/models"
)

// hotMirrorTTL Redis 热镜像的过期时间，让消失的传感器自然从缓存退出
const hotMirrorTTL = 24 * time.Hour

// ReadingRepository 传感器读数仓库
// 冷路径写 Postgres（历史 + 最新值表），热路径镜像最新值到 Redis
// 供其他家庭服务读取；Redis 失败只记日志，不影响数据完整性
type ReadingRepository struct {
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewReadingRepository 创建读数仓库，redisClient 可以为 nil（关闭热镜像）
func NewReadingRepository(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}
}

// EnsureSchema 启动时建表
func (r *ReadingRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reading (
			id BIGSERIAL PRIMARY KEY,
			sensor TEXT NOT NULL,
			property TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			ts TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS current_status (
			sensor TEXT NOT NULL,
			property TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (sensor, property)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reading_ts ON reading (ts)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveReading 持久化一条读数：追加历史并更新最新值表，单事务完成
func (r *ReadingRepository) SaveReading(ctx context.Context, reading models.Reading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reading (sensor, property, value, ts) VALUES ($1, $2, $3, $4)`,
		reading.Sensor, string(reading.Property), reading.Value, reading.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO current_status (sensor, property, value, ts)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (sensor, property)
		 DO UPDATE SET value = EXCLUDED.value, ts = EXCLUDED.ts`,
		reading.Sensor, string(reading.Property), reading.Value, reading.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert current status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reading: %w", err)
	}

	r.mirrorToRedis(ctx, reading)
	return nil
}

// mirrorToRedis 把最新值写入 Redis 热镜像
func (r *ReadingRepository) mirrorToRedis(ctx context.Context, reading models.Reading) {
	if r.redisClient == nil {
		return
	}

	data, err := json.Marshal(reading)
	if err != nil {
		r.logger.Warn("Failed to marshal reading for hot mirror", zap.Error(err))
		return
	}

	key := fmt.Sprintf("sensor:last:%s:%s", reading.Sensor, reading.Property)
	if err := r.redisClient.Set(ctx, key, data, hotMirrorTTL).Err(); err != nil {
		r.logger.Warn("Failed to update hot mirror",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// CurrentReadings 读取最新值表，用于启动时灌缓存
func (r *ReadingRepository) CurrentReadings(ctx context.Context) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sensor, property, value, ts FROM current_status`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query current status: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var reading models.Reading
		var property string
		if err := rows.Scan(&reading.Sensor, &property, &reading.Value, &reading.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan current status row: %w", err)
		}
		reading.Property = models.Property(property)
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate current status rows: %w", err)
	}

	return readings, nil
}

// DeleteOlderThan 删除超过保留期的历史读数，返回删除行数
func (r *ReadingRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reading WHERE ts < now() - ($1 || ' days')::interval`,
		days,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old readings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows, nil
}

// Ping 数据库健康检查
func (r *ReadingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
