package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/annel0/cavein/internal/collapse"
	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/world"
)

// RedisConfig — параметры подключения к Redis
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RedisLedger хранит антидребезг обрушений в Redis, чтобы несколько процессов,
// обслуживающих один мир, видели общие срабатывания.
// Ошибки Redis не блокируют обрушения: журнал считается пустым.
type RedisLedger struct {
	client  redis.Cmdable
	window  time.Duration
	prefix  string
	timeout time.Duration
	logger  *logging.Logger
}

// NewRedisLedger подключается к Redis и проверяет соединение
func NewRedisLedger(cfg RedisConfig, window time.Duration, logger *logging.Logger) (*RedisLedger, *redis.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 500 * time.Millisecond
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis cooldown ledger initialized: %s (window %s)", cfg.Addr, window)
	return NewRedisLedgerWithClient(rdb, cfg.KeyPrefix, window, cfg.Timeout, logger), rdb, nil
}

// NewRedisLedgerWithClient создаёт журнал поверх готового клиента
func NewRedisLedgerWithClient(client redis.Cmdable, prefix string, window, timeout time.Duration, logger *logging.Logger) *RedisLedger {
	if prefix == "" {
		prefix = "cavein:cooldown:"
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &RedisLedger{client: client, window: window, prefix: prefix, timeout: timeout, logger: logger}
}

// Key возвращает ключ Redis для пары (игрок, координата)
func (r *RedisLedger) Key(actor uuid.UUID, pos world.Coord) string {
	return r.prefix + collapse.CooldownKey(actor, pos)
}

// IsCoolingDown проверяет наличие ключа; ключ живёт ровно window
func (r *RedisLedger) IsCoolingDown(ctx context.Context, actor uuid.UUID, pos world.Coord) bool {
	if r.window <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.Key(actor, pos)).Result()
	if err != nil {
		r.logger.Warn("redis cooldown check failed, allowing collapse: %v", err)
		return false
	}
	return n > 0
}

// MarkTriggered записывает срабатывание с TTL = window
func (r *RedisLedger) MarkTriggered(ctx context.Context, actor uuid.UUID, pos world.Coord) {
	if r.window <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.Key(actor, pos), time.Now().UnixMilli(), r.window).Err(); err != nil {
		r.logger.Warn("redis cooldown mark failed: %v", err)
	}
}

var _ collapse.CooldownLedger = (*RedisLedger)(nil)
