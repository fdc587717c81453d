package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"easyshifts/backend/config"
)

// ErrKeyNotFound 键不存在或已过期
var ErrKeyNotFound = errors.New("redis: 键不存在")

const defaultOpTimeout = 3 * time.Second

// Client Redis 客户端封装
// 所有键自动加上配置的命名空间前缀；每次往返带独立超时
type Client struct {
	rdb       goredis.UniversalClient
	prefix    string
	opTimeout time.Duration
	logger    *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.OpTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize),
	)

	return New(rdb, cfg.KeyPrefix, cfg.OpTimeout, logger), nil
}

// New 基于已有连接构造 Client（测试中配合 miniredis 使用）
func New(rdb goredis.UniversalClient, prefix string, opTimeout time.Duration, logger *zap.Logger) *Client {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{rdb: rdb, prefix: prefix, opTimeout: opTimeout, logger: logger}
}

func (c *Client) key(k string) string { return c.prefix + k }

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// ── 通用键值操作 ──

// Get 读取键值；不存在时返回 ErrKeyNotFound
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set 写入键值并设置 TTL
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

// SetIfExists 仅当键仍存在时覆盖写入（SET XX），返回是否写入成功
// 用于滑动过期：避免把并发删除的键重新写回
func (c *Client) SetIfExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.rdb.SetXX(ctx, c.key(key), value, ttl).Result()
}

// Delete 删除键；键不存在不视为错误
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// ScanKeys 以 SCAN 遍历匹配 pattern 的键，返回去掉前缀后的键名
// O(键总数)，仅适合小规模数据
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var keys []string
	iter := c.rdb.Scan(ctx, 0, c.key(pattern), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), c.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// ── 限流 ──

// CheckRateLimit 基于有序集合的滑动窗口计数
// 返回 true 表示本次请求在 limit 以内
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	k := c.key(key)
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", windowStart)
	card := pipe.ZCard(ctx, k)
	pipe.ZAdd(ctx, k, goredis.Z{Score: float64(now.UnixNano()), Member: strconv.FormatInt(now.UnixNano(), 10)})
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() < int64(limit), nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
