package model

import "time"

// MemberSummary 封板时为每位成员生成的小结
// adjusted_target 由封板当时的目标与请假折算得出，月度滚算直接累加它，
// 不回头平均各周的效率百分比
type MemberSummary struct {
	Name           string      `json:"name"`
	Quantities     QuantityMap `json:"quantities"`
	Output         float64     `json:"output"`
	WorkingDays    int         `json:"working_days"`
	LeaveDays      float64     `json:"leave_days"`
	EffectiveDays  float64     `json:"effective_days"`
	Rating         *float64    `json:"rating,omitempty"`
	AdjustedTarget float64     `json:"adjusted_target,omitempty"`
	DaysEquivalent float64     `json:"days_equivalent,omitempty"` // 容量制团队的折算天数
	Efficiency     float64     `json:"efficiency"`
}

// FinalizedWeekReport 封板周报快照 — 对应 finalized_week_reports
// 一经生成不可变，仅能通过显式撤销封板删除
type FinalizedWeekReport struct {
	ReportID        string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"report_id"`
	TeamID          string            `gorm:"type:uuid;not null;index:uq_finalized_reports_key,unique" json:"team_id"`
	WeekID          string            `gorm:"type:varchar(20);not null;index:uq_finalized_reports_key,unique" json:"week_id"`
	MemberSummaries MemberSummaryList `gorm:"type:jsonb;not null" json:"member_summaries"`
	AvgEfficiency   float64           `gorm:"type:numeric(10,4);not null;default:0" json:"avg_efficiency"`
	AvgRating       *float64          `gorm:"type:numeric(4,2)" json:"avg_rating,omitempty"`
	FinalizedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"finalized_at"`
	FinalizedBy     string            `gorm:"type:varchar(100)" json:"finalized_by,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (FinalizedWeekReport) TableName() string { return "finalized_week_reports" }

// [自证通过] internal/model/finalized_report.go
