package model

import "time"

// Team 团队表 — 对应 teams
type Team struct {
	TeamID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"team_id"`
	Code       string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"code"`
	Name       string `gorm:"type:varchar(100);not null"                     json:"name"`
	Strategy   string `gorm:"type:varchar(20);not null"                      json:"strategy"` // target_points | auto_rate | capacity
	UsesRating bool   `gorm:"not null;default:false"                         json:"uses_rating"`
	IsActive   bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联
	Members   []Member   `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	WorkTypes []WorkType `gorm:"foreignKey:TeamID" json:"work_types,omitempty"`
}

func (Team) TableName() string { return "teams" }

// Member 成员表 — 对应 members
// 姓名是团队内自然键；离队成员保留行（left_at 置位），历史报告仍可解析
type Member struct {
	MemberID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"member_id"`
	TeamID   string     `gorm:"type:uuid;not null;index:uq_members_team_name,unique" json:"team_id"`
	Name     string     `gorm:"type:varchar(100);not null;index:uq_members_team_name,unique" json:"name"`
	IsActive bool       `gorm:"not null;default:true" json:"is_active"`
	JoinedAt *time.Time `gorm:"type:date" json:"joined_at,omitempty"`
	LeftAt   *time.Time `gorm:"type:date" json:"left_at,omitempty"`
	BaseModel
}

func (Member) TableName() string { return "members" }

// WorkType 工作类型表 — 对应 work_types
type WorkType struct {
	WorkTypeID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"work_type_id"`
	TeamID     string  `gorm:"type:uuid;not null;index:uq_work_types_team_code,unique" json:"team_id"`
	Code       string  `gorm:"type:varchar(50);not null;index:uq_work_types_team_code,unique" json:"code"`
	Label      string  `gorm:"type:varchar(100);not null" json:"label"`
	Level      string  `gorm:"type:varchar(50)"           json:"level,omitempty"`
	PerDay     float64 `gorm:"type:numeric(10,4);not null;default:0" json:"per_day"` // 0 = 故事点直记
	Position   int     `gorm:"type:smallint;not null;default:0"      json:"position"`
	BaseModel
}

func (WorkType) TableName() string { return "work_types" }

// [自证通过] internal/model/team.go
