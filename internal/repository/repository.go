package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Team       TeamRepository
	Entry      EntryRepository
	Report     ReportRepository
	Summary    SummaryRepository
	WeekState  WeekStateRepository
	Audit      AuditRepository
	Historical HistoricalRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Team:       NewTeamRepo(db),
		Entry:      NewEntryRepo(db),
		Report:     NewReportRepo(db),
		Summary:    NewSummaryRepo(db),
		WeekState:  NewWeekStateRepo(db),
		Audit:      NewAuditRepo(db),
		Historical: NewHistoricalRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
