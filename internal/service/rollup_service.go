package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"effitrack/backend/config"
	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/dto"
	"effitrack/backend/internal/model"
	"effitrack/backend/internal/repository"
	"effitrack/backend/internal/weekcal"
	"effitrack/backend/pkg/localstore"
)

// ── 月度滚算模块业务错误 ──

var (
	ErrMonthIncomplete    = errors.New("该月仍有未封板的周，不能锁定")
	ErrMonthAlreadyLocked = errors.New("该月已锁定")
	ErrMonthInvalid       = errors.New("月份键非法")
)

// RollupService 月度滚算与锁定接口
//
// 月度效率从各周快照的原始累计量重算（产出之和 / 目标或天数之和），
// 绝不对各周的效率百分比取平均：平均会让少工作日的周权重失真。
type RollupService interface {
	// LockMonth 显式锁定：要求该月全部工作周均已封板
	LockMonth(ctx context.Context, teamCode, month, operator string) (*dto.MonthResponse, error)
	// MaybeLockMonth 封板后的自动锁定检查；月未满时静默返回
	MaybeLockMonth(ctx context.Context, teamCode, month, operator string) error
	// Completion 该月封板进度：已封板周数 / 应有周数
	Completion(ctx context.Context, teamCode, month string) (finalized, total int, err error)
}

type rollupService struct {
	registry *catalog.Registry
	repo     *repository.Repository
	local    LocalState
	sync     SyncService
	cfg      config.SyncConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewRollupService 创建 RollupService 实例
func NewRollupService(
	registry *catalog.Registry,
	repo *repository.Repository,
	local LocalState,
	syncSvc SyncService,
	cfg config.SyncConfig,
	logger *zap.Logger,
) RollupService {
	return &rollupService{
		registry: registry,
		repo:     repo,
		local:    local,
		sync:     syncSvc,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *rollupService) Completion(ctx context.Context, teamCode, month string) (int, int, error) {
	if _, ok := s.registry.Team(teamCode); !ok {
		return 0, 0, ErrTeamNotFound
	}
	year, m, err := weekcal.ParseMonth(month)
	if err != nil {
		return 0, 0, ErrMonthInvalid
	}
	weeks := weekcal.WeeksOfMonth(year, m)

	reports, err := loadReports(ctx, s.local, teamCode)
	if err != nil {
		return 0, 0, err
	}
	finalized := 0
	for _, w := range weeks {
		if _, ok := reports[w.ID]; ok {
			finalized++
		}
	}
	return finalized, len(weeks), nil
}

func (s *rollupService) MaybeLockMonth(ctx context.Context, teamCode, month, operator string) error {
	finalized, total, err := s.Completion(ctx, teamCode, month)
	if err != nil {
		return err
	}
	if total < s.cfg.ExpectedWeekFloor || finalized < total {
		return nil
	}
	_, err = s.lock(ctx, teamCode, month, operator)
	if errors.Is(err, ErrMonthAlreadyLocked) {
		return nil
	}
	return err
}

func (s *rollupService) LockMonth(ctx context.Context, teamCode, month, operator string) (*dto.MonthResponse, error) {
	finalized, total, err := s.Completion(ctx, teamCode, month)
	if err != nil {
		return nil, err
	}
	if finalized < total {
		return nil, ErrMonthIncomplete
	}
	return s.lock(ctx, teamCode, month, operator)
}

// lock 锁定流程：滚算 → 本地提交（汇总 + 锁 + 周期推进）→ 审计 → 远端推送
func (s *rollupService) lock(ctx context.Context, teamCode, month, operator string) (*dto.MonthResponse, error) {
	cfg, ok := s.registry.Team(teamCode)
	if !ok {
		return nil, ErrTeamNotFound
	}
	year, m, err := weekcal.ParseMonth(month)
	if err != nil {
		return nil, ErrMonthInvalid
	}
	weeks := weekcal.WeeksOfMonth(year, m)

	reports, err := loadReports(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}

	summary := s.rollup(cfg, month, weeks, reports)
	lockedAt := s.now()
	summary.LockedAt = lockedAt

	// 锁先行：在桶互斥内判重，双写只有一方成功
	err = updateBucket(ctx, s.local, teamCode, localstore.KindLockedMonths, lockBucket{},
		func(bucket lockBucket) (lockBucket, error) {
			if _, exists := bucket[month]; exists {
				return bucket, ErrMonthAlreadyLocked
			}
			bucket[month] = monthLock{LockedAt: lockedAt, WeekCount: len(weeks)}
			return bucket, nil
		})
	if err != nil {
		return nil, err
	}

	err = updateBucket(ctx, s.local, teamCode, localstore.KindMonthSummaries, summaryBucket{},
		func(bucket summaryBucket) (summaryBucket, error) {
			bucket[month] = *summary
			return bucket, nil
		})
	if err != nil {
		return nil, err
	}

	s.advancePeriod(ctx, teamCode, month)
	s.audit(ctx, teamCode, month, operator)

	// 远端推送尽力而为，失败入队
	if perr := s.sync.PushMonthLock(ctx, teamCode, month); perr != nil {
		s.logger.Warn("月锁定远端推送失败，已入失败队列",
			zap.String("team", teamCode), zap.String("month", month), zap.Error(perr))
	}

	s.logger.Info("月已锁定",
		zap.String("team", teamCode),
		zap.String("month", month),
		zap.Int("weeks", len(weeks)),
		zap.Float64("avg_efficiency", summary.AvgEfficiency),
	)
	return summaryToDTO(teamCode, summary, true), nil
}

// rollup 从周快照累计量重算月度汇总
func (s *rollupService) rollup(cfg catalog.TeamConfig, month string, weeks []weekcal.Week, reports reportBucket) *model.MonthlySummary {
	type acc struct {
		output    float64
		workingD  int
		effDays   float64
		adjTarget float64
		daysEquiv float64
		ratingSum float64
		ratingN   int
		weekCount int
	}
	members := map[string]*acc{}

	for _, w := range weeks {
		report, ok := reports[w.ID]
		if !ok {
			continue
		}
		for _, ms := range report.MemberSummaries {
			a := members[ms.Name]
			if a == nil {
				a = &acc{}
				members[ms.Name] = a
			}
			a.output += ms.Output
			a.workingD += ms.WorkingDays
			a.effDays += ms.EffectiveDays
			a.adjTarget += ms.AdjustedTarget
			a.daysEquiv += ms.DaysEquivalent
			if ms.Rating != nil {
				a.ratingSum += *ms.Rating
				a.ratingN++
			}
			a.weekCount++
		}
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	rollups := make(model.MemberRollupList, 0, len(names))
	var effSum, teamRatingSum float64
	var teamRatingN int
	for _, name := range names {
		a := members[name]
		eff := monthEfficiency(cfg.Strategy, a.output, a.adjTarget, a.daysEquiv, a.effDays)

		r := model.MemberRollup{
			Name:            name,
			TotalOutput:     a.output,
			WorkingDays:     a.workingD,
			EffectiveDays:   a.effDays,
			AdjustedTarget:  a.adjTarget,
			MonthEfficiency: eff,
			WeekCount:       a.weekCount,
		}
		if cfg.UsesRating && a.ratingN > 0 {
			avg := a.ratingSum / float64(a.ratingN)
			r.AvgRating = &avg
			teamRatingSum += avg
			teamRatingN++
		}
		rollups = append(rollups, r)
		effSum += eff
	}

	summary := &model.MonthlySummary{
		Month:         month,
		MemberRollups: rollups,
		WeekCount:     len(weeks),
	}
	if len(rollups) > 0 {
		summary.AvgEfficiency = effSum / float64(len(rollups))
	}
	if cfg.UsesRating && teamRatingN > 0 {
		avg := teamRatingSum / float64(teamRatingN)
		summary.AvgRating = &avg
	}
	return summary
}

// monthEfficiency 月度效率：分子分母各自求和后相除，不平均周百分比
func monthEfficiency(strategy catalog.Strategy, output, adjTarget, daysEquiv, effDays float64) float64 {
	switch strategy {
	case catalog.StrategyTargetPoints:
		if adjTarget <= 0 {
			return 0
		}
		return output / adjTarget * 100
	case catalog.StrategyAutoRate:
		if effDays <= 0 {
			return 0
		}
		return output / effDays * 100
	default: // catalog.StrategyCapacity
		if effDays <= 0 {
			return 0
		}
		return daysEquiv / effDays * 100
	}
}

// advancePeriod 月锁定后推进当前工作周期到下月第一周
func (s *rollupService) advancePeriod(ctx context.Context, teamCode, month string) {
	next, err := weekcal.FirstWeekOfNextMonth(month)
	if err != nil {
		s.logger.Warn("工作周期推进失败", zap.String("month", month), zap.Error(err))
		return
	}
	err = updateBucket(ctx, s.local, teamCode, localstore.KindSyncMetadata, syncMetadata{Status: SyncStatusSynced},
		func(meta syncMetadata) (syncMetadata, error) {
			meta.ActiveWeekID = next.ID
			meta.ActiveMonth = next.Month
			return meta, nil
		})
	if err != nil {
		s.logger.Warn("工作周期推进失败", zap.String("team", teamCode), zap.Error(err))
	}
}

func (s *rollupService) audit(ctx context.Context, teamCode, month, operator string) {
	team, err := s.repo.Team.GetByCode(ctx, teamCode)
	if err != nil {
		s.logger.Warn("审计写入跳过：解析团队失败", zap.String("team", teamCode), zap.Error(err))
		return
	}
	row := &model.FinalizationAudit{
		TeamID:   team.TeamID,
		Month:    month,
		Action:   model.AuditActionLock,
		Operator: operator,
	}
	if err := s.repo.Audit.Create(ctx, row); err != nil {
		s.logger.Warn("审计写入失败", zap.String("action", model.AuditActionLock), zap.Error(err))
	}
}

func summaryToDTO(teamCode string, summary *model.MonthlySummary, locked bool) *dto.MonthResponse {
	members := make([]dto.MemberRollupResponse, 0, len(summary.MemberRollups))
	for _, r := range summary.MemberRollups {
		members = append(members, dto.MemberRollupResponse{
			Name:            r.Name,
			TotalOutput:     r.TotalOutput,
			EffectiveDays:   r.EffectiveDays,
			AvgRating:       r.AvgRating,
			MonthEfficiency: r.MonthEfficiency,
		})
	}
	return &dto.MonthResponse{
		TeamCode:      teamCode,
		Month:         summary.Month,
		Source:        "summary",
		Locked:        locked,
		AvgEfficiency: summary.AvgEfficiency,
		AvgRating:     summary.AvgRating,
		WeekCount:     summary.WeekCount,
		Members:       members,
	}
}

// [自证通过] internal/service/rollup_service.go
