package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"effitrack/backend/internal/model"
	"effitrack/backend/internal/repository"
)

// ── 内存版 LocalState ──

type memLocalState struct {
	mu      sync.Mutex
	buckets map[string][]byte   // team:kind → raw
	failed  map[string][][]byte // team → queue
}

func newMemLocalState() *memLocalState {
	return &memLocalState{
		buckets: make(map[string][]byte),
		failed:  make(map[string][][]byte),
	}
}

func stateKey(team, kind string) string { return team + ":" + kind }

func (m *memLocalState) Get(_ context.Context, team, kind string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.buckets[stateKey(team, kind)]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (m *memLocalState) Put(_ context.Context, team, kind string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[stateKey(team, kind)] = raw
	return nil
}

func (m *memLocalState) Update(ctx context.Context, team, kind string, fn func(raw []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.buckets[stateKey(team, kind)])
	if err != nil {
		return err
	}
	m.buckets[stateKey(team, kind)] = next
	return nil
}

func (m *memLocalState) PushFailedSync(_ context.Context, team string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[team] = append(m.failed[team], payload)
	return nil
}

func (m *memLocalState) DrainFailedSyncs(_ context.Context, team string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.failed[team]
	m.failed[team] = nil
	return items, nil
}

func (m *memLocalState) FailedSyncDepth(_ context.Context, team string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.failed[team])), nil
}

// ── Mock TeamRepository ──

type mockTeamRepo struct {
	teams map[string]*model.Team
	fail  bool
}

func newMockTeamRepo() *mockTeamRepo {
	return &mockTeamRepo{teams: make(map[string]*model.Team)}
}

func (m *mockTeamRepo) GetByCode(_ context.Context, code string) (*model.Team, error) {
	if m.fail {
		return nil, errors.New("远端不可达")
	}
	if t, ok := m.teams[code]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) List(_ context.Context) ([]model.Team, error) {
	var result []model.Team
	for _, t := range m.teams {
		result = append(result, *t)
	}
	return result, nil
}

func (m *mockTeamRepo) UpsertTeam(_ context.Context, team *model.Team) error {
	if team.TeamID == "" {
		team.TeamID = "team-" + team.Code
	}
	m.teams[team.Code] = team
	return nil
}

func (m *mockTeamRepo) UpsertMember(_ context.Context, _ *model.Member) error { return nil }

func (m *mockTeamRepo) UpsertWorkType(_ context.Context, _ *model.WorkType) error { return nil }

func (m *mockTeamRepo) ListMembers(_ context.Context, teamID string, _ bool) ([]model.Member, error) {
	for _, t := range m.teams {
		if t.TeamID == teamID {
			return t.Members, nil
		}
	}
	return nil, nil
}

// ── Mock EntryRepository ──

type mockEntryRepo struct {
	entries  map[string]*model.WeekEntry // team|week|member
	failNext int                         // 前 N 次 Upsert 失败
	upserts  int
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{entries: make(map[string]*model.WeekEntry)}
}

func entryKey(teamID, weekID, member string) string {
	return teamID + "|" + weekID + "|" + member
}

func (m *mockEntryRepo) Upsert(_ context.Context, entry *model.WeekEntry) error {
	m.upserts++
	if m.failNext > 0 {
		m.failNext--
		return errors.New("远端写入失败")
	}
	clone := *entry
	m.entries[entryKey(entry.TeamID, entry.WeekID, entry.MemberName)] = &clone
	return nil
}

func (m *mockEntryRepo) Get(_ context.Context, teamID, weekID, member string) (*model.WeekEntry, error) {
	if e, ok := m.entries[entryKey(teamID, weekID, member)]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntryRepo) ListWeek(_ context.Context, teamID, weekID string) ([]model.WeekEntry, error) {
	var result []model.WeekEntry
	for _, e := range m.entries {
		if e.TeamID == teamID && e.WeekID == weekID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEntryRepo) CountWeek(_ context.Context, teamID, weekID string) (int64, error) {
	list, _ := m.ListWeek(nil, teamID, weekID)
	return int64(len(list)), nil
}

// ── Mock ReportRepository ──

type mockReportRepo struct {
	reports map[string]*model.FinalizedWeekReport // team|week
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{reports: make(map[string]*model.FinalizedWeekReport)}
}

func (m *mockReportRepo) Save(_ context.Context, report *model.FinalizedWeekReport) error {
	clone := *report
	m.reports[report.TeamID+"|"+report.WeekID] = &clone
	return nil
}

func (m *mockReportRepo) Get(_ context.Context, teamID, weekID string) (*model.FinalizedWeekReport, error) {
	if r, ok := m.reports[teamID+"|"+weekID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReportRepo) ListByWeekIDs(_ context.Context, teamID string, weekIDs []string) ([]model.FinalizedWeekReport, error) {
	var result []model.FinalizedWeekReport
	for _, id := range weekIDs {
		if r, ok := m.reports[teamID+"|"+id]; ok {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReportRepo) Delete(_ context.Context, teamID, weekID string) error {
	delete(m.reports, teamID+"|"+weekID)
	return nil
}

// ── Mock SummaryRepository / HistoricalRepository ──

type mockSummaryRepo struct {
	summaries map[string]*model.MonthlySummary // team|month
}

func newMockSummaryRepo() *mockSummaryRepo {
	return &mockSummaryRepo{summaries: make(map[string]*model.MonthlySummary)}
}

func (m *mockSummaryRepo) Save(_ context.Context, summary *model.MonthlySummary) error {
	clone := *summary
	m.summaries[summary.TeamID+"|"+summary.Month] = &clone
	return nil
}

func (m *mockSummaryRepo) Get(_ context.Context, teamID, month string) (*model.MonthlySummary, error) {
	if s, ok := m.summaries[teamID+"|"+month]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSummaryRepo) ListByTeam(_ context.Context, teamID string) ([]model.MonthlySummary, error) {
	var result []model.MonthlySummary
	for _, s := range m.summaries {
		if s.TeamID == teamID {
			result = append(result, *s)
		}
	}
	return result, nil
}

type mockHistoricalRepo struct {
	rows map[string]*model.HistoricalSummary // code|month
}

func newMockHistoricalRepo() *mockHistoricalRepo {
	return &mockHistoricalRepo{rows: make(map[string]*model.HistoricalSummary)}
}

func (m *mockHistoricalRepo) Get(_ context.Context, teamCode, month string) (*model.HistoricalSummary, error) {
	if h, ok := m.rows[teamCode+"|"+month]; ok {
		return h, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock WeekStateRepository ──

type mockWeekStateRepo struct {
	states map[string]*model.WeekState // team|week
}

func newMockWeekStateRepo() *mockWeekStateRepo {
	return &mockWeekStateRepo{states: make(map[string]*model.WeekState)}
}

func (m *mockWeekStateRepo) Get(_ context.Context, teamID, weekID string) (*model.WeekState, error) {
	if s, ok := m.states[teamID+"|"+weekID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWeekStateRepo) Create(_ context.Context, state *model.WeekState) error {
	m.states[state.TeamID+"|"+state.WeekID] = state
	return nil
}

func (m *mockWeekStateRepo) Update(_ context.Context, state *model.WeekState) error {
	m.states[state.TeamID+"|"+state.WeekID] = state
	return nil
}

func (m *mockWeekStateRepo) SetStatus(_ context.Context, teamID, weekID, status string, finalizedAt *time.Time) error {
	s, ok := m.states[teamID+"|"+weekID]
	if !ok {
		s = &model.WeekState{TeamID: teamID, WeekID: weekID}
		m.states[teamID+"|"+weekID] = s
	}
	s.Status = status
	s.FinalizedAt = finalizedAt
	return nil
}

func (m *mockWeekStateRepo) ListByWeekIDs(_ context.Context, teamID string, weekIDs []string) ([]model.WeekState, error) {
	var result []model.WeekState
	for _, id := range weekIDs {
		if s, ok := m.states[teamID+"|"+id]; ok {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockWeekStateRepo) LockMonth(_ context.Context, teamID string, weekIDs []string) error {
	for _, id := range weekIDs {
		s, ok := m.states[teamID+"|"+id]
		if !ok {
			s = &model.WeekState{TeamID: teamID, WeekID: id}
			m.states[teamID+"|"+id] = s
		}
		s.Status = model.WeekStatusMonthLocked
	}
	return nil
}

// ── Mock AuditRepository ──

type mockAuditRepo struct {
	audits []model.FinalizationAudit
}

func newMockAuditRepo() *mockAuditRepo { return &mockAuditRepo{} }

func (m *mockAuditRepo) Create(_ context.Context, audit *model.FinalizationAudit) error {
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *mockAuditRepo) ListByTeam(_ context.Context, _ string, _, _ int) ([]model.FinalizationAudit, int64, error) {
	return m.audits, int64(len(m.audits)), nil
}

// ── Mock SheetMirror ──

type mockSheetMirror struct {
	mu   sync.Mutex
	rows map[string]*repository.SheetRow // team|week|member
	fail bool
}

func newMockSheetMirror() *mockSheetMirror {
	return &mockSheetMirror{rows: make(map[string]*repository.SheetRow)}
}

func (m *mockSheetMirror) ReadRow(_ context.Context, teamCode, weekID, member string) (*repository.SheetRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[entryKey(teamCode, weekID, member)]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, nil
}

func (m *mockSheetMirror) UpsertRow(_ context.Context, teamCode string, _ []model.WorkType, row *repository.SheetRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("镜像写入失败")
	}
	clone := *row
	m.rows[entryKey(teamCode, row.WeekID, row.Member)] = &clone
	return nil
}

func (m *mockSheetMirror) Workbook(_ context.Context, teamCode string) (*bytes.Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.rows {
		if len(key) >= len(teamCode) && key[:len(teamCode)] == teamCode {
			return bytes.NewBufferString("workbook"), nil
		}
	}
	return nil, nil
}

// [自证通过] internal/service/mock_repos_test.go
