package service

import (
	"math"
	"testing"

	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func f64(v float64) *float64 { return &v }

// ── 目标点数策略 ──

func TestComputeEfficiency_TargetPoints(t *testing.T) {
	// 目标 10 点，5 个工作日请 1 天假 → 折算目标 8；产出 8 → 100%
	in := EfficiencyInput{
		Quantities:   model.QuantityMap{"story_points": 8},
		WorkingDays:  5,
		LeaveDays:    1,
		TargetPoints: f64(10),
	}
	got := ComputeEfficiency(catalog.StrategyTargetPoints, in)
	if !almostEqual(got, 100) {
		t.Errorf("期望效率=100，实际=%v", got)
	}
}

func TestComputeEfficiency_TargetPoints_OverTarget(t *testing.T) {
	// 超出目标不封顶
	in := EfficiencyInput{
		Quantities:   model.QuantityMap{"story_points": 12},
		WorkingDays:  5,
		TargetPoints: f64(10),
	}
	got := ComputeEfficiency(catalog.StrategyTargetPoints, in)
	if !almostEqual(got, 120) {
		t.Errorf("期望效率=120，实际=%v", got)
	}
}

func TestComputeEfficiency_TargetPoints_MissingTarget(t *testing.T) {
	// 目标未设置属"数据未齐"，返回 0 而非报错
	in := EfficiencyInput{
		Quantities:  model.QuantityMap{"story_points": 8},
		WorkingDays: 5,
	}
	if got := ComputeEfficiency(catalog.StrategyTargetPoints, in); got != 0 {
		t.Errorf("目标未设置期望效率=0，实际=%v", got)
	}
	in.TargetPoints = f64(0)
	if got := ComputeEfficiency(catalog.StrategyTargetPoints, in); got != 0 {
		t.Errorf("目标为 0 期望效率=0，实际=%v", got)
	}
}

// ── 自动速率策略 ──

func TestComputeEfficiency_AutoRate(t *testing.T) {
	// 4 个有效工作日完成 3 个任务 → 75%
	in := EfficiencyInput{
		Quantities:  model.QuantityMap{"product_tasks": 3},
		WorkingDays: 5,
		LeaveDays:   1,
	}
	got := ComputeEfficiency(catalog.StrategyAutoRate, in)
	if !almostEqual(got, 75) {
		t.Errorf("期望效率=75，实际=%v", got)
	}
}

// ── 产能换算策略 ──

func TestComputeEfficiency_Capacity(t *testing.T) {
	// 日产能 2 的类型完成 8 个 → 4 天当量；4 个有效工作日 → 100%
	in := EfficiencyInput{
		Quantities:  model.QuantityMap{"short_form": 8},
		PerDay:      map[string]float64{"short_form": 2},
		WorkingDays: 5,
		LeaveDays:   1,
	}
	got := ComputeEfficiency(catalog.StrategyCapacity, in)
	if !almostEqual(got, 100) {
		t.Errorf("期望效率=100，实际=%v", got)
	}
}

func TestComputeEfficiency_Capacity_MixedTypes(t *testing.T) {
	// 2/0.5=4 天 + 2/2=1 天 → 5 天当量；5 个有效工作日 → 100%
	in := EfficiencyInput{
		Quantities:  model.QuantityMap{"long_form": 2, "short_form": 2},
		PerDay:      map[string]float64{"long_form": 0.5, "short_form": 2},
		WorkingDays: 5,
	}
	got := ComputeEfficiency(catalog.StrategyCapacity, in)
	if !almostEqual(got, 100) {
		t.Errorf("期望效率=100，实际=%v", got)
	}
}

func TestComputeEfficiency_Capacity_ZeroPerDaySkipped(t *testing.T) {
	// 日产能 0 的类型不参与日当量换算
	in := EfficiencyInput{
		Quantities:  model.QuantityMap{"short_form": 4, "story_points": 99},
		PerDay:      map[string]float64{"short_form": 2, "story_points": 0},
		WorkingDays: 5,
		LeaveDays:   3,
	}
	got := ComputeEfficiency(catalog.StrategyCapacity, in)
	if !almostEqual(got, 100) {
		t.Errorf("期望效率=100，实际=%v", got)
	}
}

// ── 边界 ──

func TestComputeEfficiency_NoEffectiveDays(t *testing.T) {
	in := EfficiencyInput{
		Quantities:   model.QuantityMap{"story_points": 8},
		WorkingDays:  5,
		LeaveDays:    5,
		TargetPoints: f64(10),
	}
	for _, strategy := range []catalog.Strategy{
		catalog.StrategyTargetPoints, catalog.StrategyAutoRate, catalog.StrategyCapacity,
	} {
		if got := ComputeEfficiency(strategy, in); got != 0 {
			t.Errorf("策略 %s 有效工作日为 0 时期望效率=0，实际=%v", strategy, got)
		}
	}
}

func TestAdjustedTarget(t *testing.T) {
	if got := AdjustedTarget(10, 5, 4); !almostEqual(got, 8) {
		t.Errorf("期望折算目标=8，实际=%v", got)
	}
	if got := AdjustedTarget(10, 0, 0); got != 0 {
		t.Errorf("工作日为 0 时期望折算目标=0，实际=%v", got)
	}
}

func TestEfficiencyInput_DaysEquivalent(t *testing.T) {
	in := EfficiencyInput{
		Quantities: model.QuantityMap{"a": 6, "b": 2},
		PerDay:     map[string]float64{"a": 3, "b": 1},
	}
	if got := in.DaysEquivalent(); !almostEqual(got, 4) {
		t.Errorf("期望日当量=4，实际=%v", got)
	}
}

// [自证通过] internal/service/efficiency_test.go
