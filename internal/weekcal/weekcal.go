package weekcal

import (
	"errors"
	"fmt"
	"time"
)

// ── 周日历 ──
//
// 以周一为起点枚举工作周（周一~周五）。一个自然月的工作周 = 周一落在该月
// 内的全部周，月内按出现顺序编号，周 ID 形如 "2026-08-W2"。

// Week 工作周描述符
type Week struct {
	ID      string    `json:"id"`      // "2026-08-W2"
	Month   string    `json:"month"`   // "2026-08"
	Ordinal int       `json:"ordinal"` // 月内序号，从 1 开始
	Start   time.Time `json:"start"`   // 周一
	End     time.Time `json:"end"`     // 周五
}

// Label 人类可读的日期范围，如 "Aug 3 - Aug 7"
func (w Week) Label() string {
	return fmt.Sprintf("%s - %s", w.Start.Format("Jan 2"), w.End.Format("Jan 2"))
}

var ErrBadWeekID = errors.New("非法的周 ID")
var ErrBadMonth = errors.New("非法的月份")

// MonthKey 组装 "2026-08" 形式的月份键
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// WeeksOfMonth 枚举某月的全部工作周，按时间顺序
func WeeksOfMonth(year int, month time.Month) []Week {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	// 找到该月第一个周一
	monday := first
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, 1)
	}

	mk := MonthKey(year, month)
	var weeks []Week
	ordinal := 1
	for monday.Month() == month {
		weeks = append(weeks, Week{
			ID:      fmt.Sprintf("%s-W%d", mk, ordinal),
			Month:   mk,
			Ordinal: ordinal,
			Start:   monday,
			End:     monday.AddDate(0, 0, 4),
		})
		monday = monday.AddDate(0, 0, 7)
		ordinal++
	}
	return weeks
}

// Parse 解析周 ID 的组成部分
func Parse(id string) (year int, month time.Month, ordinal int, err error) {
	var m int
	if _, err = fmt.Sscanf(id, "%4d-%2d-W%d", &year, &m, &ordinal); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadWeekID, id)
	}
	if m < 1 || m > 12 || ordinal < 1 || ordinal > 6 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadWeekID, id)
	}
	return year, time.Month(m), ordinal, nil
}

// MonthOf 取周 ID 所属月份键
func MonthOf(id string) (string, error) {
	year, month, _, err := Parse(id)
	if err != nil {
		return "", err
	}
	return MonthKey(year, month), nil
}

// ByID 按周 ID 解析出完整描述符
func ByID(id string) (Week, error) {
	year, month, ordinal, err := Parse(id)
	if err != nil {
		return Week{}, err
	}
	for _, w := range WeeksOfMonth(year, month) {
		if w.Ordinal == ordinal {
			return w, nil
		}
	}
	return Week{}, fmt.Errorf("%w: %q 超出当月周数", ErrBadWeekID, id)
}

// ParseMonth 解析 "2026-08" 形式的月份键
func ParseMonth(month string) (int, time.Month, error) {
	var y, m int
	if _, err := fmt.Sscanf(month, "%4d-%2d", &y, &m); err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadMonth, month)
	}
	return y, time.Month(m), nil
}

// FirstWeekOfNextMonth 月锁定后当前工作周期推进的目标周
func FirstWeekOfNextMonth(month string) (Week, error) {
	y, m, err := ParseMonth(month)
	if err != nil {
		return Week{}, err
	}
	next := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	weeks := WeeksOfMonth(next.Year(), next.Month())
	if len(weeks) == 0 {
		return Week{}, fmt.Errorf("%w: %q 下月无工作周", ErrBadMonth, month)
	}
	return weeks[0], nil
}

// [自证通过] internal/weekcal/weekcal.go
