package weekcal

import (
	"errors"
	"testing"
	"time"
)

func TestWeeksOfMonth_FiveWeekMonth(t *testing.T) {
	// 2026 年 8 月的周一：3、10、17、24、31 日
	weeks := WeeksOfMonth(2026, time.August)
	if len(weeks) != 5 {
		t.Fatalf("期望 5 个工作周，实际=%d", len(weeks))
	}
	if weeks[0].ID != "2026-08-W1" {
		t.Errorf("期望首周 ID=2026-08-W1，实际=%s", weeks[0].ID)
	}
	if got := weeks[0].Start.Format("2006-01-02"); got != "2026-08-03" {
		t.Errorf("期望首周周一=2026-08-03，实际=%s", got)
	}
	if got := weeks[0].End.Format("2006-01-02"); got != "2026-08-07" {
		t.Errorf("期望首周周五=2026-08-07，实际=%s", got)
	}
	if weeks[4].ID != "2026-08-W5" {
		t.Errorf("期望末周 ID=2026-08-W5，实际=%s", weeks[4].ID)
	}
	// 第五周的周一在 8 月，周五落入 9 月，依然归属 8 月
	if got := weeks[4].Start.Format("2006-01-02"); got != "2026-08-31" {
		t.Errorf("期望末周周一=2026-08-31，实际=%s", got)
	}
}

func TestWeeksOfMonth_FourWeekMonth(t *testing.T) {
	// 2026 年 2 月的周一：2、9、16、23 日
	weeks := WeeksOfMonth(2026, time.February)
	if len(weeks) != 4 {
		t.Fatalf("期望 4 个工作周，实际=%d", len(weeks))
	}
	for i, w := range weeks {
		if w.Ordinal != i+1 {
			t.Errorf("第 %d 周序号错误: %d", i+1, w.Ordinal)
		}
		if w.Month != "2026-02" {
			t.Errorf("期望月份键 2026-02，实际=%s", w.Month)
		}
	}
}

func TestParse(t *testing.T) {
	year, month, ordinal, err := Parse("2026-08-W2")
	if err != nil {
		t.Fatalf("Parse 应成功: %v", err)
	}
	if year != 2026 || month != time.August || ordinal != 2 {
		t.Errorf("期望 2026/Aug/2，实际=%d/%v/%d", year, month, ordinal)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{"", "2026-08", "2026-13-W1", "2026-08-W0", "2026-08-W7", "garbage"}
	for _, id := range cases {
		if _, _, _, err := Parse(id); !errors.Is(err, ErrBadWeekID) {
			t.Errorf("Parse(%q) 期望 ErrBadWeekID，实际: %v", id, err)
		}
	}
}

func TestMonthOf(t *testing.T) {
	month, err := MonthOf("2026-08-W2")
	if err != nil {
		t.Fatalf("MonthOf 应成功: %v", err)
	}
	if month != "2026-08" {
		t.Errorf("期望 2026-08，实际=%s", month)
	}
}

func TestByID(t *testing.T) {
	w, err := ByID("2026-08-W2")
	if err != nil {
		t.Fatalf("ByID 应成功: %v", err)
	}
	if got := w.Start.Format("2006-01-02"); got != "2026-08-10" {
		t.Errorf("期望周一=2026-08-10，实际=%s", got)
	}
	if w.Label() != "Aug 10 - Aug 14" {
		t.Errorf("期望 Label=Aug 10 - Aug 14，实际=%s", w.Label())
	}
}

func TestByID_OrdinalOutOfRange(t *testing.T) {
	// 2026 年 2 月只有 4 个工作周
	if _, err := ByID("2026-02-W5"); !errors.Is(err, ErrBadWeekID) {
		t.Errorf("期望 ErrBadWeekID，实际: %v", err)
	}
}

func TestFirstWeekOfNextMonth(t *testing.T) {
	w, err := FirstWeekOfNextMonth("2026-08")
	if err != nil {
		t.Fatalf("FirstWeekOfNextMonth 应成功: %v", err)
	}
	if w.ID != "2026-09-W1" {
		t.Errorf("期望 2026-09-W1，实际=%s", w.ID)
	}
	if got := w.Start.Format("2006-01-02"); got != "2026-09-07" {
		t.Errorf("期望 2026-09-07，实际=%s", got)
	}
}

func TestFirstWeekOfNextMonth_YearBoundary(t *testing.T) {
	w, err := FirstWeekOfNextMonth("2026-12")
	if err != nil {
		t.Fatalf("FirstWeekOfNextMonth 应成功: %v", err)
	}
	if w.Month != "2027-01" {
		t.Errorf("期望跨年到 2027-01，实际=%s", w.Month)
	}
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, m := range []string{"", "2026", "2026-13", "abcd-ef"} {
		if _, _, err := ParseMonth(m); !errors.Is(err, ErrBadMonth) {
			t.Errorf("ParseMonth(%q) 期望 ErrBadMonth，实际: %v", m, err)
		}
	}
}

// [自证通过] internal/weekcal/weekcal_test.go
