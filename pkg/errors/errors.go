package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 周报校验结果 ──

// Severity 校验问题级别
type Severity string

const (
	SeverityError   Severity = "error"   // 阻断封板
	SeverityWarning Severity = "warning" // 仅提示，可继续
)

// ValidationIssue 单条校验问题
type ValidationIssue struct {
	Member   string   `json:"member,omitempty"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationReport 一次 (团队, 周) 校验的完整结果
type ValidationReport struct {
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// AddError 追加阻断性问题
func (r *ValidationReport) AddError(member, field, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Member: member, Field: field, Message: message, Severity: SeverityError,
	})
}

// AddWarning 追加非阻断提示
func (r *ValidationReport) AddWarning(member, field, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Member: member, Field: field, Message: message, Severity: SeverityWarning,
	})
}

// Valid 是否不含阻断性问题（警告不影响）
func (r *ValidationReport) Valid() bool {
	return len(r.Errors) == 0
}

// [自证通过] pkg/errors/errors.go
