package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"effitrack/backend/internal/dto"
	"effitrack/backend/internal/service"
	"effitrack/backend/pkg/response"
)

// EntryHandler 周报条目模块 HTTP 处理器
type EntryHandler struct {
	entrySvc service.EntryService
}

// NewEntryHandler 创建 EntryHandler
func NewEntryHandler(entrySvc service.EntryService) *EntryHandler {
	return &EntryHandler{entrySvc: entrySvc}
}

// ListWeekEntries 获取某周全部条目
// GET /api/v1/teams/:code/weeks/:week/entries
func (h *EntryHandler) ListWeekEntries(c *gin.Context) {
	code, week := c.Param("code"), c.Param("week")
	if code == "" || week == "" {
		response.BadRequest(c, 10001, "团队 code 与周 ID 不能为空")
		return
	}

	entries, err := h.entrySvc.ListWeek(c.Request.Context(), code, week)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, entries)
}

// GetEntry 获取单成员条目
// GET /api/v1/teams/:code/weeks/:week/entries/:member
func (h *EntryHandler) GetEntry(c *gin.Context) {
	code, week, member := c.Param("code"), c.Param("week"), c.Param("member")
	if code == "" || week == "" || member == "" {
		response.BadRequest(c, 10001, "路径参数不完整")
		return
	}

	entry, err := h.entrySvc.Get(c.Request.Context(), code, week, member)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, entry)
}

// UpsertEntry 写入/合并单成员条目
// PUT /api/v1/teams/:code/weeks/:week/entries/:member
func (h *EntryHandler) UpsertEntry(c *gin.Context) {
	code, week, member := c.Param("code"), c.Param("week"), c.Param("member")
	if code == "" || week == "" || member == "" {
		response.BadRequest(c, 10001, "路径参数不完整")
		return
	}

	var req dto.UpsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	entry, err := h.entrySvc.Upsert(c.Request.Context(), code, week, member, &req)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, entry)
}

// ValidateWeek 封板前校验
// GET /api/v1/teams/:code/weeks/:week/validate
func (h *EntryHandler) ValidateWeek(c *gin.Context) {
	code, week := c.Param("code"), c.Param("week")
	if code == "" || week == "" {
		response.BadRequest(c, 10001, "团队 code 与周 ID 不能为空")
		return
	}

	report, err := h.entrySvc.Validate(c.Request.Context(), code, week)
	if err != nil {
		h.handleEntryError(c, err)
		return
	}

	response.OK(c, report)
}

// handleEntryError 统一处理条目模块业务错误
func (h *EntryHandler) handleEntryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 11001, "团队不存在")
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, 12001, "成员不在团队名单中")
	case errors.Is(err, service.ErrWeekInvalid):
		response.BadRequest(c, 12002, "周 ID 非法")
	case errors.Is(err, service.ErrWeekImmutable):
		response.Conflict(c, 12003, "该周已封板，条目不可修改")
	case errors.Is(err, service.ErrMonthLocked):
		response.Conflict(c, 12004, "该月已锁定，仅提供月级视图")
	case errors.Is(err, service.ErrUnknownWorkType):
		response.BadRequest(c, 12005, "未登记的工作类型")
	case errors.Is(err, service.ErrEntryInvalid):
		response.BadRequest(c, 12006, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/entry_handler.go
