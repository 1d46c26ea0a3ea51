// ActivityHandler 车辆活动处理器

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"freshops/api/internal/model"
	"freshops/api/internal/service"
)

// ActivityHandler 车辆活动处理器
type ActivityHandler struct {
	activityService *service.ActivityService
}

// NewActivityHandler 创建活动处理器
func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// RegisterRoutes 注册路由
func (h *ActivityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/vehicles/:id/activity", h.GetSession)
	r.POST("/vehicles/:id/activity", h.Switch)
	r.GET("/activity-logs", h.ListLogs)
}

// GetSession 获取当前活动会话
// @Summary Current activity session
// @Description Returns the vehicle's live activity session, starting one if absent
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Success 200 {object} model.ActivitySession
// @Failure 400 {object} map[string]string
// @Router /vehicles/{id}/activity [get]
func (h *ActivityHandler) GetSession(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	session, err := h.activityService.EnsureSession(c.Request.Context(), id, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// Switch 切换活动类型
// @Summary Switch vehicle activity
// @Description Closes the current segment, writes an audit log and opens a new one. A missing GPS fix degrades the audit instead of failing.
// @Tags Activity
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Param request body model.SwitchActivityRequest true "Target activity and optional GPS fix"
// @Success 200 {object} model.SwitchActivityResult
// @Failure 400 {object} map[string]string
// @Router /vehicles/{id}/activity [post]
func (h *ActivityHandler) Switch(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	var req model.SwitchActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.activityService.SwitchActivity(c.Request.Context(), id, req.ActivityType, req.Fix)
	if err != nil {
		if errors.Is(err, service.ErrUnknownActivityType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListLogs 活动审计记录
// @Summary List activity logs
// @Tags Activity
// @Produce json
// @Security BearerAuth
// @Param vehicle_id query int false "Vehicle filter"
// @Param start_time query string false "Start time (RFC3339)"
// @Param end_time query string false "End time (RFC3339)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /activity-logs [get]
func (h *ActivityHandler) ListLogs(c *gin.Context) {
	var query model.ActivityLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logs, total, err := h.activityService.ListLogs(c.Request.Context(), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      logs,
		"total":     total,
		"page":      query.Page,
		"page_size": query.PageSize,
	})
}
