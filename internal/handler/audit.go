// 登录与操作审计

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"freshops/api/internal/model"
)

// AuditHandler 审计处理器
type AuditHandler struct {
	db *gorm.DB
}

// NewAuditHandler 创建审计处理器
func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// RegisterRoutes 注册路由
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", h.ListLoginLogs)
	r.GET("/audit-logs/stats", h.GetStats)
	r.GET("/operation-logs", h.ListOperationLogs)
}

// ListLoginLogs 获取登录日志列表
func (h *AuditHandler) ListLoginLogs(c *gin.Context) {
	query := h.db.Model(&model.LoginLog{})

	// 筛选条件
	if username := c.Query("username"); username != "" {
		query = query.Where("username = ?", username)
	}
	if startTime := c.Query("start_time"); startTime != "" {
		query = query.Where("created_at >= ?", startTime)
	}
	if endTime := c.Query("end_time"); endTime != "" {
		query = query.Where("created_at <= ?", endTime)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	var total int64
	query.Count(&total)

	var logs []model.LoginLog
	offset := (page - 1) * pageSize
	query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs)

	c.JSON(http.StatusOK, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListOperationLogs 获取操作日志列表
func (h *AuditHandler) ListOperationLogs(c *gin.Context) {
	query := h.db.Model(&model.OperationLog{})

	if module := c.Query("module"); module != "" {
		query = query.Where("module = ?", module)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	var total int64
	query.Count(&total)

	var logs []model.OperationLog
	offset := (page - 1) * pageSize
	query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs)

	c.JSON(http.StatusOK, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetStats 获取统计
func (h *AuditHandler) GetStats(c *gin.Context) {
	// 今日登录次数
	var todayLogins int64
	h.db.Model(&model.LoginLog{}).Where("action = ? AND DATE(created_at) = CURRENT_DATE", "login").Count(&todayLogins)

	// 失败次数
	var failedLogins int64
	h.db.Model(&model.LoginLog{}).Where("action = ? AND success = ? AND DATE(created_at) = CURRENT_DATE", "login", false).Count(&failedLogins)

	// 活跃用户数
	var activeUsers int64
	h.db.Model(&model.LoginLog{}).Where("action = ? AND DATE(created_at) = CURRENT_DATE", "login").Distinct("user_id").Count(&activeUsers)

	c.JSON(http.StatusOK, gin.H{
		"today_logins":  todayLogins,
		"failed_logins": failedLogins,
		"active_users":  activeUsers,
	})
}
