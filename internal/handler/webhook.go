package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"freshops/api/internal/model"
	"freshops/api/internal/service"
)

// WebhookHandler Webhook 管理接口
type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// RegisterRoutes 注册 Webhook 路由
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.GET("", h.ListWebhooks)
		webhooks.POST("", h.CreateWebhook)
		webhooks.GET("/stats", h.GetStats)
		webhooks.GET("/events", h.GetEventTypes)
		webhooks.GET("/deliveries", h.GetDeliveries)
		webhooks.GET("/:id", h.GetWebhook)
		webhooks.PUT("/:id", h.UpdateWebhook)
		webhooks.DELETE("/:id", h.DeleteWebhook)
		webhooks.POST("/:id/toggle", h.ToggleWebhook)
		webhooks.POST("/:id/test", h.TestWebhook)
	}
}

// CreateWebhook 创建 Webhook
// @Summary 创建 Webhook
// @Description 注册一个订阅系统事件的外部回调地址
// @Tags Webhook
// @Accept json
// @Produce json
// @Param webhook body model.CreateWebhookRequest true "Webhook 配置"
// @Success 201 {object} model.Webhook
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /webhooks [post]
func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req model.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var createdBy *int
	if userID, exists := c.Get("user_id"); exists {
		id := userID.(int)
		createdBy = &id
	}

	webhook, err := h.webhookService.CreateWebhook(c.Request.Context(), &req, createdBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, webhook)
}

// ListWebhooks 查询 Webhook 列表
// @Summary Webhook 列表
// @Tags Webhook
// @Produce json
// @Param status query string false "状态" Enums(active, inactive, failed)
// @Param event query string false "订阅的事件类型"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /webhooks [get]
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	var query model.WebhookListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webhooks, total, err := h.webhookService.ListWebhooks(c.Request.Context(), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list":      webhooks,
		"total":     total,
		"page":      query.Page,
		"page_size": query.PageSize,
	})
}

// GetWebhook 获取 Webhook 详情
// @Summary Webhook 详情
// @Tags Webhook
// @Produce json
// @Param id path int true "Webhook ID"
// @Success 200 {object} model.Webhook
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /webhooks/{id} [get]
func (h *WebhookHandler) GetWebhook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	webhook, err := h.webhookService.GetWebhook(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, webhook)
}

// UpdateWebhook 更新 Webhook
// @Summary 更新 Webhook
// @Tags Webhook
// @Accept json
// @Produce json
// @Param id path int true "Webhook ID"
// @Param webhook body model.UpdateWebhookRequest true "更新内容"
// @Success 200 {object} model.Webhook
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /webhooks/{id} [put]
func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	var req model.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webhook, err := h.webhookService.UpdateWebhook(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, webhook)
}

// DeleteWebhook 删除 Webhook
// @Summary 删除 Webhook
// @Tags Webhook
// @Produce json
// @Param id path int true "Webhook ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /webhooks/{id} [delete]
func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	if err := h.webhookService.DeleteWebhook(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "webhook deleted"})
}

// ToggleWebhook 启用/禁用 Webhook
// @Summary 启用/禁用 Webhook
// @Tags Webhook
// @Produce json
// @Param id path int true "Webhook ID"
// @Success 200 {object} model.Webhook
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /webhooks/{id}/toggle [post]
func (h *WebhookHandler) ToggleWebhook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	webhook, err := h.webhookService.ToggleWebhookStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, webhook)
}

// TestWebhook 测试 Webhook 投递
// @Summary 测试投递
// @Description 使用自定义数据同步调用回调地址，不记录投递日志
// @Tags Webhook
// @Accept json
// @Produce json
// @Param id path int true "Webhook ID"
// @Param request body model.TestWebhookRequest true "测试事件"
// @Success 200 {object} model.TestWebhookResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /webhooks/{id}/test [post]
func (h *WebhookHandler) TestWebhook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return
	}

	var req model.TestWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.webhookService.TestWebhook(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDeliveries 查询投递日志
// @Summary 投递日志
// @Tags Webhook
// @Produce json
// @Param webhook_id query int false "Webhook ID"
// @Param event_type query string false "事件类型"
// @Param status query string false "结果" Enums(success, failed)
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /webhooks/deliveries [get]
func (h *WebhookHandler) GetDeliveries(c *gin.Context) {
	var query model.WebhookDeliveryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deliveries, total, err := h.webhookService.GetDeliveries(c.Request.Context(), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list":      deliveries,
		"total":     total,
		"page":      query.Page,
		"page_size": query.PageSize,
	})
}

// GetStats Webhook 统计
// @Summary Webhook 统计
// @Tags Webhook
// @Produce json
// @Success 200 {object} model.WebhookStats
// @Security BearerAuth
// @Router /webhooks/stats [get]
func (h *WebhookHandler) GetStats(c *gin.Context) {
	stats, err := h.webhookService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetEventTypes 可订阅事件类型目录
// @Summary 事件类型列表
// @Tags Webhook
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /webhooks/events [get]
func (h *WebhookHandler) GetEventTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"events": []gin.H{
			{"type": model.WebhookEventRouteDispatched, "description": "路线确认发货后触发，包含车辆与订单信息"},
			{"type": model.WebhookEventOrderApproved, "description": "订单审批通过后触发"},
			{"type": model.WebhookEventOrderDelayed, "description": "拣货超时告警触发"},
			{"type": model.WebhookEventAll, "description": "订阅全部事件"},
		},
	})
}
