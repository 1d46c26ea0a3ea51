// PlannerHandler 装载与路线分配处理器

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"freshops/api/internal/model"
	"freshops/api/internal/service"
)

// PlannerHandler 装载与路线分配处理器
type PlannerHandler struct {
	plannerService *service.PlannerService
}

// NewPlannerHandler 创建分配处理器
func NewPlannerHandler(plannerService *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{plannerService: plannerService}
}

// RegisterRoutes 注册路由
// planMiddleware 仅作用于自动分配接口（外部优化服务调用昂贵）
func (h *PlannerHandler) RegisterRoutes(r *gin.RouterGroup, planMiddleware ...gin.HandlerFunc) {
	planner := r.Group("/planner")
	{
		planner.GET("/orders", h.PendingOrders)
		planner.POST("/plan", append(planMiddleware, h.PlanAutomatic)...)
		planner.POST("/dispatch", h.Dispatch)
	}
	r.GET("/routes", h.ListRoutes)
}

// PendingOrders 待分配订单池
// @Summary Pending order pool
// @Description Approved orders awaiting route assignment
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Order
// @Router /planner/orders [get]
func (h *PlannerHandler) PendingOrders(c *gin.Context) {
	orders, err := h.plannerService.PendingOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// PlanAutomatic 自动分配
// @Summary Automatic route planning
// @Description Calls the external optimizer; falls back to a round-robin heuristic when it is unavailable or returns a simulation
// @Tags Planner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param params body model.OptimizeParams false "Optimization parameters"
// @Success 200 {object} model.PlanResult
// @Failure 409 {object} map[string]string
// @Router /planner/plan [post]
func (h *PlannerHandler) PlanAutomatic(c *gin.Context) {
	params := model.DefaultOptimizeParams()
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.plannerService.PlanAutomatic(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, service.ErrNoVehicles) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Dispatch 确认派发
// @Summary Confirm and dispatch routes
// @Description Commits each vehicle's route in its own transaction and reports per-vehicle results
// @Tags Planner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.DispatchRequest true "Confirmed assignment"
// @Success 200 {array} model.DispatchResult
// @Failure 400 {object} map[string]string
// @Router /planner/dispatch [post]
func (h *PlannerHandler) Dispatch(c *gin.Context) {
	var req model.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.plannerService.ConfirmAndDispatch(c.Request.Context(), &req, c.GetInt("user_id"))
	if err != nil {
		if errors.Is(err, service.ErrEmptyAssignment) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

// ListRoutes 已派发路线列表
// @Summary List dispatched routes
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /routes [get]
func (h *PlannerHandler) ListRoutes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	routes, total, err := h.plannerService.ListRoutes(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      routes,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
