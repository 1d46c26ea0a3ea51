// BoardHandler 订单与拣货看板处理器

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"freshops/api/internal/model"
	"freshops/api/internal/service"
)

// BoardHandler 订单与拣货看板处理器
type BoardHandler struct {
	boardService *service.BoardService
}

// NewBoardHandler 创建看板处理器
func NewBoardHandler(boardService *service.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

// RegisterRoutes 注册路由
func (h *BoardHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.POST("/:id/approve", h.ApproveOrder)
		orders.PUT("/:id/items/:item_id/picked", h.SetItemPicked)
	}
	r.GET("/board", h.Board)
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Order model.Order       `json:"order" binding:"required"`
	Items []model.OrderItem `json:"items"`
}

// ListOrders 订单列表
// @Summary List orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param delivery_date query string false "Delivery date (2006-01-02)"
// @Param customer_type query string false "Customer type (b2b, b2c)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} map[string]interface{}
// @Router /orders [get]
func (h *BoardHandler) ListOrders(c *gin.Context) {
	var query model.OrderListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders, total, err := h.boardService.ListOrders(c.Request.Context(), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      orders,
		"total":     total,
		"page":      query.Page,
		"page_size": query.PageSize,
	})
}

// CreateOrder 创建订单
// @Summary Create order with items
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body handler.CreateOrderRequest true "Order and items"
// @Success 201 {object} model.Order
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func (h *BoardHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.boardService.CreateOrder(c.Request.Context(), &req.Order, req.Items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, req.Order)
}

// ApproveOrder 审批订单
// @Summary Approve order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /orders/{id}/approve [post]
func (h *BoardHandler) ApproveOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	if err := h.boardService.ApproveOrder(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order approved"})
}

// SetItemPicked 更新拣货进度
// @Summary Update item picking state
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param item_id path int true "Item ID"
// @Param state body object true "Picked state"
// @Success 200 {object} model.Order
// @Failure 400 {object} map[string]string
// @Router /orders/{id}/items/{item_id}/picked [put]
func (h *BoardHandler) SetItemPicked(c *gin.Context) {
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var body struct {
		Picked bool `json:"picked"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.boardService.SetItemPicked(c.Request.Context(), orderID, itemID, body.Picked)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// Board 拣货看板
// @Summary Picking board
// @Description Orders grouped by picking progress, ready first, with delay flags
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param delivery_date query string false "Delivery date (2006-01-02)"
// @Success 200 {array} model.BoardRow
// @Router /board [get]
func (h *BoardHandler) Board(c *gin.Context) {
	rows, err := h.boardService.Board(c.Request.Context(), c.Query("delivery_date"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}
