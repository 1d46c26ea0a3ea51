// VehicleHandler 车队管理处理器

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"freshops/api/internal/model"
	"freshops/api/internal/service"
)

// VehicleHandler 车队管理处理器
type VehicleHandler struct {
	fleetService *service.FleetService
}

// NewVehicleHandler 创建车队处理器
func NewVehicleHandler(fleetService *service.FleetService) *VehicleHandler {
	return &VehicleHandler{fleetService: fleetService}
}

// RegisterRoutes 注册路由
func (h *VehicleHandler) RegisterRoutes(r *gin.RouterGroup) {
	vehicles := r.Group("/vehicles")
	{
		vehicles.GET("", h.List)
		vehicles.POST("", h.Create)
		vehicles.GET("/available", h.ListAvailable)
		vehicles.GET("/:id", h.Get)
		vehicles.PUT("/:id", h.Update)
		vehicles.PUT("/:id/odometer", h.UpdateOdometer)
		vehicles.POST("/:id/driver", h.AssignDriver)
		vehicles.DELETE("/:id/driver", h.UnassignDriver)
	}

	drivers := r.Group("/drivers")
	{
		drivers.GET("", h.ListDrivers)
		drivers.POST("", h.CreateDriver)
	}
}

// List 获取车辆列表
// @Summary List vehicles
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Param plate_number query string false "Plate number filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /vehicles [get]
func (h *VehicleHandler) List(c *gin.Context) {
	var query model.VehicleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicles, total, err := h.fleetService.ListVehicles(c.Request.Context(), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      vehicles,
		"total":     total,
		"page":      query.Page,
		"page_size": query.PageSize,
	})
}

// Create 创建车辆
// @Summary Create vehicle
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param vehicle body model.CreateVehicleRequest true "Vehicle data"
// @Success 201 {object} model.Vehicle
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /vehicles [post]
func (h *VehicleHandler) Create(c *gin.Context) {
	var req model.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle, err := h.fleetService.CreateVehicle(c.Request.Context(), &req, c.GetInt("user_id"))
	if err != nil {
		if errors.Is(err, service.ErrPlateExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, vehicle)
}

// ListAvailable 获取可调度车辆
// @Summary List available vehicles
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Vehicle
// @Router /vehicles/available [get]
func (h *VehicleHandler) ListAvailable(c *gin.Context) {
	vehicles, err := h.fleetService.AvailableVehicles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// Get 获取车辆详情
// @Summary Get vehicle
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Success 200 {object} model.Vehicle
// @Failure 404 {object} map[string]string
// @Router /vehicles/{id} [get]
func (h *VehicleHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	vehicle, err := h.fleetService.GetVehicle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// Update 更新车辆
// @Summary Update vehicle
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Param vehicle body model.UpdateVehicleRequest true "Fields to update"
// @Success 200 {object} model.Vehicle
// @Failure 400 {object} map[string]string
// @Router /vehicles/{id} [put]
func (h *VehicleHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	var req model.UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle, err := h.fleetService.UpdateVehicle(c.Request.Context(), id, &req, c.GetInt("user_id"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// UpdateOdometer 更新里程
// @Summary Update odometer
// @Description Odometer never decreases unless correction is set
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Param odometer body model.UpdateOdometerRequest true "Odometer reading"
// @Success 200 {object} model.Vehicle
// @Failure 400 {object} map[string]string
// @Router /vehicles/{id}/odometer [put]
func (h *VehicleHandler) UpdateOdometer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	var req model.UpdateOdometerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle, err := h.fleetService.UpdateOdometer(c.Request.Context(), id, &req, c.GetInt("user_id"))
	if err != nil {
		if errors.Is(err, service.ErrOdometerRollback) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// AssignDriver 分配司机
// @Summary Assign driver to vehicle
// @Description A driver can be bound to at most one vehicle; a prior binding is released
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Param driver body model.AssignDriverRequest true "Driver assignment"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /vehicles/{id}/driver [post]
func (h *VehicleHandler) AssignDriver(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	var req model.AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fleetService.AssignDriver(c.Request.Context(), id, req.DriverID, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "driver assigned"})
}

// UnassignDriver 解绑司机
// @Summary Unassign driver from vehicle
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Success 200 {object} map[string]string
// @Router /vehicles/{id}/driver [delete]
func (h *VehicleHandler) UnassignDriver(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	if err := h.fleetService.UnassignDriver(c.Request.Context(), id, c.GetInt("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "driver unassigned"})
}

// ListDrivers 获取司机列表
// @Summary List drivers
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Driver
// @Router /drivers [get]
func (h *VehicleHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.fleetService.ListDrivers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, drivers)
}

// CreateDriver 创建司机
// @Summary Create driver
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param driver body model.CreateDriverRequest true "Driver data"
// @Success 201 {object} model.Driver
// @Failure 400 {object} map[string]string
// @Router /drivers [post]
func (h *VehicleHandler) CreateDriver(c *gin.Context) {
	var req model.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver, err := h.fleetService.CreateDriver(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, driver)
}
