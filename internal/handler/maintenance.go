// MaintenanceHandler 保养管理处理器

package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"freshops/api/internal/model"
	"freshops/api/internal/service"
)

// MaintenanceHandler 保养管理处理器
type MaintenanceHandler struct {
	maintenanceService *service.MaintenanceService
	attachmentStore    *service.AttachmentStore
}

// NewMaintenanceHandler 创建保养处理器
func NewMaintenanceHandler(maintenanceService *service.MaintenanceService, attachmentStore *service.AttachmentStore) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceService: maintenanceService,
		attachmentStore:    attachmentStore,
	}
}

// RegisterRoutes 注册路由
func (h *MaintenanceHandler) RegisterRoutes(r *gin.RouterGroup) {
	maintenance := r.Group("/maintenance")
	{
		maintenance.GET("/schedules", h.ListSchedules)
		maintenance.POST("/schedules", h.ScheduleTask)
		maintenance.POST("/schedules/:id/complete", h.CompleteTask)
		maintenance.GET("/history", h.ListHistory)
	}
}

// ListSchedules 保养计划列表（含紧急程度）
// @Summary List maintenance schedules
// @Description Schedules with urgency classification and estimated days to due
// @Tags Maintenance
// @Produce json
// @Security BearerAuth
// @Param vehicle_id query int false "Vehicle filter"
// @Param urgency query string false "Urgency filter (urgent, upcoming, ok)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} map[string]interface{}
// @Router /maintenance/schedules [get]
func (h *MaintenanceHandler) ListSchedules(c *gin.Context) {
	var query model.MaintenanceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statuses, total, err := h.maintenanceService.ListScheduleStatuses(c.Request.Context(), &query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      statuses,
		"total":     total,
		"page":      query.Page,
		"page_size": query.PageSize,
	})
}

// ScheduleTask 创建保养计划
// @Summary Schedule maintenance task
// @Tags Maintenance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param task body model.ScheduleTaskRequest true "Task definition"
// @Success 201 {object} model.MaintenanceSchedule
// @Failure 400 {object} map[string]string
// @Router /maintenance/schedules [post]
func (h *MaintenanceHandler) ScheduleTask(c *gin.Context) {
	var req model.ScheduleTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.maintenanceService.ScheduleTask(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrIntervalMissing) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// CompleteTask 完成保养任务
// multipart 表单：payload 字段为 JSON 请求体，files 字段为可选附件
// 附件上传失败不阻断完成流程，仅忽略
// @Summary Complete maintenance task
// @Tags Maintenance
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Schedule ID"
// @Param payload formData string true "Completion payload (JSON)"
// @Param files formData file false "Receipts or photos"
// @Success 200 {object} model.MaintenanceLog
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /maintenance/schedules/{id}/complete [post]
func (h *MaintenanceHandler) CompleteTask(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	var req model.CompleteTaskRequest
	payload := c.PostForm("payload")
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	attachments := h.uploadAttachments(c)

	logEntry, err := h.maintenanceService.CompleteTask(c.Request.Context(), id, &req, attachments)
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logEntry)
}

// uploadAttachments 上传表单附件，失败的文件跳过
func (h *MaintenanceHandler) uploadAttachments(c *gin.Context) []string {
	if h.attachmentStore == nil {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}

	var urls []string
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			log.Printf("[Maintenance] open attachment %s: %v", fh.Filename, err)
			continue
		}
		url, err := h.attachmentStore.Upload(c.Request.Context(), fh.Filename,
			fh.Header.Get("Content-Type"), f, fh.Size)
		f.Close()
		if err != nil {
			log.Printf("[Maintenance] upload attachment %s: %v", fh.Filename, err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// ListHistory 保养历史
// @Summary Maintenance history
// @Tags Maintenance
// @Produce json
// @Security BearerAuth
// @Param vehicle_id query int false "Vehicle filter"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /maintenance/history [get]
func (h *MaintenanceHandler) ListHistory(c *gin.Context) {
	vehicleID, _ := strconv.Atoi(c.DefaultQuery("vehicle_id", "0"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	logs, total, err := h.maintenanceService.ListHistory(c.Request.Context(), vehicleID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
