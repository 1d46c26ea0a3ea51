// ReportHandler 运营报表处理器

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freshops/api/internal/service"
)

// ReportHandler 运营报表处理器
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler 创建报表处理器
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes 注册路由
func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.GET("/dashboard", h.Dashboard)
		reports.GET("/kpis", h.RouteKPIs)
		reports.GET("/drivers", h.DriverPerformance)
		reports.GET("/consumption", h.CustomerConsumption)
		reports.GET("/consumption/export", h.ExportConsumption)
	}
}

// dateRange 解析日期区间，默认最近30天
func dateRange(c *gin.Context) (string, string) {
	end := c.DefaultQuery("end_date", time.Now().Format("2006-01-02"))
	start := c.DefaultQuery("start_date", time.Now().AddDate(0, 0, -30).Format("2006-01-02"))
	return start, end
}

// Dashboard 仪表盘统计
// @Summary Dashboard statistics
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	stats, err := h.reportService.GetDashboardStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RouteKPIs 路线运营指标
// @Summary Route KPIs
// @Description Optimizer adoption rate, minutes per stop and distance deviation for the period
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "Start date (2006-01-02)"
// @Param end_date query string false "End date (2006-01-02)"
// @Success 200 {object} map[string]interface{}
// @Router /reports/kpis [get]
func (h *ReportHandler) RouteKPIs(c *gin.Context) {
	start, end := dateRange(c)
	kpis, err := h.reportService.GetRouteKPIs(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, kpis)
}

// DriverPerformance 司机绩效
// @Summary Driver performance
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "Start date (2006-01-02)"
// @Param end_date query string false "End date (2006-01-02)"
// @Success 200 {array} service.DriverPerformanceRow
// @Router /reports/drivers [get]
func (h *ReportHandler) DriverPerformance(c *gin.Context) {
	start, end := dateRange(c)
	rows, err := h.reportService.GetDriverPerformance(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// CustomerConsumption 客户消费分析
// @Summary Customer consumption
// @Description Quantities grouped by customer and product, highest first
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "Start date (2006-01-02)"
// @Param end_date query string false "End date (2006-01-02)"
// @Param customer_name query string false "Customer filter"
// @Success 200 {array} service.ConsumptionRow
// @Router /reports/consumption [get]
func (h *ReportHandler) CustomerConsumption(c *gin.Context) {
	start, end := dateRange(c)
	rows, err := h.reportService.GetCustomerConsumption(c.Request.Context(), start, end, c.Query("customer_name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ExportConsumption 导出客户消费Excel
// @Summary Export customer consumption as Excel
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_date query string false "Start date (2006-01-02)"
// @Param end_date query string false "End date (2006-01-02)"
// @Param customer_name query string false "Customer filter"
// @Success 200 {file} binary
// @Router /reports/consumption/export [get]
func (h *ReportHandler) ExportConsumption(c *gin.Context) {
	start, end := dateRange(c)
	buf, err := h.reportService.ExportConsumptionExcel(c.Request.Context(), start, end, c.Query("customer_name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("consumption_%s_%s.xlsx", start, end)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
