// ReportService 运营报表服务

package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"freshops/api/internal/model"
)

// ReportService 运营报表服务
type ReportService struct {
	db *gorm.DB
}

// NewReportService 创建报表服务
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// GetDashboardStats 获取仪表盘统计数据
func (s *ReportService) GetDashboardStats(ctx context.Context) (map[string]interface{}, error) {
	today := time.Now().Format("2006-01-02")

	// 车队统计
	var totalVehicles, onRoute, inMaintenance int64
	s.db.WithContext(ctx).Model(&model.Vehicle{}).Count(&totalVehicles)
	s.db.WithContext(ctx).Model(&model.Vehicle{}).Where("status = ?", model.VehicleOnRoute).Count(&onRoute)
	s.db.WithContext(ctx).Model(&model.Vehicle{}).Where("status = ?", model.VehicleMaintenance).Count(&inMaintenance)

	// 今日订单按状态统计
	type statusCount struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	var orderCounts []statusCount
	s.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Where("delivery_date = ?", today).
		Group("status").Scan(&orderCounts)

	orders := map[string]int64{}
	for _, c := range orderCounts {
		orders[c.Status] = c.Count
	}

	// 今日派发路线
	var todayRoutes int64
	s.db.WithContext(ctx).Model(&model.Route{}).
		Where("DATE(dispatched_at) = ?", today).Count(&todayRoutes)

	return map[string]interface{}{
		"fleet": map[string]interface{}{
			"total":          totalVehicles,
			"on_route":       onRoute,
			"in_maintenance": inMaintenance,
		},
		"orders_today": orders,
		"routes_today": todayRoutes,
	}, nil
}

// GetRouteKPIs 获取路线运营指标
// 采纳率 = 自动优化路线 / 总路线；偏差率 = (实际里程 - 理论里程) / 理论里程
func (s *ReportService) GetRouteKPIs(ctx context.Context, startDate, endDate string) (map[string]interface{}, error) {
	type routeAgg struct {
		TotalRoutes    int64   `gorm:"column:total_routes"`
		OptimizedCount int64   `gorm:"column:optimized_count"`
		TotalStops     int64   `gorm:"column:total_stops"`
		TheoreticalKm  float64 `gorm:"column:theoretical_km"`
		TheoreticalMin float64 `gorm:"column:theoretical_min"`
	}

	var agg routeAgg
	err := s.db.WithContext(ctx).Model(&model.Route{}).
		Select("COUNT(*) as total_routes, "+
			"COUNT(*) FILTER (WHERE optimized) as optimized_count, "+
			"COALESCE(SUM(stops_count), 0) as total_stops, "+
			"COALESCE(SUM(theoretical_km), 0) as theoretical_km, "+
			"COALESCE(SUM(theoretical_min), 0) as theoretical_min").
		Where("DATE(dispatched_at) >= ? AND DATE(dispatched_at) <= ?", startDate, endDate).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	// 同期运输里程（作业类型活动日志）
	var actualKm float64
	s.db.WithContext(ctx).Model(&model.ActivityLog{}).
		Select("COALESCE(SUM(distance_km), 0)").
		Where("activity_type = ? AND DATE(started_at) >= ? AND DATE(started_at) <= ?",
			model.ActivityOperation, startDate, endDate).
		Scan(&actualKm)

	adoptionRate := 0.0
	if agg.TotalRoutes > 0 {
		adoptionRate = float64(agg.OptimizedCount) / float64(agg.TotalRoutes)
	}
	minPerStop := 0.0
	if agg.TotalStops > 0 {
		minPerStop = agg.TheoreticalMin / float64(agg.TotalStops)
	}
	deviation := 0.0
	if agg.TheoreticalKm > 0 {
		deviation = (actualKm - agg.TheoreticalKm) / agg.TheoreticalKm
	}

	return map[string]interface{}{
		"total_routes":       agg.TotalRoutes,
		"optimized_routes":   agg.OptimizedCount,
		"adoption_rate":      adoptionRate,
		"total_stops":        agg.TotalStops,
		"min_per_stop":       minPerStop,
		"theoretical_km":     agg.TheoreticalKm,
		"actual_km":          actualKm,
		"distance_deviation": deviation,
	}, nil
}

// DriverPerformanceRow 司机绩效行
type DriverPerformanceRow struct {
	DriverID   int     `json:"driver_id" gorm:"column:driver_id"`
	DriverName string  `json:"driver_name" gorm:"column:driver_name"`
	Routes     int64   `json:"routes" gorm:"column:routes"`
	Stops      int64   `json:"stops" gorm:"column:stops"`
	DistanceKm float64 `json:"distance_km" gorm:"column:distance_km"`
}

// GetDriverPerformance 获取司机绩效
func (s *ReportService) GetDriverPerformance(ctx context.Context, startDate, endDate string) ([]DriverPerformanceRow, error) {
	var rows []DriverPerformanceRow
	err := s.db.WithContext(ctx).Model(&model.Route{}).
		Select("routes.driver_id, drivers.name as driver_name, "+
			"COUNT(*) as routes, COALESCE(SUM(routes.stops_count), 0) as stops, "+
			"COALESCE((SELECT SUM(distance_km) FROM activity_logs "+
			"WHERE activity_logs.driver_id = routes.driver_id "+
			"AND DATE(activity_logs.started_at) >= ? AND DATE(activity_logs.started_at) <= ?), 0) as distance_km", startDate, endDate).
		Joins("JOIN drivers ON drivers.id = routes.driver_id").
		Where("routes.driver_id IS NOT NULL AND DATE(routes.dispatched_at) >= ? AND DATE(routes.dispatched_at) <= ?", startDate, endDate).
		Group("routes.driver_id, drivers.name").
		Order("stops DESC").
		Scan(&rows).Error
	return rows, err
}

// ConsumptionRow 客户消费行
type ConsumptionRow struct {
	CustomerName  string  `json:"customer_name" gorm:"column:customer_name"`
	ProductName   string  `json:"product_name" gorm:"column:product_name"`
	TotalQuantity float64 `json:"total_quantity" gorm:"column:total_quantity"`
	OrderCount    int64   `json:"order_count" gorm:"column:order_count"`
}

// GetCustomerConsumption 获取客户消费分析
// 按客户与商品汇总数量，总量倒序
func (s *ReportService) GetCustomerConsumption(ctx context.Context, startDate, endDate, customerName string) ([]ConsumptionRow, error) {
	db := s.db.WithContext(ctx).Model(&model.OrderItem{}).
		Select("orders.customer_name, order_items.product_name, "+
			"SUM(order_items.quantity) as total_quantity, "+
			"COUNT(DISTINCT orders.id) as order_count").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.delivery_date >= ? AND orders.delivery_date <= ?", startDate, endDate)

	if customerName != "" {
		db = db.Where("orders.customer_name = ?", customerName)
	}

	var rows []ConsumptionRow
	err := db.Group("orders.customer_name, order_items.product_name").
		Order("total_quantity DESC").
		Scan(&rows).Error
	return rows, err
}

// ExportConsumptionExcel 导出客户消费报表Excel
func (s *ReportService) ExportConsumptionExcel(ctx context.Context, startDate, endDate, customerName string) (*bytes.Buffer, error) {
	rows, err := s.GetCustomerConsumption(ctx, startDate, endDate, customerName)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "客户消费报表"
	f.SetSheetName("Sheet1", sheetName)

	// 写入表头
	headers := []string{"客户名称", "商品名称", "总数量", "订单数"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, row := range rows {
		rowNum := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), row.CustomerName)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), row.ProductName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), row.TotalQuantity)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), row.OrderCount)
	}

	// 设置列宽
	f.SetColWidth(sheetName, "A", "B", 25)
	f.SetColWidth(sheetName, "C", "D", 12)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return &buf, nil
}
