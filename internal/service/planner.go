// 装载与路线分配服务

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"freshops/api/internal/model"
)

// NATS 主题
const (
	SubjectOrdersChanged   = "freshops.orders.changed"
	SubjectRouteDispatched = "freshops.routes.dispatched"
)

var (
	ErrEmptyAssignment = errors.New("assignment has no orders")
	ErrNoVehicles      = errors.New("no available vehicles")
)

// PlannerService 装载与路线分配服务
// 产出统一的 RouteAssignment：自动模式优先外部优化服务，失败回退轮转启发式
type PlannerService struct {
	db        *gorm.DB
	nats      *nats.Conn
	optimizer *OptimizerClient
}

// NewPlannerService 创建分配服务
func NewPlannerService(db *gorm.DB, natsConn *nats.Conn, optimizer *OptimizerClient) *PlannerService {
	return &PlannerService{db: db, nats: natsConn, optimizer: optimizer}
}

// PendingOrders 查询待分配订单（已审批未发货）
func (s *PlannerService) PendingOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).Where("status = ?", model.OrderApproved).
		Order("delivery_date, id").Find(&orders).Error
	return orders, err
}

// PlanAutomatic 自动分配
// 外部优化服务返回结构化路线时原样采用；返回 simulation、出错或超时则回退轮转分配
func (s *PlannerService) PlanAutomatic(ctx context.Context, params model.OptimizeParams) (*model.PlanResult, error) {
	orders, err := s.PendingOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("planner: load orders: %w", err)
	}

	var vehicles []model.Vehicle
	if err := s.db.WithContext(ctx).Where("status = ?", model.VehicleAvailable).
		Order("id").Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("planner: load vehicles: %w", err)
	}
	if len(vehicles) == 0 {
		return nil, ErrNoVehicles
	}

	if len(orders) == 0 {
		return &model.PlanResult{Assignment: model.NewRouteAssignment()}, nil
	}

	resp, err := s.optimizer.Optimize(ctx, &model.OptimizeRequest{
		Orders:     orders,
		Vehicles:   vehicles,
		Parameters: params,
	})
	if err != nil {
		// 外部服务失败不阻断流程，回退本地启发式
		log.Printf("[Planner] optimizer unavailable, using round-robin fallback: %v", err)
		resp = &model.OptimizeResponse{Simulation: true}
	}

	if resp.Simulation || len(resp.Routes) == 0 {
		result := &model.PlanResult{
			Assignment: RoundRobinAssign(orders, vehicles),
			Optimized:  false,
		}
		result.Warnings = capacityWarnings(result.Assignment, orders, vehicles)
		return result, nil
	}

	assignment := assignmentFromRoutes(resp.Routes, orders, vehicles)
	result := &model.PlanResult{
		Assignment: assignment,
		Optimized:  true,
		Metrics:    resp.Metrics,
	}
	result.Warnings = capacityWarnings(assignment, orders, vehicles)
	return result, nil
}

// ConfirmAndDispatch 确认派发
// 每辆车的路线、站点与订单状态变更在一个事务内提交；
// 单车失败不影响其他车辆，结果逐车返回
func (s *PlannerService) ConfirmAndDispatch(ctx context.Context, req *model.DispatchRequest, userID int) ([]model.DispatchResult, error) {
	total := 0
	for _, ids := range req.Assignment {
		total += len(ids)
	}
	if total == 0 {
		return nil, ErrEmptyAssignment
	}

	params := model.DefaultOptimizeParams()
	if req.Parameters != nil {
		params = *req.Parameters
	}
	paramsSnapshot := model.JSONMap{
		"kg_per_min_b2b": params.KgPerMinB2B,
		"kg_per_min_b2c": params.KgPerMinB2C,
		"stop_setup_min": params.StopSetupMin,
	}

	// 车辆按 ID 稳定排序，派发顺序可预期
	vehicleIDs := make([]int, 0, len(req.Assignment))
	for vid, ids := range req.Assignment {
		if len(ids) > 0 {
			vehicleIDs = append(vehicleIDs, vid)
		}
	}
	sort.Ints(vehicleIDs)

	results := make([]model.DispatchResult, 0, len(vehicleIDs))
	for _, vid := range vehicleIDs {
		orderIDs := req.Assignment[vid]
		res := model.DispatchResult{VehicleID: vid, Stops: len(orderIDs)}

		routeID, err := s.dispatchVehicle(ctx, vid, orderIDs, req, paramsSnapshot)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.RouteID = routeID
		}
		results = append(results, res)
	}

	s.publish(SubjectOrdersChanged, map[string]interface{}{"reason": "dispatch", "user_id": userID})
	return results, nil
}

// dispatchVehicle 单辆车的派发事务
func (s *PlannerService) dispatchVehicle(ctx context.Context, vehicleID int, orderIDs []int, req *model.DispatchRequest, params model.JSONMap) (int, error) {
	var routeID int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle model.Vehicle
		if err := tx.First(&vehicle, vehicleID).Error; err != nil {
			return fmt.Errorf("load vehicle: %w", err)
		}

		// 订单必须仍处于已审批状态
		var count int64
		tx.Model(&model.Order{}).
			Where("id IN ? AND status = ?", orderIDs, model.OrderApproved).Count(&count)
		if int(count) != len(orderIDs) {
			return fmt.Errorf("%d of %d orders are no longer approved", len(orderIDs)-int(count), len(orderIDs))
		}

		route := &model.Route{
			VehicleID:  vehicleID,
			DriverID:   vehicle.DriverID,
			Optimized:  req.Optimized,
			StopsCount: len(orderIDs),
			Params:     params,
			Status:     model.RouteDispatched,
		}
		if req.Metrics != nil {
			route.TheoreticalKm = &req.Metrics.DistanceKm
			route.TheoreticalMin = &req.Metrics.DurationMin
		}
		if err := tx.Create(route).Error; err != nil {
			return fmt.Errorf("create route: %w", err)
		}

		for i, orderID := range orderIDs {
			stop := &model.RouteStop{
				RouteID: route.ID,
				OrderID: orderID,
				Seq:     i + 1,
				Status:  model.StopPending,
			}
			if err := tx.Create(stop).Error; err != nil {
				return fmt.Errorf("create stop %d: %w", i+1, err)
			}
		}

		if err := tx.Model(&model.Order{}).Where("id IN ?", orderIDs).
			Update("status", model.OrderShipped).Error; err != nil {
			return fmt.Errorf("ship orders: %w", err)
		}

		if err := tx.Model(&model.Vehicle{}).Where("id = ?", vehicleID).
			Update("status", model.VehicleOnRoute).Error; err != nil {
			return fmt.Errorf("update vehicle status: %w", err)
		}

		routeID = route.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publish(SubjectRouteDispatched, map[string]interface{}{
		"route_id":   routeID,
		"vehicle_id": vehicleID,
		"stops":      len(orderIDs),
	})
	return routeID, nil
}

// ListRoutes 查询已派发路线
func (s *PlannerService) ListRoutes(ctx context.Context, page, pageSize int) ([]model.Route, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Route{}).Preload("Vehicle").Preload("Stops")

	var total int64
	db.Count(&total)

	var routes []model.Route
	offset := (page - 1) * pageSize
	err := db.Order("dispatched_at DESC").Offset(offset).Limit(pageSize).Find(&routes).Error
	return routes, total, err
}

func (s *PlannerService) publish(subject string, payload interface{}) {
	if s.nats == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.nats.Publish(subject, data); err != nil {
		log.Printf("[Planner] publish %s: %v", subject, err)
	}
}

// RoundRobinAssign 轮转启发式分配
// 订单按重量降序排序后按下标对车辆数取模分配
func RoundRobinAssign(orders []model.Order, vehicles []model.Vehicle) *model.RouteAssignment {
	assignment := model.NewRouteAssignment()
	if len(vehicles) == 0 {
		return assignment
	}

	sorted := make([]model.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].WeightKg != sorted[j].WeightKg {
			return sorted[i].WeightKg > sorted[j].WeightKg
		}
		return sorted[i].ID < sorted[j].ID
	})

	for i, order := range sorted {
		assignment.Assign(vehicles[i%len(vehicles)].ID, order.ID)
	}
	return assignment
}

// assignmentFromRoutes 将外部服务返回的路线映射为分配结构
// 未知车辆或订单被丢弃，保证不变式不被外部数据破坏
func assignmentFromRoutes(routes map[int][]int, orders []model.Order, vehicles []model.Vehicle) *model.RouteAssignment {
	knownOrders := make(map[int]bool, len(orders))
	for _, o := range orders {
		knownOrders[o.ID] = true
	}
	knownVehicles := make(map[int]bool, len(vehicles))
	for _, v := range vehicles {
		knownVehicles[v.ID] = true
	}

	assignment := model.NewRouteAssignment()

	vehicleIDs := make([]int, 0, len(routes))
	for vid := range routes {
		vehicleIDs = append(vehicleIDs, vid)
	}
	sort.Ints(vehicleIDs)

	for _, vid := range vehicleIDs {
		if !knownVehicles[vid] {
			continue
		}
		for _, orderID := range routes[vid] {
			if knownOrders[orderID] {
				assignment.Assign(vid, orderID)
			}
		}
	}
	return assignment
}

// capacityWarnings 载重告警（不阻断分配）
func capacityWarnings(assignment *model.RouteAssignment, orders []model.Order, vehicles []model.Vehicle) []string {
	weightOf := make(map[int]float64, len(orders))
	for _, o := range orders {
		weightOf[o.ID] = o.WeightKg
	}

	var warnings []string
	for _, v := range vehicles {
		ids := assignment.Lists[v.ID]
		if len(ids) == 0 {
			continue
		}
		var totalKg float64
		for _, id := range ids {
			totalKg += weightOf[id]
		}
		if v.CapacityKg > 0 && totalKg > v.CapacityKg {
			warnings = append(warnings, fmt.Sprintf(
				"vehicle %s overloaded: %.1fkg assigned, capacity %.1fkg",
				v.PlateNumber, totalKg, v.CapacityKg))
		}
	}
	sort.Strings(warnings)
	return warnings
}
