package model

import (
	"time"
)

// 路线状态
const (
	RouteDispatched = "dispatched"
	RouteCompleted  = "completed"
)

// 路线站点状态
const (
	StopPending   = "pending"
	StopArrived   = "arrived"
	StopDelivered = "delivered"
)

// Route 已确认派发的配送路线
type Route struct {
	ID             int       `json:"id" gorm:"primaryKey"`
	VehicleID      int       `json:"vehicle_id" gorm:"column:vehicle_id;not null;index"`
	DriverID       *int      `json:"driver_id,omitempty" gorm:"column:driver_id"`
	Optimized      bool      `json:"optimized" gorm:"not null;default:false"` // 是否来自自动优化
	TheoreticalKm  *float64  `json:"theoretical_km,omitempty" gorm:"column:theoretical_km"`
	TheoreticalMin *float64  `json:"theoretical_min,omitempty" gorm:"column:theoretical_min"`
	StopsCount     int       `json:"stops_count" gorm:"column:stops_count;not null"`
	Params         JSONMap   `json:"params,omitempty" gorm:"type:jsonb"` // 派发时的优化参数快照
	Status         string    `json:"status" gorm:"type:varchar(20);default:'dispatched'"`
	DispatchedAt   time.Time `json:"dispatched_at" gorm:"column:dispatched_at;not null;default:now()"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null;default:now()"`

	// 关联
	Vehicle *Vehicle    `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
	Stops   []RouteStop `json:"stops,omitempty" gorm:"foreignKey:RouteID"`
}

func (Route) TableName() string {
	return "routes"
}

// RouteStop 路线站点，按 Seq 从 1 开始排序
type RouteStop struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	RouteID   int       `json:"route_id" gorm:"column:route_id;not null;index"`
	OrderID   int       `json:"order_id" gorm:"column:order_id;not null"`
	Seq       int       `json:"seq" gorm:"not null"`
	Status    string    `json:"status" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:now()"`

	// 关联
	Order *Order `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

func (RouteStop) TableName() string {
	return "route_stops"
}

// RouteAssignment 未确认的车辆-订单分配（仅存在于内存）
// 不变式：一个订单同一时刻至多出现在一辆车的列表中
type RouteAssignment struct {
	// vehicleID -> 有序订单 ID 列表
	Lists map[int][]int `json:"lists"`
}

// NewRouteAssignment 创建空分配
func NewRouteAssignment() *RouteAssignment {
	return &RouteAssignment{Lists: make(map[int][]int)}
}

// Assign 将订单分配到车辆末尾；若订单已在其他车辆列表中则先移除
func (a *RouteAssignment) Assign(vehicleID, orderID int) {
	a.Unassign(orderID)
	a.Lists[vehicleID] = append(a.Lists[vehicleID], orderID)
}

// Unassign 从所有车辆列表中移除订单
func (a *RouteAssignment) Unassign(orderID int) {
	for vid, ids := range a.Lists {
		for i, id := range ids {
			if id == orderID {
				a.Lists[vid] = append(ids[:i:i], ids[i+1:]...)
				if len(a.Lists[vid]) == 0 {
					delete(a.Lists, vid)
				}
				return
			}
		}
	}
}

// VehicleOf 返回持有该订单的车辆 ID，未分配返回 0
func (a *RouteAssignment) VehicleOf(orderID int) int {
	for vid, ids := range a.Lists {
		for _, id := range ids {
			if id == orderID {
				return vid
			}
		}
	}
	return 0
}

// OrderCount 已分配订单总数
func (a *RouteAssignment) OrderCount() int {
	n := 0
	for _, ids := range a.Lists {
		n += len(ids)
	}
	return n
}

// OptimizeParams 优化参数：B2B/B2C 分拣吞吐与单站固定耗时
type OptimizeParams struct {
	KgPerMinB2B  float64 `json:"kg_per_min_b2b"`
	KgPerMinB2C  float64 `json:"kg_per_min_b2c"`
	StopSetupMin float64 `json:"stop_setup_min"`
}

// DefaultOptimizeParams 默认优化参数
func DefaultOptimizeParams() OptimizeParams {
	return OptimizeParams{KgPerMinB2B: 25, KgPerMinB2C: 10, StopSetupMin: 5}
}

// OptimizeRequest 发往外部优化服务的请求体
type OptimizeRequest struct {
	Orders     []Order        `json:"orders"`
	Vehicles   []Vehicle      `json:"vehicles"`
	Parameters OptimizeParams `json:"parameters"`
}

// TheoreticalMetrics 外部优化服务返回的理论指标
type TheoreticalMetrics struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// OptimizeResponse 外部优化服务响应
// Simulation 为 true 表示服务未给出结构化路线，调用方应回退启发式分配
type OptimizeResponse struct {
	Simulation bool                `json:"simulation"`
	Routes     map[int][]int       `json:"routes,omitempty"`
	Metrics    *TheoreticalMetrics `json:"theoretical_metrics,omitempty"`
}

// PlanResult 一次分配计算的结果
type PlanResult struct {
	Assignment *RouteAssignment    `json:"assignment"`
	Optimized  bool                `json:"optimized"`
	Metrics    *TheoreticalMetrics `json:"metrics,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"` // 超载等非阻断告警
}

// DispatchRequest 确认派发请求
type DispatchRequest struct {
	Assignment map[int][]int       `json:"assignment" binding:"required"`
	Optimized  bool                `json:"optimized"`
	Metrics    *TheoreticalMetrics `json:"metrics"`
	Parameters *OptimizeParams     `json:"parameters"`
}

// DispatchResult 单辆车的派发结果
type DispatchResult struct {
	VehicleID int    `json:"vehicle_id"`
	RouteID   int    `json:"route_id,omitempty"`
	Stops     int    `json:"stops"`
	Error     string `json:"error,omitempty"`
}
