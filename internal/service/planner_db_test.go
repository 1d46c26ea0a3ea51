package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshops/api/internal/model"
)

func TestConfirmAndDispatchPersistsRoute(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlannerService(db, nil, nil)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "ABC-123", 1000)
	o1 := seedOrder(t, db, "客户甲", 80, model.OrderApproved)
	o2 := seedOrder(t, db, "客户乙", 120, model.OrderApproved)

	// 重量倒序：o2 在前
	req := &model.DispatchRequest{
		Assignment: map[int][]int{vehicle.ID: {o2.ID, o1.ID}},
		Optimized:  false,
	}
	results, err := svc.ConfirmAndDispatch(ctx, req, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 2, results[0].Stops)
	require.NotZero(t, results[0].RouteID)

	var route model.Route
	require.NoError(t, db.First(&route, results[0].RouteID).Error)
	assert.Equal(t, vehicle.ID, route.VehicleID)
	assert.Equal(t, 2, route.StopsCount)
	assert.False(t, route.Optimized)
	assert.Equal(t, model.RouteDispatched, route.Status)

	// 站点按分配顺序编号 1..N
	var stops []model.RouteStop
	require.NoError(t, db.Where("route_id = ?", route.ID).Order("seq").Find(&stops).Error)
	require.Len(t, stops, 2)
	assert.Equal(t, 1, stops[0].Seq)
	assert.Equal(t, o2.ID, stops[0].OrderID)
	assert.Equal(t, 2, stops[1].Seq)
	assert.Equal(t, o1.ID, stops[1].OrderID)
	assert.Equal(t, model.StopPending, stops[0].Status)

	// 已派发订单全部转为 shipped
	for _, orderID := range []int{o1.ID, o2.ID} {
		var order model.Order
		require.NoError(t, db.First(&order, orderID).Error)
		assert.Equal(t, model.OrderShipped, order.Status)
	}

	var updated model.Vehicle
	require.NoError(t, db.First(&updated, vehicle.ID).Error)
	assert.Equal(t, model.VehicleOnRoute, updated.Status)
}

func TestConfirmAndDispatchRejectsUnapprovedOrders(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlannerService(db, nil, nil)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "DEF-456", 800)
	approved := seedOrder(t, db, "客户甲", 50, model.OrderApproved)
	shipped := seedOrder(t, db, "客户乙", 60, model.OrderShipped)

	req := &model.DispatchRequest{
		Assignment: map[int][]int{vehicle.ID: {approved.ID, shipped.ID}},
	}
	results, err := svc.ConfirmAndDispatch(ctx, req, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "no longer approved")
	assert.Zero(t, results[0].RouteID)

	// 事务回滚：不留下路线，已审批订单状态不变
	var routeCount int64
	db.Model(&model.Route{}).Count(&routeCount)
	assert.Zero(t, routeCount)

	var order model.Order
	require.NoError(t, db.First(&order, approved.ID).Error)
	assert.Equal(t, model.OrderApproved, order.Status)

	var updated model.Vehicle
	require.NoError(t, db.First(&updated, vehicle.ID).Error)
	assert.Equal(t, model.VehicleAvailable, updated.Status)
}

func TestConfirmAndDispatchPerVehicleIsolation(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlannerService(db, nil, nil)
	ctx := context.Background()

	good := seedVehicle(t, db, "GHI-789", 500)
	bad := seedVehicle(t, db, "JKL-012", 500)
	ok := seedOrder(t, db, "客户甲", 40, model.OrderApproved)
	stale := seedOrder(t, db, "客户乙", 70, model.OrderShipped)

	req := &model.DispatchRequest{
		Assignment: map[int][]int{
			good.ID: {ok.ID},
			bad.ID:  {stale.ID},
		},
	}
	results, err := svc.ConfirmAndDispatch(ctx, req, 1)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 结果按车辆 ID 排序，逐车独立成败
	byVehicle := map[int]model.DispatchResult{}
	for _, r := range results {
		byVehicle[r.VehicleID] = r
	}
	assert.Empty(t, byVehicle[good.ID].Error)
	assert.NotZero(t, byVehicle[good.ID].RouteID)
	assert.Contains(t, byVehicle[bad.ID].Error, "no longer approved")

	var order model.Order
	require.NoError(t, db.First(&order, ok.ID).Error)
	assert.Equal(t, model.OrderShipped, order.Status)
}
