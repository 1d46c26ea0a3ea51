package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"freshops/api/internal/model"
)

func TestRoundRobinAssign(t *testing.T) {
	orders := []model.Order{
		{ID: 1, WeightKg: 80},
		{ID: 2, WeightKg: 120},
		{ID: 3, WeightKg: 40},
		{ID: 4, WeightKg: 200},
	}
	vehicles := []model.Vehicle{{ID: 10}, {ID: 20}}

	a := RoundRobinAssign(orders, vehicles)

	// 重量降序：4(200) 2(120) 1(80) 3(40)，轮转落到两辆车
	assert.Equal(t, []int{4, 1}, a.Lists[10])
	assert.Equal(t, []int{2, 3}, a.Lists[20])
	assert.Equal(t, 4, a.OrderCount())
}

func TestRoundRobinAssignSingleVehicle(t *testing.T) {
	orders := []model.Order{
		{ID: 1, WeightKg: 80},
		{ID: 2, WeightKg: 120},
	}
	vehicles := []model.Vehicle{{ID: 5}}

	a := RoundRobinAssign(orders, vehicles)

	// 单车时全部订单按重量降序排成一条路线
	assert.Equal(t, []int{2, 1}, a.Lists[5])
}

func TestRoundRobinAssignNoVehicles(t *testing.T) {
	a := RoundRobinAssign([]model.Order{{ID: 1}}, nil)
	assert.Equal(t, 0, a.OrderCount())
}

func TestRoundRobinAssignStableOnEqualWeight(t *testing.T) {
	orders := []model.Order{
		{ID: 3, WeightKg: 50},
		{ID: 1, WeightKg: 50},
		{ID: 2, WeightKg: 50},
	}
	vehicles := []model.Vehicle{{ID: 7}}

	a := RoundRobinAssign(orders, vehicles)

	// 重量相同按 ID 升序，结果可复现
	assert.Equal(t, []int{1, 2, 3}, a.Lists[7])
}

func TestAssignmentAtMostOneVehicle(t *testing.T) {
	a := model.NewRouteAssignment()
	a.Assign(1, 100)
	a.Assign(1, 101)
	a.Assign(2, 100) // 移动订单 100 到车辆 2

	assert.Equal(t, []int{101}, a.Lists[1])
	assert.Equal(t, []int{100}, a.Lists[2])
	assert.Equal(t, 2, a.VehicleOf(100))

	a.Unassign(101)
	_, exists := a.Lists[1]
	assert.False(t, exists, "empty list should be removed")
	assert.Equal(t, 0, a.VehicleOf(101))
}

func TestAssignmentFromRoutesDropsUnknownIDs(t *testing.T) {
	orders := []model.Order{{ID: 1}, {ID: 2}}
	vehicles := []model.Vehicle{{ID: 10}}

	routes := map[int][]int{
		10: {1, 99}, // 99 不在订单池中
		20: {2},     // 车辆 20 不可用
	}

	a := assignmentFromRoutes(routes, orders, vehicles)

	assert.Equal(t, []int{1}, a.Lists[10])
	assert.Equal(t, 1, a.OrderCount())
}

func TestCapacityWarnings(t *testing.T) {
	orders := []model.Order{
		{ID: 1, WeightKg: 800},
		{ID: 2, WeightKg: 400},
		{ID: 3, WeightKg: 100},
	}
	vehicles := []model.Vehicle{
		{ID: 10, PlateNumber: "GHJK-12", CapacityKg: 1000},
		{ID: 20, PlateNumber: "BXCV-34", CapacityKg: 1000},
	}

	a := model.NewRouteAssignment()
	a.Assign(10, 1)
	a.Assign(10, 2) // 1200kg > 1000kg
	a.Assign(20, 3)

	warnings := capacityWarnings(a, orders, vehicles)
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "GHJK-12")
	assert.Contains(t, warnings[0], "1200.0kg")
}

func TestCapacityWarningsNoneWithinLimits(t *testing.T) {
	orders := []model.Order{{ID: 1, WeightKg: 500}}
	vehicles := []model.Vehicle{{ID: 10, PlateNumber: "GHJK-12", CapacityKg: 1000}}

	a := model.NewRouteAssignment()
	a.Assign(10, 1)

	assert.Empty(t, capacityWarnings(a, orders, vehicles))
}
