package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshops/api/internal/model"
)

func TestAssignDriverClearsPreviousBinding(t *testing.T) {
	db := newTestDB(t)
	svc := NewFleetService(db)
	ctx := context.Background()

	driver := seedDriver(t, db, "张三")
	vehicleA := seedVehicle(t, db, "AAA-111", 1000)
	vehicleB := seedVehicle(t, db, "BBB-222", 1000)

	require.NoError(t, svc.AssignDriver(ctx, vehicleA.ID, driver.ID, 1))

	// 换绑到 B：A 上的绑定必须被清除
	require.NoError(t, svc.AssignDriver(ctx, vehicleB.ID, driver.ID, 1))

	var a, b model.Vehicle
	require.NoError(t, db.First(&a, vehicleA.ID).Error)
	require.NoError(t, db.First(&b, vehicleB.ID).Error)
	assert.Nil(t, a.DriverID)
	require.NotNil(t, b.DriverID)
	assert.Equal(t, driver.ID, *b.DriverID)
}

func TestAssignDriverUnknownDriver(t *testing.T) {
	db := newTestDB(t)
	svc := NewFleetService(db)

	vehicle := seedVehicle(t, db, "CCC-333", 800)
	err := svc.AssignDriver(context.Background(), vehicle.ID, 999, 1)
	assert.Error(t, err)

	var v model.Vehicle
	require.NoError(t, db.First(&v, vehicle.ID).Error)
	assert.Nil(t, v.DriverID)
}

func TestUnassignDriver(t *testing.T) {
	db := newTestDB(t)
	svc := NewFleetService(db)
	ctx := context.Background()

	driver := seedDriver(t, db, "李四")
	vehicle := seedVehicle(t, db, "DDD-444", 600)
	require.NoError(t, svc.AssignDriver(ctx, vehicle.ID, driver.ID, 1))

	require.NoError(t, svc.UnassignDriver(ctx, vehicle.ID, 1))

	var v model.Vehicle
	require.NoError(t, db.First(&v, vehicle.ID).Error)
	assert.Nil(t, v.DriverID)
}
