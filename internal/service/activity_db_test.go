package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"freshops/api/internal/geo"
	"freshops/api/internal/model"
)

func newActivityService(t *testing.T) (*ActivityService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewActivityService(db, client), db
}

func TestSwitchActivityAdvancesOdometer(t *testing.T) {
	svc, db := newActivityService(t)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "FFF-666", 1000)
	require.NoError(t, db.Model(&model.Vehicle{}).Where("id = ?", vehicle.ID).
		UpdateColumn("current_km", 100.0).Error)

	start := &model.GPSFix{Lat: -23.5505, Lon: -46.6333}
	end := &model.GPSFix{Lat: -23.5629, Lon: -46.6544}

	_, err := svc.EnsureSession(ctx, vehicle.ID, start)
	require.NoError(t, err)

	res, err := svc.SwitchActivity(ctx, vehicle.ID, model.ActivityRefuel, end)
	require.NoError(t, err)
	assert.True(t, res.Switched)
	assert.False(t, res.Degraded)

	want := geo.EstimateRoadKm(start.Lat, start.Lon, end.Lat, end.Lon)
	assert.InDelta(t, want, res.DistanceKm, 1e-9)

	var logs []model.ActivityLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActivityOperation, logs[0].ActivityType)
	assert.False(t, logs[0].GPSError)

	var updated model.Vehicle
	require.NoError(t, db.First(&updated, vehicle.ID).Error)
	assert.InDelta(t, 100.0+want, updated.CurrentKm, 1e-9)
	require.NotNil(t, updated.LastLat)
	assert.InDelta(t, end.Lat, *updated.LastLat, 1e-9)
}

func TestSwitchActivitySameTypeIsNoOp(t *testing.T) {
	svc, db := newActivityService(t)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "GGG-777", 1000)
	fix := &model.GPSFix{Lat: 1, Lon: 1}
	_, err := svc.EnsureSession(ctx, vehicle.ID, fix)
	require.NoError(t, err)

	res, err := svc.SwitchActivity(ctx, vehicle.ID, model.ActivityOperation, fix)
	require.NoError(t, err)
	assert.False(t, res.Switched)

	var count int64
	db.Model(&model.ActivityLog{}).Count(&count)
	assert.Zero(t, count)
}

func TestSwitchActivityZeroDistanceKeepsPosition(t *testing.T) {
	svc, db := newActivityService(t)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "HHH-888", 1000)
	fix := &model.GPSFix{Lat: -23.5505, Lon: -46.6333}

	_, err := svc.EnsureSession(ctx, vehicle.ID, fix)
	require.NoError(t, err)

	// 原地切换：里程为 0，但最后已知位置仍要落库
	res, err := svc.SwitchActivity(ctx, vehicle.ID, model.ActivityLunch, fix)
	require.NoError(t, err)
	assert.True(t, res.Switched)
	assert.Zero(t, res.DistanceKm)

	var updated model.Vehicle
	require.NoError(t, db.First(&updated, vehicle.ID).Error)
	assert.Zero(t, updated.CurrentKm)
	require.NotNil(t, updated.LastLat)
	assert.InDelta(t, fix.Lat, *updated.LastLat, 1e-9)
	require.NotNil(t, updated.LastLon)
	assert.InDelta(t, fix.Lon, *updated.LastLon, 1e-9)
}

func TestSwitchActivityDegradedWithoutFix(t *testing.T) {
	svc, db := newActivityService(t)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "III-999", 1000)
	_, err := svc.EnsureSession(ctx, vehicle.ID, &model.GPSFix{Lat: 2, Lon: 2})
	require.NoError(t, err)

	res, err := svc.SwitchActivity(ctx, vehicle.ID, model.ActivityWorkshop, nil)
	require.NoError(t, err)
	assert.True(t, res.Switched)
	assert.True(t, res.Degraded)
	assert.Zero(t, res.DistanceKm)

	var logs []model.ActivityLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].GPSError)

	var updated model.Vehicle
	require.NoError(t, db.First(&updated, vehicle.ID).Error)
	assert.Zero(t, updated.CurrentKm)
}
