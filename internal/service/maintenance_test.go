package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshops/api/internal/model"
)

func kmSchedule(nextDue float64, interval float64) *model.MaintenanceSchedule {
	return &model.MaintenanceSchedule{
		TaskType:   model.MaintenanceByKm,
		IntervalKm: &interval,
		NextDueKm:  &nextDue,
	}
}

func dateSchedule(nextDue time.Time, months int) *model.MaintenanceSchedule {
	return &model.MaintenanceSchedule{
		TaskType:       model.MaintenanceByDate,
		IntervalMonths: &months,
		NextDueDate:    &nextDue,
	}
}

func TestNextDueMarkersKm(t *testing.T) {
	sc := kmSchedule(50000, 10000)

	nextKm, nextDate := nextDueMarkers(sc, 52300, time.Now(), nil)
	require.NotNil(t, nextKm)
	assert.Nil(t, nextDate)
	assert.Equal(t, 62300.0, *nextKm)

	override := 5000.0
	nextKm, _ = nextDueMarkers(sc, 52300, time.Now(), &override)
	assert.Equal(t, 57300.0, *nextKm)
}

func TestNextDueMarkersDateAlwaysTwelveMonths(t *testing.T) {
	performed := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	// Configured interval is irrelevant on completion: vigency is 12 months.
	for _, months := range []int{3, 6, 12, 24} {
		sc := dateSchedule(performed, months)
		_, nextDate := nextDueMarkers(sc, 0, performed, nil)
		require.NotNil(t, nextDate)
		assert.Equal(t, time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC), *nextDate)
	}
}

func TestClassifyKm(t *testing.T) {
	now := time.Now()

	assert.Equal(t, model.UrgencyUrgent, Classify(kmSchedule(50000, 10000), 50001, now))
	assert.Equal(t, model.UrgencyUpcoming, Classify(kmSchedule(50000, 10000), 50000, now))
	assert.Equal(t, model.UrgencyUpcoming, Classify(kmSchedule(50000, 10000), 48501, now))
	assert.Equal(t, model.UrgencyOK, Classify(kmSchedule(50000, 10000), 48500, now))
	assert.Equal(t, model.UrgencyOK, Classify(kmSchedule(50000, 10000), 10000, now))
}

func TestClassifyDate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, model.UrgencyUrgent, Classify(dateSchedule(now.Add(-time.Hour), 12), 0, now))
	assert.Equal(t, model.UrgencyUpcoming, Classify(dateSchedule(now.AddDate(0, 0, 29), 12), 0, now))
	assert.Equal(t, model.UrgencyOK, Classify(dateSchedule(now.AddDate(0, 0, 31), 12), 0, now))
}

func TestEstimateDaysToDue(t *testing.T) {
	now := time.Now()

	// 1500 km remaining at 120 km/day -> ceil(12.5) = 13 days.
	days := EstimateDaysToDue(kmSchedule(51500, 10000), 50000, 120, now)
	require.NotNil(t, days)
	assert.Equal(t, 13, *days)

	// Unknown average daily distance.
	assert.Nil(t, EstimateDaysToDue(kmSchedule(51500, 10000), 50000, 0, now))

	// Already overdue is reported as nil, not a negative day count.
	assert.Nil(t, EstimateDaysToDue(kmSchedule(50000, 10000), 51000, 120, now))

	due := now.Add(48 * time.Hour)
	days = EstimateDaysToDue(dateSchedule(due, 12), 0, 0, now)
	require.NotNil(t, days)
	assert.Equal(t, 2, *days)
}

func TestListScheduleStatusesUrgencyFilterPagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewMaintenanceService(db)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, "EEE-555", 1000)
	require.NoError(t, db.Model(&model.Vehicle{}).Where("id = ?", vehicle.ID).
		UpdateColumn("current_km", 10000.0).Error)

	interval := 10000.0
	for name, due := range map[string]float64{
		"a-brakes": 9000,  // urgent
		"b-oil":    10500, // upcoming
		"c-tires":  20000, // ok
		"d-belts":  30000, // ok
	} {
		due := due
		require.NoError(t, db.Create(&model.MaintenanceSchedule{
			VehicleID:  vehicle.ID,
			TaskName:   name,
			TaskType:   model.MaintenanceByKm,
			IntervalKm: &interval,
			NextDueKm:  &due,
		}).Error)
	}

	// 不带 urgency：SQL 分页，total 为全量
	all, total, err := svc.ListScheduleStatuses(ctx, &model.MaintenanceListQuery{
		VehicleID: vehicle.ID, Page: 1, PageSize: 50,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, all, 4)

	// 带 urgency：total 为过滤后的数量，分页作用于过滤结果
	page1, total, err := svc.ListScheduleStatuses(ctx, &model.MaintenanceListQuery{
		VehicleID: vehicle.ID, Urgency: model.UrgencyOK, Page: 1, PageSize: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page1, 1)
	assert.Equal(t, "c-tires", page1[0].Schedule.TaskName)

	page2, total, err := svc.ListScheduleStatuses(ctx, &model.MaintenanceListQuery{
		VehicleID: vehicle.ID, Urgency: model.UrgencyOK, Page: 2, PageSize: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "d-belts", page2[0].Schedule.TaskName)

	empty, total, err := svc.ListScheduleStatuses(ctx, &model.MaintenanceListQuery{
		VehicleID: vehicle.ID, Urgency: model.UrgencyOK, Page: 3, PageSize: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Empty(t, empty)
}
