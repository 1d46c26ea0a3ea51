package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshops/api/internal/geo"
	"freshops/api/internal/model"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00", formatDuration(0))
	assert.Equal(t, "00:00:59", formatDuration(59*time.Second))
	assert.Equal(t, "01:02:03", formatDuration(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "27:00:00", formatDuration(27*time.Hour))
	// Negative clock skew must not produce a broken string.
	assert.Equal(t, "00:00:00", formatDuration(-5*time.Second))
}

func TestCloseSessionWithFix(t *testing.T) {
	start := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	sess := &model.ActivitySession{
		VehicleID:    7,
		ActivityType: model.ActivityOperation,
		StartedAt:    start,
		StartLat:     -33.45,
		StartLon:     -70.66,
	}
	driver := 3
	fix := &model.GPSFix{Lat: -33.40, Lon: -70.60}

	entry := closeSession(sess, &driver, start.Add(90*time.Minute), fix)

	assert.Equal(t, 7, entry.VehicleID)
	require.NotNil(t, entry.DriverID)
	assert.Equal(t, 3, *entry.DriverID)
	assert.Equal(t, model.ActivityOperation, entry.ActivityType)
	assert.Equal(t, "01:30:00", entry.Duration)
	assert.False(t, entry.GPSError)
	assert.InDelta(t, geo.EstimateRoadKm(-33.45, -70.66, -33.40, -70.60), entry.DistanceKm, 1e-9)
	assert.Equal(t, -33.40, entry.EndLat)
	assert.Equal(t, -70.60, entry.EndLon)
}

func TestCloseSessionDegradedOnGPSFailure(t *testing.T) {
	start := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	sess := &model.ActivitySession{
		VehicleID:    7,
		ActivityType: model.ActivityRefuel,
		StartedAt:    start,
		StartLat:     -33.45,
		StartLon:     -70.66,
	}

	entry := closeSession(sess, nil, start.Add(10*time.Minute), nil)

	assert.True(t, entry.GPSError)
	assert.Equal(t, 0.0, entry.DistanceKm)
	// End coordinates fall back to the session start.
	assert.Equal(t, sess.StartLat, entry.EndLat)
	assert.Equal(t, sess.StartLon, entry.EndLon)
	assert.Equal(t, "00:10:00", entry.Duration)
}

func TestOpenSessionCoordinateFallback(t *testing.T) {
	now := time.Now()
	prev := &model.ActivitySession{StartLat: 1.5, StartLon: 2.5}

	withFix := openSession(1, model.ActivityPark, now, prev, &model.GPSFix{Lat: 9, Lon: 8})
	assert.Equal(t, 9.0, withFix.StartLat)
	assert.Equal(t, 8.0, withFix.StartLon)

	noFix := openSession(1, model.ActivityPark, now, prev, nil)
	assert.Equal(t, 1.5, noFix.StartLat)
	assert.Equal(t, 2.5, noFix.StartLon)

	fresh := openSession(1, model.ActivityOperation, now, nil, nil)
	assert.Equal(t, 0.0, fresh.StartLat)
	assert.Equal(t, 0.0, fresh.StartLon)
}
