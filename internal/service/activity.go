package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"freshops/api/internal/geo"
	"freshops/api/internal/model"
)

// 活动会话在 Redis 中的 key 前缀
const activityKeyPrefix = "fleet:activity:"

var ErrUnknownActivityType = errors.New("unknown activity type")

// ActivityService 车辆活动台账服务
// 每辆车一个活动状态机，切换时结算时长与估算里程并推进理论里程表
type ActivityService struct {
	db    *gorm.DB
	redis *redis.Client

	// 同一辆车的切换串行执行
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewActivityService 创建活动台账服务
func NewActivityService(db *gorm.DB, redisClient *redis.Client) *ActivityService {
	return &ActivityService{
		db:    db,
		redis: redisClient,
		locks: make(map[int]*sync.Mutex),
	}
}

func (s *ActivityService) vehicleLock(vehicleID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[vehicleID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[vehicleID] = l
	}
	return l
}

// GetSession 读取车辆当前会话，不存在返回 nil
func (s *ActivityService) GetSession(ctx context.Context, vehicleID int) (*model.ActivitySession, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("%s%d", activityKeyPrefix, vehicleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var sess model.ActivitySession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("activity: decode session: %w", err)
	}
	return &sess, nil
}

func (s *ActivityService) saveSession(ctx context.Context, sess *model.ActivitySession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	// 会话无过期时间：只能被下一次切换关闭
	return s.redis.Set(ctx, fmt.Sprintf("%s%d", activityKeyPrefix, sess.VehicleID), data, 0).Err()
}

// EnsureSession 应用加载时调用：无会话则自动开启运营会话
// 定位失败时回落到车辆最后已知位置，再退化为零坐标
func (s *ActivityService) EnsureSession(ctx context.Context, vehicleID int, fix *model.GPSFix) (*model.ActivitySession, error) {
	lock := s.vehicleLock(vehicleID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.GetSession(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}

	var vehicle model.Vehicle
	if err := s.db.WithContext(ctx).First(&vehicle, vehicleID).Error; err != nil {
		return nil, fmt.Errorf("activity: load vehicle %d: %w", vehicleID, err)
	}

	sess = &model.ActivitySession{
		VehicleID:    vehicleID,
		ActivityType: model.ActivityOperation,
		StartedAt:    time.Now(),
	}
	switch {
	case fix != nil:
		sess.StartLat, sess.StartLon = fix.Lat, fix.Lon
	case vehicle.LastLat != nil && vehicle.LastLon != nil:
		sess.StartLat, sess.StartLon = *vehicle.LastLat, *vehicle.LastLon
	}

	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SwitchActivity 切换车辆活动
// 同类型切换为幂等空操作；定位失败仍完成切换但审计降级（里程记 0 并标记 gps_error）
func (s *ActivityService) SwitchActivity(ctx context.Context, vehicleID int, newType string, fix *model.GPSFix) (*model.SwitchActivityResult, error) {
	if !model.IsValidActivityType(newType) {
		return nil, ErrUnknownActivityType
	}

	lock := s.vehicleLock(vehicleID)
	lock.Lock()
	defer lock.Unlock()

	var vehicle model.Vehicle
	if err := s.db.WithContext(ctx).First(&vehicle, vehicleID).Error; err != nil {
		return nil, fmt.Errorf("activity: load vehicle %d: %w", vehicleID, err)
	}

	sess, err := s.GetSession(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// 无会话时直接开启新会话，不产生审计记录
	if sess == nil {
		newSess := openSession(vehicleID, newType, now, nil, fix)
		if err := s.saveSession(ctx, &newSess); err != nil {
			return nil, err
		}
		return &model.SwitchActivityResult{Switched: true, Degraded: fix == nil, Session: &newSess}, nil
	}

	// 幂等：同类型切换不结算、不记账
	if sess.ActivityType == newType {
		return &model.SwitchActivityResult{Switched: false, Session: sess}, nil
	}

	auditLog := closeSession(sess, vehicle.DriverID, now, fix)

	if err := s.db.WithContext(ctx).Create(&auditLog).Error; err != nil {
		return nil, fmt.Errorf("activity: append audit log: %w", err)
	}

	// 推进理论里程表：原子自增，不会使里程回退
	if auditLog.DistanceKm > 0 {
		updates := map[string]interface{}{
			"current_km": gorm.Expr("current_km + ?", auditLog.DistanceKm),
		}
		if fix != nil {
			updates["last_lat"] = fix.Lat
			updates["last_lon"] = fix.Lon
		}
		if err := s.db.WithContext(ctx).Model(&model.Vehicle{}).Where("id = ?", vehicleID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("activity: advance odometer: %w", err)
		}
	} else if fix != nil {
		if err := s.db.WithContext(ctx).Model(&model.Vehicle{}).Where("id = ?", vehicleID).
			Updates(map[string]interface{}{"last_lat": fix.Lat, "last_lon": fix.Lon}).Error; err != nil {
			log.Printf("[Activity] vehicle %d: update last position: %v", vehicleID, err)
		}
	}

	newSess := openSession(vehicleID, newType, now, sess, fix)
	if err := s.saveSession(ctx, &newSess); err != nil {
		return nil, err
	}

	if auditLog.GPSError {
		log.Printf("[Activity] vehicle %d: GPS unavailable, distance audit skipped for %s -> %s",
			vehicleID, sess.ActivityType, newType)
	}

	return &model.SwitchActivityResult{
		Switched:   true,
		Degraded:   auditLog.GPSError,
		DistanceKm: auditLog.DistanceKm,
		Session:    &newSess,
		Log:        &auditLog,
	}, nil
}

// ListLogs 查询活动审计记录
func (s *ActivityService) ListLogs(ctx context.Context, query *model.ActivityLogQuery) ([]model.ActivityLog, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.ActivityLog{})

	if query.VehicleID > 0 {
		db = db.Where("vehicle_id = ?", query.VehicleID)
	}
	if query.StartTime != "" {
		db = db.Where("ended_at >= ?", query.StartTime)
	}
	if query.EndTime != "" {
		db = db.Where("ended_at <= ?", query.EndTime)
	}

	var total int64
	db.Count(&total)

	var logs []model.ActivityLog
	offset := (query.Page - 1) * query.PageSize
	err := db.Order("ended_at DESC").Offset(offset).Limit(query.PageSize).Find(&logs).Error

	return logs, total, err
}

// closeSession 结算会话，生成审计记录
// fix 为空时审计降级：里程记 0，终点沿用会话起点
func closeSession(sess *model.ActivitySession, driverID *int, now time.Time, fix *model.GPSFix) model.ActivityLog {
	entry := model.ActivityLog{
		VehicleID:    sess.VehicleID,
		DriverID:     driverID,
		ActivityType: sess.ActivityType,
		StartedAt:    sess.StartedAt,
		EndedAt:      now,
		Duration:     formatDuration(now.Sub(sess.StartedAt)),
		StartLat:     sess.StartLat,
		StartLon:     sess.StartLon,
	}

	if fix == nil {
		entry.GPSError = true
		entry.EndLat, entry.EndLon = sess.StartLat, sess.StartLon
		return entry
	}

	entry.EndLat, entry.EndLon = fix.Lat, fix.Lon
	entry.DistanceKm = geo.EstimateRoadKm(sess.StartLat, sess.StartLon, fix.Lat, fix.Lon)
	return entry
}

// openSession 开启新会话；定位失败时沿用上一会话坐标
func openSession(vehicleID int, activityType string, now time.Time, prev *model.ActivitySession, fix *model.GPSFix) model.ActivitySession {
	sess := model.ActivitySession{
		VehicleID:    vehicleID,
		ActivityType: activityType,
		StartedAt:    now,
	}
	switch {
	case fix != nil:
		sess.StartLat, sess.StartLon = fix.Lat, fix.Lon
	case prev != nil:
		sess.StartLat, sess.StartLon = prev.StartLat, prev.StartLon
	}
	return sess
}

// formatDuration 格式化为 HH:MM:SS
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
