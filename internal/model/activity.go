package model

import (
	"time"
)

// 车辆作业状态（活动类型）
const (
	ActivityOperation = "operation" // 运营配送
	ActivityRefuel    = "refuel"    // 加油
	ActivityWorkshop  = "workshop"  // 进厂维修
	ActivityLunch     = "lunch"     // 午餐
	ActivityBreak     = "break"     // 休息
	ActivityPark      = "park"      // 停车
)

// ActivityTypes 活动类型枚举
var ActivityTypes = []string{
	ActivityOperation,
	ActivityRefuel,
	ActivityWorkshop,
	ActivityLunch,
	ActivityBreak,
	ActivityPark,
}

// IsValidActivityType 校验活动类型
func IsValidActivityType(t string) bool {
	for _, a := range ActivityTypes {
		if a == t {
			return true
		}
	}
	return false
}

// GPSFix 一次定位结果
type GPSFix struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ActivitySession 车辆当前活动会话
// 每辆车同一时刻至多一个会话，存于 Redis，key 为 fleet:activity:{vehicle_id}
type ActivitySession struct {
	VehicleID    int       `json:"vehicle_id"`
	ActivityType string    `json:"activity_type"`
	StartedAt    time.Time `json:"started_at"`
	StartLat     float64   `json:"start_lat"`
	StartLon     float64   `json:"start_lon"`
}

// ActivityLog 活动审计记录（只增不改）
type ActivityLog struct {
	ID           int       `json:"id" gorm:"primaryKey"`
	VehicleID    int       `json:"vehicle_id" gorm:"column:vehicle_id;not null;index"`
	DriverID     *int      `json:"driver_id,omitempty" gorm:"column:driver_id"`
	ActivityType string    `json:"activity_type" gorm:"column:activity_type;type:varchar(20);not null"`
	StartedAt    time.Time `json:"started_at" gorm:"column:started_at;not null"`
	EndedAt      time.Time `json:"ended_at" gorm:"column:ended_at;not null"`
	Duration     string    `json:"duration" gorm:"type:varchar(10);not null"` // HH:MM:SS
	DistanceKm   float64   `json:"distance_km" gorm:"column:distance_km;not null;default:0"`
	StartLat     float64   `json:"start_lat" gorm:"column:start_lat"`
	StartLon     float64   `json:"start_lon" gorm:"column:start_lon"`
	EndLat       float64   `json:"end_lat" gorm:"column:end_lat"`
	EndLon       float64   `json:"end_lon" gorm:"column:end_lon"`
	GPSError     bool      `json:"gps_error" gorm:"column:gps_error;not null;default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:now()"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// SwitchActivityRequest 切换活动请求
// Fix 为空表示客户端定位失败，审计降级处理
type SwitchActivityRequest struct {
	ActivityType string  `json:"activity_type" binding:"required"`
	Fix          *GPSFix `json:"fix"`
}

// SwitchActivityResult 切换活动结果
type SwitchActivityResult struct {
	Switched   bool             `json:"switched"`
	Degraded   bool             `json:"degraded"`
	DistanceKm float64          `json:"distance_km"`
	Session    *ActivitySession `json:"session"`
	Log        *ActivityLog     `json:"log,omitempty"`
}

// ActivityLogQuery 活动记录查询
type ActivityLogQuery struct {
	VehicleID int    `form:"vehicle_id"`
	StartTime string `form:"start_time"`
	EndTime   string `form:"end_time"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
}
