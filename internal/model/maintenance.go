package model

import (
	"time"
)

// 保养任务触发类型
const (
	MaintenanceByKm   = "km"   // 按里程触发
	MaintenanceByDate = "date" // 按日期触发
)

// 保养紧急程度（派生值，不落库）
const (
	UrgencyUrgent   = "urgent"   // 已过期
	UrgencyUpcoming = "upcoming" // 临近到期
	UrgencyOK       = "ok"
)

// 临近到期阈值
const (
	UpcomingKmWindow  = 1500.0
	UpcomingDayWindow = 30
)

// MaintenanceSchedule 车辆保养计划
// next_due_* 只能由建档或完成事件推进，不允许直接编辑
type MaintenanceSchedule struct {
	ID             int        `json:"id" gorm:"primaryKey"`
	VehicleID      int        `json:"vehicle_id" gorm:"column:vehicle_id;not null;index"`
	TaskName       string     `json:"task_name" gorm:"column:task_name;type:varchar(100);not null"`
	TaskType       string     `json:"task_type" gorm:"column:task_type;type:varchar(10);not null"` // km, date
	IntervalKm     *float64   `json:"interval_km,omitempty" gorm:"column:interval_km"`
	IntervalMonths *int       `json:"interval_months,omitempty" gorm:"column:interval_months"`
	LastKm         *float64   `json:"last_km,omitempty" gorm:"column:last_km"`
	LastDate       *time.Time `json:"last_date,omitempty" gorm:"column:last_date"`
	NextDueKm      *float64   `json:"next_due_km,omitempty" gorm:"column:next_due_km"`
	NextDueDate    *time.Time `json:"next_due_date,omitempty" gorm:"column:next_due_date"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"not null;default:now()"`

	// 关联
	Vehicle *Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

func (MaintenanceSchedule) TableName() string {
	return "maintenance_schedules"
}

// MaintenanceLog 保养完成记录（只增不改）
type MaintenanceLog struct {
	ID          int        `json:"id" gorm:"primaryKey"`
	VehicleID   int        `json:"vehicle_id" gorm:"column:vehicle_id;not null;index"`
	ScheduleID  int        `json:"schedule_id" gorm:"column:schedule_id;not null"`
	TaskName    string     `json:"task_name" gorm:"column:task_name;type:varchar(100);not null"`
	PerformedAt time.Time  `json:"performed_at" gorm:"column:performed_at;not null"`
	PerformedKm float64    `json:"performed_km" gorm:"column:performed_km;not null"`
	DriverID    *int       `json:"driver_id,omitempty" gorm:"column:driver_id"`
	NextDueKm   *float64   `json:"next_due_km,omitempty" gorm:"column:next_due_km"`
	NextDueDate *time.Time `json:"next_due_date,omitempty" gorm:"column:next_due_date"`
	Attachments StringList `json:"attachments,omitempty" gorm:"type:jsonb"`
	Notes       string     `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;default:now()"`
}

func (MaintenanceLog) TableName() string {
	return "maintenance_logs"
}

// ScheduleTaskRequest 建立保养计划请求
type ScheduleTaskRequest struct {
	VehicleID      int      `json:"vehicle_id" binding:"required"`
	TaskName       string   `json:"task_name" binding:"required"`
	TaskType       string   `json:"task_type" binding:"required,oneof=km date"`
	IntervalKm     *float64 `json:"interval_km"`
	IntervalMonths *int     `json:"interval_months"`
	LastKm         *float64 `json:"last_km"`
	LastDate       *string  `json:"last_date"` // 2006-01-02
}

// CompleteTaskRequest 完成保养请求
type CompleteTaskRequest struct {
	PerformedDate    string   `json:"performed_date" binding:"required"` // 2006-01-02
	PerformedKm      float64  `json:"performed_km" binding:"required,gte=0"`
	IntervalOverride *float64 `json:"interval_override"`
	DriverID         *int     `json:"driver_id"`
	Notes            string   `json:"notes"`
}

// ScheduleStatus 保养计划展示状态
type ScheduleStatus struct {
	Schedule  MaintenanceSchedule `json:"schedule"`
	Urgency   string              `json:"urgency"`
	DaysToDue *int                `json:"days_to_due,omitempty"` // nil 表示无法估算或已过期
	Overdue   bool                `json:"overdue"`
}

// MaintenanceListQuery 保养计划查询
type MaintenanceListQuery struct {
	VehicleID int    `form:"vehicle_id"`
	Urgency   string `form:"urgency"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=50"`
}
