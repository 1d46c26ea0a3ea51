package model

import (
	"time"
)

// 车辆运行状态
const (
	VehicleAvailable   = "available"   // 可调度
	VehicleOnRoute     = "on_route"    // 配送中
	VehicleMaintenance = "maintenance" // 维修中
	VehicleInactive    = "inactive"    // 停用
)

// VehicleStatuses 车辆状态枚举
var VehicleStatuses = []string{VehicleAvailable, VehicleOnRoute, VehicleMaintenance, VehicleInactive}

// Vehicle 车辆信息
type Vehicle struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	PlateNumber string    `json:"plate_number" gorm:"column:plate_number;type:varchar(20);not null;uniqueIndex"`
	Brand       string    `json:"brand,omitempty" gorm:"type:varchar(50)"`
	Model       string    `json:"model,omitempty" gorm:"type:varchar(50)"`
	VehicleType string    `json:"vehicle_type,omitempty" gorm:"column:vehicle_type;type:varchar(50)"`
	CapacityKg  float64   `json:"capacity_kg" gorm:"column:capacity_kg;not null;default:0"`
	CurrentKm   float64   `json:"current_km" gorm:"column:current_km;not null;default:0"`
	AvgDailyKm  float64   `json:"avg_daily_km" gorm:"column:avg_daily_km;not null;default:0"`
	Status      string    `json:"status" gorm:"type:varchar(20);default:'available'"`
	DriverID    *int      `json:"driver_id,omitempty" gorm:"column:driver_id"`
	LastLat     *float64  `json:"last_lat,omitempty" gorm:"column:last_lat"`
	LastLon     *float64  `json:"last_lon,omitempty" gorm:"column:last_lon"`
	Remark      string    `json:"remark,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null;default:now()"`

	// 关联
	Driver *Driver `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

// Driver 司机信息
type Driver struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Phone     string    `json:"phone,omitempty" gorm:"type:varchar(20)"`
	LicenseNo string    `json:"license_no,omitempty" gorm:"column:license_no;type:varchar(30)"`
	Status    string    `json:"status" gorm:"type:varchar(20);default:'active'"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:now()"`
}

func (Driver) TableName() string {
	return "drivers"
}

// CreateVehicleRequest 创建车辆请求
type CreateVehicleRequest struct {
	PlateNumber string  `json:"plate_number" binding:"required"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	VehicleType string  `json:"vehicle_type"`
	CapacityKg  float64 `json:"capacity_kg" binding:"required,gt=0"`
	CurrentKm   float64 `json:"current_km"`
	AvgDailyKm  float64 `json:"avg_daily_km"`
	Remark      string  `json:"remark"`
}

// UpdateVehicleRequest 更新车辆请求
type UpdateVehicleRequest struct {
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	VehicleType string   `json:"vehicle_type"`
	CapacityKg  *float64 `json:"capacity_kg"`
	AvgDailyKm  *float64 `json:"avg_daily_km"`
	Status      string   `json:"status"`
	Remark      string   `json:"remark"`
}

// UpdateOdometerRequest 更新里程请求
// Correction 为 true 时允许里程回退（人工修正）
type UpdateOdometerRequest struct {
	CurrentKm  float64 `json:"current_km" binding:"required,gte=0"`
	Correction bool    `json:"correction"`
}

// AssignDriverRequest 分配司机请求
type AssignDriverRequest struct {
	DriverID int `json:"driver_id" binding:"required"`
}

// CreateDriverRequest 创建司机请求
type CreateDriverRequest struct {
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone"`
	LicenseNo string `json:"license_no"`
}

// VehicleListQuery 车辆列表查询
type VehicleListQuery struct {
	PlateNumber string `form:"plate_number"`
	Status      string `form:"status"`
	DriverID    int    `form:"driver_id"`
	Page        int    `form:"page,default=1"`
	PageSize    int    `form:"page_size,default=20"`
}
