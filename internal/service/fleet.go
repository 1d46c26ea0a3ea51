// 车队登记服务

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"freshops/api/internal/model"
)

var (
	ErrPlateExists      = errors.New("plate number already registered")
	ErrInvalidStatus    = errors.New("invalid vehicle status")
	ErrOdometerRollback = errors.New("odometer decrease requires correction flag")
)

// FleetService 车队登记服务
// 车辆不做物理删除，停用通过 inactive 状态表达
type FleetService struct {
	db *gorm.DB
}

// NewFleetService 创建车队服务
func NewFleetService(db *gorm.DB) *FleetService {
	return &FleetService{db: db}
}

// CreateVehicle 登记车辆
func (s *FleetService) CreateVehicle(ctx context.Context, req *model.CreateVehicleRequest, userID int) (*model.Vehicle, error) {
	// 检查车牌号是否已存在
	var count int64
	s.db.WithContext(ctx).Model(&model.Vehicle{}).
		Where("plate_number = ?", req.PlateNumber).Count(&count)
	if count > 0 {
		return nil, ErrPlateExists
	}

	vehicle := &model.Vehicle{
		PlateNumber: req.PlateNumber,
		Brand:       req.Brand,
		Model:       req.Model,
		VehicleType: req.VehicleType,
		CapacityKg:  req.CapacityKg,
		CurrentKm:   req.CurrentKm,
		AvgDailyKm:  req.AvgDailyKm,
		Status:      model.VehicleAvailable,
		Remark:      req.Remark,
	}

	if err := s.db.WithContext(ctx).Create(vehicle).Error; err != nil {
		return nil, err
	}

	s.logOperation(userID, "fleet", "create", fmt.Sprintf("%d", vehicle.ID), nil, vehicle)
	return vehicle, nil
}

// ListVehicles 查询车辆列表
func (s *FleetService) ListVehicles(ctx context.Context, query *model.VehicleListQuery) ([]model.Vehicle, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Vehicle{}).Preload("Driver")

	if query.PlateNumber != "" {
		db = db.Where("plate_number LIKE ?", "%"+query.PlateNumber+"%")
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.DriverID > 0 {
		db = db.Where("driver_id = ?", query.DriverID)
	}

	var total int64
	db.Count(&total)

	var vehicles []model.Vehicle
	offset := (query.Page - 1) * query.PageSize
	err := db.Order("plate_number").Offset(offset).Limit(query.PageSize).Find(&vehicles).Error

	return vehicles, total, err
}

// GetVehicle 查询车辆详情
func (s *FleetService) GetVehicle(ctx context.Context, id int) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := s.db.WithContext(ctx).Preload("Driver").First(&vehicle, id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// AvailableVehicles 查询可调度车辆
func (s *FleetService) AvailableVehicles(ctx context.Context) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	err := s.db.WithContext(ctx).Preload("Driver").
		Where("status = ?", model.VehicleAvailable).
		Order("plate_number").Find(&vehicles).Error
	return vehicles, err
}

// UpdateVehicle 更新车辆资料与状态
func (s *FleetService) UpdateVehicle(ctx context.Context, id int, req *model.UpdateVehicleRequest, userID int) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := s.db.WithContext(ctx).First(&vehicle, id).Error; err != nil {
		return nil, err
	}
	before := vehicle

	if req.Status != "" {
		if !validStatus(req.Status) {
			return nil, ErrInvalidStatus
		}
		vehicle.Status = req.Status
	}
	if req.Brand != "" {
		vehicle.Brand = req.Brand
	}
	if req.Model != "" {
		vehicle.Model = req.Model
	}
	if req.VehicleType != "" {
		vehicle.VehicleType = req.VehicleType
	}
	if req.CapacityKg != nil {
		vehicle.CapacityKg = *req.CapacityKg
	}
	if req.AvgDailyKm != nil {
		vehicle.AvgDailyKm = *req.AvgDailyKm
	}
	if req.Remark != "" {
		vehicle.Remark = req.Remark
	}

	if err := s.db.WithContext(ctx).Save(&vehicle).Error; err != nil {
		return nil, err
	}

	s.logOperation(userID, "fleet", "update", fmt.Sprintf("%d", id), &before, &vehicle)
	return &vehicle, nil
}

// UpdateOdometer 更新里程表
// 正常流程不允许回退，人工修正需显式 correction 标记
func (s *FleetService) UpdateOdometer(ctx context.Context, id int, req *model.UpdateOdometerRequest, userID int) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := s.db.WithContext(ctx).First(&vehicle, id).Error; err != nil {
		return nil, err
	}

	if req.CurrentKm < vehicle.CurrentKm && !req.Correction {
		return nil, ErrOdometerRollback
	}

	before := vehicle
	if err := s.db.WithContext(ctx).Model(&model.Vehicle{}).Where("id = ?", id).
		UpdateColumn("current_km", req.CurrentKm).Error; err != nil {
		return nil, err
	}
	vehicle.CurrentKm = req.CurrentKm

	s.logOperation(userID, "fleet", "odometer", fmt.Sprintf("%d", id), &before, &vehicle)
	return &vehicle, nil
}

// AssignDriver 分配司机
// 司机至多绑定一辆车：事务内先清除旧绑定再建立新绑定
func (s *FleetService) AssignDriver(ctx context.Context, vehicleID, driverID, userID int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var driver model.Driver
		if err := tx.First(&driver, driverID).Error; err != nil {
			return fmt.Errorf("load driver %d: %w", driverID, err)
		}

		var vehicle model.Vehicle
		if err := tx.First(&vehicle, vehicleID).Error; err != nil {
			return fmt.Errorf("load vehicle %d: %w", vehicleID, err)
		}

		// 清除该司机在其他车辆上的绑定
		if err := tx.Model(&model.Vehicle{}).
			Where("driver_id = ? AND id <> ?", driverID, vehicleID).
			Update("driver_id", nil).Error; err != nil {
			return fmt.Errorf("clear previous binding: %w", err)
		}

		if err := tx.Model(&model.Vehicle{}).Where("id = ?", vehicleID).
			Update("driver_id", driverID).Error; err != nil {
			return fmt.Errorf("bind driver: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fleet: assign driver: %w", err)
	}

	s.logOperation(userID, "fleet", "assign_driver", fmt.Sprintf("%d", vehicleID), nil,
		map[string]int{"driver_id": driverID})
	return nil
}

// UnassignDriver 解除司机绑定
func (s *FleetService) UnassignDriver(ctx context.Context, vehicleID, userID int) error {
	if err := s.db.WithContext(ctx).Model(&model.Vehicle{}).Where("id = ?", vehicleID).
		Update("driver_id", nil).Error; err != nil {
		return err
	}
	s.logOperation(userID, "fleet", "unassign_driver", fmt.Sprintf("%d", vehicleID), nil, nil)
	return nil
}

// CreateDriver 登记司机
func (s *FleetService) CreateDriver(ctx context.Context, req *model.CreateDriverRequest) (*model.Driver, error) {
	driver := &model.Driver{
		Name:      req.Name,
		Phone:     req.Phone,
		LicenseNo: req.LicenseNo,
		Status:    "active",
	}
	if err := s.db.WithContext(ctx).Create(driver).Error; err != nil {
		return nil, err
	}
	return driver, nil
}

// ListDrivers 查询司机列表
func (s *FleetService) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	var drivers []model.Driver
	err := s.db.WithContext(ctx).Order("name").Find(&drivers).Error
	return drivers, err
}

func validStatus(status string) bool {
	for _, st := range model.VehicleStatuses {
		if st == status {
			return true
		}
	}
	return false
}

// logOperation 写操作日志，失败仅记录不阻断业务
func (s *FleetService) logOperation(userID int, module, action, resourceID string, oldVal, newVal interface{}) {
	entry := &model.OperationLog{
		UserID:     userID,
		Module:     module,
		Action:     action,
		ResourceID: resourceID,
	}
	if oldVal != nil {
		if b, err := json.Marshal(oldVal); err == nil {
			entry.OldValue = string(b)
		}
	}
	if newVal != nil {
		if b, err := json.Marshal(newVal); err == nil {
			entry.NewValue = string(b)
		}
	}
	s.db.Create(entry)
}
