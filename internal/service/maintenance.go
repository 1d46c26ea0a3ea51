// 保养计划服务

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"freshops/api/internal/model"
)

// vigencyMonths 按日期任务的固定有效期（月）
// 完成事件推进到期日固定加 12 个月，与任务配置的月间隔无关
const vigencyMonths = 12

var (
	ErrScheduleNotFound = errors.New("maintenance schedule not found")
	ErrIntervalMissing  = errors.New("interval is required for the task type")
)

// MaintenanceService 保养计划服务
type MaintenanceService struct {
	db *gorm.DB
}

// NewMaintenanceService 创建保养计划服务
func NewMaintenanceService(db *gorm.DB) *MaintenanceService {
	return &MaintenanceService{db: db}
}

// ScheduleTask 建立保养计划，首个到期点 = 上次执行点 + 间隔
func (s *MaintenanceService) ScheduleTask(ctx context.Context, req *model.ScheduleTaskRequest) (*model.MaintenanceSchedule, error) {
	var vehicle model.Vehicle
	if err := s.db.WithContext(ctx).First(&vehicle, req.VehicleID).Error; err != nil {
		return nil, fmt.Errorf("maintenance: load vehicle %d: %w", req.VehicleID, err)
	}

	schedule := &model.MaintenanceSchedule{
		VehicleID: req.VehicleID,
		TaskName:  req.TaskName,
		TaskType:  req.TaskType,
	}

	switch req.TaskType {
	case model.MaintenanceByKm:
		if req.IntervalKm == nil || *req.IntervalKm <= 0 {
			return nil, ErrIntervalMissing
		}
		lastKm := vehicle.CurrentKm
		if req.LastKm != nil {
			lastKm = *req.LastKm
		}
		next := lastKm + *req.IntervalKm
		schedule.IntervalKm = req.IntervalKm
		schedule.LastKm = &lastKm
		schedule.NextDueKm = &next

	case model.MaintenanceByDate:
		if req.IntervalMonths == nil || *req.IntervalMonths <= 0 {
			return nil, ErrIntervalMissing
		}
		lastDate := time.Now()
		if req.LastDate != nil {
			parsed, err := time.Parse("2006-01-02", *req.LastDate)
			if err != nil {
				return nil, fmt.Errorf("maintenance: parse last_date: %w", err)
			}
			lastDate = parsed
		}
		next := lastDate.AddDate(0, *req.IntervalMonths, 0)
		schedule.IntervalMonths = req.IntervalMonths
		schedule.LastDate = &lastDate
		schedule.NextDueDate = &next

	default:
		return nil, fmt.Errorf("maintenance: unknown task type %q", req.TaskType)
	}

	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

// CompleteTask 完成保养
// attachments 为已上传成功的凭证地址（上传失败的已在上层剔除）
// 写历史、推进计划、回正车辆里程在同一事务内完成
func (s *MaintenanceService) CompleteTask(ctx context.Context, scheduleID int, req *model.CompleteTaskRequest, attachments []string) (*model.MaintenanceLog, error) {
	var schedule model.MaintenanceSchedule
	if err := s.db.WithContext(ctx).First(&schedule, scheduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	performedDate, err := time.Parse("2006-01-02", req.PerformedDate)
	if err != nil {
		return nil, fmt.Errorf("maintenance: parse performed_date: %w", err)
	}

	nextKm, nextDate := nextDueMarkers(&schedule, req.PerformedKm, performedDate, req.IntervalOverride)

	entry := &model.MaintenanceLog{
		VehicleID:   schedule.VehicleID,
		ScheduleID:  schedule.ID,
		TaskName:    schedule.TaskName,
		PerformedAt: performedDate,
		PerformedKm: req.PerformedKm,
		DriverID:    req.DriverID,
		NextDueKm:   nextKm,
		NextDueDate: nextDate,
		Attachments: attachments,
		Notes:       req.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("write history log: %w", err)
		}

		updates := map[string]interface{}{}
		switch schedule.TaskType {
		case model.MaintenanceByKm:
			updates["last_km"] = req.PerformedKm
			updates["next_due_km"] = *nextKm
		case model.MaintenanceByDate:
			updates["last_date"] = performedDate
			updates["next_due_date"] = *nextDate
		}
		if err := tx.Model(&model.MaintenanceSchedule{}).Where("id = ?", schedule.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("advance schedule: %w", err)
		}

		// 完成登记的里程视为地面真值，直接回正车辆里程表
		if err := tx.Model(&model.Vehicle{}).Where("id = ?", schedule.VehicleID).
			UpdateColumn("current_km", req.PerformedKm).Error; err != nil {
			return fmt.Errorf("sync odometer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("maintenance: complete task %d: %w", scheduleID, err)
	}

	return entry, nil
}

// ListScheduleStatuses 查询保养计划并附带紧急程度
// 紧急程度是派生值，无法下推到 SQL：带 urgency 过滤时先全量分类再内存分页，
// total 为过滤后的数量
func (s *MaintenanceService) ListScheduleStatuses(ctx context.Context, query *model.MaintenanceListQuery) ([]model.ScheduleStatus, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.MaintenanceSchedule{}).Preload("Vehicle").
		Order("vehicle_id, task_name")
	if query.VehicleID > 0 {
		db = db.Where("vehicle_id = ?", query.VehicleID)
	}

	offset := (query.Page - 1) * query.PageSize

	var total int64
	var schedules []model.MaintenanceSchedule
	if query.Urgency == "" {
		db.Count(&total)
		db = db.Offset(offset).Limit(query.PageSize)
	}
	if err := db.Find(&schedules).Error; err != nil {
		return nil, 0, err
	}

	now := time.Now()
	statuses := make([]model.ScheduleStatus, 0, len(schedules))
	for _, sc := range schedules {
		var currentKm, avgDaily float64
		if sc.Vehicle != nil {
			currentKm = sc.Vehicle.CurrentKm
			avgDaily = sc.Vehicle.AvgDailyKm
		}
		st := model.ScheduleStatus{
			Schedule:  sc,
			Urgency:   Classify(&sc, currentKm, now),
			DaysToDue: EstimateDaysToDue(&sc, currentKm, avgDaily, now),
		}
		st.Overdue = st.Urgency == model.UrgencyUrgent
		if query.Urgency == "" || query.Urgency == st.Urgency {
			statuses = append(statuses, st)
		}
	}

	if query.Urgency != "" {
		total = int64(len(statuses))
		if offset >= len(statuses) {
			return []model.ScheduleStatus{}, total, nil
		}
		end := offset + query.PageSize
		if end > len(statuses) {
			end = len(statuses)
		}
		statuses = statuses[offset:end]
	}

	return statuses, total, nil
}

// ListHistory 查询保养历史
func (s *MaintenanceService) ListHistory(ctx context.Context, vehicleID, page, pageSize int) ([]model.MaintenanceLog, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.MaintenanceLog{})
	if vehicleID > 0 {
		db = db.Where("vehicle_id = ?", vehicleID)
	}

	var total int64
	db.Count(&total)

	var logs []model.MaintenanceLog
	offset := (page - 1) * pageSize
	err := db.Order("performed_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error
	return logs, total, err
}

// nextDueMarkers 计算完成后的下一个到期点
// 里程任务：执行里程 + （覆盖间隔或计划间隔）
// 日期任务：执行日期 + 固定 12 个月有效期
func nextDueMarkers(schedule *model.MaintenanceSchedule, performedKm float64, performedDate time.Time, override *float64) (*float64, *time.Time) {
	switch schedule.TaskType {
	case model.MaintenanceByKm:
		interval := 0.0
		if schedule.IntervalKm != nil {
			interval = *schedule.IntervalKm
		}
		if override != nil && *override > 0 {
			interval = *override
		}
		next := performedKm + interval
		return &next, nil
	case model.MaintenanceByDate:
		next := performedDate.AddDate(0, vigencyMonths, 0)
		return nil, &next
	}
	return nil, nil
}

// Classify 紧急程度分级
// 里程任务：余量 <0 urgent，[0,1500) upcoming，其余 ok；日期任务按 30 天窗口
func Classify(schedule *model.MaintenanceSchedule, currentKm float64, now time.Time) string {
	switch schedule.TaskType {
	case model.MaintenanceByKm:
		if schedule.NextDueKm == nil {
			return model.UrgencyOK
		}
		margin := *schedule.NextDueKm - currentKm
		if margin < 0 {
			return model.UrgencyUrgent
		}
		if margin < model.UpcomingKmWindow {
			return model.UrgencyUpcoming
		}
		return model.UrgencyOK
	case model.MaintenanceByDate:
		if schedule.NextDueDate == nil {
			return model.UrgencyOK
		}
		margin := schedule.NextDueDate.Sub(now)
		if margin < 0 {
			return model.UrgencyUrgent
		}
		if margin < model.UpcomingDayWindow*24*time.Hour {
			return model.UrgencyUpcoming
		}
		return model.UrgencyOK
	}
	return model.UrgencyOK
}

// EstimateDaysToDue 按日均里程估算剩余天数（向上取整）
// 日均里程未知或已过期时返回 nil，由展示层显示 overdue
func EstimateDaysToDue(schedule *model.MaintenanceSchedule, currentKm, avgDailyKm float64, now time.Time) *int {
	switch schedule.TaskType {
	case model.MaintenanceByKm:
		if schedule.NextDueKm == nil || avgDailyKm <= 0 {
			return nil
		}
		remaining := *schedule.NextDueKm - currentKm
		if remaining < 0 {
			return nil
		}
		days := int(math.Ceil(remaining / avgDailyKm))
		return &days
	case model.MaintenanceByDate:
		if schedule.NextDueDate == nil {
			return nil
		}
		remaining := schedule.NextDueDate.Sub(now)
		if remaining < 0 {
			return nil
		}
		days := int(math.Ceil(remaining.Hours() / 24))
		return &days
	}
	return nil
}
