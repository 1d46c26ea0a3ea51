package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"freshops/api/internal/model"
)

// newTestDB 内存数据库，每个测试独立一份
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	models := []any{
		&model.OperationLog{},
		&model.Vehicle{},
		&model.Driver{},
		&model.ActivityLog{},
		&model.MaintenanceSchedule{},
		&model.MaintenanceLog{},
		&model.Order{},
		&model.OrderItem{},
		&model.Route{},
		&model.RouteStop{},
	}
	// 生产模型的 default:now() 是 Postgres 语法，SQLite 不认；
	// 建表前从解析好的 schema 里摘掉这类默认值（仅影响测试库 DDL）
	for _, m := range models {
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(m))
		for _, f := range stmt.Schema.Fields {
			if f.DefaultValue == "now()" {
				f.DefaultValue = ""
				f.HasDefaultValue = false
			}
		}
	}
	require.NoError(t, db.AutoMigrate(models...))
	return db
}

func seedVehicle(t *testing.T, db *gorm.DB, plate string, capacityKg float64) *model.Vehicle {
	t.Helper()
	v := &model.Vehicle{PlateNumber: plate, CapacityKg: capacityKg, Status: model.VehicleAvailable}
	require.NoError(t, db.Create(v).Error)
	return v
}

func seedDriver(t *testing.T, db *gorm.DB, name string) *model.Driver {
	t.Helper()
	d := &model.Driver{Name: name, Status: "active"}
	require.NoError(t, db.Create(d).Error)
	return d
}

func seedOrder(t *testing.T, db *gorm.DB, customer string, weightKg float64, status string) *model.Order {
	t.Helper()
	o := &model.Order{
		CustomerName: customer,
		CustomerType: model.CustomerB2C,
		WeightKg:     weightKg,
		DeliveryDate: "2026-08-30",
		Status:       status,
	}
	require.NoError(t, db.Create(o).Error)
	return o
}
