// Package dbtest opens isolated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-kitchen-backend/internal/db"
	"hotel-kitchen-backend/internal/model"
)

var seq atomic.Int64

// Open returns a migrated in-memory sqlite database private to the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// Fixture holds the seeded records most tests start from.
type Fixture struct {
	Table   model.Table
	Kitchen []model.Worker
	Floor   model.Worker
	Admin   model.Worker
	Other   model.Worker // kitchen worker of another department
}

// Seed creates one table, two kitchen workers and one floor worker in
// department 1, an admin, and a kitchen worker in department 2.
func Seed(t *testing.T, gormDB *gorm.DB) Fixture {
	t.Helper()

	f := Fixture{
		Table: model.Table{Title: "Table 7", Capacity: 4, Available: true},
		Kitchen: []model.Worker{
			{Name: "W1", DepartmentID: 1, Role: model.RoleKitchen},
			{Name: "W2", DepartmentID: 1, Role: model.RoleKitchen},
		},
		Floor: model.Worker{Name: "F1", DepartmentID: 1, Role: model.RoleFloor},
		Admin: model.Worker{Name: "Boss", DepartmentID: 9, Role: model.RoleAdmin},
		Other: model.Worker{Name: "Bar", DepartmentID: 2, Role: model.RoleKitchen},
	}
	require.NoError(t, gormDB.Create(&f.Table).Error)
	require.NoError(t, gormDB.Create(&f.Kitchen).Error)
	require.NoError(t, gormDB.Create(&f.Floor).Error)
	require.NoError(t, gormDB.Create(&f.Admin).Error)
	require.NoError(t, gormDB.Create(&f.Other).Error)
	return f
}
