package store

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"seara_joias/internal/model"
)

// testDB opens a per-test in-memory database. The pool is capped at one
// connection so every pooled handle sees the same shared-cache database
// and concurrent transactions serialize instead of hitting SQLITE_BUSY.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.StockAdjustment{},
		&model.NotificationEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
