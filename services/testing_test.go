package services

import (
	"testing"

	"github.com/kyleolivo/viet-food/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.FoodEntry{},
		&models.AuditLog{},
		&models.UserStatus{},
	))
	return db
}

func newTestSecurity(t *testing.T) (*SecurityService, *AuditService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	audit := NewAuditService(db)
	alerts := NewAlertService(audit)
	security := NewSecurityService(db, audit, alerts, DefaultRateLimits())
	return security, audit, db
}
