package repositories

import (
	"fmt"

	"github.com/edplatform/upload-manager/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectDatabase opens the Postgres connection and runs migrations.
// The handle is returned to the caller for explicit wiring; no package
// globals are kept.
func ConnectDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	// Run migrations
	if err := db.AutoMigrate(
		&models.UploadSession{},
		&models.File{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
