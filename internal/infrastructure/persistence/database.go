package persistence

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/brandinglab/backend/internal/infrastructure/config"
	"github.com/brandinglab/backend/internal/infrastructure/logger"
	"github.com/brandinglab/backend/internal/infrastructure/persistence/models"
)

// NewDatabase opens the postgres connection pool and runs migrations.
func NewDatabase(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ImportJobModel{},
		&models.MappingTemplateModel{},
		&models.LabelRecordModel{},
		&models.MergedOrderModel{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
