package db

import (
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/henryleach/store-mqtt-data/config"
	"github.com/henryleach/store-mqtt-data/internal/model"
)

// Open connects to the configured database and applies the pool
// settings. The driver is selected by config; sqlite is the default.
func Open(cfg *config.StorageConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	return db, nil
}

// Migrate creates the stations, last-value and gas tables, plus one
// archive table per configured measure binding.
func Migrate(db *gorm.DB, archiveTables map[string]string) error {
	if err := db.AutoMigrate(
		&model.StationRecord{},
		&model.LastValue{},
		&model.GasReading{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	// Sorted for a deterministic migration order.
	tables := make([]string, 0, len(archiveTables))
	for _, table := range archiveTables {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		if err := db.Table(table).AutoMigrate(&model.ArchiveRow{}); err != nil {
			return fmt.Errorf("automigrate of archive table %q failed: %w", table, err)
		}
	}

	return nil
}

// Init opens the database and runs migrations.
func Init(cfg *config.StorageConfig, archiveTables map[string]string) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	log.Println("Running database migrations...")
	if err := Migrate(db, archiveTables); err != nil {
		return nil, err
	}

	return db, nil
}
