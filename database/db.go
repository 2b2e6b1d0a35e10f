// database/db.go - Database Connection (PostgreSQL, SQLite for local runs)
package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"lingoquest/config"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// Open connects to the configured store and tunes the pool. It does not migrate.
func Open(cfg config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		conn, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	default:
		conn, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// one writer; conditional updates rely on serialized write transactions
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
		} {
			if err := conn.Exec(pragma).Error; err != nil {
				return nil, fmt.Errorf("exec %s: %w", pragma, err)
			}
		}
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return conn, nil
}

// InitDB connects, migrates and installs the process-wide handle
func InitDB(cfg config.DatabaseConfig, logLevel logger.LogLevel) error {
	conn, err := Open(cfg, logLevel)
	if err != nil {
		return err
	}
	log.Printf("✅ %s database connected successfully", cfg.Driver)

	if err := Migrate(conn); err != nil {
		return err
	}

	db = conn
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	if db == nil {
		log.Fatal("Database not initialized. Call InitDB() first.")
	}
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %v", err)
	}

	log.Println("Database connection closed")
	return nil
}
