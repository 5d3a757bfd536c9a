package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hotstart/hotstart/internal/models"
)

const (
	defaultDBName = "history.db"
	defaultDBDir  = "hotstart"
)

type DB struct {
	*gorm.DB
}

// GetDefaultDBPath returns <UserConfigDir>/hotstart/history.db, creating
// the directory.
func GetDefaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get config directory")
	}

	dbDir := filepath.Join(configDir, defaultDBDir)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create database directory")
	}

	return filepath.Join(dbDir, defaultDBName), nil
}

func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	return &DB{db}, nil
}

func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.PreloadEvent{}, &models.ErrorLog{}); err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
