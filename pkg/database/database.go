package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/sirupsen/logrus"

	"localtube/pkg/models"
)

// Open connects to the configured database and migrates the schema before
// returning, so callers never query a database without its tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	if driver == "sqlite3" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}
	db.LogMode(false)

	if driver == "sqlite3" {
		// SQLite only allows one writer; a single connection avoids "database is locked".
		db.DB().SetMaxOpenConns(1)
	} else {
		db.DB().SetMaxOpenConns(25)
		db.DB().SetMaxIdleConns(5)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"driver": driver}).Info("Database connected and migrated")
	return db, nil
}

// Migrate creates any missing tables, columns and indexes. It is safe to run
// on every start.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Video{},
		&models.Like{},
		&models.Comment{},
		&models.Session{},
	).Error
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
