package database

import (
	"fmt"

	"sectorsguard/src/database/migrations"
	"sectorsguard/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MainDB is the read/write connection holding validation results, configs and exceptions.
var MainDB *gorm.DB

// InitMainDB initializes the main (read/write) database connection and runs migrations.
// This should be called once at application startup (e.g. in main()).
func InitMainDB() error {
	config := GetConfig()
	db, err := openPostgres(config.DatabaseURLMain, config, false)
	if err != nil {
		return fmt.Errorf("failed to connect to MainDB: %w", err)
	}

	// Assign to the global variable only after a successful connection.
	MainDB = db

	logrus.Info("[database] MainDB connection established")

	if err := Migrate(MainDB); err != nil {
		return err
	}

	logrus.Info("[database] MainDB migrations completed")

	return nil
}

// Migrate creates the write-side schema and applies the data migrations.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.ValidationResultRecord{},
		&model.ValidationConfig{},
		&model.Exception{},
		&migrations.DataMigration{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations on MainDB: %w", err)
	}
	return nil
}
