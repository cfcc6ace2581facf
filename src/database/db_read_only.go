package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReadOnlyDB is the connection to the market datasets being validated.
// The database user for this connection should have SELECT-only permissions.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB initializes the read-only database connection.
// It does not run any migrations and should only be used for reading data.
func InitReadOnlyDB() error {
	config := GetConfig()
	db, err := openPostgres(config.DatabaseURLReadOnly, config, true)
	if err != nil {
		return fmt.Errorf("failed to connect to ReadOnlyDB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	var dbName, schema string
	if err := db.
		Raw("SELECT current_database(), current_schema()").
		Row().
		Scan(&dbName, &schema); err != nil {
		return fmt.Errorf("failed to query current db/schema on ReadOnlyDB: %w", err)
	}

	logrus.WithFields(map[string]interface{}{"dbName": dbName, "schema": schema}).Info("[ReadOnlyDB] connected")

	if config.ReadOnlyCheckTable != "" {
		var count int64
		if err := db.Table(config.ReadOnlyCheckTable).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to access %s: %w", config.ReadOnlyCheckTable, err)
		}
		logrus.WithFields(map[string]interface{}{
			"table": config.ReadOnlyCheckTable,
			"count": count,
		}).Info("[ReadOnlyDB] check table reachable")
	}

	ReadOnlyDB = db

	return nil
}
