package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"sectorsguard/src/database"
	"sectorsguard/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidIdentifier is returned for table or column names that are not plain identifiers.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier rejects anything that is not a plain SQL identifier.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// DatasetRepository reads source datasets from the read-only database.
type DatasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository creates a repository using ReadOnlyDB.
func NewDatasetRepository() *DatasetRepository {
	logger.WithField("component", "DatasetRepository").
		Info("Creating new DatasetRepository with ReadOnlyDB")

	return &DatasetRepository{db: database.ReadOnlyDB}
}

// NewDatasetRepositoryWithDB creates a repository using the given gorm DB.
func NewDatasetRepositoryWithDB(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Select runs a dataset query. The end date is inclusive for both date and timestamp columns.
func (r *DatasetRepository) Select(ctx context.Context, q model.DatasetQuery) ([]model.Row, error) {
	if err := ValidateIdentifier(q.Table); err != nil {
		return nil, err
	}

	tx := r.db.WithContext(ctx).Table(q.Table)

	if q.DateColumn != "" && (q.Start != "" || q.End != "") {
		if err := ValidateIdentifier(q.DateColumn); err != nil {
			return nil, err
		}
		col := clause.Column{Name: q.DateColumn}
		if q.Start != "" {
			tx = tx.Where(clause.Gte{Column: col, Value: q.Start})
		}
		if q.End != "" {
			end, err := time.Parse("2006-01-02", q.End)
			if err != nil {
				return nil, fmt.Errorf("invalid end date %q: %w", q.End, err)
			}
			tx = tx.Where(clause.Lt{Column: col, Value: end.AddDate(0, 0, 1).Format("2006-01-02")})
		}
	}

	if q.EqColumn != "" {
		if err := ValidateIdentifier(q.EqColumn); err != nil {
			return nil, err
		}
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: q.EqColumn}, Value: q.EqValue})
	}

	var rows []model.Row
	if err := tx.Find(&rows).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "DatasetRepository",
			"op":    "Select",
			"table": q.Table,
		}).WithError(err).Warn("Dataset query failed")
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "DatasetRepository",
		"op":    "Select",
		"table": q.Table,
		"rows":  len(rows),
	}).Debug("Dataset query completed")

	return rows, nil
}
