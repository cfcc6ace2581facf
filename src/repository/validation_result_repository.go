package repository

import (
	"context"
	"errors"
	"time"

	"sectorsguard/src/database"
	"sectorsguard/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ValidationResultRepository stores and reads validation_results rows.
type ValidationResultRepository struct {
	db *gorm.DB
}

// NewValidationResultRepository creates a repository using MainDB.
func NewValidationResultRepository() *ValidationResultRepository {
	logger.WithField("component", "ValidationResultRepository").
		Info("Creating new ValidationResultRepository with MainDB")

	return &ValidationResultRepository{db: database.MainDB}
}

// NewValidationResultRepositoryWithDB creates a repository using the given gorm DB.
func NewValidationResultRepositoryWithDB(db *gorm.DB) *ValidationResultRepository {
	return &ValidationResultRepository{db: db}
}

// Insert writes one result row.
func (r *ValidationResultRepository) Insert(ctx context.Context, rec *model.ValidationResultRecord) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "ValidationResultRepository",
		"op":      "Insert",
		"dataset": rec.DatasetName,
		"status":  rec.Status,
		"count":   rec.AnomaliesCount,
	}).Debug("Inserting validation result")

	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ValidationResultRepository",
			"op":      "Insert",
			"dataset": rec.DatasetName,
		}).WithError(err).Error("Failed to insert validation result")
		return err
	}

	return nil
}

// LatestByDataset returns the newest row for a dataset, or nil when there is none.
func (r *ValidationResultRepository) LatestByDataset(ctx context.Context, dataset string) (*model.ValidationResultRecord, error) {
	var rec model.ValidationResultRecord
	err := r.db.WithContext(ctx).
		Where("table_name = ?", dataset).
		Order("validation_timestamp DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":    "ValidationResultRepository",
			"op":      "LatestByDataset",
			"dataset": dataset,
		}).WithError(err).Error("Failed to load latest validation result")
		return nil, err
	}
	return &rec, nil
}

// History lists the newest rows, optionally restricted to one dataset.
func (r *ValidationResultRepository) History(ctx context.Context, dataset string, limit int) ([]model.ValidationResultRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	tx := r.db.WithContext(ctx).Order("validation_timestamp DESC").Limit(limit)
	if dataset != "" {
		tx = tx.Where("table_name = ?", dataset)
	}
	var out []model.ValidationResultRecord
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LatestPerDataset returns the newest row of every dataset that has one.
func (r *ValidationResultRepository) LatestPerDataset(ctx context.Context) ([]model.ValidationResultRecord, error) {
	latest := r.db.
		Model(&model.ValidationResultRecord{}).
		Select("table_name, MAX(validation_timestamp) AS validation_timestamp").
		Group("table_name")

	var out []model.ValidationResultRecord
	err := r.db.WithContext(ctx).
		Table("validation_results AS vr").
		Select("vr.*").
		Joins("JOIN (?) AS latest ON latest.table_name = vr.table_name AND latest.validation_timestamp = vr.validation_timestamp", latest).
		Order("vr.table_name").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StatusCounts tallies rows per status since the given time.
func (r *ValidationResultRepository) StatusCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.ValidationResultRecord{}).
		Select("status, COUNT(*) AS total").
		Where("validation_timestamp >= ?", since).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
