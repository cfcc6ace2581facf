package repository

import (
	"context"
	"errors"

	"sectorsguard/src/database"
	"sectorsguard/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ValidationConfigRepository reads and writes validation_configs rows.
type ValidationConfigRepository struct {
	db *gorm.DB
}

// NewValidationConfigRepository creates a repository using MainDB.
func NewValidationConfigRepository() *ValidationConfigRepository {
	return &ValidationConfigRepository{db: database.MainDB}
}

// NewValidationConfigRepositoryWithDB creates a repository using the given gorm DB.
func NewValidationConfigRepositoryWithDB(db *gorm.DB) *ValidationConfigRepository {
	return &ValidationConfigRepository{db: db}
}

// FindByDataset returns the config for a dataset, or nil when none exists.
func (r *ValidationConfigRepository) FindByDataset(ctx context.Context, dataset string) (*model.ValidationConfig, error) {
	var cfg model.ValidationConfig
	err := r.db.WithContext(ctx).Where("table_name = ?", dataset).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":    "ValidationConfigRepository",
				"op":      "FindByDataset",
				"dataset": dataset,
			}).Debug("No validation config stored")
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// Upsert inserts the config or updates the existing row with the same dataset name.
func (r *ValidationConfigRepository) Upsert(ctx context.Context, cfg *model.ValidationConfig) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "ValidationConfigRepository",
		"op":      "Upsert",
		"dataset": cfg.DatasetName,
		"enabled": cfg.Enabled,
	}).Info("Upserting validation config")

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "table_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"validation_rules",
				"validation_types",
				"error_threshold",
				"email_recipients",
				"enabled",
				"updated_at",
			}),
		}).
		Create(cfg).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ValidationConfigRepository",
			"op":      "Upsert",
			"dataset": cfg.DatasetName,
		}).WithError(err).Error("Failed to upsert validation config")
	}
	return err
}

// ListEnabled returns every enabled config ordered by dataset name.
func (r *ValidationConfigRepository) ListEnabled(ctx context.Context) ([]model.ValidationConfig, error) {
	var out []model.ValidationConfig
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("table_name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
