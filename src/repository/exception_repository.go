package repository

import (
	"context"

	"sectorsguard/src/database"
	"sectorsguard/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExceptionRepository handles persistence of captured exceptions.
type ExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates a new repository instance using MainDB.
func NewExceptionRepository() *ExceptionRepository {
	return &ExceptionRepository{
		db: database.MainDB,
	}
}

// NewExceptionRepositoryWithDB creates a repository using the given gorm DB.
func NewExceptionRepositoryWithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists a new exception in the database.
func (r *ExceptionRepository) Create(
	ctx context.Context,
	exc *model.Exception,
) error {

	logger.WithFields(map[string]interface{}{
		"service": exc.Service,
		"module":  exc.Module,
		"method":  exc.Method,
		"dataset": exc.Dataset,
		"level":   exc.Level,
	}).Error("Persisting system exception")

	return r.db.WithContext(ctx).Create(exc).Error
}

// Recent lists the newest exceptions, optionally for one dataset.
func (r *ExceptionRepository) Recent(ctx context.Context, dataset string, limit int) ([]model.Exception, error) {
	if limit <= 0 {
		limit = 50
	}
	tx := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if dataset != "" {
		tx = tx.Where("dataset = ?", dataset)
	}
	var out []model.Exception
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
