package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finance-dashboard-backend/internal/models"
)

type ImportBatchRepository struct {
	db *gorm.DB
}

func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

// Create starts a new batch in processing state.
func (r *ImportBatchRepository) Create(ctx context.Context, filename string) (*models.ImportBatch, error) {
	now := time.Now()
	batch := &models.ImportBatch{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    models.ImportStatusProcessing,
		StartedAt: now,
		CreatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, &PersistenceError{Op: "create import batch", Err: err}
	}
	return batch, nil
}

// Finish stores the final counts and status of batch.
func (r *ImportBatchRepository) Finish(ctx context.Context, batch *models.ImportBatch) error {
	now := time.Now()
	batch.CompletedAt = &now
	err := r.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"total_rows":     batch.TotalRows,
			"accepted_count": batch.AcceptedCount,
			"rejected_count": batch.RejectedCount,
			"rejections":     batch.Rejections,
			"status":         batch.Status,
			"error":          batch.Error,
			"completed_at":   now,
		}).Error
	if err != nil {
		return &PersistenceError{Op: "finish import batch", Err: err}
	}
	return nil
}

func (r *ImportBatchRepository) Get(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get import batch", Err: err}
	}
	return &batch, nil
}
