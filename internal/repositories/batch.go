package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/models"
)

var ErrBatchNotFound = errors.New("batch not found")

type BatchRepository interface {
	Create(batch *models.Batch) error
	FindByID(id uuid.UUID) (*models.Batch, error)
	UpdateStatus(id uuid.UUID, status models.BatchStatus, errorMsg string) error
	Touch(id uuid.UUID, accessedAt, expiresAt time.Time) error
	FindExpired(now time.Time, limit int) ([]models.Batch, error)
	FindStaleQueued(createdBefore time.Time, limit int) ([]models.Batch, error)
	FindOverflow(keep int) ([]models.Batch, error)
	Delete(id uuid.UUID) error
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// Create implements BatchRepository.
func (r *batchRepository) Create(batch *models.Batch) error {
	if err := r.db.Create(batch).Error; err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// FindByID implements BatchRepository.
func (r *batchRepository) FindByID(id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.Where("id = ?", id).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to find batch: %w", err)
	}
	return &batch, nil
}

// UpdateStatus implements BatchRepository.
func (r *batchRepository) UpdateStatus(id uuid.UUID, status models.BatchStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if errorMsg != "" {
		updates["error_message"] = errorMsg
	}

	result := r.db.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update batch status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// Touch implements BatchRepository.
func (r *batchRepository) Touch(id uuid.UUID, accessedAt, expiresAt time.Time) error {
	result := r.db.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_accessed_at": accessedAt,
			"expires_at":       expiresAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to touch batch: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrBatchNotFound
	}

	return nil
}

// FindExpired implements BatchRepository. Queued batches are left to
// FindStaleQueued.
func (r *batchRepository) FindExpired(now time.Time, limit int) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.db.
		Where("expires_at < ? AND status <> ?", now, models.BatchQueued).
		Order("expires_at ASC").
		Limit(limit).
		Find(&batches).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find expired batches: %w", err)
	}

	return batches, nil
}

// FindStaleQueued implements BatchRepository.
func (r *batchRepository) FindStaleQueued(createdBefore time.Time, limit int) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.db.
		Where("status = ? AND created_at < ?", models.BatchQueued, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&batches).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find stale queued batches: %w", err)
	}

	return batches, nil
}

// FindOverflow implements BatchRepository. In-flight batches are never
// returned and do not count towards keep.
func (r *batchRepository) FindOverflow(keep int) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.db.
		Where("status <> ?", models.BatchQueued).
		Order("created_at DESC").
		Offset(keep).
		Find(&batches).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find overflow batches: %w", err)
	}

	return batches, nil
}

// Delete implements BatchRepository.
func (r *batchRepository) Delete(id uuid.UUID) error {
	if err := r.db.Where("id = ?", id).Delete(&models.Batch{}).Error; err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}
