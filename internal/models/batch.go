package models

import (
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchQueued    BatchStatus = "queued"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// Batch tracks one upload's staging directory so it can be evicted later.
type Batch struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	JobDescriptionFile string      `gorm:"type:text" json:"job_description_file"`
	ResumeCount        int         `gorm:"not null;default:0" json:"resume_count"`
	Status             BatchStatus `gorm:"not null;default:'queued';index" json:"status"`
	ErrorMessage       *string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt          time.Time   `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
	LastAccessedAt     time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"last_accessed_at"`
	ExpiresAt          time.Time   `gorm:"index" json:"expires_at"`
}

func (Batch) TableName() string {
	return "batches"
}
