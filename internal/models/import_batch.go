package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

type ImportBatch struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Filename      string
	TotalRows     int
	AcceptedCount int
	RejectedCount int
	Status        string `gorm:"index"`
	Rejections    datatypes.JSON
	Error         string
	StartedAt     time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
}
