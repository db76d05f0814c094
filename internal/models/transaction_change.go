package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionChange is the audit row written for every patched field.
type TransactionChange struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uint      `gorm:"index"`
	Field         string
	PreviousValue string
	NewValue      string
	CreatedAt     time.Time
}
