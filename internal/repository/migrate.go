package repository

import (
	"gorm.io/gorm"

	"finance-dashboard-backend/internal/models"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Transaction{},
		&models.ImportBatch{},
		&models.TransactionChange{},
	)
}
