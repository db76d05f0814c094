package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finance-dashboard-backend/internal/models"
)

const createBatchSize = 500

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// List returns every transaction ordered by value date, then id.
func (r *TransactionRepository) List(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Order("transaction_value_date ASC").
		Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, &PersistenceError{Op: "list transactions", Err: err}
	}
	return txs, nil
}

// CreateMany inserts all inputs in one database transaction. Either every row
// is stored or none is.
func (r *TransactionRepository) CreateMany(ctx context.Context, inputs []models.TransactionInput, batchID *uuid.UUID) error {
	if len(inputs) == 0 {
		return nil
	}

	rows := make([]models.Transaction, len(inputs))
	for i, in := range inputs {
		rows[i] = models.Transaction{TransactionInput: in, ImportBatchID: batchID}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, createBatchSize).Error
	})
	if err != nil {
		return &PersistenceError{Op: "create transactions", Err: err}
	}
	return nil
}

// GetByID fetch a single transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get transaction", Err: err}
	}
	return &tx, nil
}

// Update applies patch to transaction id and records one TransactionChange
// per field whose value actually changed.
func (r *TransactionRepository) Update(ctx context.Context, id uint, patch models.TransactionPatch) (*models.Transaction, error) {
	var updated models.Transaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Transaction
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		values, changes := patchValues(current, patch)
		if len(values) > 0 {
			if err := tx.Model(&current).Updates(values).Error; err != nil {
				return err
			}
			if err := tx.Create(&changes).Error; err != nil {
				return err
			}
		}

		return tx.First(&updated, id).Error
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "update transaction", Err: err}
	}
	return &updated, nil
}

// Changes returns the audit trail of a transaction, oldest first.
func (r *TransactionRepository) Changes(ctx context.Context, id uint) ([]models.TransactionChange, error) {
	var changes []models.TransactionChange
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", id).
		Order("created_at ASC").
		Find(&changes).Error
	if err != nil {
		return nil, &PersistenceError{Op: "list transaction changes", Err: err}
	}
	return changes, nil
}

func patchValues(current models.Transaction, p models.TransactionPatch) (map[string]interface{}, []models.TransactionChange) {
	values := map[string]interface{}{}
	var changes []models.TransactionChange
	now := time.Now()

	record := func(column, field, prev, next string, value interface{}) {
		if prev == next {
			return
		}
		values[column] = value
		changes = append(changes, models.TransactionChange{
			ID:            uuid.New(),
			TransactionID: current.ID,
			Field:         field,
			PreviousValue: prev,
			NewValue:      next,
			CreatedAt:     now,
		})
	}

	if p.Exclude != nil {
		record("exclude", "Exclude",
			strconv.FormatBool(current.Exclude), strconv.FormatBool(*p.Exclude), *p.Exclude)
	}
	if p.TransactionCategory != nil {
		record("transaction_category", "TransactionCategory",
			current.TransactionCategory, *p.TransactionCategory, *p.TransactionCategory)
	}
	if p.AdditionalInformation != nil {
		record("additional_information", "AdditionalInformation",
			current.AdditionalInformation, *p.AdditionalInformation, *p.AdditionalInformation)
	}

	return values, changes
}
