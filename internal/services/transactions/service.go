package transactions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"finance-dashboard-backend/internal/cache"
	"finance-dashboard-backend/internal/models"
	"finance-dashboard-backend/internal/services/importer"
	"finance-dashboard-backend/internal/services/summary"
)

// TransactionStore is the persistence the service needs.
type TransactionStore interface {
	List(ctx context.Context) ([]models.Transaction, error)
	CreateMany(ctx context.Context, inputs []models.TransactionInput, batchID *uuid.UUID) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	Update(ctx context.Context, id uint, patch models.TransactionPatch) (*models.Transaction, error)
	Changes(ctx context.Context, id uint) ([]models.TransactionChange, error)
}

type BatchStore interface {
	Create(ctx context.Context, filename string) (*models.ImportBatch, error)
	Finish(ctx context.Context, batch *models.ImportBatch) error
	Get(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error)
}

// ImportReport tells the caller how much of an uploaded file was stored.
type ImportReport struct {
	BatchID    uuid.UUID           `json:"batch_id"`
	Filename   string              `json:"filename"`
	Total      int                 `json:"total"`
	Accepted   int                 `json:"accepted"`
	Rejected   int                 `json:"rejected"`
	Rejections []importer.RowError `json:"rejections"`
}

type Service struct {
	transactions TransactionStore
	batches      BatchStore
	cache        *cache.TransactionCache
	log          zerolog.Logger
}

func NewService(transactions TransactionStore, batches BatchStore, c *cache.TransactionCache, log zerolog.Logger) *Service {
	return &Service{
		transactions: transactions,
		batches:      batches,
		cache:        c,
		log:          log.With().Str("component", "transactions").Logger(),
	}
}

// Import parses a bank export and stores its well-formed rows as one batch.
// Rejected rows are reported, not stored. A header or persistence failure
// stores nothing and marks the batch failed.
func (s *Service) Import(ctx context.Context, filename string, r io.Reader) (*ImportReport, error) {
	batch, err := s.batches.Create(ctx, filename)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("batch_id", batch.ID.String()).Str("file", filename).Logger()

	res, err := importer.Parse(r)
	if err != nil {
		s.fail(ctx, log, batch, err)
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	for _, rej := range res.Rejected {
		log.Debug().Int("line", rej.Line).Str("column", rej.Column).Err(rej.Err).Msg("row rejected")
	}

	if err := s.transactions.CreateMany(ctx, res.Accepted, &batch.ID); err != nil {
		s.fail(ctx, log, batch, err)
		return nil, err
	}
	s.cache.Invalidate()

	rejections, err := json.Marshal(rejectionsOrEmpty(res.Rejected))
	if err != nil {
		return nil, fmt.Errorf("encoding rejections: %w", err)
	}
	batch.Status = models.ImportStatusCompleted
	batch.TotalRows = res.Total()
	batch.AcceptedCount = len(res.Accepted)
	batch.RejectedCount = len(res.Rejected)
	batch.Rejections = datatypes.JSON(rejections)
	if err := s.batches.Finish(ctx, batch); err != nil {
		// The rows are stored; only the bookkeeping is behind.
		log.Error().Err(err).Msg("failed to finish import batch")
	}

	log.Info().
		Int("total", batch.TotalRows).
		Int("accepted", batch.AcceptedCount).
		Int("rejected", batch.RejectedCount).
		Msg("import completed")

	return &ImportReport{
		BatchID:    batch.ID,
		Filename:   filename,
		Total:      batch.TotalRows,
		Accepted:   batch.AcceptedCount,
		Rejected:   batch.RejectedCount,
		Rejections: rejectionsOrEmpty(res.Rejected),
	}, nil
}

func (s *Service) fail(ctx context.Context, log zerolog.Logger, batch *models.ImportBatch, cause error) {
	log.Warn().Err(cause).Msg("import failed")
	batch.Status = models.ImportStatusFailed
	batch.Error = cause.Error()
	if err := s.batches.Finish(ctx, batch); err != nil {
		log.Error().Err(err).Msg("failed to mark import batch as failed")
	}
}

// CreateMany stores inputs from a JSON client. Currency codes are uppercased
// and amounts are checked the same way the importer checks them; one bad
// input rejects the whole request.
func (s *Service) CreateMany(ctx context.Context, inputs []models.TransactionInput) error {
	normalized := make([]models.TransactionInput, len(inputs))
	for i, in := range inputs {
		if err := importer.ValidateAmount(in.TransactionAmount); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if err := importer.ValidateAmount(in.BalanceAfterTransaction); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		in.TransactionCurrency = importer.NormalizeCurrency(in.TransactionCurrency)
		normalized[i] = in
	}
	inputs = normalized

	if err := s.transactions.CreateMany(ctx, inputs, nil); err != nil {
		s.log.Error().Err(err).Int("count", len(inputs)).Msg("bulk create failed")
		return err
	}
	s.cache.Invalidate()
	s.log.Info().Int("count", len(inputs)).Msg("transactions created")
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.Transaction, error) {
	return s.cache.Snapshot(ctx)
}

// ListMonth returns the transactions whose value date falls in the month of ref.
func (s *Service) ListMonth(ctx context.Context, ref time.Time) ([]models.Transaction, error) {
	txs, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	current, _ := summary.Bucket(txs, ref)
	if current == nil {
		current = []models.Transaction{}
	}
	return current, nil
}

func (s *Service) Update(ctx context.Context, id uint, patch models.TransactionPatch) (*models.Transaction, error) {
	tx, err := s.transactions.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.cache.Put(*tx)
	s.log.Info().Uint("transaction_id", id).Bool("exclude", tx.Exclude).Msg("transaction updated")
	return tx, nil
}

func (s *Service) Changes(ctx context.Context, id uint) ([]models.TransactionChange, error) {
	if _, err := s.transactions.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.transactions.Changes(ctx, id)
}

func (s *Service) MonthlySummary(ctx context.Context, ref time.Time) (summary.MonthlySummary, error) {
	txs, err := s.cache.Snapshot(ctx)
	if err != nil {
		return summary.MonthlySummary{}, err
	}
	return summary.Monthly(txs, ref), nil
}

func (s *Service) GetImport(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	return s.batches.Get(ctx, id)
}

func rejectionsOrEmpty(r []importer.RowError) []importer.RowError {
	if r == nil {
		return []importer.RowError{}
	}
	return r
}
