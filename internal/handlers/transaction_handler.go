package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"finance-dashboard-backend/internal/logger"
	"finance-dashboard-backend/internal/models"
	"finance-dashboard-backend/internal/repository"
	"finance-dashboard-backend/internal/services/importer"
	"finance-dashboard-backend/internal/services/transactions"
)

const monthLayout = "2006-01"

type TransactionHandler struct {
	service        *transactions.Service
	maxUploadBytes int64
}

func NewTransactionHandler(s *transactions.Service, maxUploadBytes int64) *TransactionHandler {
	return &TransactionHandler{service: s, maxUploadBytes: maxUploadBytes}
}

// ListTransactions returns every transaction, or with ?month=YYYY-MM only
// those whose value date falls in that month.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var (
		items []models.Transaction
		err   error
	)
	if c.Query("month") == "" {
		items, err = h.service.List(c.Request.Context())
	} else {
		month, perr := parseMonth(c)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		items, err = h.service.ListMonth(c.Request.Context(), month)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *TransactionHandler) CreateTransactions(c *gin.Context) {
	var payload struct {
		Transactions []models.TransactionInput `json:"transactions"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(payload.Transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no transactions given"})
		return
	}

	if err := h.service.CreateMany(c.Request.Context(), payload.Transactions); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "transactions uploaded successfully",
		"count":   len(payload.Transactions),
	})
}

// Upload imports a bank CSV export sent as multipart field "file".
func (h *TransactionHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	reqLog := logger.FromContext(c.Request.Context())
	reqLog.Debug().
		Str("file", header.Filename).
		Int64("size", header.Size).
		Msg("received upload")

	report, err := h.service.Import(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var patch models.TransactionPatch
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: only Exclude, TransactionCategory and AdditionalInformation can be changed"})
		return
	}
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	tx, err := h.service.Update(c.Request.Context(), uint(id), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction updated", "transaction": tx})
}

func (h *TransactionHandler) ListChanges(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	changes, err := h.service.Changes(c.Request.Context(), uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": changes, "count": len(changes)})
}

// GetSummary returns the monthly figures for ?month=YYYY-MM, defaulting to
// the current month.
func (h *TransactionHandler) GetSummary(c *gin.Context) {
	month, err := parseMonth(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.service.MonthlySummary(c.Request.Context(), month)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

func (h *TransactionHandler) GetImport(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	batch, err := h.service.GetImport(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (h *TransactionHandler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var headerErr *importer.HeaderError
	var persistErr *repository.PersistenceError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &headerErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": headerErr.Error()})
	case errors.Is(err, importer.ErrMalformedAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &persistErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save transactions, please try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseMonth(c *gin.Context) (time.Time, error) {
	q := c.Query("month")
	if q == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := time.Parse(monthLayout, q)
	if err != nil {
		return time.Time{}, errors.New("invalid month, expected YYYY-MM")
	}
	return month, nil
}
