package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"finance-dashboard-backend/internal/cache"
	"finance-dashboard-backend/internal/config"
	handler "finance-dashboard-backend/internal/handlers"
	"finance-dashboard-backend/internal/repository"
	"finance-dashboard-backend/internal/services/transactions"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log zerolog.Logger) {
	transactionRepo := repository.NewTransactionRepository(db)
	batchRepo := repository.NewImportBatchRepository(db)

	txService := transactions.NewService(
		transactionRepo,
		batchRepo,
		cache.NewTransactionCache(transactionRepo, cfg.CacheTTL),
		log,
	)

	txHandler := handler.NewTransactionHandler(txService, cfg.MaxUploadBytes)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	tx := api.Group("/transactions")
	tx.GET("", txHandler.ListTransactions)
	tx.POST("", txHandler.CreateTransactions)
	tx.POST("/upload", txHandler.Upload)
	tx.PUT("/:id", txHandler.UpdateTransaction)
	tx.GET("/:id/changes", txHandler.ListChanges)

	api.GET("/summary", txHandler.GetSummary)
	api.GET("/imports/:batchId", txHandler.GetImport)
}
