package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"finance-dashboard-backend/internal/cache"
	"finance-dashboard-backend/internal/config"
	"finance-dashboard-backend/internal/logger"
	"finance-dashboard-backend/internal/middleware"
	"finance-dashboard-backend/internal/repository"
	"finance-dashboard-backend/internal/routes"
	"finance-dashboard-backend/internal/services/transactions"
)

type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *gorm.DB
}

func main() {
	a := &app{}
	v := viper.New()

	root := &cobra.Command{
		Use:           "server",
		Short:         "Personal finance dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("db-driver", "", "database driver (postgres or sqlite)")
	root.Flags().String("port", "", "HTTP port")
	_ = v.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("DB_DRIVER", root.PersistentFlags().Lookup("db-driver"))
	_ = v.BindPFlag("PORT", root.Flags().Lookup("port"))

	root.AddCommand(a.importCmd(), a.summaryCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) init(v *viper.Viper) error {
	// Load .env
	_ = godotenv.Load()

	a.cfg = config.Load(v)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.log = logger.New(a.cfg.LogLevel)

	db, err := config.InitDB(a.cfg)
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	a.db = db
	return nil
}

func (a *app) serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(a.log), middleware.RequestLogger(a.log))
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, a.db, a.cfg, a.log)

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Str("db", a.cfg.DBDriver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) service() *transactions.Service {
	txRepo := repository.NewTransactionRepository(a.db)
	return transactions.NewService(
		txRepo,
		repository.NewImportBatchRepository(a.db),
		cache.NewTransactionCache(txRepo, a.cfg.CacheTTL),
		a.log,
	)
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a bank CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := a.service().Import(cmd.Context(), f.Name(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
}

func (a *app) summaryCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the monthly summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now().UTC()
			if month != "" {
				var err error
				if ref, err = time.Parse("2006-01", month); err != nil {
					return fmt.Errorf("invalid month %q, expected YYYY-MM", month)
				}
			}
			s, err := a.service().MonthlySummary(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
