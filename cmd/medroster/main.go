package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lalith-99/medroster/internal/audit"
	"github.com/lalith-99/medroster/internal/config"
	"github.com/lalith-99/medroster/internal/db"
	"github.com/lalith-99/medroster/internal/observ"
	"github.com/lalith-99/medroster/internal/repository/postgres"
	"github.com/lalith-99/medroster/internal/scheduling"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medroster",
		Short: "Multi-tenant clinical scheduling service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every database-backed command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *db.DB
	stores *postgres.Stores
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     database,
		stores: postgres.NewStores(database.Pool()),
	}, nil
}

func (a *app) close() {
	a.db.Close()
	_ = a.logger.Sync()
}

// service builds the scheduling service over Postgres. notifier may be nil
// for one-shot commands that have no observers.
func (a *app) service(notifier scheduling.Notifier) *scheduling.Service {
	return scheduling.New(scheduling.Deps{
		Tx:           db.NewTxManager(a.db.Pool()),
		Doctors:      a.stores.Doctors,
		Patients:     a.stores.Patients,
		Links:        a.stores.Links,
		Rosters:      a.stores.Rosters,
		Appointments: a.stores.Appointments,
		Audit:        audit.NewRecorder(a.stores.Audit, a.logger),
		Notifier:     notifier,
		Logger:       a.logger,
	}, scheduling.Options{
		Granularity: a.cfg.SlotGranularity,
		HorizonDays: a.cfg.HorizonDays,
		Location:    a.cfg.Timezone,
	})
}
