// Package main is the entry point for the Quantfolio portfolio valuation and
// performance engine. It wires the transaction ledger, position ledger,
// valuation materializer, and returns calculator around four SQLite databases
// and serves the HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quantfolio/quantfolio/internal/clientdata"
	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/database"
	"github.com/quantfolio/quantfolio/internal/modules/marketdata"
	marketdatahandlers "github.com/quantfolio/quantfolio/internal/modules/marketdata/handlers"
	"github.com/quantfolio/quantfolio/internal/modules/positions"
	positionshandlers "github.com/quantfolio/quantfolio/internal/modules/positions/handlers"
	"github.com/quantfolio/quantfolio/internal/modules/reference"
	referencehandlers "github.com/quantfolio/quantfolio/internal/modules/reference/handlers"
	"github.com/quantfolio/quantfolio/internal/modules/returns"
	returnshandlers "github.com/quantfolio/quantfolio/internal/modules/returns/handlers"
	"github.com/quantfolio/quantfolio/internal/modules/transactions"
	transactionshandlers "github.com/quantfolio/quantfolio/internal/modules/transactions/handlers"
	"github.com/quantfolio/quantfolio/internal/modules/valuation"
	valuationhandlers "github.com/quantfolio/quantfolio/internal/modules/valuation/handlers"
	"github.com/quantfolio/quantfolio/internal/reliability"
	"github.com/quantfolio/quantfolio/internal/scheduler"
	"github.com/quantfolio/quantfolio/internal/server"
	"github.com/quantfolio/quantfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.FromConfig(cfg)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Quantfolio starting")

	// Databases. The ledger gets the paranoid profile: it is the source of
	// truth everything else is derived from.
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger.db")
	}
	defer ledgerDB.Close()

	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio.db")
	}
	defer portfolioDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history.db")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache.db")
	}
	defer cacheDB.Close()

	databases := map[string]*database.DB{
		"ledger":    ledgerDB,
		"portfolio": portfolioDB,
		"history":   historyDB,
		"cache":     cacheDB,
	}
	for name, db := range databases {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", name).Msg("Migration failed")
		}
	}

	// Repositories
	referenceRepo := reference.NewRepository(portfolioDB.Conn(), log)
	txRepo := transactions.NewRepository(ledgerDB.Conn(), log)
	positionsRepo := positions.NewRepository(portfolioDB.Conn(), log)
	priceRepo := marketdata.NewPriceRepository(historyDB.Conn(), log)
	fxRepo := marketdata.NewFxRepository(historyDB.Conn(), log)
	snapshotRepo := valuation.NewSnapshotRepository(portfolioDB.Conn(), log)
	figureCache := clientdata.NewCache(cacheDB.Conn(), log)

	// Services
	marketLookup := marketdata.NewLookup(priceRepo, fxRepo)
	positionLedger := positions.NewLedger(positionsRepo, txRepo, log)
	returnsService := returns.NewService(snapshotRepo, txRepo, figureCache, log)
	materializer := valuation.NewMaterializer(txRepo, marketLookup, referenceRepo, log)
	rematerializer := valuation.NewRematerializer(
		materializer, snapshotRepo, referenceRepo, txRepo, returnsService, log)
	txService := transactions.NewService(
		txRepo, positionLedger, positionsRepo, referenceRepo, rematerializer, log)

	// Background jobs
	backupService, err := reliability.NewBackupService(databases, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backup service")
	}
	if cfg.RestoreOnStart {
		stagedDir, err := backupService.RestoreLatest()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to stage restore")
		}
		log.Info().Str("dir", stagedDir).
			Msg("Latest backup staged; replace the live databases and restart to complete the restore")
	}

	sched := scheduler.New(log)
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		// After midnight UTC so every portfolio gets its carry-forward
		// snapshot for the new day.
		{"0 30 0 * * *", scheduler.NewMaterializeJob(referenceRepo, rematerializer, log)},
		{"0 0 * * * *", scheduler.NewCacheCleanupJob(figureCache, log)},
		{"0 15 3 * * *", scheduler.NewCheckpointJob(
			[]scheduler.Checkpointer{ledgerDB, portfolioDB, historyDB}, log)},
	}
	if cfg.BackupEnabled() {
		jobs = append(jobs, struct {
			schedule string
			job      scheduler.Job
		}{"0 0 4 * * *", scheduler.NewBackupJob(backupService, log)})
	}
	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:         log,
		Config:      cfg,
		LedgerDB:    ledgerDB,
		PortfolioDB: portfolioDB,
		HistoryDB:   historyDB,
		CacheDB:     cacheDB,
		Scheduler:   sched,

		ReferenceHandlers:    referencehandlers.NewHandler(referenceRepo, log),
		TransactionsHandlers: transactionshandlers.NewHandler(txService, log),
		PositionsHandlers:    positionshandlers.NewHandler(positionsRepo, positionLedger, referenceRepo, log),
		MarketdataHandlers:   marketdatahandlers.NewHandler(priceRepo, fxRepo, marketLookup, log),
		ValuationHandlers:    valuationhandlers.NewHandler(snapshotRepo, rematerializer, log),
		ReturnsHandlers:      returnshandlers.NewHandler(returnsService, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Quantfolio stopped")
}
