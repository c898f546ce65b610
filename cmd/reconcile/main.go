// Command reconcile recomputes the rating of every community from its review
// ledger. It is the manual counterpart of the reconciliation the change feed
// listener runs when its checkpoint is lost.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lealre/community-backend/internal/config"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/services/ratings"
)

func main() {
	workers := flag.Int("workers", 0, "number of concurrent workers (defaults to RATINGS_RECONCILE_WORKERS)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Logger().Fatal().Err(err).Msg("failed to load configuration")
	}
	logx.Init(cfg.Logging)
	logger := logx.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer dbClient.Disconnect(context.Background())

	opts := ratings.Options{
		Workers:         cfg.Ratings.ReconcileWorkers,
		HandleTimeout:   cfg.Ratings.HandleTimeout,
		BreakerFailures: cfg.Ratings.BreakerFailures,
		BreakerTimeout:  cfg.Ratings.BreakerTimeout,
	}
	if *workers > 0 {
		opts.Workers = *workers
	}

	logger.Info().Int("workers", opts.Workers).Msg("starting rating reconciliation")

	aggregator := ratings.NewAggregator(mongodb.NewDB(dbClient, cfg.Mongo.Database), opts)
	result, err := aggregator.ReconcileAll(ctx)

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Int("total", result.Total).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("missing", result.Missing).
		Int("failed", result.Failed).
		Msg("reconciliation finished")

	if err != nil {
		os.Exit(1)
	}
}
