package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lealre/community-backend/internal/api"
	"github.com/lealre/community-backend/internal/changefeed"
	"github.com/lealre/community-backend/internal/config"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
	"github.com/lealre/community-backend/internal/presence"
	"github.com/lealre/community-backend/internal/realtime"
	"github.com/lealre/community-backend/internal/server"
	"github.com/lealre/community-backend/internal/services/ratings"
	"github.com/lealre/community-backend/internal/supervisor"
)

func main() {
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

	db := mongodb.NewDB(dbClient, cfg.Mongo.Database)
	if cfg.Mongo.EnsureIndexes {
		if err := mongodb.CreateAllIndexes(ctx, dbClient.Database(cfg.Mongo.Database), false); err != nil {
			logger.Fatal().Err(err).Msg("failed to create indexes")
		}
	}

	registry, closeRegistry, err := presence.New(ctx, cfg.Presence)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start presence registry")
	}
	defer closeRegistry()

	hub := realtime.NewHub(registry, realtime.Options{
		SendBuffer:     cfg.Realtime.SendBuffer,
		EventTimeout:   cfg.Realtime.EventTimeout,
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
	})

	aggregator := ratings.NewAggregator(db, ratings.Options{
		Workers:         cfg.Ratings.ReconcileWorkers,
		HandleTimeout:   cfg.Ratings.HandleTimeout,
		BreakerFailures: cfg.Ratings.BreakerFailures,
		BreakerTimeout:  cfg.Ratings.BreakerTimeout,
	})
	listener := changefeed.NewListener(changefeed.NewMongoSource(db), aggregator, cfg.Ratings.ConsumerName)

	httpServer := server.NewServer(api.NewAPI(db, hub, registry), cfg.Server, cfg.Auth.TokenSecret)

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddDataService(listener)
	tree.AddMessagingService(supervisor.NewRunnerService(hub))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("presence", cfg.Presence.Backend).
		Msg("server is running")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("supervisor stopped")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logger.Warn().Int("services", len(report)).Msg("services did not stop in time")
	}
	logger.Info().Msg("server stopped")
}
