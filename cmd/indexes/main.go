package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"
	"github.com/lealre/community-backend/internal/config"
	"github.com/lealre/community-backend/internal/logx"
	"github.com/lealre/community-backend/internal/mongodb"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate indexes that already exist")
	dropAll := flag.Bool("drop-all", false, "drop every non _id index in the database before creating")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Logger().Fatal().Err(err).Msg("failed to load configuration")
	}
	logx.Init(cfg.Logging)
	logger := logx.Logger()

	ctx := context.Background()
	dbClient, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer dbClient.Disconnect(ctx)

	db := mongodb.NewDB(dbClient, cfg.Mongo.Database)
	database := dbClient.Database(db.GetDatabaseName())
	if *dropAll {
		if err := mongodb.DeleteAllIndexes(ctx, database); err != nil {
			logger.Fatal().Err(err).Msg("failed to drop indexes")
		}
	}

	if err := mongodb.CreateAllIndexes(ctx, database, *reset); err != nil {
		logger.Fatal().Err(err).Msg("failed to create indexes")
	}

	logger.Info().Str("database", cfg.Mongo.Database).Msg("all indexes created successfully")
}
