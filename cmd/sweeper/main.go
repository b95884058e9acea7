package main

import (
	"context"
	"menu-service/config"
	"menu-service/internal/repository"
	"menu-service/internal/sweeper"
	"menu-service/pkg/database"
	"menu-service/pkg/logger"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// One-shot orphan sweep, for cron.
func main() {
	_ = godotenv.Load()
	if err := logger.Init(os.Getenv("ENV") == "development"); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L()

	dbCfg := config.LoadDB(log)
	db := database.ConnectDB(&dbCfg.Config, log)
	defer database.CloseDB(db, log)

	grace, err := time.ParseDuration(os.Getenv("ORPHAN_GRACE"))
	if err != nil {
		grace = sweeper.DefaultGrace
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := sweeper.New(repository.New(db).Orders, grace, nil, log).DeleteOrphans(ctx)
	if err != nil {
		log.Fatal("orphan sweep failed", zap.Error(err))
	}
	log.Info("orphan sweep finished", zap.Int("deleted", n))
}
