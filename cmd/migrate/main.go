package main

import (
	"context"
	"menu-service/config"
	"menu-service/internal/migrate"
	"menu-service/internal/repository"
	"menu-service/internal/seed"
	"menu-service/pkg/database"
	"menu-service/pkg/logger"
	"os"

	"go.uber.org/zap"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	dbCfg := config.LoadDB(log)

	db := database.ConnectDBForMigration(&dbCfg.Config, log)
	defer database.CloseDB(db, log)

	ctx := context.Background()

	opts := migrate.DefaultMigrateOptions()

	if err := migrate.MigrateMenuDB(ctx, db, log, opts); err != nil {
		log.Fatal("Ошибка при выполнении миграции", zap.Error(err))
	}

	if path := os.Getenv("SEED_FILE"); path != "" {
		f, err := seed.LoadFile(path)
		if err != nil {
			log.Fatal("Не удалось прочитать файл сида", zap.String("path", path), zap.Error(err))
		}
		if _, err := seed.Apply(ctx, repository.New(db), f, log); err != nil {
			log.Fatal("Ошибка при применении сида", zap.Error(err))
		}
	}

	log.Info("Миграция успешно завершена")
}
