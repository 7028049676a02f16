// migrate creates the reports table or collection indexes for the configured store and exits.
package main

import (
	"context"
	"time"

	"infrabeacon/internal/config"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/migrate"
	"infrabeacon/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().WithError(err).Fatal("config_error")
	}
	l := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Production: cfg.Production()})
	switch cfg.StoreBackend {
	case "postgres":
		db, err := utils.OpenPostgres(cfg)
		if err != nil {
			l.WithError(err).Fatal("db_open_error")
		}
		defer db.Close()
		if err := migrate.EnsureSchema(db); err != nil {
			l.WithError(err).Fatal("schema_error")
		}
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		client, db, err := utils.OpenMongo(ctx, cfg)
		if err != nil {
			l.WithError(err).Fatal("mongo_open_error")
		}
		defer client.Disconnect(context.Background())
		if err := migrate.EnsureMongoIndexes(ctx, db); err != nil {
			l.WithError(err).Fatal("mongo_index_error")
		}
	default:
		l.WithField("store", cfg.StoreBackend).Info("migrate_nothing_to_do")
		return
	}
	l.WithField("store", cfg.StoreBackend).Info("migrate_done")
}
