package main

import (
	"context"
	"time"

	mongoMigration "atelier/internal/migrations/mongo"
	"atelier/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	if cfg.StoreBackend != config.StoreMongo {
		cfg.Log.Info("Store backend is not mongo, nothing to migrate", "store_backend", cfg.StoreBackend)
		return
	}
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
