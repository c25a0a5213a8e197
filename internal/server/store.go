package server

import (
	"context"
	"fmt"
	"log/slog"

	"roamfree/internal/config"
	"roamfree/internal/database"
	"roamfree/internal/postgres"
	"roamfree/internal/redisstore"
	"roamfree/internal/sqlite"
)

// openStore opens the key/value backend selected by cfg.Driver
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (database.Store, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		path := cfg.Path
		if path == "" {
			p, err := database.GetDataFilePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return database.NewJSONStore(path, logger)
	case config.DriverSQLite:
		path := cfg.Path
		if path == "" {
			p, err := database.GetDefaultDBPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return sqlite.New(path, logger)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	case config.DriverRedis:
		return redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.DriverMemory:
		return database.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
