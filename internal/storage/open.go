package storage

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"go.uber.org/zap"
)

// Open returns the history store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (HistoryStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		store, err := NewSQLiteHistoryStore(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("History store opened", zap.String("driver", config.DriverSQLite), zap.String("path", cfg.SQLite.Path))
		return store, nil

	case config.DriverPostgres:
		store, err := NewPostgresHistoryStore(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		logger.Info("History store opened",
			zap.String("driver", config.DriverPostgres),
			zap.String("host", cfg.Postgres.Host),
			zap.String("database", cfg.Postgres.Database))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
