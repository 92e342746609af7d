// Package source picks the record source named by the configuration.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/accident-dashboard/internal/adapter/sqlite"
	"github.com/couchcryptid/accident-dashboard/internal/adapter/xlsx"
	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// Loader returns the full record set of a source.
type Loader interface {
	Load(ctx context.Context) ([]domain.Record, error)
}

// Name describes the configured source for logs and reject reports.
func Name(cfg *config.Config) string {
	if cfg.DataSource == "sqlite" {
		return "sqlite:" + cfg.SQLitePath
	}
	return "xlsx:" + cfg.DataPath
}

// Load reads every record from the configured source and wraps them in a Store.
func Load(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*domain.Store, error) {
	var loader Loader
	switch cfg.DataSource {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open record database: %w", err)
		}
		defer repo.Close() //nolint:errcheck // read-only
		loader = repo
	case "xlsx":
		loader = xlsx.NewLoader(cfg.DataPath, cfg.XLSXSheet, logger)
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}

	records, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records from %s: %w", Name(cfg), err)
	}
	return domain.NewStore(records), nil
}
