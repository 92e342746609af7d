// Command importdb copies the accident workbook into the SQLite record
// database, replacing whatever the accidents table held before.
//
// Usage:
//
//	go run ./cmd/importdb \
//	  -xlsx accident.xlsx \
//	  -sheet "" \
//	  -db data/accidents.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/adapter/sqlite"
	"github.com/couchcryptid/accident-dashboard/internal/adapter/xlsx"
	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	xlsxPath := flag.String("xlsx", cfg.DataPath, "workbook to import")
	sheet := flag.String("sheet", cfg.XLSXSheet, "sheet name (default: first sheet)")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database to write")
	flag.Parse()

	if *xlsxPath == "" || *dbPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -xlsx, -db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	records, err := xlsx.NewLoader(*xlsxPath, *sheet, logger).Load(ctx)
	if err != nil {
		return err
	}

	repo, err := sqlite.NewRepository(*dbPath, logger)
	if err != nil {
		return err
	}
	defer repo.Close() //nolint:errcheck // best-effort on exit

	if err := repo.ReplaceAll(ctx, records); err != nil {
		return err
	}

	// Resolve timestamps the way the dashboard will, so the operator sees how
	// many rows it drops.
	parser := domain.NewTimestampParser(cfg.TimestampLayouts, cfg.Location)
	idx := domain.NewIndex(domain.NewStore(records), parser)
	fmt.Printf("imported %d records from %s into %s\n", len(records), *xlsxPath, *dbPath)
	fmt.Printf("  indexed:  %d\n", idx.Len())
	fmt.Printf("  excluded: %d (unreadable incident_datetime)\n", len(idx.Excluded()))
	if from, to, ok := idx.YearRange(); ok {
		fmt.Printf("  years:    %d-%d\n", from, to)
	}
	return nil
}
