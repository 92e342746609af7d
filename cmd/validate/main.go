// Command validate checks an accident workbook before it is served: every
// incident_datetime resolves, categorical columns are filled in, and, when a
// database is given, the imported accidents table matches the workbook.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -xlsx accident.xlsx \
//	  -db data/accidents.db
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/adapter/sqlite"
	"github.com/couchcryptid/accident-dashboard/internal/adapter/xlsx"
	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/joho/godotenv"
)

// maxListed caps the per-phase error lines printed.
const maxListed = 50

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	_ = godotenv.Load()

	xlsxPath := flag.String("xlsx", "accident.xlsx", "workbook to validate")
	sheet := flag.String("sheet", "", "sheet name (default: first sheet)")
	dbPath := flag.String("db", "", "optional SQLite database to compare against the workbook")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, *xlsxPath, *sheet, *dbPath))
}

func run(cfg *config.Config, xlsxPath, sheet, dbPath string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Println("=== Accident Data Validation ===")
	fmt.Println()

	records, err := xlsx.NewLoader(xlsxPath, sheet, logger).Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load workbook: %v\n", err)
		return 1
	}

	parser := domain.NewTimestampParser(cfg.TimestampLayouts, cfg.Location)
	phases := []*phase{
		validateTimestamps(records, parser),
		validateCategories(records),
	}
	if dbPath != "" {
		phases = append(phases, validateDatabase(ctx, records, dbPath, logger))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	idx := domain.NewIndex(domain.NewStore(records), parser)
	fmt.Printf("Records: %d in workbook, %d indexed, %d excluded\n", len(records), idx.Len(), len(idx.Excluded()))
	if from, to, ok := idx.YearRange(); ok {
		fmt.Printf("Years:   %d-%d\n", from, to)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxListed {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxListed)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Timestamps ──

func validateTimestamps(records []domain.Record, parser *domain.TimestampParser) *phase {
	p := &phase{name: "Phase 1: Timestamps (incident_datetime)"}
	for _, rec := range records {
		if _, err := parser.Parse(rec.IncidentDatetime); err != nil {
			p.errorf("row %d: %v", rec.Row, err)
		}
	}
	return p
}

// ── Phase 2: Categories ──

func validateCategories(records []domain.Record) *phase {
	p := &phase{name: "Phase 2: Categories (non-empty)"}
	for _, rec := range records {
		cols := []struct{ name, value string }{
			{xlsx.ColVehicleType, rec.VehicleType},
			{xlsx.ColProvince, rec.Province},
			{xlsx.ColWeather, rec.WeatherCondition},
			{xlsx.ColAccidentType, rec.AccidentType},
			{xlsx.ColPresumedCause, rec.PresumedCause},
		}
		for _, c := range cols {
			if c.value == "" {
				p.errorf("row %d: %s is empty", rec.Row, c.name)
			}
		}
	}
	return p
}

// ── Phase 3: Database Parity ──

func validateDatabase(ctx context.Context, records []domain.Record, dbPath string, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 3: Database Parity (sqlite vs xlsx)"}

	repo, err := sqlite.NewRepository(dbPath, logger)
	if err != nil {
		p.errorf("open database: %v", err)
		return p
	}
	defer repo.Close() //nolint:errcheck // read-only

	stored, err := repo.Load(ctx)
	if err != nil {
		p.errorf("load database: %v", err)
		return p
	}

	if len(stored) != len(records) {
		p.errorf("record count: workbook has %d, database has %d", len(records), len(stored))
	}
	for i := range min(len(stored), len(records)) {
		if diff := cmp.Diff(records[i], stored[i]); diff != "" {
			p.errorf("row %d differs (-xlsx +sqlite):\n%s", records[i].Row, diff)
		}
	}
	return p
}
