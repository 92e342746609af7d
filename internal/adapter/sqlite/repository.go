// Package sqlite stores raw accident records in a SQLite database so the
// dashboard can start without re-reading the workbook.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/accident-dashboard/internal/domain"

	_ "modernc.org/sqlite"
)

const selectRecords = `
SELECT source_row, incident_datetime, vehicle_type, province_th, province_en, route,
       weather_condition, accident_type, presumed_cause,
       number_of_injuries, number_of_fatalities, number_of_vehicles_involved,
       latitude, longitude
FROM accidents
ORDER BY id`

const insertRecord = `
INSERT INTO accidents (
    source_row, incident_datetime, vehicle_type, province_th, province_en, route,
    weather_condition, accident_type, presumed_cause,
    number_of_injuries, number_of_fatalities, number_of_vehicles_involved,
    latitude, longitude
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Repository reads and replaces the accidents table.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRepository opens (creating if needed) the database at dbPath and applies
// pending migrations.
func NewRepository(dbPath string, logger *slog.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; keeps ReplaceAll's transaction on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, err
	}

	return &Repository{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Load returns every stored record in insertion order.
func (r *Repository) Load(ctx context.Context) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, selectRecords)
	if err != nil {
		return nil, fmt.Errorf("query accidents: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var records []domain.Record
	for rows.Next() {
		var rec domain.Record
		if err := rows.Scan(
			&rec.Row, &rec.IncidentDatetime, &rec.VehicleType, &rec.Province, &rec.ProvinceEN, &rec.Route,
			&rec.WeatherCondition, &rec.AccidentType, &rec.PresumedCause,
			&rec.Injuries, &rec.Fatalities, &rec.VehiclesInvolved,
			&rec.Latitude, &rec.Longitude,
		); err != nil {
			return nil, fmt.Errorf("scan accident: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accidents: %w", err)
	}

	r.logger.InfoContext(ctx, "records loaded from sqlite", "records", len(records))
	return records, nil
}

// ReplaceAll swaps the table contents for records in a single transaction.
func (r *Repository) ReplaceAll(ctx context.Context, records []domain.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM accidents"); err != nil {
		return fmt.Errorf("clear accidents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with tx

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.Row, rec.IncidentDatetime, rec.VehicleType, rec.Province, rec.ProvinceEN, rec.Route,
			rec.WeatherCondition, rec.AccidentType, rec.PresumedCause,
			rec.Injuries, rec.Fatalities, rec.VehiclesInvolved,
			rec.Latitude, rec.Longitude,
		); err != nil {
			return fmt.Errorf("insert row %d: %w", rec.Row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "accidents table replaced", "records", len(records))
	return nil
}
