// Package xlsx loads accident records from an Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when the header row lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Column names as they appear in the header row.
const (
	ColIncidentDatetime = "incident_datetime"
	ColVehicleType      = "vehicle_type"
	ColProvince         = "province_th"
	ColProvinceEN       = "province_en"
	ColRoute            = "route"
	ColWeather          = "weather_condition"
	ColAccidentType     = "accident_type"
	ColPresumedCause    = "presumed_cause"
	ColInjuries         = "number_of_injuries"
	ColFatalities       = "number_of_fatalities"
	ColVehicles         = "number_of_vehicles_involved"
	ColLatitude         = "latitude"
	ColLongitude        = "longitude"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColIncidentDatetime,
	ColVehicleType,
	ColProvince,
	ColWeather,
	ColAccidentType,
	ColPresumedCause,
	ColInjuries,
	ColFatalities,
	ColVehicles,
}

// serialLayout is how Excel serial dates are handed to the timestamp parser.
const serialLayout = "2006-01-02 15:04:05"

// Loader reads one sheet of a workbook into domain records.
type Loader struct {
	path   string
	sheet  string
	logger *slog.Logger
}

// NewLoader creates a Loader for the workbook at path. An empty sheet selects
// the first sheet.
func NewLoader(path, sheet string, logger *slog.Logger) *Loader {
	return &Loader{path: path, sheet: sheet, logger: logger}
}

// Load opens the workbook and returns its rows as records, in sheet order.
// Timestamps are passed through untouched except for Excel serial numbers,
// which are rendered as "2006-01-02 15:04:05" wall-clock text.
func (l *Loader) Load(ctx context.Context) ([]domain.Record, error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", l.path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	sheet := l.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", l.path)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in %s", sheet, l.path)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w: empty header row", sheet, ErrMissingColumn)
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blank(row) {
			continue
		}
		rec, err := cols.record(row, i+2)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		records = append(records, rec)
	}

	l.logger.Info("workbook loaded",
		"path", l.path,
		"sheet", sheet,
		"records", len(records),
	)
	return records, nil
}

// header maps column names to their zero-based position.
type header map[string]int

func mapHeader(row []string) (header, error) {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return h, nil
}

func (h header) cell(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (h header) record(row []string, rowNum int) (domain.Record, error) {
	rec := domain.Record{
		Row:              rowNum,
		IncidentDatetime: timestampCell(h.cell(row, ColIncidentDatetime)),
		VehicleType:      h.cell(row, ColVehicleType),
		Province:         h.cell(row, ColProvince),
		ProvinceEN:       h.cell(row, ColProvinceEN),
		Route:            h.cell(row, ColRoute),
		WeatherCondition: h.cell(row, ColWeather),
		AccidentType:     h.cell(row, ColAccidentType),
		PresumedCause:    h.cell(row, ColPresumedCause),
	}

	counts := []struct {
		col string
		dst *int
	}{
		{ColInjuries, &rec.Injuries},
		{ColFatalities, &rec.Fatalities},
		{ColVehicles, &rec.VehiclesInvolved},
	}
	for _, c := range counts {
		n, err := parseCount(h.cell(row, c.col))
		if err != nil {
			return domain.Record{}, fmt.Errorf("row %d column %s: %w", rowNum, c.col, err)
		}
		*c.dst = n
	}

	// Coordinates are informational; unreadable values are left at zero.
	rec.Latitude, _ = strconv.ParseFloat(h.cell(row, ColLatitude), 64)
	rec.Longitude, _ = strconv.ParseFloat(h.cell(row, ColLongitude), 64)

	return rec, nil
}

// timestampCell converts an Excel serial date into wall-clock text. Any other
// value is returned as-is for the timestamp parser to resolve or reject.
func timestampCell(raw string) string {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format(serialLayout)
}

// maxCount is the largest value a count cell may hold.
const maxCount = math.MaxInt32

// parseCount accepts whole numbers, including the "2.0" form spreadsheets
// produce for numeric cells. Empty cells count as zero.
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid count %q: must be a non-negative whole number", s)
	}
	if f > maxCount {
		return 0, fmt.Errorf("invalid count %q: exceeds %d", s, maxCount)
	}
	return int(f), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
