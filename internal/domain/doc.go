// Package domain models the Thailand road-accident dataset (2019–2024) used by
// the dashboard.
//
// # Data Source
//
// Records come from a single spreadsheet, accident.xlsx, exported from the
// Department of Highways open-data portal. One row is one accident. The
// header row names the columns; column order is not significant. The workbook
// can also be imported into a SQLite database (see cmd/importdb) and loaded
// from there.
//
// # Column Conventions
//
// Timestamp ("incident_datetime"):
//
//	Spreadsheet cells store dates as Excel serial numbers (days since
//	1899-12-30, fractional part = time of day). The xlsx loader converts
//	serial values to "2006-01-02 15:04:05". Cells typed as text keep their
//	locale-specific rendering, e.g. "1/5/2019 17:30" (month first). Parsing
//	tries the configured layouts in order; times without an explicit zone are
//	resolved in Asia/Bangkok (UTC+7) unless configured otherwise.
//
// Categorical columns:
//
//	vehicle_type, province_th, weather_condition, accident_type and
//	presumed_cause are free text, mostly Thai. They are trimmed but otherwise
//	kept verbatim; the engine never assumes a fixed set of values.
//
// Count columns:
//
//	number_of_injuries, number_of_fatalities and number_of_vehicles_involved
//	are non-negative integers. Empty cells are zero. Spreadsheet exports
//	sometimes render integers as "2.0", which the loader accepts.
//
// # Derived Fields
//
// The [Index] resolves each record's timestamp once and derives Year and
// MonthYear ("2006-01"). Records whose timestamp cannot be resolved are left
// out of the index and reported as [Exclusion] values wrapping
// [ErrUnparseableTimestamp]; they are never given a zero year.
package domain
