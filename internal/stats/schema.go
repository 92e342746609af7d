package stats

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// ErrSchemaMismatch is matched by every *SchemaError.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Field names a numeric record column that can be aggregated.
type Field string

const (
	FieldInjuries         Field = "number_of_injuries"
	FieldFatalities       Field = "number_of_fatalities"
	FieldVehiclesInvolved Field = "number_of_vehicles_involved"
)

// Key names a categorical or temporal column that records can be grouped by.
type Key string

const (
	KeyYear          Key = "year"
	KeyMonthYear     Key = "month_year"
	KeyVehicleType   Key = "vehicle_type"
	KeyProvince      Key = "province"
	KeyProvinceTH    Key = "province_th" // column name, same values as KeyProvince
	KeyWeather       Key = "weather_condition"
	KeyAccidentType  Key = "accident_type"
	KeyPresumedCause Key = "presumed_cause"
)

// SchemaError reports a field, key or aggregation mode the record schema does
// not define.
type SchemaError struct {
	Kind string // "field", "key" or "aggregation"
	Name string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: unknown %s %q", e.Kind, e.Name)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

type fieldFunc func(domain.IndexedRecord) int

type keyFunc func(domain.IndexedRecord) string

var fields = map[Field]fieldFunc{
	FieldInjuries:         func(r domain.IndexedRecord) int { return r.Injuries },
	FieldFatalities:       func(r domain.IndexedRecord) int { return r.Fatalities },
	FieldVehiclesInvolved: func(r domain.IndexedRecord) int { return r.VehiclesInvolved },
}

var keys = map[Key]keyFunc{
	KeyYear:          func(r domain.IndexedRecord) string { return strconv.Itoa(r.Year) },
	KeyMonthYear:     func(r domain.IndexedRecord) string { return r.MonthYear },
	KeyVehicleType:   func(r domain.IndexedRecord) string { return r.VehicleType },
	KeyProvince:      func(r domain.IndexedRecord) string { return r.Province },
	KeyProvinceTH:    func(r domain.IndexedRecord) string { return r.Province },
	KeyWeather:       func(r domain.IndexedRecord) string { return r.WeatherCondition },
	KeyAccidentType:  func(r domain.IndexedRecord) string { return r.AccidentType },
	KeyPresumedCause: func(r domain.IndexedRecord) string { return r.PresumedCause },
}

func lookupField(f Field) (fieldFunc, error) {
	fn, ok := fields[f]
	if !ok {
		return nil, &SchemaError{Kind: "field", Name: string(f)}
	}
	return fn, nil
}

func lookupKey(k Key) (keyFunc, error) {
	fn, ok := keys[k]
	if !ok {
		return nil, &SchemaError{Kind: "key", Name: string(k)}
	}
	return fn, nil
}

// Fields lists the aggregatable numeric fields.
func Fields() []Field {
	return []Field{FieldInjuries, FieldFatalities, FieldVehiclesInvolved}
}

// Keys lists the grouping keys.
func Keys() []Key {
	return []Key{KeyYear, KeyMonthYear, KeyVehicleType, KeyProvince, KeyProvinceTH, KeyWeather, KeyAccidentType, KeyPresumedCause}
}
