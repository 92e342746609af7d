package domain

import (
	"errors"
	"iter"
	"slices"
	"time"
)

// ErrUnparseableTimestamp marks a record whose incident_datetime could not be
// resolved to a date-time.
var ErrUnparseableTimestamp = errors.New("unparseable timestamp")

// Record is one accident event as delivered by a loader. IncidentDatetime is
// kept exactly as loaded; it is resolved by the Index.
type Record struct {
	Row              int     `json:"row"` // source row number, 1-based, header is row 1
	IncidentDatetime string  `json:"incident_datetime"`
	VehicleType      string  `json:"vehicle_type"`
	Province         string  `json:"province_th"`
	ProvinceEN       string  `json:"province_en,omitempty"`
	Route            string  `json:"route,omitempty"`
	WeatherCondition string  `json:"weather_condition"`
	AccidentType     string  `json:"accident_type"`
	PresumedCause    string  `json:"presumed_cause"`
	Injuries         int     `json:"number_of_injuries"`
	Fatalities       int     `json:"number_of_fatalities"`
	VehiclesInvolved int     `json:"number_of_vehicles_involved"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
}

// IndexedRecord is a Record with its resolved timestamp and derived temporal keys.
type IndexedRecord struct {
	Record
	Timestamp time.Time `json:"timestamp"`
	Year      int       `json:"year"`
	MonthYear string    `json:"month_year"`
}

// Exclusion reports a record left out of the index.
type Exclusion struct {
	Row int    `json:"row"`
	Raw string `json:"raw"`
	Err error  `json:"-"`
}

func (e Exclusion) Error() string {
	return e.Err.Error()
}

func (e Exclusion) Unwrap() error {
	return e.Err
}

// Store is the immutable, ordered record collection loaded at start-up.
type Store struct {
	records []Record
}

// NewStore copies records into a new Store. Later changes to the input slice
// are not visible through the Store.
func NewStore(records []Record) *Store {
	return &Store{records: slices.Clone(records)}
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// At returns the i-th record by value.
func (s *Store) At(i int) Record {
	return s.records[i]
}

// All iterates over the records in load order.
func (s *Store) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i, r := range s.records {
			if !yield(i, r) {
				return
			}
		}
	}
}
