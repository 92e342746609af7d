package stats

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// ErrInvalidRange is returned when a year range ends before it starts or
// leaves [MinYear, MaxYear].
var ErrInvalidRange = errors.New("invalid year range")

// Bounds of a year accepted by YearlyStats.
const (
	MinYear = 1
	MaxYear = 9999
)

// ValidateYearRange checks that from <= to and both lie in [MinYear, MaxYear].
func ValidateYearRange(from, to int) error {
	if from < MinYear || to > MaxYear {
		return fmt.Errorf("%w: years must lie in %d..%d", ErrInvalidRange, MinYear, MaxYear)
	}
	if from > to {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}
	return nil
}

// YearStats summarizes one numeric field over one Year Bucket. An empty bucket
// yields the neutral tuple: every value zero.
type YearStats struct {
	Year  int     `json:"year"`
	Count int     `json:"count"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Mean  float64 `json:"mean"`
	Sum   int     `json:"sum"`
}

// Engine computes aggregates over an Index. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	index *domain.Index
}

// NewEngine creates an Engine over index.
func NewEngine(index *domain.Index) *Engine {
	return &Engine{index: index}
}

// Between returns an Engine restricted to records with from <= timestamp <= to.
func (e *Engine) Between(from, to time.Time) *Engine {
	return &Engine{index: e.index.Between(from, to)}
}

// Total returns the number of indexed records.
func (e *Engine) Total() int {
	return e.index.Len()
}

// Excluded returns the records left out of the index.
func (e *Engine) Excluded() []domain.Exclusion {
	return e.index.Excluded()
}

// DefaultYearRange returns the observed year range of the index.
func (e *Engine) DefaultYearRange() (from, to int, ok bool) {
	return e.index.YearRange()
}

// YearlyStats returns one YearStats per year in [from, to], ascending,
// including years without records. The range must pass ValidateYearRange.
func (e *Engine) YearlyStats(field Field, from, to int) ([]YearStats, error) {
	value, err := lookupField(field)
	if err != nil {
		return nil, err
	}
	if err := ValidateYearRange(from, to); err != nil {
		return nil, err
	}

	n := to - from + 1
	out := make([]YearStats, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, bucketStats(e.index.Bucket(from+i), value))
	}
	return out, nil
}

// bucketStats computes count, min, max, mean and sum over a bucket.
func bucketStats(b domain.Bucket, value fieldFunc) YearStats {
	s := YearStats{Year: b.Year, Count: b.Len()}
	if s.Count == 0 {
		return s
	}

	s.Min = value(b.At(0))
	s.Max = s.Min
	for i := 0; i < b.Len(); i++ {
		v := value(b.At(i))
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		s.Sum += v
	}
	s.Mean = float64(s.Sum) / float64(s.Count)
	return s
}
