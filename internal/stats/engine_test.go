package stats_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/stats"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func at(year int, month time.Month) string {
	return time.Date(year, month, 10, 12, 0, 0, 0, time.UTC).Format("2006-01-02 15:04:05")
}

func newEngine(t *testing.T, records ...domain.Record) *stats.Engine {
	t.Helper()
	for i := range records {
		records[i].Row = i + 2
	}
	idx := domain.NewIndex(domain.NewStore(records), domain.NewTimestampParser(nil, time.UTC))
	return stats.NewEngine(idx)
}

// fixtureEngine has records spread over 2019–2022 with one bad timestamp.
func fixtureEngine(t *testing.T) *stats.Engine {
	t.Helper()
	return newEngine(t,
		domain.Record{IncidentDatetime: at(2019, 1), VehicleType: "car", Province: "Bangkok", WeatherCondition: "clear", AccidentType: "rear-end", PresumedCause: "speeding", Injuries: 1, Fatalities: 0, VehiclesInvolved: 2},
		domain.Record{IncidentDatetime: at(2019, 1), VehicleType: "motorcycle", Province: "Chiang Mai", WeatherCondition: "rain", AccidentType: "rollover", PresumedCause: "drunk", Injuries: 3, Fatalities: 1, VehiclesInvolved: 1},
		domain.Record{IncidentDatetime: at(2019, 6), VehicleType: "car", Province: "Bangkok", WeatherCondition: "clear", AccidentType: "rear-end", PresumedCause: "speeding", Injuries: 0, Fatalities: 0, VehiclesInvolved: 3},
		domain.Record{IncidentDatetime: at(2020, 2), VehicleType: "bus", Province: "Phuket", WeatherCondition: "fog", AccidentType: "head-on", PresumedCause: "sleepy", Injuries: 12, Fatalities: 2, VehiclesInvolved: 2},
		domain.Record{IncidentDatetime: "31/31/2020", VehicleType: "car", Province: "Phuket", Injuries: 50},
		domain.Record{IncidentDatetime: at(2022, 11), VehicleType: "car", Province: "Bangkok", WeatherCondition: "rain", AccidentType: "rear-end", PresumedCause: "speeding", Injuries: 5, Fatalities: 0, VehiclesInvolved: 4},
	)
}

// --- yearly statistics ---

func TestYearlyStats_WorkedExample(t *testing.T) {
	eng := newEngine(t,
		domain.Record{IncidentDatetime: at(2020, 1), Injuries: 2},
		domain.Record{IncidentDatetime: at(2020, 5), Injuries: 4},
		domain.Record{IncidentDatetime: at(2021, 3), Injuries: 0},
	)

	got, err := eng.YearlyStats(stats.FieldInjuries, 2020, 2022)
	require.NoError(t, err)

	want := []stats.YearStats{
		{Year: 2020, Count: 2, Min: 2, Max: 4, Mean: 3.0, Sum: 6},
		{Year: 2021, Count: 1, Min: 0, Max: 0, Mean: 0, Sum: 0},
		{Year: 2022},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("yearly stats mismatch (-want +got):\n%s", diff)
	}
}

func TestYearlyStats_NeutralOutsideObservedRange(t *testing.T) {
	eng := fixtureEngine(t)

	got, err := eng.YearlyStats(stats.FieldInjuries, 2010, 2030)
	require.NoError(t, err)
	require.Len(t, got, 21)

	for _, s := range got {
		if s.Year >= 2019 && s.Year <= 2022 {
			continue
		}
		assert.Equal(t, stats.YearStats{Year: s.Year}, s, "year %d", s.Year)
	}
}

func TestYearlyStats_Invariants(t *testing.T) {
	eng := fixtureEngine(t)
	from, to, ok := eng.DefaultYearRange()
	require.True(t, ok)

	for _, field := range stats.Fields() {
		t.Run(string(field), func(t *testing.T) {
			got, err := eng.YearlyStats(field, from, to)
			require.NoError(t, err)

			for _, s := range got {
				if s.Count == 0 {
					continue
				}
				assert.LessOrEqual(t, float64(s.Min), s.Mean)
				assert.LessOrEqual(t, s.Mean, float64(s.Max))
				assert.InDelta(t, float64(s.Sum), float64(s.Count)*s.Mean, 1e-9)
			}
		})
	}
}

func TestYearlyStats_SumMatchesBucketTotal(t *testing.T) {
	eng := fixtureEngine(t)

	got, err := eng.YearlyStats(stats.FieldInjuries, 2019, 2022)
	require.NoError(t, err)

	sums := make(map[int]int)
	for _, s := range got {
		sums[s.Year] = s.Sum
	}
	assert.Equal(t, map[int]int{2019: 4, 2020: 12, 2021: 0, 2022: 5}, sums)
}

func TestYearlyStats_ExcludedRecordsDoNotCount(t *testing.T) {
	eng := fixtureEngine(t)

	require.Len(t, eng.Excluded(), 1)
	assert.Equal(t, 5, eng.Total())

	got, err := eng.YearlyStats(stats.FieldInjuries, 2020, 2020)
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 12, got[0].Max)
}

func TestYearlyStats_MeanIsNotRounded(t *testing.T) {
	eng := newEngine(t,
		domain.Record{IncidentDatetime: at(2023, 1), Injuries: 1},
		domain.Record{IncidentDatetime: at(2023, 2), Injuries: 1},
		domain.Record{IncidentDatetime: at(2023, 3), Injuries: 2},
	)

	got, err := eng.YearlyStats(stats.FieldInjuries, 2023, 2023)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, got[0].Mean, 1e-12)
	assert.NotEqual(t, math.Round(got[0].Mean*100)/100, got[0].Mean)
}

func TestYearlyStats_Idempotent(t *testing.T) {
	eng := fixtureEngine(t)

	first, err := eng.YearlyStats(stats.FieldFatalities, 2018, 2023)
	require.NoError(t, err)
	second, err := eng.YearlyStats(stats.FieldFatalities, 2018, 2023)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestYearlyStats_Errors(t *testing.T) {
	eng := fixtureEngine(t)

	t.Run("unknown field", func(t *testing.T) {
		got, err := eng.YearlyStats("number_of_pedestrians", 2019, 2022)
		require.Error(t, err)
		assert.ErrorIs(t, err, stats.ErrSchemaMismatch)
		assert.Nil(t, got)

		var schemaErr *stats.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "field", schemaErr.Kind)
		assert.Equal(t, "number_of_pedestrians", schemaErr.Name)
	})

	t.Run("reversed range", func(t *testing.T) {
		_, err := eng.YearlyStats(stats.FieldInjuries, 2022, 2019)
		assert.ErrorIs(t, err, stats.ErrInvalidRange)
	})
}

func TestYearlyStats_ExtremeRanges(t *testing.T) {
	eng := fixtureEngine(t)

	tests := []struct {
		name     string
		from, to int
	}{
		{"top of int range", math.MaxInt - 1, math.MaxInt},
		{"bottom of int range", math.MinInt, 0},
		{"whole int range", math.MinInt, math.MaxInt},
		{"year zero", 0, 2019},
		{"past last year", 9999, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eng.YearlyStats(stats.FieldInjuries, tt.from, tt.to)
			require.ErrorIs(t, err, stats.ErrInvalidRange)
			assert.Nil(t, got)
		})
	}

	t.Run("full supported range", func(t *testing.T) {
		got, err := eng.YearlyStats(stats.FieldInjuries, stats.MinYear, stats.MaxYear)
		require.NoError(t, err)
		require.Len(t, got, stats.MaxYear-stats.MinYear+1)
		assert.Equal(t, stats.MinYear, got[0].Year)
		assert.Equal(t, stats.MaxYear, got[len(got)-1].Year)
	})
}

func TestDefaultYearRange_Empty(t *testing.T) {
	eng := newEngine(t)
	_, _, ok := eng.DefaultYearRange()
	assert.False(t, ok)
	assert.Equal(t, 0, eng.Total())
}

func TestEngine_Between(t *testing.T) {
	eng := fixtureEngine(t)

	narrowed := eng.Between(
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 12, 31, 23, 59, 59, 0, time.UTC),
	)
	assert.Equal(t, 3, narrowed.Total())
	assert.Equal(t, 5, eng.Total())
}

func TestEngine_ConcurrentReads(t *testing.T) {
	eng := fixtureEngine(t)
	want, err := eng.YearlyStats(stats.FieldInjuries, 2019, 2022)
	require.NoError(t, err)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			got, err := eng.YearlyStats(stats.FieldInjuries, 2019, 2022)
			if err == nil && !cmp.Equal(want, got) {
				err = fmt.Errorf("concurrent result differs")
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
	}
}
