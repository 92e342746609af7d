package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore() *Store {
	return NewStore([]Record{
		{Row: 2, IncidentDatetime: "2020-01-15 08:00:00", VehicleType: "car", Injuries: 2},
		{Row: 3, IncidentDatetime: "2020-02-01 09:30:00", VehicleType: "car", Injuries: 4},
		{Row: 4, IncidentDatetime: "bad value", VehicleType: "bus", Injuries: 9},
		{Row: 5, IncidentDatetime: "2021-07-04 12:00:00", VehicleType: "bus", Injuries: 0},
		{Row: 6, IncidentDatetime: "", VehicleType: "truck", Injuries: 1},
		{Row: 7, IncidentDatetime: "2019-12-31 23:59:59", VehicleType: "motorcycle", Injuries: 1},
	})
}

func TestNewStore_CopiesInput(t *testing.T) {
	records := []Record{{Row: 2, VehicleType: "car"}}
	store := NewStore(records)
	records[0].VehicleType = "changed"

	assert.Equal(t, "car", store.At(0).VehicleType)
	assert.Equal(t, 1, store.Len())
}

func TestNewIndex_DerivesYearAndMonth(t *testing.T) {
	idx := NewIndex(sampleStore(), NewTimestampParser(nil, time.UTC))

	require.Equal(t, 4, idx.Len())

	first := idx.At(0)
	assert.Equal(t, 2020, first.Year)
	assert.Equal(t, "2020-01", first.MonthYear)
	assert.Equal(t, "2020-01-15 08:00:00", first.IncidentDatetime, "raw timestamp must be kept")

	for _, r := range idx.All() {
		assert.Equal(t, r.Timestamp.Year(), r.Year)
		assert.Equal(t, r.Timestamp.Format("2006-01"), r.MonthYear)
	}
}

func TestNewIndex_ExcludesUnparseable(t *testing.T) {
	idx := NewIndex(sampleStore(), nil)

	excluded := idx.Excluded()
	require.Len(t, excluded, 2)
	assert.Equal(t, 4, excluded[0].Row)
	assert.Equal(t, "bad value", excluded[0].Raw)
	assert.ErrorIs(t, excluded[0], ErrUnparseableTimestamp)
	assert.Equal(t, 6, excluded[1].Row)
	assert.ErrorIs(t, excluded[1].Err, ErrUnparseableTimestamp)
}

func TestNewIndex_DoesNotMutateStore(t *testing.T) {
	store := sampleStore()
	before := store.At(0)

	_ = NewIndex(store, nil)

	assert.Equal(t, before, store.At(0))
	assert.Equal(t, 6, store.Len())
}

func TestIndex_YearRangeAndYears(t *testing.T) {
	idx := NewIndex(sampleStore(), nil)

	from, to, ok := idx.YearRange()
	require.True(t, ok)
	assert.Equal(t, 2019, from)
	assert.Equal(t, 2021, to)
	assert.Equal(t, []int{2019, 2020, 2021}, idx.Years())

	empty := NewIndex(NewStore(nil), nil)
	_, _, ok = empty.YearRange()
	assert.False(t, ok)
	assert.Empty(t, empty.Years())
}

func TestIndex_BucketsPartitionIndex(t *testing.T) {
	idx := NewIndex(sampleStore(), nil)
	from, to, ok := idx.YearRange()
	require.True(t, ok)

	seen := make(map[int]int)
	total := 0
	for y := from; y <= to; y++ {
		b := idx.Bucket(y)
		for i := 0; i < b.Len(); i++ {
			assert.Equal(t, y, b.At(i).Year)
		}
		for _, p := range b.Positions() {
			seen[p]++
		}
		total += b.Len()
	}

	assert.Equal(t, idx.Len(), total)
	for p := 0; p < idx.Len(); p++ {
		assert.Equal(t, 1, seen[p], "position %d must be in exactly one bucket", p)
	}
}

func TestIndex_BucketEmptyYear(t *testing.T) {
	idx := NewIndex(sampleStore(), nil)
	b := idx.Bucket(1999)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 1999, b.Year)
}

func TestIndex_Between(t *testing.T) {
	idx := NewIndex(sampleStore(), NewTimestampParser(nil, time.UTC))

	narrowed := idx.Between(
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 31, 23, 59, 59, 0, time.UTC),
	)

	assert.Equal(t, 2, narrowed.Len())
	assert.Equal(t, 4, idx.Len(), "receiver must be untouched")
	assert.Len(t, narrowed.Excluded(), 2)
	for _, r := range narrowed.All() {
		assert.Equal(t, 2020, r.Year)
	}
}
