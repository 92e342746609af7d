package domain

import (
	"iter"
	"slices"
	"time"
)

// Index is the time-resolved view of a Store. It is built once and never
// mutated; narrowing operations return a new Index.
type Index struct {
	records  []IndexedRecord
	excluded []Exclusion
}

// NewIndex resolves every record's timestamp and derives Year and MonthYear.
// Records that fail to resolve are excluded and listed by Excluded. The store
// is only read.
func NewIndex(store *Store, parser *TimestampParser) *Index {
	if parser == nil {
		parser = NewTimestampParser(nil, nil)
	}

	idx := &Index{records: make([]IndexedRecord, 0, store.Len())}
	for _, rec := range store.All() {
		ts, err := parser.Parse(rec.IncidentDatetime)
		if err != nil {
			idx.excluded = append(idx.excluded, Exclusion{Row: rec.Row, Raw: rec.IncidentDatetime, Err: err})
			continue
		}
		idx.records = append(idx.records, IndexedRecord{
			Record:    rec,
			Timestamp: ts,
			Year:      ts.Year(),
			MonthYear: monthYear(ts),
		})
	}
	return idx
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	return len(x.records)
}

// At returns the i-th indexed record.
func (x *Index) At(i int) IndexedRecord {
	return x.records[i]
}

// All iterates over indexed records in load order.
func (x *Index) All() iter.Seq2[int, IndexedRecord] {
	return func(yield func(int, IndexedRecord) bool) {
		for i, r := range x.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Excluded lists the records dropped for an unresolvable timestamp.
func (x *Index) Excluded() []Exclusion {
	return slices.Clone(x.excluded)
}

// YearRange returns the smallest and largest observed year. ok is false for
// an empty index.
func (x *Index) YearRange() (from, to int, ok bool) {
	if len(x.records) == 0 {
		return 0, 0, false
	}
	from, to = x.records[0].Year, x.records[0].Year
	for _, r := range x.records[1:] {
		from = min(from, r.Year)
		to = max(to, r.Year)
	}
	return from, to, true
}

// Years returns the distinct observed years in ascending order.
func (x *Index) Years() []int {
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, r := range x.records {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	slices.Sort(years)
	return years
}

// Bucket returns the records whose Year equals year. The bucket is computed
// on each call and shares the index's storage.
func (x *Index) Bucket(year int) Bucket {
	positions := make([]int, 0)
	for i, r := range x.records {
		if r.Year == year {
			positions = append(positions, i)
		}
	}
	return Bucket{Year: year, index: x, positions: positions}
}

// Between returns a new Index holding the records with from <= Timestamp <= to.
// Exclusions carry over unchanged.
func (x *Index) Between(from, to time.Time) *Index {
	out := &Index{
		records:  make([]IndexedRecord, 0, len(x.records)),
		excluded: x.excluded,
	}
	for _, r := range x.records {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out.records = append(out.records, r)
	}
	return out
}

// Bucket is a zero-copy view of one year's records.
type Bucket struct {
	Year      int
	index     *Index
	positions []int
}

// Len returns the number of records in the bucket.
func (b Bucket) Len() int {
	return len(b.positions)
}

// At returns the i-th record of the bucket.
func (b Bucket) At(i int) IndexedRecord {
	return b.index.records[b.positions[i]]
}

// Positions returns the index positions covered by the bucket.
func (b Bucket) Positions() []int {
	return slices.Clone(b.positions)
}
