package stats

import (
	"cmp"
	"errors"
	"slices"
	"strconv"
)

// ErrNoKeys is returned by Group when called without grouping keys.
var ErrNoKeys = errors.New("at least one grouping key is required")

// Mode selects what Group computes per key combination.
type Mode string

const (
	ModeCount Mode = "count"
	ModeSum   Mode = "sum"
)

// Aggregation pairs a Mode with the field it applies to. Field is ignored for
// ModeCount.
type Aggregation struct {
	Mode  Mode
	Field Field
}

// Count counts records per combination.
func Count() Aggregation {
	return Aggregation{Mode: ModeCount}
}

// Sum totals field per combination.
func Sum(field Field) Aggregation {
	return Aggregation{Mode: ModeSum, Field: field}
}

// GroupRow is one observed key combination. Value is the count or the sum,
// depending on the Aggregation; Count is always the number of records.
type GroupRow struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
	Value int      `json:"value"`
}

// Group returns one row per key combination present in the index, in the
// order each combination is first seen. Combinations without records are
// never produced.
func (e *Engine) Group(groupBy []Key, agg Aggregation) ([]GroupRow, error) {
	if len(groupBy) == 0 {
		return nil, ErrNoKeys
	}
	keyFns := make([]keyFunc, len(groupBy))
	for i, k := range groupBy {
		fn, err := lookupKey(k)
		if err != nil {
			return nil, err
		}
		keyFns[i] = fn
	}

	var value fieldFunc
	switch agg.Mode {
	case ModeCount:
	case ModeSum:
		fn, err := lookupField(agg.Field)
		if err != nil {
			return nil, err
		}
		value = fn
	default:
		return nil, &SchemaError{Kind: "aggregation", Name: string(agg.Mode)}
	}

	pos := make(map[string]int)
	rows := make([]GroupRow, 0)
	parts := make([]string, len(keyFns))
	var buf []byte
	for _, r := range e.index.All() {
		buf = buf[:0]
		for i, fn := range keyFns {
			parts[i] = fn(r)
			buf = compositeKey(buf, parts[i])
		}

		i, ok := pos[string(buf)]
		if !ok {
			i = len(rows)
			pos[string(buf)] = i
			rows = append(rows, GroupRow{Keys: slices.Clone(parts)})
		}
		rows[i].Count++
		if value != nil {
			rows[i].Value += value(r)
		} else {
			rows[i].Value++
		}
	}
	return rows, nil
}

// compositeKey appends part quoted, so any text value maps to a distinct key.
func compositeKey(buf []byte, part string) []byte {
	return strconv.AppendQuote(buf, part)
}

// ValueGroup holds the raw values of a field for one key value.
type ValueGroup struct {
	Key    string    `json:"key"`
	Values []float64 `json:"values"`
}

// Distribution collects field values per key value, in first-seen key order.
func (e *Engine) Distribution(key Key, field Field) ([]ValueGroup, error) {
	keyFn, err := lookupKey(key)
	if err != nil {
		return nil, err
	}
	value, err := lookupField(field)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int)
	groups := make([]ValueGroup, 0)
	for _, r := range e.index.All() {
		k := keyFn(r)
		i, ok := pos[k]
		if !ok {
			i = len(groups)
			pos[k] = i
			groups = append(groups, ValueGroup{Key: k})
		}
		groups[i].Values = append(groups[i].Values, float64(value(r)))
	}
	return groups, nil
}

// Pair is one record projected onto two numeric fields.
type Pair struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pairs projects every record onto (x, y).
func (e *Engine) Pairs(x, y Field) ([]Pair, error) {
	xFn, err := lookupField(x)
	if err != nil {
		return nil, err
	}
	yFn, err := lookupField(y)
	if err != nil {
		return nil, err
	}

	out := make([]Pair, 0, e.index.Len())
	for _, r := range e.index.All() {
		out = append(out, Pair{X: xFn(r), Y: yFn(r)})
	}
	return out, nil
}

// SortByKeys orders rows lexically by their keys, first key first.
func SortByKeys(rows []GroupRow) {
	slices.SortStableFunc(rows, func(a, b GroupRow) int {
		return slices.Compare(a.Keys, b.Keys)
	})
}

// SortByValueDesc orders rows by descending value, ties by keys.
func SortByValueDesc(rows []GroupRow) {
	slices.SortStableFunc(rows, func(a, b GroupRow) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return slices.Compare(a.Keys, b.Keys)
	})
}
