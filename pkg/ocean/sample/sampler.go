// Package sample reduces a raw data-source table to a bounded, diverse and
// JSON-safe sample.
package sample

import (
	"errors"
	"fmt"

	"floatchat-be/pkg/ocean"
	"floatchat-be/pkg/ocean/columns"
)

// MaxRows caps the number of rows returned to the caller.
const MaxRows = 50

// Result is a sanitized sample plus the raw row count (nil when unknown).
type Result struct {
	Summary []ocean.Row
	Total   *int
}

var errNoPositionColumns = errors.New("table has no latitude/longitude/time columns")

// SampleAndSanitize samples distinct (latitude, longitude, time) triples with
// a fixed stride so the sample spans the whole table, then rejoins each kept
// triple to its first raw row. If that fails it falls back to the first
// MaxRows raw rows, and if even that fails to a single row holding the
// table's string form.
func SampleAndSanitize(t *ocean.Table) Result {
	var res Result
	if n := t.Len(); n >= 0 {
		res.Total = &n
	}
	if t == nil {
		res.Summary = []ocean.Row{}
		return res
	}

	rows, err := sanitized(func() ([]ocean.Row, error) { return sampleDistinct(t) })
	if err != nil {
		rows, err = sanitized(func() ([]ocean.Row, error) { return head(t, MaxRows) })
	}
	if err != nil {
		rows = []ocean.Row{{"raw": t.String()}}
	}

	res.Summary = rows
	return res
}

// sanitized runs one step of the fallback chain and sanitizes its rows. A
// panic in either is returned as an error.
func sanitized(step func() ([]ocean.Row, error)) (rows []ocean.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("sampling panicked: %v", r)
		}
	}()

	rows, err = step()
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i] = SanitizeRow(rows[i])
	}
	return rows, nil
}

func sampleDistinct(t *ocean.Table) ([]ocean.Row, error) {
	schema := columns.NewSchema(t.Columns)
	latCol, okLat := schema.Resolve(columns.LatitudeAliases)
	lonCol, okLon := schema.Resolve(columns.LongitudeAliases)
	timeCol, okTime := schema.Resolve(columns.TimeAliases)
	if !okLat || !okLon || !okTime {
		return nil, errNoPositionColumns
	}
	latIdx, lonIdx, timeIdx := t.ColumnIndex(latCol), t.ColumnIndex(lonCol), t.ColumnIndex(timeCol)

	// first raw row index of every distinct triple, in order of appearance
	seen := make(map[string]struct{})
	var firsts []int
	for i, raw := range t.Rows {
		if len(raw) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(raw), len(t.Columns))
		}
		key := fmt.Sprintf("%v|%v|%v", raw[latIdx], raw[lonIdx], raw[timeIdx])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		firsts = append(firsts, i)
	}

	kept := firsts
	if len(firsts) > MaxRows {
		stride := len(firsts) / MaxRows
		kept = make([]int, 0, MaxRows)
		for i := 0; i < len(firsts) && len(kept) < MaxRows; i += stride {
			kept = append(kept, firsts[i])
		}
	}

	out := make([]ocean.Row, 0, len(kept))
	for _, idx := range kept {
		row, err := t.Record(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func head(t *ocean.Table, n int) ([]ocean.Row, error) {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([]ocean.Row, 0, n)
	for i := 0; i < n; i++ {
		row, err := t.Record(i)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
