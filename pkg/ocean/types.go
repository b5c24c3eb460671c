// Package ocean holds the domain types shared by the query-resolution and
// retrieval pipeline: selections, query metadata, tabular rows and the
// context records kept in the similarity store.
package ocean

import (
	"fmt"
	"strings"
)

// Mode tells the fetcher whether a selection is a single bounding box or a
// list of points fetched individually.
type Mode string

const (
	ModeBox    Mode = "box"
	ModePoints Mode = "points"
)

// Variable is an oceanographic measurement a user can ask for.
type Variable string

const (
	VariableTemperature Variable = "temperature"
	VariableSalinity    Variable = "salinity"
	VariablePressure    Variable = "pressure"
)

// Variables lists every variable the resolver may select, in schema order.
var Variables = []Variable{VariableTemperature, VariableSalinity, VariablePressure}

// Fixed depth window (decibars) requested for every fetch.
const (
	DepthMin = 0.0
	DepthMax = 2000.0
)

// Box is a geographic bounding box in degrees.
type Box struct {
	LonMin float64 `json:"lon_min" validate:"gte=-180,lte=180,ltefield=LonMax"`
	LonMax float64 `json:"lon_max" validate:"gte=-180,lte=180"`
	LatMin float64 `json:"lat_min" validate:"gte=-90,lte=90,ltefield=LatMax"`
	LatMax float64 `json:"lat_max" validate:"gte=-90,lte=90"`
}

func (b Box) String() string {
	return fmt.Sprintf("lon[%.3f, %.3f] lat[%.3f, %.3f]", b.LonMin, b.LonMax, b.LatMin, b.LatMax)
}

// Point is a single coordinate.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Selection is the structured output of query resolution. Exactly one of
// Box or Points is populated, according to Mode.
type Selection struct {
	Mode      Mode       `json:"mode"`
	Box       *Box       `json:"box,omitempty" validate:"omitempty"`
	Points    []Point    `json:"points,omitempty" validate:"dive"`
	Variables []Variable `json:"variables,omitempty"`
	DateMin   string     `json:"date_min,omitempty"`
	DateMax   string     `json:"date_max,omitempty"`
}

// QueryMeta describes what was actually fetched for a turn. It is built once
// by the fetch orchestrator and echoed to the caller unchanged.
type QueryMeta struct {
	DateStart         string     `json:"date_start"`
	DateEnd           string     `json:"date_end"`
	Mode              Mode       `json:"mode"`
	SelectedVariables []Variable `json:"selected_variables"`
	Box               *Box       `json:"box,omitempty"`
	Points            []Point    `json:"points,omitempty"`
	ExpandedSearch    bool       `json:"expanded_search"`
}

// Region is the request handed to the data source.
type Region struct {
	LonMin    float64 `json:"lon_min"`
	LonMax    float64 `json:"lon_max"`
	LatMin    float64 `json:"lat_min"`
	LatMax    float64 `json:"lat_max"`
	DepthMin  float64 `json:"depth_min"`
	DepthMax  float64 `json:"depth_max"`
	DateStart string  `json:"date_start"`
	DateEnd   string  `json:"date_end"`
}

// NewRegion builds a data-source region for a box over the fixed depth window.
func NewRegion(b Box, dateStart, dateEnd string) Region {
	return Region{
		LonMin:    b.LonMin,
		LonMax:    b.LonMax,
		LatMin:    b.LatMin,
		LatMax:    b.LatMax,
		DepthMin:  DepthMin,
		DepthMax:  DepthMax,
		DateStart: dateStart,
		DateEnd:   dateEnd,
	}
}

// Row maps a column name to a JSON-safe value. Column names keep the raw
// dataset casing; use the columns package to look them up tolerantly.
type Row map[string]any

// Table is the raw tabular result returned by the data source.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of raw rows, or -1 for a nil table.
func (t *Table) Len() int {
	if t == nil {
		return -1
	}
	return len(t.Rows)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) (Row, error) {
	if i < 0 || i >= len(t.Rows) {
		return nil, fmt.Errorf("row %d out of range (%d rows)", i, len(t.Rows))
	}
	raw := t.Rows[i]
	if len(raw) != len(t.Columns) {
		return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(raw), len(t.Columns))
	}
	row := make(Row, len(t.Columns))
	for j, col := range t.Columns {
		row[col] = raw[j]
	}
	return row, nil
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) String() string {
	if t == nil {
		return "<nil table>"
	}
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, "\t"))
	for _, r := range t.Rows {
		b.WriteString("\n")
		for j, v := range r {
			if j > 0 {
				b.WriteString("\t")
			}
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// PointSummary is one entry of a points-mode result. Either Error is set or
// Summary/Total are.
type PointSummary struct {
	Point       Point  `json:"point"`
	Summary     []Row  `json:"summary,omitempty"`
	FullSummary []Row  `json:"full_summary,omitempty"`
	Total       *int   `json:"total,omitempty"`
	Error       string `json:"error,omitempty"`
}

// FetchResult is the box-mode or points-mode outcome of a fetch.
type FetchResult struct {
	Mode        Mode
	Summary     []Row
	FullSummary []Row
	Total       *int
	Summaries   []PointSummary
}

// Payload renders the result in its wire shape.
func (r *FetchResult) Payload() map[string]any {
	if r.Mode == ModePoints {
		summaries := r.Summaries
		if summaries == nil {
			summaries = []PointSummary{}
		}
		return map[string]any{"summaries": summaries}
	}
	summary := r.Summary
	if summary == nil {
		summary = []Row{}
	}
	out := map[string]any{
		"summary": summary,
		"total":   r.Total,
	}
	if r.FullSummary != nil {
		out["full_summary"] = r.FullSummary
	}
	return out
}

// ContextMetadata is stored next to each analysed turn.
type ContextMetadata struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
	QueryMeta string `json:"query_meta"`
}

// ContextRecord is a write-once unit in the similarity store.
type ContextRecord struct {
	ID       string          `json:"id"`
	Document string          `json:"document"`
	Metadata ContextMetadata `json:"metadata"`
}

// SimilarRecord is a context record returned by a similarity query.
type SimilarRecord struct {
	ContextRecord
	Distance float64 `json:"distance"`
}

// Similarity is 1 - distance.
func (s SimilarRecord) Similarity() float64 {
	return 1 - s.Distance
}
