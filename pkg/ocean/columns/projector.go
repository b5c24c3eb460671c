// Package columns resolves dataset column names tolerantly and projects
// fetched rows down to the variables a user asked for.
package columns

import (
	"strings"
	"unicode"

	"floatchat-be/pkg/ocean"
)

// Candidate names for each logical column, in lookup order.
var (
	LatitudeAliases  = []string{"LATITUDE", "latitude", "Lat"}
	LongitudeAliases = []string{"LONGITUDE", "longitude", "Lon"}
	TimeAliases      = []string{"TIME", "time", "Date", "date"}

	essentialAliases = [][]string{LatitudeAliases, LongitudeAliases, TimeAliases}

	variableAliases = map[ocean.Variable][]string{
		ocean.VariableTemperature: {"TEMP", "temperature", "temp"},
		ocean.VariableSalinity:    {"PSAL", "salinity", "sal"},
		ocean.VariablePressure:    {"PRES", "pressure", "pres"},
	}
)

// Schema is an alias resolver over one key set. Build it once per fetch.
type Schema struct {
	keys map[string]struct{}
}

// NewSchema indexes the given column names.
func NewSchema(keys []string) *Schema {
	s := &Schema{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// SchemaOf indexes the keys of a row.
func SchemaOf(row ocean.Row) *Schema {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	return NewSchema(keys)
}

// Resolve returns the first actual column matching any candidate, trying each
// candidate as written, then upper-cased, then title-cased.
func (s *Schema) Resolve(candidates []string) (string, bool) {
	for _, c := range candidates {
		for _, form := range []string{c, strings.ToUpper(c), title(c)} {
			if _, ok := s.keys[form]; ok {
				return form, true
			}
		}
	}
	return "", false
}

// Variable resolves the column holding v.
func (s *Schema) Variable(v ocean.Variable) (string, bool) {
	aliases, ok := variableAliases[v]
	if !ok {
		return "", false
	}
	return s.Resolve(aliases)
}

// Project keeps the essential position/time columns plus the requested
// variables. The schema is taken from the first row.
//
// Empty rows or variables return the input untouched, and so does a request
// where none of the variables exists in the data.
func Project(rows []ocean.Row, variables []ocean.Variable) []ocean.Row {
	if len(rows) == 0 || len(variables) == 0 {
		return rows
	}

	schema := SchemaOf(rows[0])

	var varCols []string
	for _, v := range variables {
		if col, ok := schema.Variable(v); ok {
			varCols = append(varCols, col)
		}
	}
	if len(varCols) == 0 {
		return rows
	}

	keep := make(map[string]struct{}, len(varCols)+len(essentialAliases))
	for _, aliases := range essentialAliases {
		if col, ok := schema.Resolve(aliases); ok {
			keep[col] = struct{}{}
		}
	}
	for _, col := range varCols {
		keep[col] = struct{}{}
	}

	out := make([]ocean.Row, len(rows))
	for i, row := range rows {
		projected := make(ocean.Row, len(keep))
		for col := range keep {
			if v, ok := row[col]; ok {
				projected[col] = v
			}
		}
		out[i] = projected
	}
	return out
}

// ProjectResult projects every summary in r in place, keeping the
// pre-projection rows as FullSummary so the caller can show all columns.
func ProjectResult(r *ocean.FetchResult, variables []ocean.Variable) {
	if r == nil || len(variables) == 0 {
		return
	}
	if r.Mode == ocean.ModePoints {
		for i := range r.Summaries {
			ps := &r.Summaries[i]
			if ps.Error != "" {
				continue
			}
			ps.FullSummary = ps.Summary
			ps.Summary = Project(ps.Summary, variables)
		}
		return
	}
	r.FullSummary = r.Summary
	r.Summary = Project(r.Summary, variables)
}

// title upper-cases the first letter of every word and lower-cases the rest.
func title(s string) string {
	out := []rune(s)
	prevLetter := false
	for i, r := range out {
		if prevLetter {
			out[i] = unicode.ToLower(r)
		} else {
			out[i] = unicode.ToUpper(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return string(out)
}
