package sample

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"floatchat-be/pkg/ocean"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type qcFlag int

type celsius float64

type brokenValuer struct{}

func (brokenValuer) Value() (any, error) { return nil, errors.New("boom") }
func (brokenValuer) String() string      { return "broken" }

type position struct{ Lat, Lon float64 }

func TestSanitize(t *testing.T) {
	when := time.Date(2024, time.March, 1, 6, 30, 0, 0, time.UTC)
	temp := 21.5

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(1), nil},
		{"float", 1.25, 1.25},
		{"float32 nan", float32(math.NaN()), nil},
		{"int", 7, 7},
		{"string", "2902746", "2902746"},
		{"bool", true, true},
		{"time", when, "2024-03-01T06:30:00Z"},
		{"json number", json.Number("3.5"), 3.5},
		{"json number garbage", json.Number("x"), "x"},
		{"named int", qcFlag(1), int64(1)},
		{"named float inf", celsius(math.Inf(-1)), nil},
		{"pointer", &temp, 21.5},
		{"nil pointer", (*float64)(nil), nil},
		{"sql null float valid", sql.NullFloat64{Float64: 3, Valid: true}, 3.0},
		{"sql null float invalid", sql.NullFloat64{}, nil},
		{"nil sql null float pointer", (*sql.NullFloat64)(nil), nil},
		{"sql null string pointer", &sql.NullString{String: "D", Valid: true}, "D"},
		{"valuer error", brokenValuer{}, "broken"},
		{"bytes", []byte("abc"), "abc"},
		{"struct", position{1, 2}, "{1 2}"},
		{"nested map", map[string]any{"a": math.NaN(), "b": []any{1.0, math.Inf(1)}}, map[string]any{"a": nil, "b": []any{1.0, nil}}},
		{"typed slice", []float64{1, math.NaN()}, []any{1.0, nil}},
		{"int keyed map", map[int]float64{1: math.NaN()}, map[string]any{"1": nil}},
		{"row", ocean.Row{"TEMP": math.NaN()}, ocean.Row{"TEMP": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizedOutputIsJSONSafe(t *testing.T) {
	row := ocean.Row{
		"a": math.NaN(),
		"b": map[string]any{"c": math.Inf(-1), "d": []any{math.NaN(), time.Now()}},
		"e": []float32{float32(math.Inf(1))},
	}
	_, err := json.Marshal(SanitizeRow(row))
	assert.NoError(t, err)

	// the encoder itself rejects what sanitizing removes
	_, err = json.Marshal(row)
	assert.Error(t, err)
}

// panickyValuer fails the way a driver value with a broken invariant does.
type panickyValuer struct{}

func (panickyValuer) Value() (driver.Value, error) { panic("corrupt cell") }

func TestSampleSurvivesNilWrapperCells(t *testing.T) {
	tbl := &ocean.Table{
		Columns: []string{"LATITUDE", "LONGITUDE", "TIME", "TEMP"},
		Rows:    [][]any{{1.0, 2.0, "2024-03-01T00:00:00Z", (*sql.NullFloat64)(nil)}},
	}

	var res Result
	require.NotPanics(t, func() { res = SampleAndSanitize(tbl) })
	require.Len(t, res.Summary, 1)
	assert.Nil(t, res.Summary[0]["TEMP"])
	assert.Equal(t, 1.0, res.Summary[0]["LATITUDE"])
}

func TestSampleDegradesWhenSanitizingPanics(t *testing.T) {
	tbl := &ocean.Table{
		Columns: []string{"LATITUDE", "LONGITUDE", "TIME", "TEMP"},
		Rows:    [][]any{{1.0, 2.0, "2024-03-01T00:00:00Z", panickyValuer{}}},
	}

	var res Result
	require.NotPanics(t, func() { res = SampleAndSanitize(tbl) })
	require.Len(t, res.Summary, 1)
	assert.Contains(t, res.Summary[0]["raw"], "LATITUDE")
	require.NotNil(t, res.Total)
	assert.Equal(t, 1, *res.Total)
}
