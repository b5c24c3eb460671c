package ocean

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyFetchError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, ""},
		{"wrapped timeout", fmt.Errorf("erddap: %w", ErrFetchTimeout), FailureTimeout},
		{"context deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), FailureTimeout},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), FailureTimeout},
		{"no data", fmt.Errorf("erddap 404: %w", ErrNoData), FailureNoData},
		{"transport", fmt.Errorf("erddap 503: %w", ErrFetchTransport), FailureTransport},
		{"other", errors.New("index out of range"), FailureUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyFetchError(tc.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrNoData))
	assert.True(t, IsTransient(fmt.Errorf("x: %w", ErrFetchTransport)))
	assert.False(t, IsTransient(errors.New("bad column")))
	assert.False(t, IsTransient(nil))
}

func TestTableRecord(t *testing.T) {
	tbl := &Table{
		Columns: []string{"LATITUDE", "LONGITUDE"},
		Rows:    [][]any{{1.5, 2.5}, {3.0}},
	}

	row, err := tbl.Record(0)
	assert.NoError(t, err)
	assert.Equal(t, Row{"LATITUDE": 1.5, "LONGITUDE": 2.5}, row)

	_, err = tbl.Record(1)
	assert.Error(t, err)

	_, err = tbl.Record(5)
	assert.Error(t, err)

	assert.Equal(t, -1, (*Table)(nil).Len())
	assert.Equal(t, 1, tbl.ColumnIndex("LONGITUDE"))
}

func TestFetchResultPayload(t *testing.T) {
	box := &FetchResult{Mode: ModeBox}
	p := box.Payload()
	assert.Equal(t, []Row{}, p["summary"])
	assert.Contains(t, p, "total")
	assert.Nil(t, p["total"])
	assert.NotContains(t, p, "full_summary")

	points := &FetchResult{Mode: ModePoints}
	assert.Equal(t, []PointSummary{}, points.Payload()["summaries"])
}
