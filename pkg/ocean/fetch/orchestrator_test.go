package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/ocean"
	"floatchat-be/pkg/ocean/dates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher answers each call with the next scripted step.
type scriptedFetcher struct {
	mu      sync.Mutex
	steps   []func(ocean.Region) (*ocean.Table, error)
	regions []ocean.Region
}

func (f *scriptedFetcher) Fetch(ctx context.Context, r ocean.Region) (*ocean.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.regions)
	f.regions = append(f.regions, r)
	if i >= len(f.steps) {
		return nil, fmt.Errorf("unexpected call %d", i)
	}
	return f.steps[i](r)
}

func ok(rows int) func(ocean.Region) (*ocean.Table, error) {
	return func(r ocean.Region) (*ocean.Table, error) {
		t := &ocean.Table{Columns: []string{"LATITUDE", "LONGITUDE", "TIME", "TEMP", "PSAL"}}
		for i := 0; i < rows; i++ {
			t.Rows = append(t.Rows, []any{r.LatMin + float64(i)*0.001, r.LonMin, "2024-01-01T00:00:00Z", 27.5, 35.1})
		}
		return t, nil
	}
}

func fail(err error) func(ocean.Region) (*ocean.Table, error) {
	return func(ocean.Region) (*ocean.Table, error) { return nil, err }
}

func newTestOrchestrator(f DataFetcher) *Orchestrator {
	now := func() time.Time { return time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC) }
	return NewOrchestrator(f, dates.NewNormalizer(now), logger.NopLogger{})
}

func boxSelection() ocean.Selection {
	return ocean.Selection{
		Mode:      ocean.ModeBox,
		Box:       &ocean.Box{LonMin: 60, LonMax: 70, LatMin: 5, LatMax: 15},
		Variables: []ocean.Variable{ocean.VariableTemperature},
		DateMin:   "2024-03",
		DateMax:   "2024-05",
	}
}

func TestBoxSuccessNoRetry(t *testing.T) {
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){ok(3)}}
	out, err := newTestOrchestrator(f).Fetch(context.Background(), boxSelection())

	require.NoError(t, err)
	require.Nil(t, out.Notice)
	require.Len(t, f.regions, 1)
	assert.Equal(t, ocean.Region{
		LonMin: 60, LonMax: 70, LatMin: 5, LatMax: 15,
		DepthMin: 0, DepthMax: 2000,
		DateStart: "2024-03-01", DateEnd: "2024-05-31",
	}, f.regions[0])

	assert.False(t, out.Meta.ExpandedSearch)
	assert.Equal(t, ocean.Box{LonMin: 60, LonMax: 70, LatMin: 5, LatMax: 15}, *out.Meta.Box)
	assert.Equal(t, []ocean.Variable{ocean.VariableTemperature}, out.Meta.SelectedVariables)
	assert.Len(t, out.Result.Summary, 3)
	assert.Equal(t, 3, *out.Result.Total)
}

func TestBoxTransientFailureWidens(t *testing.T) {
	for _, cause := range []error{ocean.ErrFetchTimeout, ocean.ErrNoData, ocean.ErrFetchTransport, context.DeadlineExceeded} {
		t.Run(cause.Error(), func(t *testing.T) {
			f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){
				fail(fmt.Errorf("erddap: %w", cause)),
				ok(2),
			}}
			out, err := newTestOrchestrator(f).Fetch(context.Background(), boxSelection())

			require.NoError(t, err)
			require.Len(t, f.regions, 2)
			want := ocean.Box{LonMin: 58, LonMax: 72, LatMin: 3, LatMax: 17}
			assert.True(t, out.Meta.ExpandedSearch)
			assert.Equal(t, want, *out.Meta.Box)
			assert.Equal(t, 58.0, f.regions[1].LonMin)
			assert.Equal(t, 17.0, f.regions[1].LatMax)
		})
	}
}

func TestBoxEmptyTableCountsAsNoData(t *testing.T) {
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){ok(0), ok(1)}}
	out, err := newTestOrchestrator(f).Fetch(context.Background(), boxSelection())

	require.NoError(t, err)
	assert.True(t, out.Meta.ExpandedSearch)
}

func TestBoxWidenedFailurePropagatesOriginal(t *testing.T) {
	original := fmt.Errorf("first: %w", ocean.ErrNoData)
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){
		fail(original),
		fail(fmt.Errorf("second: %w", ocean.ErrFetchTimeout)),
	}}
	out, err := newTestOrchestrator(f).Fetch(context.Background(), boxSelection())

	require.Error(t, err)
	assert.Same(t, original, err)
	assert.Len(t, f.regions, 2)
	require.NotNil(t, out)
	assert.Nil(t, out.Result)
	assert.False(t, out.Meta.ExpandedSearch)
	assert.Equal(t, boxSelection().Box, out.Meta.Box)
}

func TestBoxUnclassifiedErrorNotRetried(t *testing.T) {
	bug := errors.New("column index out of range")
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){fail(bug)}}
	_, err := newTestOrchestrator(f).Fetch(context.Background(), boxSelection())

	assert.ErrorIs(t, err, bug)
	assert.Len(t, f.regions, 1)
}

func TestPointsIsolateFailures(t *testing.T) {
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){
		ok(2),
		fail(errors.New("kaboom")),
		ok(1),
	}}
	sel := ocean.Selection{
		Mode:   ocean.ModePoints,
		Points: []ocean.Point{{Lat: 10, Lon: 65}, {Lat: 11, Lon: 66}, {Lat: 12, Lon: 67}},
	}
	out, err := newTestOrchestrator(f).Fetch(context.Background(), sel)

	require.NoError(t, err)
	sums := out.Result.Summaries
	require.Len(t, sums, 3)
	assert.Len(t, sums[0].Summary, 2)
	assert.Empty(t, sums[0].Error)
	assert.Equal(t, "kaboom", sums[1].Error)
	assert.Nil(t, sums[1].Summary)
	assert.Len(t, sums[2].Summary, 1)
	assert.Equal(t, sel.Points[1], sums[1].Point)

	// no widening per point
	require.Len(t, f.regions, 3)
	assert.InDelta(t, 64.9, f.regions[0].LonMin, 1e-9)
	assert.InDelta(t, 65.1, f.regions[0].LonMax, 1e-9)
	assert.InDelta(t, 9.9, f.regions[0].LatMin, 1e-9)
	assert.InDelta(t, 10.1, f.regions[0].LatMax, 1e-9)
	assert.False(t, out.Meta.ExpandedSearch)
	assert.Equal(t, sel.Points, out.Meta.Points)
	assert.Equal(t, []ocean.Variable{}, out.Meta.SelectedVariables)
}

func TestPointsTransientFailureStaysInline(t *testing.T) {
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){fail(ocean.ErrNoData)}}
	sel := ocean.Selection{Mode: ocean.ModePoints, Points: []ocean.Point{{Lat: 1, Lon: 1}}}
	out, err := newTestOrchestrator(f).Fetch(context.Background(), sel)

	require.NoError(t, err)
	assert.Len(t, f.regions, 1)
	assert.NotEmpty(t, out.Result.Summaries[0].Error)
}

func TestPointsRecoverFromPanickingFetcher(t *testing.T) {
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){
		func(ocean.Region) (*ocean.Table, error) { panic("nil map") },
		ok(1),
	}}
	sel := ocean.Selection{Mode: ocean.ModePoints, Points: []ocean.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}}
	out, err := newTestOrchestrator(f).Fetch(context.Background(), sel)

	require.NoError(t, err)
	assert.Contains(t, out.Result.Summaries[0].Error, "nil map")
	assert.Len(t, out.Result.Summaries[1].Summary, 1)
}

func TestUnknownModeNeverFetches(t *testing.T) {
	f := &scriptedFetcher{}
	out, err := newTestOrchestrator(f).Fetch(context.Background(), ocean.Selection{Mode: "circle"})

	require.NoError(t, err)
	require.NotNil(t, out.Notice)
	assert.Nil(t, out.Result)
	assert.Equal(t, ocean.Mode("circle"), out.Notice.Mode)
	assert.Contains(t, out.Notice.Message, "circle")
	assert.Empty(t, f.regions)
}

func TestMissingGeometryIsSelectionError(t *testing.T) {
	f := &scriptedFetcher{}
	_, err := newTestOrchestrator(f).Fetch(context.Background(), ocean.Selection{Mode: ocean.ModeBox})
	assert.ErrorIs(t, err, ocean.ErrSelection)

	_, err = newTestOrchestrator(f).Fetch(context.Background(), ocean.Selection{Mode: ocean.ModePoints})
	assert.ErrorIs(t, err, ocean.ErrSelection)
	assert.Empty(t, f.regions)
}

func TestDefaultDatesApplied(t *testing.T) {
	f := &scriptedFetcher{steps: []func(ocean.Region) (*ocean.Table, error){ok(1)}}
	sel := boxSelection()
	sel.DateMin, sel.DateMax = "", ""
	out, err := newTestOrchestrator(f).Fetch(context.Background(), sel)

	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", out.Meta.DateStart)
	assert.Equal(t, "2024-12-31", out.Meta.DateEnd)
}

func TestWiden(t *testing.T) {
	tests := []struct {
		name string
		in   ocean.Box
		want ocean.Box
	}{
		{"interior", ocean.Box{LonMin: 60, LonMax: 70, LatMin: 5, LatMax: 15}, ocean.Box{LonMin: 58, LonMax: 72, LatMin: 3, LatMax: 17}},
		{"clamped", ocean.Box{LonMin: -179, LonMax: 179, LatMin: -89.5, LatMax: 89}, ocean.Box{LonMin: -180, LonMax: 180, LatMin: -90, LatMax: 90}},
		{"degenerate", ocean.Box{LonMin: 0, LonMax: 0, LatMin: 0, LatMax: 0}, ocean.Box{LonMin: -2, LonMax: 2, LatMin: -2, LatMax: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Widen(tt.in, WidenDegrees))
		})
	}
}

func TestSoftFailureFor(t *testing.T) {
	timeout, ok := SoftFailureFor(fmt.Errorf("x: %w", ocean.ErrFetchTimeout))
	require.True(t, ok)
	assert.Contains(t, timeout.Message, "too long")

	noData, ok := SoftFailureFor(ocean.ErrNoData)
	require.True(t, ok)
	assert.Contains(t, noData.Message, "No Argo float data")
	assert.Equal(t, "no_data", noData.Payload()["reason"])

	_, ok = SoftFailureFor(errors.New("bug"))
	assert.False(t, ok)
}
