// Package fetch drives the data source for a resolved selection: one box with
// a single widened retry, or a list of points fetched in isolation.
package fetch

import (
	"context"
	"fmt"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/ocean"
	"floatchat-be/pkg/ocean/dates"
	"floatchat-be/pkg/ocean/sample"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DataFetcher is the external data source. Implementations wrap
// ocean.ErrFetchTimeout, ocean.ErrNoData or ocean.ErrFetchTransport for the
// failure classes worth a widened retry.
type DataFetcher interface {
	Fetch(ctx context.Context, region ocean.Region) (*ocean.Table, error)
}

// Notice is a structured non-error outcome, currently only an unknown mode.
type Notice struct {
	Mode    ocean.Mode `json:"mode"`
	Message string     `json:"message"`
}

// Outcome of one fetch. Notice is set instead of Result when nothing was
// fetched.
type Outcome struct {
	Result *ocean.FetchResult
	Meta   ocean.QueryMeta
	Notice *Notice
}

type Orchestrator struct {
	fetcher DataFetcher
	dates   *dates.Normalizer
	logger  logger.ILogger
}

func NewOrchestrator(fetcher DataFetcher, normalizer *dates.Normalizer, log logger.ILogger) *Orchestrator {
	if normalizer == nil {
		normalizer = dates.NewNormalizer(nil)
	}
	return &Orchestrator{fetcher: fetcher, dates: normalizer, logger: log}
}

var tracer = otel.Tracer("floatchat-be/fetch")

// Fetch runs the selection against the data source. Transient failures of the
// original box are retried once on the widened box; if that also fails the
// original error is returned along with an Outcome carrying only Meta.
func (o *Orchestrator) Fetch(ctx context.Context, sel ocean.Selection) (*Outcome, error) {
	start, end := o.dates.Normalize(sel.DateMin, sel.DateMax)
	meta := ocean.QueryMeta{
		DateStart:         start,
		DateEnd:           end,
		Mode:              sel.Mode,
		SelectedVariables: selectedVariables(sel.Variables),
	}

	switch sel.Mode {
	case ocean.ModeBox:
		if sel.Box == nil {
			return nil, fmt.Errorf("%w: mode 'box' but no box provided", ocean.ErrSelection)
		}
		res, effective, expanded, err := o.fetchBoxWithRetry(ctx, *sel.Box, start, end)
		meta.Box = &effective
		if err != nil {
			return &Outcome{Meta: meta}, err
		}
		meta.ExpandedSearch = expanded
		return &Outcome{Result: res, Meta: meta}, nil

	case ocean.ModePoints:
		if len(sel.Points) == 0 {
			return nil, fmt.Errorf("%w: mode 'points' but no points provided", ocean.ErrSelection)
		}
		meta.Points = sel.Points
		return &Outcome{Result: o.fetchPoints(ctx, sel.Points, start, end), Meta: meta}, nil

	default:
		o.logger.Warn("FETCH", "Unknown selection mode", map[string]interface{}{"mode": sel.Mode})
		return &Outcome{
			Meta: meta,
			Notice: &Notice{
				Mode:    sel.Mode,
				Message: fmt.Sprintf("Unknown mode from model: %q", string(sel.Mode)),
			},
		}, nil
	}
}

func (o *Orchestrator) fetchBoxWithRetry(ctx context.Context, box ocean.Box, start, end string) (*ocean.FetchResult, ocean.Box, bool, error) {
	res, err := o.fetchBox(ctx, box, start, end, "original")
	if err == nil {
		return res, box, false, nil
	}
	if !ocean.IsTransient(err) {
		return nil, box, false, err
	}

	widened := Widen(box, WidenDegrees)
	o.logger.Info("FETCH", "Retrying with widened box", map[string]interface{}{
		"original": box.String(),
		"widened":  widened.String(),
		"reason":   string(ocean.ClassifyFetchError(err)),
	})

	res, retryErr := o.fetchBox(ctx, widened, start, end, "widened")
	if retryErr != nil {
		o.logger.Warn("FETCH", "Widened retry failed", map[string]interface{}{"error": retryErr.Error()})
		return nil, box, false, err
	}
	return res, widened, true, nil
}

// fetchBox performs a single attempt. An empty table counts as no data.
func (o *Orchestrator) fetchBox(ctx context.Context, box ocean.Box, start, end, attempt string) (*ocean.FetchResult, error) {
	ctx, span := tracer.Start(ctx, "fetch.box")
	defer span.End()
	span.SetAttributes(
		attribute.String("fetch.attempt", attempt),
		attribute.String("fetch.box", box.String()),
		attribute.String("fetch.date_start", start),
		attribute.String("fetch.date_end", end),
	)

	table, err := o.fetcher.Fetch(ctx, ocean.NewRegion(box, start, end))
	if err == nil && table.Len() <= 0 {
		err = fmt.Errorf("%w: %s between %s and %s", ocean.ErrNoData, box, start, end)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sampled := sample.SampleAndSanitize(table)
	span.SetAttributes(attribute.Int("fetch.rows", table.Len()), attribute.Int("fetch.sampled", len(sampled.Summary)))

	return &ocean.FetchResult{
		Mode:    ocean.ModeBox,
		Summary: sampled.Summary,
		Total:   sampled.Total,
	}, nil
}

func (o *Orchestrator) fetchPoints(ctx context.Context, points []ocean.Point, start, end string) *ocean.FetchResult {
	out := &ocean.FetchResult{Mode: ocean.ModePoints, Summaries: make([]ocean.PointSummary, 0, len(points))}
	for _, p := range points {
		res, err := o.fetchPoint(ctx, p, start, end)
		if err != nil {
			o.logger.Warn("FETCH", "Point fetch failed", map[string]interface{}{
				"lat":   p.Lat,
				"lon":   p.Lon,
				"error": err.Error(),
			})
			out.Summaries = append(out.Summaries, ocean.PointSummary{Point: p, Error: err.Error()})
			continue
		}
		out.Summaries = append(out.Summaries, ocean.PointSummary{Point: p, Summary: res.Summary, Total: res.Total})
	}
	return out
}

// fetchPoint isolates a panicking fetcher so sibling points still run.
func (o *Orchestrator) fetchPoint(ctx context.Context, p ocean.Point, start, end string) (res *ocean.FetchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("point fetch panicked: %v", r)
		}
	}()
	return o.fetchBox(ctx, PointBox(p, PointHalfWidth), start, end, "point")
}

func selectedVariables(vars []ocean.Variable) []ocean.Variable {
	if vars == nil {
		return []ocean.Variable{}
	}
	return vars
}
