// Package region turns a free-text query plus conversational context into a
// structured ocean.Selection by asking the language model to call
// select_region.
package region

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/llm"
	"floatchat-be/pkg/ocean"

	"github.com/go-playground/validator/v10"
)

// ErrResolver wraps failures of the model call itself. These are not retried.
var ErrResolver = errors.New("region resolver failed")

// ErrSelection is re-exported so callers can match contract violations
// without importing ocean.
var ErrSelection = ocean.ErrSelection

// Resolution is either a selection or, when the model answered in prose, the
// text it returned.
type Resolution struct {
	Selection *ocean.Selection
	PlainText string
}

// HasSelection reports whether the model called select_region.
func (r *Resolution) HasSelection() bool {
	return r != nil && r.Selection != nil
}

type Resolver struct {
	provider llm.LLMProvider
	validate *validator.Validate
	logger   logger.ILogger
}

func NewResolver(provider llm.LLMProvider, log logger.ILogger) *Resolver {
	return &Resolver{
		provider: provider,
		validate: validator.New(),
		logger:   log,
	}
}

// Resolve asks the model for a selection. history is the session history
// with the current query as its last element.
func (r *Resolver) Resolve(ctx context.Context, query string, similar []ocean.SimilarRecord, history []string) (*Resolution, error) {
	prompt := NewPromptBuilder(query, similar, history).Build()

	res, err := r.provider.GenerateWithTools(ctx, prompt, []llm.Tool{SelectRegionTool()},
		llm.WithSystem(systemInstruction),
		llm.WithTemperature(0),
	)
	if err != nil {
		r.logger.Error("REGION", "Model call failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrResolver, err)
	}

	if res.FunctionCall == nil {
		r.logger.Warn("REGION", "Model answered without calling select_region", map[string]interface{}{
			"query": query,
		})
		return &Resolution{PlainText: res.Text}, nil
	}

	if res.FunctionCall.Name != FunctionName {
		return nil, fmt.Errorf("%w: unknown function %q requested by model", ErrSelection, res.FunctionCall.Name)
	}

	sel, err := r.ParseSelection(res.FunctionCall.Args)
	if err != nil {
		return nil, err
	}

	r.logger.Info("REGION", "Selection resolved", map[string]interface{}{
		"mode":      sel.Mode,
		"variables": sel.Variables,
		"date_min":  sel.DateMin,
		"date_max":  sel.DateMax,
	})
	return &Resolution{Selection: sel}, nil
}

type rawSelection struct {
	Mode      string        `json:"mode"`
	Box       *ocean.Box    `json:"box"`
	Points    []ocean.Point `json:"points"`
	Variables []string      `json:"variables"`
	DateMin   string        `json:"date_min"`
	DateMax   string        `json:"date_max"`
}

// ParseSelection decodes select_region arguments, given either as a JSON
// object or as a JSON string holding one. Modes other than box and points are
// passed through untouched; the fetch orchestrator reports them.
func (r *Resolver) ParseSelection(args json.RawMessage) (*ocean.Selection, error) {
	payload := bytes.TrimSpace(args)
	if len(payload) > 0 && payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, fmt.Errorf("%w: arguments: %v", ErrSelection, err)
		}
		payload = []byte(inner)
	}
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = []byte("{}")
	}

	var raw rawSelection
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: arguments: %v", ErrSelection, err)
	}

	sel := &ocean.Selection{
		Mode:      ocean.Mode(raw.Mode),
		Variables: knownVariables(raw.Variables),
		DateMin:   raw.DateMin,
		DateMax:   raw.DateMax,
	}

	switch sel.Mode {
	case ocean.ModeBox:
		if raw.Box == nil {
			return nil, fmt.Errorf("%w: mode 'box' but no box provided", ErrSelection)
		}
		if err := r.validate.Struct(raw.Box); err != nil {
			return nil, fmt.Errorf("%w: box %s: %v", ErrSelection, raw.Box, err)
		}
		sel.Box = raw.Box
	case ocean.ModePoints:
		if len(raw.Points) == 0 {
			return nil, fmt.Errorf("%w: mode 'points' but no points provided", ErrSelection)
		}
		for _, p := range raw.Points {
			if err := r.validate.Struct(p); err != nil {
				return nil, fmt.Errorf("%w: point (%g, %g): %v", ErrSelection, p.Lat, p.Lon, err)
			}
		}
		sel.Points = raw.Points
	}

	return sel, nil
}

// knownVariables keeps recognised names in first-seen order, dropping
// duplicates and anything outside the enum.
func knownVariables(names []string) []ocean.Variable {
	out := make([]ocean.Variable, 0, len(names))
	seen := make(map[ocean.Variable]bool, len(names))
	for _, n := range names {
		v := ocean.Variable(n)
		if seen[v] {
			continue
		}
		for _, known := range ocean.Variables {
			if v == known {
				out = append(out, v)
				seen[v] = true
				break
			}
		}
	}
	return out
}
