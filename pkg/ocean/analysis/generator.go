// Package analysis writes the natural-language narrative for a fetched result
// and derives the chart recommendation shown next to it.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/llm"
	"floatchat-be/pkg/ocean"
)

// FallbackNarrative replaces the analysis when generation fails.
const FallbackNarrative = "The Argo float data for your query has been retrieved and is shown below. " +
	"An automated analysis could not be generated this time, but you can explore the table and charts directly."

// maxPromptRows bounds how many sampled rows are quoted in the prompt.
const maxPromptRows = 20

var ErrEmptyNarrative = errors.New("model returned an empty analysis")

// Input is everything the narrative is written from.
type Input struct {
	Query   string
	Result  *ocean.FetchResult
	Meta    ocean.QueryMeta
	Similar []ocean.SimilarRecord
}

// Generator creates the analysis narrative for a turn
type Generator struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, log logger.ILogger) *Generator {
	return &Generator{llmProvider: llmProvider, logger: log}
}

// Generate asks the model for the narrative.
func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	prompt, err := g.buildPrompt(in)
	if err != nil {
		return "", err
	}

	text, err := g.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.4), llm.WithSystem(systemInstruction))
	if err != nil {
		return "", fmt.Errorf("generate analysis: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyNarrative
	}
	return text, nil
}

// GenerateOrFallback never fails: any error yields FallbackNarrative and
// fallback is reported as true.
func (g *Generator) GenerateOrFallback(ctx context.Context, in Input) (narrative string, fallback bool) {
	text, err := g.Generate(ctx, in)
	if err != nil {
		g.logger.Warn("ANALYSIS", "Falling back to fixed narrative", map[string]interface{}{
			"error": err.Error(),
			"query": in.Query,
		})
		return FallbackNarrative, true
	}
	return text, false
}

const systemInstruction = "You are an oceanographer explaining Argo float measurements to a curious non-specialist. " +
	"Write a short, factual analysis in Markdown. Only describe what the data shows; say so when the sample is too small to conclude anything."

func (g *Generator) buildPrompt(in Input) (string, error) {
	var prompt strings.Builder

	metaJSON, err := json.Marshal(in.Meta)
	if err != nil {
		return "", fmt.Errorf("marshal query meta: %w", err)
	}

	prompt.WriteString("<query>\n")
	prompt.WriteString(in.Query)
	prompt.WriteString("\n</query>\n\n")

	prompt.WriteString("<query_meta>\n")
	prompt.Write(metaJSON)
	prompt.WriteString("\n</query_meta>\n\n")

	if err := writeData(&prompt, in.Result); err != nil {
		return "", err
	}

	if len(in.Similar) > 0 {
		prompt.WriteString("<previous_analyses>\n")
		for _, rec := range in.Similar {
			fmt.Fprintf(&prompt, "- %s (similarity %.2f): %s\n", rec.Metadata.Query, rec.Similarity(), truncate(rec.Document, 300))
		}
		prompt.WriteString("</previous_analyses>\n\n")
	}

	prompt.WriteString("<task>\n")
	prompt.WriteString("Summarise the measurements above: typical values, ranges, notable depth or time patterns, and how the region compares to what an oceanographer would expect.\n")
	if in.Meta.ExpandedSearch {
		prompt.WriteString("Mention that the search area was widened because the original region had no data.\n")
	}
	prompt.WriteString("</task>\n")

	return prompt.String(), nil
}

func writeData(prompt *strings.Builder, r *ocean.FetchResult) error {
	prompt.WriteString("<data>\n")
	defer prompt.WriteString("</data>\n\n")

	if r == nil {
		prompt.WriteString("(no data)\n")
		return nil
	}

	if r.Mode == ocean.ModePoints {
		for _, ps := range r.Summaries {
			fmt.Fprintf(prompt, "Point (%g, %g): ", ps.Point.Lat, ps.Point.Lon)
			if ps.Error != "" {
				fmt.Fprintf(prompt, "error: %s\n", ps.Error)
				continue
			}
			if err := writeRows(prompt, ps.Summary, ps.Total); err != nil {
				return err
			}
		}
		return nil
	}
	return writeRows(prompt, r.Summary, r.Total)
}

func writeRows(prompt *strings.Builder, rows []ocean.Row, total *int) error {
	if total != nil {
		fmt.Fprintf(prompt, "%d raw rows, %d sampled", *total, len(rows))
	} else {
		fmt.Fprintf(prompt, "%d sampled rows", len(rows))
	}
	if len(rows) > maxPromptRows {
		fmt.Fprintf(prompt, ", first %d shown", maxPromptRows)
		rows = rows[:maxPromptRows]
	}
	prompt.WriteString("\n")

	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	prompt.Write(body)
	prompt.WriteString("\n")
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
