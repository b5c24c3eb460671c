package region

import (
	"fmt"
	"strings"

	"floatchat-be/pkg/ocean"
)

const (
	// maxAnalysisChars bounds each previous analysis quoted back to the model.
	maxAnalysisChars = 500
	// maxHistoryTurns is how many turns before the current one are replayed.
	maxHistoryTurns = 5
)

const systemInstruction = "You translate oceanographic questions into a call to " + FunctionName + ". " +
	"Always call the function. Leave date_min and date_max empty when the user does not state a period."

// PromptBuilder assembles the resolver prompt from the current query, similar
// past turns and the session history.
type PromptBuilder struct {
	query   string
	similar []ocean.SimilarRecord
	history []string
}

// NewPromptBuilder expects history to end with the current query, which is
// how the session records it on receipt.
func NewPromptBuilder(query string, similar []ocean.SimilarRecord, history []string) *PromptBuilder {
	return &PromptBuilder{query: query, similar: similar, history: history}
}

func (b *PromptBuilder) Build() string {
	var prompt strings.Builder

	b.writeSimilar(&prompt)
	b.writeHistory(&prompt)

	prompt.WriteString("Current query: ")
	prompt.WriteString(b.query)
	prompt.WriteString("\n")

	return prompt.String()
}

func (b *PromptBuilder) writeSimilar(prompt *strings.Builder) {
	if len(b.similar) == 0 {
		return
	}

	prompt.WriteString("Previous similar queries:\n")
	for i, rec := range b.similar {
		fmt.Fprintf(prompt, "%d. Query: %s\n", i+1, rec.Metadata.Query)
		fmt.Fprintf(prompt, "   Previous analysis: %s\n", truncate(rec.Document, maxAnalysisChars))
		if rec.Metadata.QueryMeta != "" {
			fmt.Fprintf(prompt, "   Query meta: %s\n", rec.Metadata.QueryMeta)
		}
		fmt.Fprintf(prompt, "   Similarity: %.2f\n", rec.Similarity())
	}
	prompt.WriteString("\n")
}

func (b *PromptBuilder) writeHistory(prompt *strings.Builder) {
	previous := PrecedingTurns(b.history)
	if len(previous) == 0 {
		return
	}

	prompt.WriteString("Recent conversation history:\n")
	for _, turn := range previous {
		prompt.WriteString("- ")
		prompt.WriteString(turn)
		prompt.WriteString("\n")
	}
	prompt.WriteString("\n")
}

// PrecedingTurns returns up to five entries before the last one.
func PrecedingTurns(history []string) []string {
	if len(history) < 2 {
		return nil
	}
	end := len(history) - 1
	start := end - maxHistoryTurns
	if start < 0 {
		start = 0
	}
	return history[start:end]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
