package region

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/llm"
	"floatchat-be/pkg/ocean"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	resp    *llm.Response
	err     error
	prompts []string
	tools   []llm.Tool
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeProvider) GenerateWithTools(ctx context.Context, prompt string, tools []llm.Tool, options ...llm.Option) (*llm.Response, error) {
	f.prompts = append(f.prompts, prompt)
	f.tools = tools
	return f.resp, f.err
}

func call(args string) *llm.Response {
	return &llm.Response{FunctionCall: &llm.FunctionCall{Name: FunctionName, Args: json.RawMessage(args)}}
}

func TestResolveParsesSelection(t *testing.T) {
	tests := []struct {
		name string
		args string
		want ocean.Selection
	}{
		{
			name: "box object",
			args: `{"mode":"box","box":{"lon_min":60,"lon_max":70,"lat_min":5,"lat_max":15},"variables":["temperature","salinity"],"date_min":"2024-03","date_max":"2024-05"}`,
			want: ocean.Selection{
				Mode:      ocean.ModeBox,
				Box:       &ocean.Box{LonMin: 60, LonMax: 70, LatMin: 5, LatMax: 15},
				Variables: []ocean.Variable{ocean.VariableTemperature, ocean.VariableSalinity},
				DateMin:   "2024-03",
				DateMax:   "2024-05",
			},
		},
		{
			name: "points as json string",
			args: `"{\"mode\":\"points\",\"points\":[{\"lat\":10,\"lon\":65}],\"variables\":[\"temperature\"]}"`,
			want: ocean.Selection{
				Mode:      ocean.ModePoints,
				Points:    []ocean.Point{{Lat: 10, Lon: 65}},
				Variables: []ocean.Variable{ocean.VariableTemperature},
			},
		},
		{
			name: "unknown mode passes through",
			args: `{"mode":"circle"}`,
			want: ocean.Selection{Mode: "circle", Variables: []ocean.Variable{}},
		},
		{
			name: "unknown and duplicate variables dropped",
			args: `{"mode":"points","points":[{"lat":0,"lon":0}],"variables":["oxygen","pressure","pressure"]}`,
			want: ocean.Selection{
				Mode:      ocean.ModePoints,
				Points:    []ocean.Point{{Lat: 0, Lon: 0}},
				Variables: []ocean.Variable{ocean.VariablePressure},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeProvider{resp: call(tt.args)}, logger.NopLogger{})
			res, err := r.Resolve(context.Background(), "q", nil, []string{"q"})
			require.NoError(t, err)
			require.True(t, res.HasSelection())
			assert.Equal(t, tt.want, *res.Selection)
		})
	}
}

func TestResolveSelectionErrors(t *testing.T) {
	tests := []struct {
		name string
		resp *llm.Response
	}{
		{"wrong function", &llm.Response{FunctionCall: &llm.FunctionCall{Name: "drop_tables", Args: json.RawMessage(`{}`)}}},
		{"box without box", call(`{"mode":"box"}`)},
		{"points without points", call(`{"mode":"points","points":[]}`)},
		{"inverted box", call(`{"mode":"box","box":{"lon_min":70,"lon_max":60,"lat_min":5,"lat_max":15}}`)},
		{"latitude out of range", call(`{"mode":"points","points":[{"lat":95,"lon":10}]}`)},
		{"garbage args", call(`{"mode":`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeProvider{resp: tt.resp}, logger.NopLogger{})
			_, err := r.Resolve(context.Background(), "q", nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSelection)
			assert.NotErrorIs(t, err, ErrResolver)
		})
	}
}

func TestResolvePlainTextIsNotAnError(t *testing.T) {
	r := NewResolver(&fakeProvider{resp: &llm.Response{Text: "Which region do you mean?"}}, logger.NopLogger{})
	res, err := r.Resolve(context.Background(), "hello", nil, nil)

	require.NoError(t, err)
	assert.False(t, res.HasSelection())
	assert.Equal(t, "Which region do you mean?", res.PlainText)
}

func TestResolveModelFailure(t *testing.T) {
	r := NewResolver(&fakeProvider{err: errors.New("quota exceeded")}, logger.NopLogger{})
	_, err := r.Resolve(context.Background(), "q", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolver)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestResolveDeclaresSingleTool(t *testing.T) {
	fp := &fakeProvider{resp: &llm.Response{Text: "x"}}
	_, err := NewResolver(fp, logger.NopLogger{}).Resolve(context.Background(), "q", nil, nil)
	require.NoError(t, err)

	require.Len(t, fp.tools, 1)
	assert.Equal(t, FunctionName, fp.tools[0].Name)
	assert.Equal(t, []string{"mode"}, fp.tools[0].Parameters["required"])
}

func TestPromptIncludesContextBlocks(t *testing.T) {
	long := strings.Repeat("a", 800)
	similar := []ocean.SimilarRecord{{
		ContextRecord: ocean.ContextRecord{
			Document: long,
			Metadata: ocean.ContextMetadata{Query: "salinity in the Arabian Sea", QueryMeta: `{"mode":"box"}`},
		},
		Distance: 0.25,
	}}
	history := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "current"}

	prompt := NewPromptBuilder("current", similar, history).Build()

	assert.Contains(t, prompt, "Previous similar queries:")
	assert.Contains(t, prompt, "salinity in the Arabian Sea")
	assert.Contains(t, prompt, strings.Repeat("a", 500)+"...")
	assert.NotContains(t, prompt, strings.Repeat("a", 501))
	assert.Contains(t, prompt, "Similarity: 0.75")
	assert.Contains(t, prompt, `{"mode":"box"}`)

	assert.Contains(t, prompt, "Recent conversation history:")
	assert.NotContains(t, prompt, "- t2\n")
	assert.Contains(t, prompt, "- t3\n")
	assert.Contains(t, prompt, "- t7\n")
	assert.NotContains(t, prompt, "- current\n")
	assert.True(t, strings.HasSuffix(prompt, "Current query: current\n"))
}

func TestPromptOmitsEmptyBlocks(t *testing.T) {
	prompt := NewPromptBuilder("only", nil, []string{"only"}).Build()
	assert.Equal(t, "Current query: only\n", prompt)
}

func TestPrecedingTurns(t *testing.T) {
	assert.Nil(t, PrecedingTurns(nil))
	assert.Nil(t, PrecedingTurns([]string{"a"}))
	assert.Equal(t, []string{"a"}, PrecedingTurns([]string{"a", "b"}))
	assert.Equal(t, []string{"b", "c", "d", "e", "f"}, PrecedingTurns([]string{"a", "b", "c", "d", "e", "f", "g"}))
}
