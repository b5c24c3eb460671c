package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"floatchat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithToolsParsesFunctionCall(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"functionCall":{"name":"select_region","args":{"mode":"box","variables":["temperature"]}}}
		]}}]}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("secret", srv.URL, "gemini-test")
	res, err := p.GenerateWithTools(context.Background(), "temperature in the Bay of Bengal", []llm.Tool{{
		Name: "select_region",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mode":      map[string]any{"type": "string"},
				"variables": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
	}}, llm.WithSystem("pick a region"))

	require.NoError(t, err)
	require.NotNil(t, res.FunctionCall)
	assert.Equal(t, "select_region", res.FunctionCall.Name)
	assert.JSONEq(t, `{"mode":"box","variables":["temperature"]}`, string(res.FunctionCall.Args))

	decl := got["tools"].([]any)[0].(map[string]any)["functionDeclarations"].([]any)[0].(map[string]any)
	params := decl["parameters"].(map[string]any)
	assert.Equal(t, "OBJECT", params["type"])
	vars := params["properties"].(map[string]any)["variables"].(map[string]any)
	assert.Equal(t, "ARRAY", vars["type"])
	assert.Equal(t, "STRING", vars["items"].(map[string]any)["type"])
	assert.NotNil(t, got["systemInstruction"])
}

func TestGenerateConcatenatesTextParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Surface "},{"text":"waters are warm."}]}}]}`))
	}))
	defer srv.Close()

	out, err := NewGeminiProvider("k", srv.URL, "m").Generate(context.Background(), "describe")
	require.NoError(t, err)
	assert.Equal(t, "Surface waters are warm.", out)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http status", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota"}}`, "status 429"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidates"},
		{"bad json", http.StatusOK, `not json`, "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGeminiProvider("k", srv.URL, "m").GenerateWithTools(context.Background(), "q", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
