package factory

import (
	"testing"

	"floatchat-be/pkg/llm/gemini"
	"floatchat-be/pkg/llm/huggingface"
	"floatchat-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantType any
		wantErr  string
	}{
		{"gemini", "gemini", "key", &gemini.GeminiProvider{}, ""},
		{"gemini without key", "gemini", "", nil, "requires an API key"},
		{"ollama", "ollama", "", &ollama.OllamaProvider{}, ""},
		{"huggingface", "huggingface", "hf", &huggingface.HuggingFaceProvider{}, ""},
		{"huggingface without key", "huggingface", "", nil, "requires an API key"},
		{"unknown", "openai", "key", nil, "unsupported LLM provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.provider, "model", "", tt.apiKey)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, p)
		})
	}
}
