package embedding

import (
	"context"
	"fmt"
)

// Dimensions of every vector stored in query_contexts. Both supported models
// (text-embedding-004, nomic-embed-text) produce 768 values.
const Dimensions = 768

// Task types understood by Gemini; other providers ignore them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}

// NewProvider picks an implementation by name ("gemini" or "ollama").
func NewProvider(providerType, apiKey, baseURL, model string) (EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "gemini", "":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini embeddings require an API key")
		}
		return NewGeminiProvider(apiKey, baseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
