package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"floatchat-be/pkg/llm"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type part struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	Tools             []tool           `json:"tools,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	contents := make([]content, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		if role == "system" {
			// system messages become a leading instruction via options
			options = append(options, llm.WithSystem(msg.Content))
			continue
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: msg.Content}}})
	}

	res, err := p.generate(ctx, contents, nil, options...)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func (p *GeminiProvider) GenerateWithTools(ctx context.Context, prompt string, tools []llm.Tool, options ...llm.Option) (*llm.Response, error) {
	decls := make([]functionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = functionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		}
	}
	contents := []content{{Role: "user", Parts: []part{{Text: prompt}}}}
	return p.generate(ctx, contents, []tool{{FunctionDeclarations: decls}}, options...)
}

func (p *GeminiProvider) generate(ctx context.Context, contents []content, tools []tool, options ...llm.Option) (*llm.Response, error) {
	opts := llm.ApplyOptions(llm.Options{Model: p.model, Temperature: 0.2}, options...)

	reqBody := generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	if len(tools) > 0 {
		reqBody.Tools = tools
	}
	if opts.System != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: opts.System}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var genRes generateResponse
	if err := json.Unmarshal(body, &genRes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if genRes.Error != nil {
		return nil, fmt.Errorf("gemini error %d: %s", genRes.Error.Code, genRes.Error.Message)
	}
	if len(genRes.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	out := &llm.Response{}
	var text strings.Builder
	for _, pt := range genRes.Candidates[0].Content.Parts {
		if pt.FunctionCall != nil && out.FunctionCall == nil {
			out.FunctionCall = &llm.FunctionCall{Name: pt.FunctionCall.Name, Args: pt.FunctionCall.Args}
			continue
		}
		text.WriteString(pt.Text)
	}
	out.Text = text.String()
	return out, nil
}

// toGeminiSchema copies a JSON schema, upper-casing "type" values the way
// the Gemini OpenAPI subset spells them.
func toGeminiSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "type":
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
			out[k] = v
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			converted := make(map[string]any, len(props))
			for name, prop := range props {
				if m, ok := prop.(map[string]any); ok {
					converted[name] = toGeminiSchema(m)
				} else {
					converted[name] = prop
				}
			}
			out[k] = converted
		case "items":
			if m, ok := v.(map[string]any); ok {
				out[k] = toGeminiSchema(m)
			} else {
				out[k] = v
			}
		default:
			out[k] = v
		}
	}
	return out
}
