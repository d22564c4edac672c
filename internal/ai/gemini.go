package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	// DefaultChatModel is the Gemini model used for chat summaries.
	DefaultChatModel = "gemini-2.5-flash"
	// DefaultEmbedModel is the Gemini model used for mood note embeddings.
	DefaultEmbedModel = "gemini-embedding-001"
)

// GeminiConfig configures the Gemini-backed Embedder and ChatModel.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. When empty the client
	// falls back to application default credentials.
	APIKey     string
	ChatModel  string
	EmbedModel string
}

// GeminiClient implements Embedder and ChatModel on the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	chatModel  string
	embedModel string
}

var (
	_ Embedder  = (*GeminiClient)(nil)
	_ ChatModel = (*GeminiClient)(nil)
)

// NewGeminiClient constructs a Gemini client for embeddings and completions.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	var clientCfg *genai.ClientConfig
	if cfg.APIKey != "" {
		clientCfg = &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}

	return &GeminiClient{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
	}, nil
}

// Embed returns the embedding vector for the supplied text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("gemini: text is required")
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini: empty embedding response")
	}

	values := resp.Embeddings[0].Values
	vector := make([]float64, len(values))
	for i, v := range values {
		vector[i] = float64(v)
	}
	return vector, nil
}

// Generate produces a completion for the prompt.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.New("gemini: prompt is required")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	return resp.Text(), nil
}
