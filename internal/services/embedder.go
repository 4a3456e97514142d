package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"alfredoptarigan/resume-matcher/internal/config"
)

// Embedder maps texts to fixed-length vectors. Implementations are built
// once per process and shared across requests.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// NewEmbedder builds the provider selected by EMBEDDING_PROVIDER. Gemini is
// the default.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIURL, cfg.Model, cfg.Dimension), nil
	case config.ProviderTEI:
		return NewTEIEmbedder(cfg.TEIURL, cfg.Dimension), nil
	default:
		return NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Dimension)
	}
}

// embedOne is shared by the providers whose batch call is the primitive.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

type openAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder talks to the OpenAI embeddings endpoint, or to any
// OpenAI-compatible server hosting a sentence-transformer when baseURL is set.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimension int) Embedder {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	client := openai.NewClient(opts...)

	return &openAIEmbedder{
		client:    &client,
		model:     model,
		dimension: dimension,
	}
}

// Embed implements Embedder.
func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	result := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if int(d.Index) >= len(result) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		result[d.Index] = vec
	}

	for i, vec := range result {
		if vec == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return result, nil
}

// EmbedOne implements Embedder.
func (e *openAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

// Dimension implements Embedder.
func (e *openAIEmbedder) Dimension() int {
	return e.dimension
}

// teiEmbedder calls a HuggingFace text-embeddings-inference server, which is
// how the fine-tuned sentence-transformer is served.
type teiEmbedder struct {
	baseURL   string
	dimension int
	client    *http.Client
}

func NewTEIEmbedder(baseURL string, dimension int) Embedder {
	return &teiEmbedder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		dimension: dimension,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type teiEmbedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// Embed implements Embedder.
func (e *teiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(teiEmbedRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(body))
	}

	var vectors [][]float32
	if err := json.Unmarshal(body, &vectors); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}

// EmbedOne implements Embedder.
func (e *teiEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

// Dimension implements Embedder.
func (e *teiEmbedder) Dimension() int {
	return e.dimension
}
