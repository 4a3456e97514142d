package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

const (
	defaultGeminiEmbedModel = "text-embedding-004"
	// batchEmbedContents accepts at most this many inputs per call
	geminiMaxBatch = 100
	// roughly the 2048-token input limit of the embedding model
	geminiMaxBytes = 8000
)

type geminiEmbedder struct {
	client     *genai.Client
	embedModel string
	dimension  int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int) (Embedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiEmbedModel
	}

	return &geminiEmbedder{
		client:     client,
		embedModel: model,
		dimension:  dimension,
	}, nil
}

// Embed implements Embedder.
func (g *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := start + geminiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(truncateUTF8(text, geminiMaxBytes), genai.RoleUser))
		}

		resp, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if resp == nil || len(resp.Embeddings) != len(contents) {
			return nil, fmt.Errorf("empty embedding result")
		}

		for _, embedding := range resp.Embeddings {
			result = append(result, embedding.Values)
		}
	}

	return result, nil
}

// EmbedOne implements Embedder.
func (g *geminiEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, g, text)
}

// Dimension implements Embedder.
func (g *geminiEmbedder) Dimension() int {
	return g.dimension
}

// truncateUTF8 cuts text to at most maxBytes without splitting a character.
func truncateUTF8(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
