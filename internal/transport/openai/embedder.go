package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/totsar/lostfound/internal/domain"
	"github.com/totsar/lostfound/internal/metrics"
)

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	clients clientPair
	model   openai.EmbeddingModel
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	return &Embedder{
		clients: newClientPair(cfg),
		model:   openai.EmbeddingModel(cfg.EmbeddingModel),
	}
}

// BatchEmbed vectorizes texts in a single API call. The returned slice is
// positionally aligned with texts.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()

	var resp openai.EmbeddingResponse
	err := e.clients.do(func(c *openai.Client) error {
		var callErr error
		resp, callErr = c.CreateEmbeddings(ctx, req)
		return callErr
	})

	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("embedding", "error").Inc()
		return nil, parseAPIError("embedding", err)
	}

	if len(resp.Data) != len(texts) {
		metrics.ProviderRequestsTotal.WithLabelValues("embedding", "error").Inc()
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs: %w",
			len(resp.Data), len(texts), domain.ErrProviderUnavailable)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("embedding", "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("embedding").Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues("total").Add(float64(resp.Usage.TotalTokens))
	}

	// The API may return rows out of order; Index restores input positions.
	out := make([][]float32, len(texts))
	for _, row := range resp.Data {
		if row.Index < 0 || row.Index >= len(out) {
			return nil, fmt.Errorf("embedding response index %d out of range: %w",
				row.Index, domain.ErrProviderUnavailable)
		}
		out[row.Index] = row.Embedding
	}
	return out, nil
}

// HealthCheck verifies provider availability.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return e.clients.healthCheck(ctx)
}
