package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/totsar/lostfound/internal/domain"
	"github.com/totsar/lostfound/internal/metrics"
)

// Reasoner calls the chat-completion API in JSON-object mode. The selector
// owns prompt construction and response sanitization; this adapter only
// moves strings across the wire.
type Reasoner struct {
	clients     clientPair
	model       string
	temperature float32
}

// NewReasoner creates an OpenAI-compatible reasoning adapter.
func NewReasoner(cfg *Config) *Reasoner {
	return &Reasoner{
		clients:     newClientPair(cfg),
		model:       cfg.ChatModel,
		temperature: cfg.Temperature,
	}
}

// Complete sends one system+user exchange and returns the raw model output.
func (r *Reasoner) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}

	start := time.Now()

	var resp openai.ChatCompletionResponse
	err := r.clients.do(func(c *openai.Client) error {
		var callErr error
		resp, callErr = c.CreateChatCompletion(ctx, req)
		return callErr
	})

	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("reasoning", "error").Inc()
		return "", parseAPIError("reasoning", err)
	}

	if len(resp.Choices) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues("reasoning", "error").Inc()
		return "", fmt.Errorf("empty reasoning response: %w", domain.ErrProviderUnavailable)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("reasoning", "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("reasoning").Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}
