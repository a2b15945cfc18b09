package assistant

import (
	"context"

	"github.com/totsar/lostfound/internal/domain"
)

// ItemStore is the narrow catalogue contract the assistant depends on:
// a read-only snapshot plus bulk embedding write-back.
type ItemStore interface {
	ListAll(ctx context.Context) ([]domain.Item, error)
	UpdateEmbeddings(ctx context.Context, updates []domain.EmbeddingUpdate) error
}

// BatchEmbedder vectorizes texts in one provider call; the result is
// positionally aligned with the input.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Reasoner performs one structured chat-completion exchange and returns the
// raw model output for the selector to sanitize.
type Reasoner interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
