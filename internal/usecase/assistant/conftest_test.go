package assistant

import (
	"context"
	"testing"

	"github.com/totsar/lostfound/internal/domain"
)

// --- Mocks ---

type mockItems struct {
	items     []domain.Item
	listErr   error
	updateErr error

	listCalls int
	updates   []domain.EmbeddingUpdate
}

func (m *mockItems) ListAll(_ context.Context) ([]domain.Item, error) {
	m.listCalls++
	return m.items, m.listErr
}

func (m *mockItems) UpdateEmbeddings(_ context.Context, updates []domain.EmbeddingUpdate) error {
	m.updates = append(m.updates, updates...)
	return m.updateErr
}

// mockEmbedder answers BatchEmbed calls from a FIFO queue of responses.
// A nil queue entry echoes one vector per input text.
type mockEmbedder struct {
	responses [][][]float32
	err       error

	calls [][]string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) > 0 {
		resp := m.responses[0]
		m.responses = m.responses[1:]
		if resp != nil {
			return resp, nil
		}
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type mockReasoner struct {
	output string
	err    error

	calls      int
	lastSystem string
	lastUser   string
}

func (m *mockReasoner) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userMessage
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

// --- Helpers ---

func catalogueItem(t *testing.T, id int64, title string, vec []float32) domain.Item {
	t.Helper()
	return domain.ReconstructItem(id, title, "description of "+title, "front desk", []string{"tag"}, vec, id*1000)
}

func newTestService(items *mockItems, embed *mockEmbedder, reason *mockReasoner) *Service {
	return New(items, embed, reason, nil)
}
