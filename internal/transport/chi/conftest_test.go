package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/totsar/lostfound/internal/domain"
	assistantuc "github.com/totsar/lostfound/internal/usecase/assistant"
	cataloguc "github.com/totsar/lostfound/internal/usecase/catalog"
	healthuc "github.com/totsar/lostfound/internal/usecase/health"
)

// --- Mocks ---

type mockItemRepo struct {
	items  map[int64]domain.Item
	order  []int64
	nextID int64
	err    error
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[int64]domain.Item)}
}

func (m *mockItemRepo) Create(_ context.Context, it domain.Item) (domain.Item, error) {
	if m.err != nil {
		return domain.Item{}, m.err
	}
	m.nextID++
	stored := it.WithID(m.nextID)
	stored = stored.WithCreatedAt(1700000000000)
	m.items[m.nextID] = stored
	m.order = append(m.order, m.nextID)
	return stored, nil
}

func (m *mockItemRepo) Get(_ context.Context, id int64) (domain.Item, error) {
	if m.err != nil {
		return domain.Item{}, m.err
	}
	it, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return it, nil
}

func (m *mockItemRepo) ListAll(_ context.Context) ([]domain.Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Item, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out, nil
}

func (m *mockItemRepo) Update(_ context.Context, it domain.Item) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[it.ID()]; !ok {
		return domain.ErrItemNotFound
	}
	m.items[it.ID()] = it
	return nil
}

func (m *mockItemRepo) Delete(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockItemRepo) UpdateEmbeddings(_ context.Context, _ []domain.EmbeddingUpdate) error {
	return m.err
}

type mockEmbedder struct{ err error }

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error { return m.err }

type mockReasoner struct {
	output string
	err    error
}

func (m *mockReasoner) Complete(_ context.Context, _, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Harness ---

type harness struct {
	repo     *mockItemRepo
	embedder *mockEmbedder
	reasoner *mockReasoner
	router   chirouter.Router
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	configured      bool
	streamChunkSize int
	maxQueryLen     int
}

func withoutAssistant() harnessOption {
	return func(c *harnessConfig) { c.configured = false }
}

func withChunkSize(n int) harnessOption {
	return func(c *harnessConfig) { c.streamChunkSize = n }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{configured: true, streamChunkSize: 64, maxQueryLen: 500}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &harness{
		repo:     newMockItemRepo(),
		embedder: &mockEmbedder{},
		reasoner: &mockReasoner{output: `{"friendly_response":"Hi","picked_item_ids":[]}`},
	}

	var (
		embed  assistantuc.BatchEmbedder
		reason assistantuc.Reasoner
	)
	if cfg.configured {
		embed = h.embedder
		reason = h.reasoner
	}

	catalogSvc := cataloguc.New(h.repo)
	assistantSvc := assistantuc.New(h.repo, embed, reason, zap.NewNop())
	healthSvc := healthuc.New(&mockPinger{}, nil)

	server := NewServer(catalogSvc, assistantSvc, healthSvc,
		cfg.maxQueryLen, cfg.streamChunkSize, zap.NewNop())

	r := chirouter.NewRouter()
	server.RegisterRoutes(r)
	h.router = r
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) seed(t *testing.T, title string) domain.Item {
	t.Helper()
	it, err := domain.NewItem(title, "a description", "Main hall", []string{"tag"})
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	stored, err := h.repo.Create(context.Background(), it)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return stored
}
