package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/totsar/lostfound/internal/domain"
	"github.com/totsar/lostfound/internal/metrics"
)

// Canned assistant messages.
const (
	// NoItemsMessage is returned when the catalogue is empty.
	NoItemsMessage = "There are no items in the system yet."
	// FallbackMessage substitutes a blank selector explanation.
	FallbackMessage = "I found some possible matches. Check the suggested items below."
)

const defaultEmbedCap = 20

// Service orchestrates the assistant pipeline: embedding cache sync,
// similarity ranking, reasoning selection.
type Service struct {
	items    ItemStore
	embed    BatchEmbedder
	reason   Reasoner
	embedCap int
	logger   *zap.Logger
}

// New creates an assistant service. embed and reason may be nil when the
// feature is not configured; Find then fails fast with
// domain.ErrAssistantNotConfigured before touching storage.
func New(items ItemStore, embed BatchEmbedder, reason Reasoner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		items:    items,
		embed:    embed,
		reason:   reason,
		embedCap: defaultEmbedCap,
		logger:   logger,
	}
}

// WithEmbedCap bounds how many missing item embeddings one query may
// generate (cost and latency control).
func (s *Service) WithEmbedCap(n int) *Service {
	if n > 0 {
		s.embedCap = n
	}
	return s
}

// Configured reports whether both providers are wired.
func (s *Service) Configured() bool {
	return s.embed != nil && s.reason != nil
}

// Find runs the full pipeline for one query. Transient provider failures
// propagate with type information intact; callers map them to their own
// "currently unavailable" surface.
func (s *Service) Find(ctx context.Context, query string) (domain.AssistantResult, error) {
	if !s.Configured() {
		metrics.AssistantQueriesTotal.WithLabelValues("not_configured").Inc()
		return domain.AssistantResult{}, domain.ErrAssistantNotConfigured
	}

	items, err := s.items.ListAll(ctx)
	if err != nil {
		metrics.AssistantQueriesTotal.WithLabelValues("error").Inc()
		return domain.AssistantResult{}, fmt.Errorf("list items: %w", err)
	}

	if len(items) == 0 {
		metrics.AssistantQueriesTotal.WithLabelValues("empty_catalogue").Inc()
		return domain.AssistantResult{
			Message:          NoItemsMessage,
			PickedItemIDs:    []int64{},
			CandidateItemIDs: []int64{},
		}, nil
	}

	items, err = s.syncEmbeddings(ctx, items)
	if err != nil {
		metrics.AssistantQueriesTotal.WithLabelValues("error").Inc()
		return domain.AssistantResult{}, err
	}

	queryVecs, err := s.embed.BatchEmbed(ctx, []string{query})
	if err != nil {
		metrics.AssistantQueriesTotal.WithLabelValues("error").Inc()
		return domain.AssistantResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVecs) != 1 {
		metrics.AssistantQueriesTotal.WithLabelValues("error").Inc()
		return domain.AssistantResult{}, fmt.Errorf(
			"query embedding returned %d vectors: %w", len(queryVecs), domain.ErrProviderUnavailable)
	}

	candidates := domain.RankCandidates(queryVecs[0], items)

	sel, err := s.selectItems(ctx, query, candidates)
	if err != nil {
		metrics.AssistantQueriesTotal.WithLabelValues("error").Inc()
		return domain.AssistantResult{}, err
	}

	message := sel.Message
	if message == "" {
		message = FallbackMessage
	}

	candidateIDs := make([]int64, len(candidates))
	for i, c := range candidates {
		candidateIDs[i] = c.Item.ID()
	}

	metrics.AssistantQueriesTotal.WithLabelValues("ok").Inc()
	return domain.AssistantResult{
		Message:          message,
		PickedItemIDs:    sel.PickedIDs,
		CandidateItemIDs: candidateIDs,
	}, nil
}

// syncEmbeddings generates vectors for items that lack one, capped per
// query, and bulk-persists them. Items beyond the cap stay unembedded this
// round; they are excluded from ranking, not an error.
func (s *Service) syncEmbeddings(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	missing := make([]int, 0, len(items))
	for i := range items {
		if !items[i].HasEmbedding() {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return items, nil
	}
	if len(missing) > s.embedCap {
		missing = missing[:s.embedCap]
	}

	texts := make([]string, len(missing))
	for k, idx := range missing {
		texts[k] = items[idx].EmbeddingText()
	}

	vecs, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed items: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf(
			"item embedding returned %d vectors for %d texts: %w",
			len(vecs), len(texts), domain.ErrProviderUnavailable)
	}

	updates := make([]domain.EmbeddingUpdate, len(missing))
	for k, idx := range missing {
		items[idx] = items[idx].WithEmbedding(vecs[k])
		updates[k] = domain.EmbeddingUpdate{ItemID: items[idx].ID(), Embedding: vecs[k]}
	}

	if err := s.items.UpdateEmbeddings(ctx, updates); err != nil {
		return nil, fmt.Errorf("persist embeddings: %w", err)
	}

	metrics.ItemEmbeddingsSyncedTotal.Add(float64(len(updates)))
	s.logger.Debug("synchronized item embeddings", zap.Int("count", len(updates)))
	return items, nil
}
