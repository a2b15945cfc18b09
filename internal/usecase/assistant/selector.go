package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/totsar/lostfound/internal/domain"
)

// NoMatchesMessage is returned when no candidates survive ranking.
const NoMatchesMessage = "I couldn't find matching items yet. " +
	"Try adding more details like color, brand, and where you lost it."

const selectorSystemPrompt = "You help users find lost items from a candidate list. " +
	"Choose the most relevant candidate IDs and explain in a friendly tone. " +
	"Return valid JSON with keys: friendly_response (string), picked_item_ids (array of integers)."

// candidatePayload is the projection of one candidate sent to the
// reasoning model.
type candidatePayload struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
	CosineScore float64  `json:"cosine_score"`
}

type selectorRequest struct {
	UserQuery  string             `json:"user_query"`
	Candidates []candidatePayload `json:"candidates"`
}

// selection is the sanitized outcome of the reasoning call.
type selection struct {
	Message   string
	PickedIDs []int64
}

// selectItems asks the reasoning model to pick from the shortlist. With no
// candidates it answers locally, no external call. Provider failures
// propagate; malformed model output does not.
func (s *Service) selectItems(
	ctx context.Context, query string, candidates []domain.Candidate,
) (selection, error) {
	if len(candidates) == 0 {
		return selection{Message: NoMatchesMessage, PickedIDs: []int64{}}, nil
	}

	payload := make([]candidatePayload, len(candidates))
	allowed := make(map[int64]struct{}, len(candidates))
	for i, c := range candidates {
		tags := c.Item.Tags()
		if tags == nil {
			tags = []string{}
		}
		payload[i] = candidatePayload{
			ID:          c.Item.ID(),
			Title:       c.Item.Title(),
			Description: c.Item.Description(),
			Location:    c.Item.Location(),
			Tags:        tags,
			CosineScore: roundScore(c.Score),
		}
		allowed[c.Item.ID()] = struct{}{}
	}

	body, err := json.Marshal(selectorRequest{UserQuery: query, Candidates: payload})
	if err != nil {
		return selection{}, fmt.Errorf("marshal selector request: %w", err)
	}

	raw, err := s.reason.Complete(ctx, selectorSystemPrompt, string(body))
	if err != nil {
		return selection{}, fmt.Errorf("reasoning call: %w", err)
	}

	return s.sanitizeSelection(raw, allowed), nil
}

// sanitizeSelection treats model output as untrusted input: an unparseable
// structure degrades to absent fields, each ID is coerced to int64, filtered
// against the candidate set, deduplicated keeping first occurrence, and the
// result is capped.
func (s *Service) sanitizeSelection(raw string, allowed map[int64]struct{}) selection {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		s.logger.Debug("unparseable reasoning output", zap.Error(err))
	}

	var message string
	_ = json.Unmarshal(fields["friendly_response"], &message)

	var rawIDs []json.RawMessage
	_ = json.Unmarshal(fields["picked_item_ids"], &rawIDs)

	picked := make([]int64, 0, domain.MaxPickedItems)
	seen := make(map[int64]struct{}, len(rawIDs))
	dropped := 0
	for _, r := range rawIDs {
		id, ok := coerceID(r)
		if !ok {
			dropped++
			continue
		}
		if _, in := allowed[id]; !in {
			dropped++
			continue
		}
		if _, dup := seen[id]; dup {
			dropped++
			continue
		}
		seen[id] = struct{}{}
		picked = append(picked, id)
	}
	if len(picked) > domain.MaxPickedItems {
		picked = picked[:domain.MaxPickedItems]
	}

	if dropped > 0 {
		s.logger.Debug("dropped invalid picked item ids", zap.Int("dropped", dropped))
	}

	return selection{Message: strings.TrimSpace(message), PickedIDs: picked}
}

// coerceID accepts a JSON number or a numeric string. A JSON null is not
// coercible: unmarshalling null into an int64 is a no-op that would
// otherwise report a spurious zero ID.
func coerceID(r json.RawMessage) (int64, bool) {
	if strings.TrimSpace(string(r)) == "null" {
		return 0, false
	}
	var id int64
	if json.Unmarshal(r, &id) == nil {
		return id, true
	}
	var str string
	if json.Unmarshal(r, &str) == nil {
		if id, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
