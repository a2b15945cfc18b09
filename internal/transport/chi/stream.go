package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/totsar/lostfound/internal/domain"
)

// Server-sent event names emitted by the streaming assistant endpoint.
const (
	eventAssistantMessage = "assistant_message"
	eventSelectedItemIDs  = "selected_item_ids"
	eventCandidateItemIDs = "candidate_item_ids"
	eventDone             = "done"
)

const defaultStreamChunkSize = 64

type sseEvent struct {
	Name string
	Data any
}

type chunkPayload struct {
	Chunk string `json:"chunk"`
}

type itemIDsPayload struct {
	ItemIDs []int64 `json:"itemIds"`
}

// FindLostItemStream handles POST /api/v1/assistant/lost-item/stream.
//
// The full result is computed before the first frame is written: a failure
// mid-pipeline must surface as a regular JSON error, never as a truncated
// event stream.
func (s *Server) FindLostItemStream(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeAssistantQuery(w, r)
	if !ok {
		return
	}

	res, err := s.assistant.Find(r.Context(), query)
	if err != nil {
		s.handleAssistantError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for _, ev := range assistantEvents(&res, s.streamChunkSize) {
		if err := writeSSE(w, ev); err != nil {
			s.logger.Debug("client disconnected during stream", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// assistantEvents converts a finished result into the ordered event sequence:
// the message in rune-sized chunks, then the picked and candidate ID lists,
// then a terminal done event.
func assistantEvents(res *domain.AssistantResult, chunkSize int) []sseEvent {
	if chunkSize <= 0 {
		chunkSize = defaultStreamChunkSize
	}

	var events []sseEvent
	runes := []rune(res.Message)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		events = append(events, sseEvent{
			Name: eventAssistantMessage,
			Data: chunkPayload{Chunk: string(runes[start:end])},
		})
	}

	picked := res.PickedItemIDs
	if picked == nil {
		picked = []int64{}
	}
	candidates := res.CandidateItemIDs
	if candidates == nil {
		candidates = []int64{}
	}

	events = append(events,
		sseEvent{Name: eventSelectedItemIDs, Data: itemIDsPayload{ItemIDs: picked}},
		sseEvent{Name: eventCandidateItemIDs, Data: itemIDsPayload{ItemIDs: candidates}},
		sseEvent{Name: eventDone, Data: struct{}{}},
	)
	return events
}

func writeSSE(w http.ResponseWriter, ev sseEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
		return fmt.Errorf("write event %s: %w", ev.Name, err)
	}
	return nil
}
