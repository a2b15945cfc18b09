package chi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/totsar/lostfound/internal/domain"
	assistantuc "github.com/totsar/lostfound/internal/usecase/assistant"
)

// parseSSE splits a raw stream body into (event, data) pairs.
func parseSSE(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	for _, block := range strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n") {
		lines := strings.SplitN(block, "\n", 2)
		if len(lines) != 2 {
			t.Fatalf("malformed frame %q", block)
		}
		frames = append(frames, sseFrame{
			Event: strings.TrimPrefix(lines[0], "event: "),
			Data:  strings.TrimPrefix(lines[1], "data: "),
		})
	}
	return frames
}

type sseFrame struct {
	Event string
	Data  string
}

func TestStream_HeadersAndSequence(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "black wallet")
	h.reasoner.output = `{"friendly_response":"Found your wallet!","picked_item_ids":[1]}`

	rec := h.do(t, http.MethodPost, "/api/v1/assistant/lost-item/stream", `{"query":"wallet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	headers := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	}
	for k, want := range headers {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("header %s: expected %q, got %q", k, want, got)
		}
	}

	frames := parseSSE(t, rec.Body.String())
	if len(frames) < 4 {
		t.Fatalf("expected at least 4 frames, got %d", len(frames))
	}

	// Message chunks first, then selected, candidates, done.
	var message strings.Builder
	i := 0
	for ; i < len(frames) && frames[i].Event == eventAssistantMessage; i++ {
		var payload chunkPayload
		if err := json.Unmarshal([]byte(frames[i].Data), &payload); err != nil {
			t.Fatalf("chunk payload: %v", err)
		}
		message.WriteString(payload.Chunk)
	}
	if message.String() != "Found your wallet!" {
		t.Errorf("concatenated chunks mismatch: %q", message.String())
	}

	rest := frames[i:]
	wantOrder := []string{eventSelectedItemIDs, eventCandidateItemIDs, eventDone}
	if len(rest) != len(wantOrder) {
		t.Fatalf("expected %d trailing frames, got %d", len(wantOrder), len(rest))
	}
	for j, want := range wantOrder {
		if rest[j].Event != want {
			t.Errorf("frame %d: expected event %q, got %q", j, want, rest[j].Event)
		}
	}

	var selected itemIDsPayload
	if err := json.Unmarshal([]byte(rest[0].Data), &selected); err != nil {
		t.Fatalf("selected payload: %v", err)
	}
	if len(selected.ItemIDs) != 1 || selected.ItemIDs[0] != 1 {
		t.Errorf("unexpected selected ids %v", selected.ItemIDs)
	}
	if rest[2].Data != "{}" {
		t.Errorf("done payload must be an empty object, got %q", rest[2].Data)
	}
}

func TestStream_ConfiguredChunkSize(t *testing.T) {
	h := newHarness(t, withChunkSize(5))
	h.seed(t, "wallet")
	h.reasoner.output = `{"friendly_response":"twelve chars","picked_item_ids":[]}`

	rec := h.do(t, http.MethodPost, "/api/v1/assistant/lost-item/stream", `{"query":"wallet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	chunks := 0
	for _, frame := range parseSSE(t, rec.Body.String()) {
		if frame.Event == eventAssistantMessage {
			chunks++
		}
	}
	// 12 runes at 5 per chunk.
	if chunks != 3 {
		t.Errorf("expected 3 message chunks, got %d", chunks)
	}
}

func TestStream_ErrorBeforeFirstFrame(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "wallet")
	h.embedder.err = domain.ErrProviderUnavailable

	rec := h.do(t, http.MethodPost, "/api/v1/assistant/lost-item/stream", `{"query":"wallet"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("failures must answer as JSON, got content type %q", ct)
	}
}

func TestStream_NotConfigured(t *testing.T) {
	h := newHarness(t, withoutAssistant())

	rec := h.do(t, http.MethodPost, "/api/v1/assistant/lost-item/stream", `{"query":"wallet"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestStream_QueryValidation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/assistant/lost-item/stream", `{"query":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAssistantEvents_Chunking(t *testing.T) {
	cases := []struct {
		name       string
		message    string
		chunkSize  int
		wantChunks int
	}{
		{"exact multiple", strings.Repeat("a", 128), 64, 2},
		{"remainder", strings.Repeat("a", 130), 64, 3},
		{"shorter than chunk", "hi", 64, 1},
		{"chunk of one", "abc", 1, 3},
		{"zero falls back to default", strings.Repeat("a", defaultStreamChunkSize+1), 0, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := domain.AssistantResult{Message: tc.message}
			events := assistantEvents(&res, tc.chunkSize)

			chunks := 0
			var rebuilt strings.Builder
			for _, ev := range events {
				if ev.Name != eventAssistantMessage {
					continue
				}
				chunks++
				rebuilt.WriteString(ev.Data.(chunkPayload).Chunk)
			}
			if chunks != tc.wantChunks {
				t.Errorf("expected %d chunks, got %d", tc.wantChunks, chunks)
			}
			if rebuilt.String() != tc.message {
				t.Errorf("chunks must concatenate to the original message")
			}
		})
	}
}

func TestAssistantEvents_MultibyteSafe(t *testing.T) {
	// Chunking splits on runes, never through a UTF-8 sequence.
	message := strings.Repeat("зонт☂", 10)
	res := domain.AssistantResult{Message: message}

	var rebuilt strings.Builder
	for _, ev := range assistantEvents(&res, 7) {
		if ev.Name != eventAssistantMessage {
			continue
		}
		chunk := ev.Data.(chunkPayload).Chunk
		if len([]rune(chunk)) > 7 {
			t.Errorf("chunk exceeds rune budget: %q", chunk)
		}
		rebuilt.WriteString(chunk)
	}
	if rebuilt.String() != message {
		t.Error("chunks must concatenate to the original message")
	}
}

func TestAssistantEvents_EmptyMessage(t *testing.T) {
	res := domain.AssistantResult{
		Message:          "",
		PickedItemIDs:    []int64{1},
		CandidateItemIDs: []int64{1, 2},
	}
	events := assistantEvents(&res, 64)

	wantOrder := []string{eventSelectedItemIDs, eventCandidateItemIDs, eventDone}
	if len(events) != len(wantOrder) {
		t.Fatalf("expected %d events, got %d", len(wantOrder), len(events))
	}
	for i, want := range wantOrder {
		if events[i].Name != want {
			t.Errorf("event %d: expected %q, got %q", i, want, events[i].Name)
		}
	}
}

func TestStream_EmptyCatalogue(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/assistant/lost-item/stream", `{"query":"wallet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	frames := parseSSE(t, rec.Body.String())
	if frames[0].Event != eventAssistantMessage {
		t.Fatalf("expected message frame first, got %q", frames[0].Event)
	}
	var payload chunkPayload
	if err := json.Unmarshal([]byte(frames[0].Data), &payload); err != nil {
		t.Fatalf("chunk payload: %v", err)
	}
	if payload.Chunk != assistantuc.NoItemsMessage {
		t.Errorf("expected empty-catalogue message, got %q", payload.Chunk)
	}
	if frames[len(frames)-1].Event != eventDone {
		t.Error("stream must end with a done event")
	}
}
