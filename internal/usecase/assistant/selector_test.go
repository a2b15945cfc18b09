package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/totsar/lostfound/internal/domain"
)

func allowedSet(ids ...int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestSelectItems_NoCandidatesAnswersLocally(t *testing.T) {
	reason := &mockReasoner{}
	svc := newTestService(&mockItems{}, &mockEmbedder{}, reason)

	sel, err := svc.selectItems(context.Background(), "wallet", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Message != NoMatchesMessage {
		t.Errorf("expected canned no-matches message, got %q", sel.Message)
	}
	if sel.PickedIDs == nil || len(sel.PickedIDs) != 0 {
		t.Errorf("expected empty non-nil picked ids, got %v", sel.PickedIDs)
	}
	if reason.calls != 0 {
		t.Error("no reasoning call expected without candidates")
	}
}

func TestSelectItems_SendsCandidatePayload(t *testing.T) {
	reason := &mockReasoner{output: `{}`}
	svc := newTestService(&mockItems{}, &mockEmbedder{}, reason)

	item := catalogueItem(t, 42, "black wallet", []float32{1, 0})
	candidates := []domain.Candidate{{Item: item, Score: 0.87654321}}

	_, err := svc.selectItems(context.Background(), "lost wallet", candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason.calls != 1 {
		t.Fatalf("expected one reasoning call, got %d", reason.calls)
	}

	var req selectorRequest
	if err := json.Unmarshal([]byte(reason.lastUser), &req); err != nil {
		t.Fatalf("user message is not valid JSON: %v", err)
	}
	if req.UserQuery != "lost wallet" {
		t.Errorf("unexpected user query %q", req.UserQuery)
	}
	if len(req.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(req.Candidates))
	}
	c := req.Candidates[0]
	if c.ID != 42 || c.Title != "black wallet" {
		t.Errorf("unexpected candidate %+v", c)
	}
	if c.CosineScore != 0.8765 {
		t.Errorf("expected score rounded to 4 decimals, got %v", c.CosineScore)
	}
	if !strings.Contains(reason.lastSystem, "friendly_response") {
		t.Error("system prompt must describe the expected JSON shape")
	}
}

func TestSanitizeSelection_FiltersAndCoerces(t *testing.T) {
	svc := newTestService(&mockItems{}, &mockEmbedder{}, &mockReasoner{})

	raw := `{"friendly_response":" Found it! ","picked_item_ids":[2,"2",999,"x",1,null,1.5]}`
	sel := svc.sanitizeSelection(raw, allowedSet(1, 2, 3))

	if sel.Message != "Found it!" {
		t.Errorf("expected trimmed message, got %q", sel.Message)
	}
	// 2 kept, "2" dropped as duplicate, 999 not a candidate, "x" and null
	// not coercible, 1 kept. 1.5 does not parse as int64.
	want := []int64{2, 1}
	if len(sel.PickedIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, sel.PickedIDs)
	}
	for i := range want {
		if sel.PickedIDs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, sel.PickedIDs)
		}
	}
}

func TestSanitizeSelection_CapsPickedItems(t *testing.T) {
	svc := newTestService(&mockItems{}, &mockEmbedder{}, &mockReasoner{})

	raw := `{"friendly_response":"m","picked_item_ids":[1,2,3,4,5,6,7]}`
	sel := svc.sanitizeSelection(raw, allowedSet(1, 2, 3, 4, 5, 6, 7))

	if len(sel.PickedIDs) != domain.MaxPickedItems {
		t.Fatalf("expected picked ids capped at %d, got %d", domain.MaxPickedItems, len(sel.PickedIDs))
	}
	for i, id := range sel.PickedIDs {
		if id != int64(i+1) {
			t.Errorf("expected first occurrences kept in order, got %v", sel.PickedIDs)
			break
		}
	}
}

func TestSanitizeSelection_MalformedOutput(t *testing.T) {
	svc := newTestService(&mockItems{}, &mockEmbedder{}, &mockReasoner{})

	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "sorry, I cannot help with that"},
		{"json array", `[1,2,3]`},
		{"wrong field types", `{"friendly_response":42,"picked_item_ids":"1,2"}`},
		{"missing fields", `{}`},
		{"empty string", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sel := svc.sanitizeSelection(tc.raw, allowedSet(1, 2, 3))
			if sel.Message != "" {
				t.Errorf("expected empty message, got %q", sel.Message)
			}
			if sel.PickedIDs == nil || len(sel.PickedIDs) != 0 {
				t.Errorf("expected empty non-nil picked ids, got %v", sel.PickedIDs)
			}
		})
	}
}

func TestCoerceID(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{`7`, 7, true},
		{`"7"`, 7, true},
		{`" 7 "`, 7, true},
		{`"seven"`, 0, false},
		{`1.5`, 0, false},
		{`null`, 0, false},
		{`{}`, 0, false},
	}
	for _, tc := range cases {
		got, ok := coerceID(json.RawMessage(tc.raw))
		if ok != tc.ok || got != tc.want {
			t.Errorf("coerceID(%s) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
