package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/totsar/lostfound/internal/domain"
)

type assistantRequest struct {
	Query string `json:"query"`
}

type assistantResponse struct {
	Message          string  `json:"message"`
	PickedItemIDs    []int64 `json:"pickedItemIds"`
	CandidateItemIDs []int64 `json:"candidateItemIds"`
}

func assistantToResponse(res *domain.AssistantResult) assistantResponse {
	picked := res.PickedItemIDs
	if picked == nil {
		picked = []int64{}
	}
	candidates := res.CandidateItemIDs
	if candidates == nil {
		candidates = []int64{}
	}
	return assistantResponse{
		Message:          res.Message,
		PickedItemIDs:    picked,
		CandidateItemIDs: candidates,
	}
}

// decodeAssistantQuery parses and validates the query. Returns false if a
// response was already written.
func (s *Server) decodeAssistantQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return "", false
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return "", false
	}
	if s.maxQueryLen > 0 && len([]rune(query)) > s.maxQueryLen {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("query must be at most %d characters", s.maxQueryLen))
		return "", false
	}
	return query, true
}

// FindLostItem handles POST /api/v1/assistant/lost-item.
func (s *Server) FindLostItem(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeAssistantQuery(w, r)
	if !ok {
		return
	}

	res, err := s.assistant.Find(r.Context(), query)
	if err != nil {
		s.handleAssistantError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assistantToResponse(&res))
}
