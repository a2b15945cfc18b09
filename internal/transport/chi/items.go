package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/totsar/lostfound/internal/domain"
	cataloguc "github.com/totsar/lostfound/internal/usecase/catalog"
)

type itemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
}

type itemResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	Tags         []string  `json:"tags"`
	HasEmbedding bool      `json:"hasEmbedding"`
	CreatedAt    time.Time `json:"createdAt"`
}

type itemListResponse struct {
	Items []itemResponse `json:"items"`
	Total int            `json:"total"`
}

func itemToResponse(it *domain.Item) itemResponse {
	tags := it.Tags()
	if tags == nil {
		tags = []string{}
	}
	return itemResponse{
		ID:           it.ID(),
		Title:        it.Title(),
		Description:  it.Description(),
		Location:     it.Location(),
		Tags:         tags,
		HasEmbedding: it.HasEmbedding(),
		CreatedAt:    time.UnixMilli(it.CreatedAt()).UTC(),
	}
}

// CreateItem handles POST /api/v1/items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	it, err := s.catalog.Create(r.Context(), req.Title, req.Description, req.Location, req.Tags)
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, itemToResponse(&it))
}

// ListItems handles GET /api/v1/items.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	f := cataloguc.Filter{
		Search: r.URL.Query().Get("search"),
		Tag:    r.URL.Query().Get("tag"),
	}

	items, err := s.catalog.List(r.Context(), f)
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}

	out := make([]itemResponse, len(items))
	for i := range items {
		out[i] = itemToResponse(&items[i])
	}

	writeJSON(w, http.StatusOK, itemListResponse{Items: out, Total: len(out)})
}

// GetItem handles GET /api/v1/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	it, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(&it))
}

// UpdateItem handles PUT /api/v1/items/{id}.
func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	it, err := s.catalog.Update(r.Context(), id, req.Title, req.Description, req.Location, req.Tags)
	if err != nil {
		s.handleCatalogError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemToResponse(&it))
}

// DeleteItem handles DELETE /api/v1/items/{id}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := s.catalog.Delete(r.Context(), id); err != nil {
		s.handleCatalogError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "item id must be a positive integer")
		return 0, false
	}
	return id, true
}
