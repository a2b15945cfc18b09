package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/totsar/lostfound/internal/domain"
	assistantuc "github.com/totsar/lostfound/internal/usecase/assistant"
	cataloguc "github.com/totsar/lostfound/internal/usecase/catalog"
	healthuc "github.com/totsar/lostfound/internal/usecase/health"
)

// Error response codes returned in the "code" field.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeItemNotFound         = "item_not_found"
	codeAssistantUnavailable = "assistant_unavailable"
	codeInternalError        = "internal_error"
)

// TransientAssistantMessage is returned when the assistant pipeline fails for
// reasons other than missing configuration. The underlying cause is logged,
// never sent to the client.
const TransientAssistantMessage = "The assistant is currently unavailable. Please try again."

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server exposes the catalogue and assistant over HTTP.
type Server struct {
	catalog   *cataloguc.Service
	assistant *assistantuc.Service
	health    *healthuc.Service
	logger    *zap.Logger

	maxQueryLen     int
	streamChunkSize int
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	assistant *assistantuc.Service,
	health *healthuc.Service,
	maxQueryLen int,
	streamChunkSize int,
	logger *zap.Logger,
) *Server {
	return &Server{
		catalog:         catalog,
		assistant:       assistant,
		health:          health,
		maxQueryLen:     maxQueryLen,
		streamChunkSize: streamChunkSize,
		logger:          logger,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", s.CreateItem)
			r.Get("/", s.ListItems)
			r.Get("/{id}", s.GetItem)
			r.Put("/{id}", s.UpdateItem)
			r.Delete("/{id}", s.DeleteItem)
		})
		r.Route("/assistant", func(r chi.Router) {
			r.Post("/lost-item", s.FindLostItem)
			r.Post("/lost-item/stream", s.FindLostItemStream)
		})
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// handleCatalogError maps catalogue errors to HTTP responses.
func (s *Server) handleCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, domain.ErrItemNotFound.Error())
	case errors.Is(err, domain.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// handleAssistantError maps assistant pipeline errors to HTTP responses.
// A missing API key keeps its sentinel message; everything else collapses
// into one retryable message so provider detail never leaks to clients.
func (s *Server) handleAssistantError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrAssistantNotConfigured) {
		writeError(w, http.StatusServiceUnavailable,
			codeAssistantUnavailable, domain.ErrAssistantNotConfigured.Error())
		return
	}
	s.logger.Error("assistant request failed", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable,
		codeAssistantUnavailable, TransientAssistantMessage)
}
