package handler

import (
	"context"
	"net/http"
	"time"

	httputil "examslots/pkg/http"
	kafka_middleware "examslots/pkg/kafka/middleware"
	"examslots/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string                     `json:"status"`
	Store  string                     `json:"store,omitempty"`
	Kafka  *kafka_middleware.Snapshot `json:"kafka,omitempty"`
}

type HealthHandler struct {
	store        pinger
	storeBackend string
	metrics      *kafka_middleware.Metrics
	log          *logger.Logger
}

// NewHealthHandler reports liveness and store readiness. metrics may be
// nil when Kafka is disabled.
func NewHealthHandler(store pinger, storeBackend string, metrics *kafka_middleware.Metrics, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:        store,
		storeBackend: storeBackend,
		metrics:      metrics,
		log:          log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := HealthResponse{Status: "ok"}
	if h.metrics != nil {
		snapshot := h.metrics.Snapshot()
		resp.Kafka = &snapshot
	}
	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("Reservation store health check failed",
			"store_backend", h.storeBackend,
			"error", err,
			"path", r.URL.Path,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Store:  h.storeBackend + ": error",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ready",
		Store:  h.storeBackend + ": ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
