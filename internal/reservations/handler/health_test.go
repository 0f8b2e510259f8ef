package handler

import (
	"net/http"
	"testing"

	"examslots/internal/reservations/repository"
	kafka_middleware "examslots/pkg/kafka/middleware"
	"examslots/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(repository.NewMemoryReservationStore(), "memory", kafka_middleware.NewMetrics(), logger.Discard()).RegisterRoutes(router)

	rec := do(router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.NotNil(t, health.Kafka)

	rec = do(router, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "memory: ok", decode[HealthResponse](t, rec).Store)
}

func TestHealthHandler_StoreDown(t *testing.T) {
	router := httprouter.New()
	NewHealthHandler(brokenStore{}, "mongo", nil, logger.Discard()).RegisterRoutes(router)

	rec := do(router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[HealthResponse](t, rec).Kafka)

	rec = do(router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[HealthResponse](t, rec).Status)
}
