package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	reservationsconfig "examslots/internal/reservations/config"
	"examslots/internal/reservations/repository"
	"examslots/internal/reservations/service"
	"examslots/internal/reservations/validator"
	httputil "examslots/pkg/http"
	"examslots/pkg/logger"
	"examslots/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 13, 50, 0, 0, time.UTC)

type brokenStore struct{}

var errStoreDown = errors.New("connection refused")

func (brokenStore) Create(context.Context, *model.SlotReservation, time.Time) error {
	return errStoreDown
}
func (brokenStore) Get(context.Context, string) (*model.SlotReservation, error) {
	return nil, errStoreDown
}
func (brokenStore) DeleteIfOwner(context.Context, string, string) error { return errStoreDown }
func (brokenStore) FindLiveByExaminer(context.Context, string, time.Time) ([]*model.SlotReservation, error) {
	return nil, errStoreDown
}
func (brokenStore) Ping(context.Context) error { return errStoreDown }

func newRouter(t *testing.T, store repository.ReservationStore) *httprouter.Router {
	t.Helper()
	log := logger.Discard()
	v := validator.NewReservationValidator(log)
	svc := service.NewSlotReservationService(store, reservationsconfig.StaticProvider(600), v, log,
		service.WithClock(func() time.Time { return testNow }))

	router := httprouter.New()
	NewReservationHandler(service.NewBookingSlots(svc, log), svc, v, log).RegisterRoutes(router)
	return router
}

func do(router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const (
	slotQuery  = "examiner_profile_id=exam123&booking_time=2025-06-01T14:00:00Z"
	reserveE1  = `{"examiner_profile_id":"exam123","booking_time":"2025-06-01T14:00:00Z","examination_id":"E1","claimant_id":"X"}`
	reserveE2  = `{"examiner_profile_id":"exam123","booking_time":"2025-06-01T14:00:00Z","examination_id":"E2","claimant_id":"Y"}`
	releaseE1  = `{"examiner_profile_id":"exam123","booking_time":"2025-06-01T14:00:00Z","examination_id":"E1"}`
	releaseE2  = `{"examiner_profile_id":"exam123","booking_time":"2025-06-01T14:00:00Z","examination_id":"E2"}`
	reservedAt = "/api/v1/examiners/exam123/reserved-slots"
)

func TestReservationFlow(t *testing.T) {
	router := newRouter(t, repository.NewMemoryReservationStore())

	rec := do(router, http.MethodPost, "/api/v1/reservations", reserveE1, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reserved := decode[service.ReserveTimeSlotResult](t, rec)
	assert.True(t, reserved.Success)
	require.NotNil(t, reserved.ExpiresAt)
	assert.Equal(t, testNow.Unix()+600, *reserved.ExpiresAt)

	rec = do(router, http.MethodPost, "/api/v1/reservations", reserveE2, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[service.ReserveTimeSlotResult](t, rec)
	assert.False(t, conflict.Success)
	assert.Equal(t, service.MessageAlreadyReserved, conflict.Message)

	rec = do(router, http.MethodGet, "/api/v1/reservations/availability?"+slotQuery, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	availability := decode[service.SlotAvailability](t, rec)
	assert.False(t, availability.Available)
	assert.Equal(t, "E1", availability.ReservedBy)

	rec = do(router, http.MethodGet, "/api/v1/reservations/slot?"+slotQuery, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slot := decode[struct {
		Data model.SlotReservation `json:"data"`
	}](t, rec)
	assert.Equal(t, "exam123#2025-06-01T14:00:00Z", slot.Data.SlotKey)
	assert.Equal(t, "X", slot.Data.ClaimantID)

	rec = do(router, http.MethodGet, reservedAt+"?exclude_examination_id=E2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Data ReservedSlotsResponse `json:"data"`
	}](t, rec)
	assert.Equal(t, []string{"2025-06-01T14:00:00Z"}, list.Data.BookingTimes)

	rec = do(router, http.MethodPost, "/api/v1/reservations/release", releaseE2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mismatch := decode[service.ReleaseTimeSlotResult](t, rec)
	assert.False(t, mismatch.Success)
	assert.Equal(t, service.ReasonOwnershipMismatch, mismatch.Reason)

	rec = do(router, http.MethodPost, "/api/v1/reservations/release", releaseE1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.ReleaseTimeSlotResult](t, rec).Success)

	rec = do(router, http.MethodGet, "/api/v1/reservations/availability?"+slotQuery, "", nil)
	assert.True(t, decode[service.SlotAvailability](t, rec).Available)

	rec = do(router, http.MethodGet, "/api/v1/reservations/slot?"+slotQuery, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	notFound := decode[httputil.ErrorResponse](t, rec)
	assert.Equal(t, "exam123#2025-06-01T14:00:00Z", notFound.Details["id"])
}

func TestReserve_ClaimantFromHeader(t *testing.T) {
	store := repository.NewMemoryReservationStore()
	router := newRouter(t, store)

	body := `{"examiner_profile_id":"exam123","booking_time":"2025-06-01T14:00:00Z","examination_id":"E1"}`
	rec := do(router, http.MethodPost, "/api/v1/reservations", body, map[string]string{"X-Claimant-ID": "X"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res, err := store.Get(context.Background(), "exam123#2025-06-01T14:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "X", res.ClaimantID)
}

func TestReserve_BadRequests(t *testing.T) {
	router := newRouter(t, repository.NewMemoryReservationStore())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"examiner_profile_id":`, http.StatusBadRequest},
		{"unknown field", `{"slot":"x"}`, http.StatusBadRequest},
		{"bad booking time", `{"examiner_profile_id":"exam123","booking_time":"tomorrow","examination_id":"E1","claimant_id":"X"}`, http.StatusUnprocessableEntity},
		{"separator in examiner id", `{"examiner_profile_id":"exam#123","booking_time":"2025-06-01T14:00:00Z","examination_id":"E1","claimant_id":"X"}`, http.StatusUnprocessableEntity},
		{"missing examination", `{"examiner_profile_id":"exam123","booking_time":"2025-06-01T14:00:00Z","claimant_id":"X"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/api/v1/reservations", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSlotQueries_Validation(t *testing.T) {
	router := newRouter(t, repository.NewMemoryReservationStore())

	rec := do(router, http.MethodGet, "/api/v1/reservations/availability?examiner_profile_id=exam123", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/reservations/slot?examiner_profile_id=exam123&booking_time=soon", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[httputil.ErrorResponse](t, rec)
	assert.Contains(t, body.Details, "booking_time")

	rec = do(router, http.MethodGet, "/api/v1/examiners/exam%7B1%7D/reserved-slots", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStoreOutage(t *testing.T) {
	router := newRouter(t, brokenStore{})

	rec := do(router, http.MethodPost, "/api/v1/reservations", reserveE1, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	res := decode[service.ReserveTimeSlotResult](t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, service.MessageReserveFailed, res.Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = do(router, http.MethodPost, "/api/v1/reservations/release", releaseE1, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/reservations/availability?"+slotQuery, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.SlotAvailability](t, rec).Available, "availability degrades to available")

	rec = do(router, http.MethodGet, "/api/v1/reservations/slot?"+slotQuery, "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	outage := decode[httputil.ErrorResponse](t, rec)
	assert.Equal(t, "SERVICE_UNAVAILABLE", outage.Code)
	assert.Equal(t, "Reservation store is temporarily unavailable", outage.Error)

	rec = do(router, http.MethodGet, reservedAt, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Data ReservedSlotsResponse `json:"data"`
	}](t, rec)
	assert.Empty(t, list.Data.BookingTimes)
}
