package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"examslots/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationClient_Reserve(t *testing.T) {
	var gotClaimant, gotIdempotency string
	var gotBody model.ReserveSlotRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reservations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotClaimant = r.Header.Get(HeaderClaimantID)
		gotIdempotency = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"message":"Time slot reserved","expires_at":1748787000}`))
	}))
	defer srv.Close()

	c := NewReservationClient(srv.URL, time.Second)
	out, err := c.Reserve(context.Background(), model.ReserveSlotRequest{
		ExaminerProfileID: "exam123",
		BookingTime:       "2025-06-01T14:00:00Z",
		ExaminationID:     "E1",
		ClaimantID:        "X",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.ExpiresAt)
	assert.Equal(t, int64(1748787000), *out.ExpiresAt)
	assert.Equal(t, "X", gotClaimant)
	assert.NotEmpty(t, gotIdempotency)
	assert.Equal(t, "E1", gotBody.ExaminationID)
}

func TestReservationClient_ReserveConflictIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"message":"This time slot is already reserved. Please pick another time.","reason":"already_reserved"}`))
	}))
	defer srv.Close()

	out, err := NewReservationClient(srv.URL, time.Second).Reserve(context.Background(), model.ReserveSlotRequest{})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "already_reserved", out.Reason)
}

func TestReservationClient_ReserveUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
	}))
	defer srv.Close()

	_, err := NewReservationClient(srv.URL, time.Second).Reserve(context.Background(), model.ReserveSlotRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit exceeded")
}

func TestReservationClient_CheckNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "exam123", r.URL.Query().Get("examiner_profile_id"))
		assert.Equal(t, "2025-06-01T14:00:00Z", r.URL.Query().Get("booking_time"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"slot is not reserved"}`))
	}))
	defer srv.Close()

	res, err := NewReservationClient(srv.URL, time.Second).Check(context.Background(), "exam123", "2025-06-01T14:00:00Z")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReservationClient_CheckFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"slot_key":"exam123#2025-06-01T14:00:00Z","examination_id":"E1","expires_at":1748787000}}`))
	}))
	defer srv.Close()

	res, err := NewReservationClient(srv.URL, time.Second).Check(context.Background(), "exam123", "2025-06-01T14:00:00Z")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "E1", res.ExaminationID)
}

func TestReservationClient_ReservedSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/examiners/exam123/reserved-slots", r.URL.Path)
		assert.Equal(t, "E1", r.URL.Query().Get("exclude_examination_id"))
		_, _ = w.Write([]byte(`{"data":{"booking_times":["2025-06-01T15:00:00Z"]}}`))
	}))
	defer srv.Close()

	times, err := NewReservationClient(srv.URL, time.Second).ReservedSlots(context.Background(), "exam123", "E1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01T15:00:00Z"}, times)
}
