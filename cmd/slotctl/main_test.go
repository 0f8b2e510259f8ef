package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	reservationsconfig "examslots/internal/reservations/config"
	"examslots/internal/reservations/handler"
	"examslots/internal/reservations/repository"
	"examslots/internal/reservations/service"
	"examslots/internal/reservations/validator"
	"examslots/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.Discard()
	v := validator.NewReservationValidator(log)
	svc := service.NewSlotReservationService(repository.NewMemoryReservationStore(), reservationsconfig.StaticProvider(600), v, log)

	router := httprouter.New()
	handler.NewReservationHandler(service.NewBookingSlots(svc, log), svc, v, log).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const bookingTime = "2030-06-01T14:00:00Z"

func TestSlotctl_ReserveCheckRelease(t *testing.T) {
	srv := newServer(t)
	slot := []string{"--server", srv.URL, "--examiner", "exam123", "--time", bookingTime}

	out, err := run(t, append([]string{"reserve", "--examination", "E1", "--claimant", "X"}, slot...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Time slot reserved")

	_, err = run(t, append([]string{"reserve", "--examination", "E2", "--claimant", "Y"}, slot...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already_reserved")

	out, err = run(t, append([]string{"check"}, slot...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "held by examination E1 (claimant X)")

	out, err = run(t, append([]string{"availability"}, slot...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "reserved by examination E1")

	out, err = run(t, "reserved", "--server", srv.URL, "--examiner", "exam123")
	require.NoError(t, err)
	assert.Equal(t, bookingTime+"\n", out)

	out, err = run(t, "reserved", "--server", srv.URL, "--examiner", "exam123", "--exclude-examination", "E1")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, append([]string{"release", "--examination", "E2"}, slot...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ownership_mismatch")

	out, err = run(t, append([]string{"release", "--examination", "E1"}, slot...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Time slot released")

	out, err = run(t, append([]string{"check"}, slot...)...)
	require.NoError(t, err)
	assert.Equal(t, "free\n", out)
}

func TestSlotctl_RequiredFlags(t *testing.T) {
	_, err := run(t, "reserve", "--examiner", "exam123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestSlotctl_WatchExpired(t *testing.T) {
	expiresAt := time.Now().Add(-time.Minute).Unix()
	out, err := run(t, "watch", "--expires-at", fmt.Sprint(expiresAt), "--tick", "10ms")
	require.NoError(t, err)

	warning := strings.Index(out, "warning")
	critical := strings.Index(out, "critical")
	expired := strings.Index(out, "reservation expired")
	require.True(t, warning >= 0 && critical > warning && expired > critical, out)
}

func TestSlotctl_WatchCountsDown(t *testing.T) {
	expiresAt := time.Now().Add(3 * time.Second).Unix()
	out, err := run(t, "watch", "--expires-at", fmt.Sprint(expiresAt), "--tick", "5ms")
	require.NoError(t, err)
	assert.Contains(t, out, "00:00  expired")
	assert.Contains(t, out, "reservation expired")
}
