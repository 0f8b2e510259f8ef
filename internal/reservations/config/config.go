package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"examslots/pkg/logger"
)

const (
	EnvBookingReservationTimeSeconds = "BOOKING_RESERVATION_TIME_SECONDS"

	DefaultBookingReservationTimeSeconds = 600
	// MaxBookingReservationTimeSeconds caps the TTL at one day. Larger
	// values are treated as misconfiguration.
	MaxBookingReservationTimeSeconds = 24 * 60 * 60
)

// TTLProvider supplies the reservation time-to-live. Implementations must
// never fail; a bad setting falls back to the default.
type TTLProvider interface {
	BookingReservationTimeSeconds() int
}

// EnvProvider reads the TTL from the environment on every call so a changed
// value applies to the next reservation without a restart.
type EnvProvider struct {
	log    *logger.Logger
	lookup func(string) (string, bool)

	mu         sync.Mutex
	lastWarned string
}

func NewEnvProvider(log *logger.Logger) *EnvProvider {
	return &EnvProvider{log: log, lookup: os.LookupEnv}
}

func (p *EnvProvider) BookingReservationTimeSeconds() int {
	raw, ok := p.lookup(EnvBookingReservationTimeSeconds)
	if !ok || strings.TrimSpace(raw) == "" {
		return DefaultBookingReservationTimeSeconds
	}

	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !ValidTTL(seconds) {
		p.warnOnce(raw)
		return DefaultBookingReservationTimeSeconds
	}
	return seconds
}

// warnOnce logs a misconfiguration the first time a given raw value is seen.
func (p *EnvProvider) warnOnce(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastWarned == raw {
		return
	}
	p.lastWarned = raw
	if p.log != nil {
		p.log.Warn("Invalid reservation TTL, using default",
			"env", EnvBookingReservationTimeSeconds,
			"value", raw,
			"default_seconds", DefaultBookingReservationTimeSeconds,
		)
	}
}

// ValidTTL reports whether seconds is a usable reservation TTL.
func ValidTTL(seconds int) bool {
	return seconds > 0 && seconds <= MaxBookingReservationTimeSeconds
}

// StaticProvider returns a fixed TTL. Values outside (0, one day] mean the default.
type StaticProvider int

func (p StaticProvider) BookingReservationTimeSeconds() int {
	if !ValidTTL(int(p)) {
		return DefaultBookingReservationTimeSeconds
	}
	return int(p)
}
