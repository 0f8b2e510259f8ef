package repository

import (
	"fmt"

	"examslots/pkg/config"
)

// NewReservationStore builds the store for the configured backend. The
// backend's client must already be connected on cfg.Client.
func NewReservationStore(cfg *config.Config) (ReservationStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		return NewMongoReservationStore(cfg), nil
	case config.StoreBackendRedis:
		return NewRedisReservationStore(cfg), nil
	case config.StoreBackendPostgres:
		return NewPostgresReservationStore(cfg), nil
	case config.StoreBackendMemory:
		return NewMemoryReservationStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
