package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"examslots/internal/reservations/config"
	"examslots/internal/reservations/repository"
	"examslots/internal/reservations/validator"
	"examslots/pkg/logger"
	"examslots/pkg/model"
)

// ────────────────────────────────────────────────
// Test doubles
// ────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockStore struct {
	createFunc        func(ctx context.Context, r *model.SlotReservation, now time.Time) error
	getFunc           func(ctx context.Context, slotKey string) (*model.SlotReservation, error)
	deleteIfOwnerFunc func(ctx context.Context, slotKey, examinationID string) error
	findLiveFunc      func(ctx context.Context, examinerProfileID string, now time.Time) ([]*model.SlotReservation, error)
}

func (m *mockStore) Create(ctx context.Context, r *model.SlotReservation, now time.Time) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, r, now)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, slotKey string) (*model.SlotReservation, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, slotKey)
	}
	return nil, nil
}

func (m *mockStore) DeleteIfOwner(ctx context.Context, slotKey, examinationID string) error {
	if m.deleteIfOwnerFunc != nil {
		return m.deleteIfOwnerFunc(ctx, slotKey, examinationID)
	}
	return nil
}

func (m *mockStore) FindLiveByExaminer(ctx context.Context, examinerProfileID string, now time.Time) ([]*model.SlotReservation, error) {
	if m.findLiveFunc != nil {
		return m.findLiveFunc(ctx, examinerProfileID, now)
	}
	return nil, nil
}

func (m *mockStore) Ping(context.Context) error {
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.SlotEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.SlotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []model.SlotEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.SlotEvent(nil), p.events...)
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Output:  io.Discard,
		Service: "test",
	})
}

func newTestService(t *testing.T, store repository.ReservationStore, clock *fakeClock, opts ...Option) SlotReservationService {
	t.Helper()
	log := newTestLogger()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewSlotReservationService(store, config.StaticProvider(600), validator.NewReservationValidator(log), log, opts...)
}
