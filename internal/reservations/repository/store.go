package repository

import (
	"context"
	"time"

	"examslots/pkg/model"
)

const (
	CollectionName = "Slot_reservations"
	TableName      = "slot_reservation"
)

// ReservationStore is the durable, shared state behind slot reservations.
// Every backend must make Create and DeleteIfOwner atomic per slot key;
// they are the only synchronization points for reservation state.
type ReservationStore interface {
	// Create stores r only if no live reservation holds r.SlotKey at now.
	// A stored record whose expiry is at or before now is replaced.
	// Returns ErrConflict when a live reservation exists.
	Create(ctx context.Context, r *model.SlotReservation, now time.Time) error

	// Get returns the stored record, which may already be logically
	// expired. Returns ErrNotFound when there is no record.
	Get(ctx context.Context, slotKey string) (*model.SlotReservation, error)

	// DeleteIfOwner removes the record only when examinationID owns it.
	// Returns ErrNotFound when there is no record and ErrConditionFailed
	// when another examination owns it.
	DeleteIfOwner(ctx context.Context, slotKey, examinationID string) error

	// FindLiveByExaminer returns reservations for an examiner whose expiry
	// is after now.
	FindLiveByExaminer(ctx context.Context, examinerProfileID string, now time.Time) ([]*model.SlotReservation, error)

	Ping(ctx context.Context) error
}

// Sweeper is implemented by backends without managed expiry. It physically
// removes records whose expiry is at or before now.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// withTimeout bounds ctx by timeout unless ctx already has a closer deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
