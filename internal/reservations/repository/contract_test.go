package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	reservationserrors "examslots/internal/reservations/errors"
	"examslots/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractNow is the instant every store contract case is evaluated at.
var contractNow = time.Unix(10_000, 0)

func newReservation(examiner, bookingTime, examination string, expiresAt int64) *model.SlotReservation {
	return &model.SlotReservation{
		SlotKey:           model.SlotKey(examiner, bookingTime),
		ExaminerProfileID: examiner,
		BookingTime:       bookingTime,
		ExaminationID:     examination,
		ClaimantID:        "claimant-" + examination,
		ReservedAt:        expiresAt - 600,
		ExpiresAt:         expiresAt,
	}
}

// runStoreContract checks the behaviour every ReservationStore backend must
// share. newStore returns an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) ReservationStore) {
	t.Run("create conflicts with a live reservation", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E1", 10_600), contractNow))

		err := store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E2", 10_600), contractNow)
		assert.ErrorIs(t, err, reservationserrors.ErrConflict)

		got, err := store.Get(ctx, "exam1#2025-06-01T14:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, "E1", got.ExaminationID)
		assert.Equal(t, "claimant-E1", got.ClaimantID)
		assert.EqualValues(t, 10_600, got.ExpiresAt)
	})

	t.Run("create replaces an expired reservation", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E1", 10_600), contractNow))
		require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E2", 11_200), time.Unix(10_600, 0)))

		got, err := store.Get(ctx, "exam1#2025-06-01T14:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, "E2", got.ExaminationID)
		assert.EqualValues(t, 11_200, got.ExpiresAt)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := newStore(t).Get(context.Background(), "exam1#2025-06-01T14:00:00Z")
		assert.ErrorIs(t, err, reservationserrors.ErrNotFound)
	})

	t.Run("delete only by owner", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		key := "exam1#2025-06-01T14:00:00Z"

		assert.ErrorIs(t, store.DeleteIfOwner(ctx, key, "E1"), reservationserrors.ErrNotFound)

		require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E1", 10_600), contractNow))
		assert.ErrorIs(t, store.DeleteIfOwner(ctx, key, "E2"), reservationserrors.ErrConditionFailed)

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "E1", got.ExaminationID)

		assert.NoError(t, store.DeleteIfOwner(ctx, key, "E1"))
		assert.ErrorIs(t, store.DeleteIfOwner(ctx, key, "E1"), reservationserrors.ErrNotFound)

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, reservationserrors.ErrNotFound)
	})

	t.Run("find live by examiner", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T15:00:00Z", "E1", 10_600), contractNow))
		require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E2", 10_600), contractNow))
		require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T16:00:00Z", "E3", 10_000), contractNow.Add(-time.Minute)))
		require.NoError(t, store.Create(ctx, newReservation("exam2", "2025-06-01T14:00:00Z", "E4", 10_600), contractNow))

		got, err := store.FindLiveByExaminer(ctx, "exam1", contractNow)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2025-06-01T14:00:00Z", got[0].BookingTime)
		assert.Equal(t, "2025-06-01T15:00:00Z", got[1].BookingTime)

		none, err := store.FindLiveByExaminer(ctx, "exam3", contractNow)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("concurrent create has one winner", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		const callers = 20
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			winners   []string
			conflicts int
		)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				examination := fmt.Sprintf("E%d", i)
				err := store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", examination, 10_600), contractNow)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners = append(winners, examination)
				case errors.Is(err, reservationserrors.ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected create error: %v", err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		require.Len(t, winners, 1)
		assert.Equal(t, callers-1, conflicts)

		got, err := store.Get(ctx, "exam1#2025-06-01T14:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, winners[0], got.ExaminationID)
	})
}
