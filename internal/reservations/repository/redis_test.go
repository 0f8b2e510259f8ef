package repository

import (
	"context"
	"testing"
	"time"

	reservationserrors "examslots/internal/reservations/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMiniredisStore runs the store against an in-process Redis whose clock
// is pinned to contractNow, so EXPIREAT agrees with the timestamps under test.
func newMiniredisStore(t *testing.T) (*redisReservationStore, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	m.SetTime(contractNow)

	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return newRedisReservationStore(rdb, "slot_reservation", time.Second, time.Second), m
}

func TestRedisReservationStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ReservationStore {
		store, _ := newMiniredisStore(t)
		return store
	})
}

func TestRedisReservationStore_IndexFollowsRecords(t *testing.T) {
	ctx := context.Background()
	store, _ := newMiniredisStore(t)
	index := store.indexKey("exam1")

	require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E1", 10_100), contractNow))
	require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T15:00:00Z", "E2", 10_800), time.Unix(10_200, 0)))

	members, err := store.rdb.ZRange(ctx, index, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01T15:00:00Z"}, members, "expired entries are pruned on create")

	assert.ErrorIs(t, store.DeleteIfOwner(ctx, "exam1#2025-06-01T15:00:00Z", "E1"), reservationserrors.ErrConditionFailed)
	require.NoError(t, store.DeleteIfOwner(ctx, "exam1#2025-06-01T15:00:00Z", "E2"))

	count, err := store.rdb.ZCard(ctx, index).Result()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRedisReservationStore_RecordExpiresWithReservation(t *testing.T) {
	ctx := context.Background()
	store, m := newMiniredisStore(t)

	require.NoError(t, store.Create(ctx, newReservation("exam1", "2025-06-01T14:00:00Z", "E1", 10_600), contractNow))
	assert.Equal(t, 600*time.Second, m.TTL(store.recordKey("exam1", "2025-06-01T14:00:00Z")))

	m.FastForward(600 * time.Second)

	_, err := store.Get(ctx, "exam1#2025-06-01T14:00:00Z")
	assert.ErrorIs(t, err, reservationserrors.ErrNotFound)
}

func TestRedisReservationStore_Keys(t *testing.T) {
	store := newRedisReservationStore(nil, "slot_reservation", 0, 0)

	record, index, bookingTime, err := store.keysFor("exam123#2025-06-01T14:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, "slot_reservation:{exam123}:2025-06-01T14:00:00Z", record)
	assert.Equal(t, "slot_reservation:{exam123}:index", index)
	assert.Equal(t, "2025-06-01T14:00:00Z", bookingTime)
}

func TestRedisReservationStore_KeysMalformed(t *testing.T) {
	store := newRedisReservationStore(nil, "slot_reservation", 0, 0)

	_, _, _, err := store.keysFor("no-separator")
	assert.Error(t, err)
}

func TestRedisReservationStore_RecordToModel(t *testing.T) {
	rec := redisReservation{
		SlotKey:           "exam123#2025-06-01T14:00:00Z",
		ExaminerProfileID: "exam123",
		BookingTime:       "2025-06-01T14:00:00Z",
		ExaminationID:     "E1",
		ClaimantID:        "X",
		ReservedAt:        100,
		ExpiresAt:         700,
	}

	res := rec.toModel()
	assert.Equal(t, rec.SlotKey, res.SlotKey)
	assert.Equal(t, rec.ExaminationID, res.ExaminationID)
	assert.EqualValues(t, 700, res.ExpiresAt)
}
