//go:build integration

package reservations

import (
	"context"
	"sync"
	"testing"

	"examslots/pkg/model"
	"examslots/test/integration/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve_ThenConflict(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)
	ctx := context.Background()

	// Arrange
	first := testutil.NewReserveRequestBuilder().Build()
	second := testutil.NewReserveRequestBuilder().
		WithExaminer(first.ExaminerProfileID).
		WithBookingTime(first.BookingTime).
		Build()

	// Act
	won, err := client.Reserve(ctx, first)
	require.NoError(t, err)
	lost, err := client.Reserve(ctx, second)
	require.NoError(t, err)

	// Assert
	assert.True(t, won.Success)
	assert.False(t, lost.Success)
	assert.Equal(t, "already_reserved", lost.Reason)
	assert.Equal(t, int64(1), mongo.CountReservations(t))
}

func TestReserve_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	base := testutil.NewReserveRequestBuilder().Build()

	const contenders = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := testutil.NewReserveRequestBuilder().
				WithExaminer(base.ExaminerProfileID).
				WithBookingTime(base.BookingTime).
				Build()
			out, err := client.Reserve(context.Background(), req)
			if err != nil {
				t.Errorf("reserve failed: %v", err)
				return
			}
			if out.Success {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestRelease_OnlyByOwner(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)
	ctx := context.Background()

	req := testutil.NewReserveRequestBuilder().Build()
	_, err := client.Reserve(ctx, req)
	require.NoError(t, err)

	foreign := testutil.ReleaseFor(req)
	foreign.ExaminationID = "someone-else"
	out, err := client.Release(ctx, foreign)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "ownership_mismatch", out.Reason)

	out, err = client.Release(ctx, testutil.ReleaseFor(req))
	require.NoError(t, err)
	assert.True(t, out.Success)

	availability, err := client.Availability(ctx, req.ExaminerProfileID, req.BookingTime)
	require.NoError(t, err)
	assert.True(t, availability.Available)
}

func TestExpiredReservation_IsFreeBeforeReclaim(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)
	ctx := context.Background()

	req := testutil.NewReserveRequestBuilder().Build()
	_, err := client.Reserve(ctx, req)
	require.NoError(t, err)

	mongo.ExpireNow(t, model.SlotKey(req.ExaminerProfileID, req.BookingTime))

	held, err := client.Check(ctx, req.ExaminerProfileID, req.BookingTime)
	require.NoError(t, err)
	assert.Nil(t, held)

	next := testutil.NewReserveRequestBuilder().
		WithExaminer(req.ExaminerProfileID).
		WithBookingTime(req.BookingTime).
		Build()
	out, err := client.Reserve(ctx, next)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestReservedSlots_ExcludesOwnExamination(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)
	ctx := context.Background()

	mine := testutil.NewReserveRequestBuilder().Build()
	_, err := client.Reserve(ctx, mine)
	require.NoError(t, err)

	other := testutil.NewReserveRequestBuilder().
		WithExaminer(mine.ExaminerProfileID).
		WithBookingTime("2031-01-01T09:00:00Z").
		Build()
	_, err = client.Reserve(ctx, other)
	require.NoError(t, err)

	times, err := client.ReservedSlots(ctx, mine.ExaminerProfileID, mine.ExaminationID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2031-01-01T09:00:00Z"}, times)
}
