package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"examslots/internal/reservations/repository"
	"examslots/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingService struct{}

func (panickingService) ReserveSlot(context.Context, string, string, string, string) ReserveResult {
	panic("boom")
}

func (panickingService) CheckSlotReservation(context.Context, string, string) (*model.SlotReservation, error) {
	panic("boom")
}

func (panickingService) ReleaseSlot(context.Context, string, string, string) ReleaseResult {
	panic("boom")
}

func (panickingService) GetExaminerReservedSlots(context.Context, string, string) ([]string, error) {
	panic("boom")
}

func TestBookingSlots_EndToEnd(t *testing.T) {
	clock := newFakeClock()
	svc := newTestService(t, repository.NewMemoryReservationStore(), clock)
	slots := NewBookingSlots(svc, newTestLogger())
	ctx := context.Background()

	x := slots.ReserveTimeSlot(ctx, examiner, bookingTime, "E1", "X")
	require.True(t, x.Success)
	require.NotNil(t, x.ExpiresAt)
	assert.Equal(t, clock.Now().Unix()+600, *x.ExpiresAt)
	assert.Equal(t, MessageReserved, x.Message)

	y := slots.ReserveTimeSlot(ctx, examiner, bookingTime, "E2", "Y")
	assert.False(t, y.Success)
	assert.Equal(t, MessageAlreadyReserved, y.Message)
	assert.Nil(t, y.ExpiresAt)

	availability := slots.CheckSlotAvailability(ctx, examiner, bookingTime)
	assert.False(t, availability.Available)
	assert.Equal(t, "E1", availability.ReservedBy)

	released := slots.ReleaseTimeSlot(ctx, examiner, bookingTime, "E1")
	assert.True(t, released.Success)
	assert.Equal(t, MessageReleased, released.Message)

	availability = slots.CheckSlotAvailability(ctx, examiner, bookingTime)
	assert.True(t, availability.Available)
	assert.Empty(t, availability.ReservedBy)
}

func TestBookingSlots_ReleaseByOtherExamination(t *testing.T) {
	clock := newFakeClock()
	slots := NewBookingSlots(newTestService(t, repository.NewMemoryReservationStore(), clock), newTestLogger())
	ctx := context.Background()

	require.True(t, slots.ReserveTimeSlot(ctx, examiner, bookingTime, "E1", "X").Success)

	res := slots.ReleaseTimeSlot(ctx, examiner, bookingTime, "E2")
	assert.False(t, res.Success)
	assert.Equal(t, ReasonOwnershipMismatch, res.Reason)
	assert.Equal(t, MessageHeldByOther, res.Message)
}

func TestBookingSlots_AvailabilityAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	slots := NewBookingSlots(newTestService(t, repository.NewMemoryReservationStore(), clock), newTestLogger())
	ctx := context.Background()

	require.True(t, slots.ReserveTimeSlot(ctx, examiner, bookingTime, "E1", "X").Success)
	clock.Advance(10 * time.Minute)

	assert.True(t, slots.CheckSlotAvailability(ctx, examiner, bookingTime).Available)
}

func TestBookingSlots_InfrastructureFailures(t *testing.T) {
	clock := newFakeClock()
	down := errors.New("store unreachable")
	store := &mockStore{
		createFunc:        func(context.Context, *model.SlotReservation, time.Time) error { return down },
		getFunc:           func(context.Context, string) (*model.SlotReservation, error) { return nil, down },
		deleteIfOwnerFunc: func(context.Context, string, string) error { return down },
		findLiveFunc: func(context.Context, string, time.Time) ([]*model.SlotReservation, error) {
			return nil, down
		},
	}
	slots := NewBookingSlots(newTestService(t, store, clock), newTestLogger())
	ctx := context.Background()

	reserve := slots.ReserveTimeSlot(ctx, examiner, bookingTime, "E1", "X")
	assert.False(t, reserve.Success)
	assert.Equal(t, MessageReserveFailed, reserve.Message)
	assert.Equal(t, ReasonInfrastructure, reserve.Reason)

	release := slots.ReleaseTimeSlot(ctx, examiner, bookingTime, "E1")
	assert.False(t, release.Success)
	assert.Equal(t, MessageReleaseFailed, release.Message)

	assert.True(t, slots.CheckSlotAvailability(ctx, examiner, bookingTime).Available)
	assert.Empty(t, slots.ReservedSlots(ctx, examiner, ""))
}

func TestBookingSlots_RecoversFromPanics(t *testing.T) {
	slots := NewBookingSlots(panickingService{}, newTestLogger())
	ctx := context.Background()

	assert.NotPanics(t, func() {
		reserve := slots.ReserveTimeSlot(ctx, examiner, bookingTime, "E1", "X")
		assert.False(t, reserve.Success)
		assert.Equal(t, MessageReserveFailed, reserve.Message)

		release := slots.ReleaseTimeSlot(ctx, examiner, bookingTime, "E1")
		assert.False(t, release.Success)

		assert.True(t, slots.CheckSlotAvailability(ctx, examiner, bookingTime).Available)
		assert.NotNil(t, slots.ReservedSlots(ctx, examiner, ""))
	})
}

func TestBookingSlots_InvalidInput(t *testing.T) {
	clock := newFakeClock()
	slots := NewBookingSlots(newTestService(t, repository.NewMemoryReservationStore(), clock), newTestLogger())

	res := slots.ReserveTimeSlot(context.Background(), examiner, "not-a-time", "E1", "X")
	assert.False(t, res.Success)
	assert.Equal(t, ReasonInvalidInput, res.Reason)
	assert.Contains(t, res.Message, MessageInvalidSlotParams)
}

func TestBookingSlots_AvailabilityRejectsInvalidInput(t *testing.T) {
	clock := newFakeClock()
	called := false
	store := &mockStore{
		getFunc: func(context.Context, string) (*model.SlotReservation, error) {
			called = true
			return nil, errors.New("should not be reached")
		},
	}
	slots := NewBookingSlots(newTestService(t, store, clock), newTestLogger())

	tests := []struct {
		name, examiner, bookingTime string
	}{
		{name: "non RFC 3339 time", examiner: examiner, bookingTime: "next tuesday"},
		{name: "missing examiner", bookingTime: bookingTime},
		{name: "separator in examiner", examiner: "exam#1", bookingTime: bookingTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slots.CheckSlotAvailability(context.Background(), tt.examiner, tt.bookingTime)
			assert.False(t, got.Available)
			assert.Equal(t, ReasonInvalidInput, got.Reason)
		})
	}
	assert.False(t, called, "store must not be queried for invalid slot details")
}
