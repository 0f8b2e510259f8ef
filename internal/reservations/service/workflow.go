package service

import (
	"context"
	"fmt"

	"examslots/pkg/logger"
)

const (
	MessageReserved          = "Time slot reserved"
	MessageAlreadyReserved   = "This time slot is already reserved. Please pick another time."
	MessageReserveFailed     = "Unable to reserve the time slot right now. Please try again."
	MessageReleased          = "Time slot released"
	MessageHeldByOther       = "Time slot is held by another examination"
	MessageReleaseFailed     = "Unable to release the time slot right now"
	MessageInvalidSlotParams = "Invalid time slot details"
)

type ReserveTimeSlotResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
	Reason    Reason `json:"reason,omitempty"`
}

type ReleaseTimeSlotResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  Reason `json:"reason,omitempty"`
}

type SlotAvailability struct {
	Available  bool   `json:"available"`
	ReservedBy string `json:"reserved_by,omitempty"`
	ExpiresAt  *int64 `json:"expires_at,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
}

// BookingSlots is what the booking workflow calls. Every method is safe to
// call repeatedly and never returns an error: store failures and panics
// are turned into results here. Reserving fails closed while availability
// assumes free when the store cannot answer, since the reserve call that
// follows is still guarded by the store. Malformed slot details are never
// reported as available.
type BookingSlots struct {
	svc SlotReservationService
	log *logger.Logger
}

func NewBookingSlots(svc SlotReservationService, log *logger.Logger) *BookingSlots {
	return &BookingSlots{svc: svc, log: log}
}

func (b *BookingSlots) ReserveTimeSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID, claimantID string) (result ReserveTimeSlotResult) {
	defer b.recoverInto("reserve", func() {
		result = ReserveTimeSlotResult{Message: MessageReserveFailed, Reason: ReasonInfrastructure}
	})

	res := b.svc.ReserveSlot(ctx, examinerProfileID, bookingTime, examinationID, claimantID)
	switch {
	case res.Success:
		expiresAt := res.ExpiresAt
		return ReserveTimeSlotResult{Success: true, Message: MessageReserved, ExpiresAt: &expiresAt}
	case res.Reason == ReasonAlreadyReserved:
		return ReserveTimeSlotResult{Message: MessageAlreadyReserved, Reason: res.Reason}
	case res.Reason == ReasonInvalidInput:
		return ReserveTimeSlotResult{Message: invalidMessage(res.Err), Reason: res.Reason}
	default:
		return ReserveTimeSlotResult{Message: MessageReserveFailed, Reason: ReasonInfrastructure}
	}
}

func (b *BookingSlots) ReleaseTimeSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID string) (result ReleaseTimeSlotResult) {
	defer b.recoverInto("release", func() {
		result = ReleaseTimeSlotResult{Message: MessageReleaseFailed, Reason: ReasonInfrastructure}
	})

	res := b.svc.ReleaseSlot(ctx, examinerProfileID, bookingTime, examinationID)
	switch {
	case res.Success:
		return ReleaseTimeSlotResult{Success: true, Message: MessageReleased}
	case res.Reason == ReasonOwnershipMismatch:
		return ReleaseTimeSlotResult{Message: MessageHeldByOther, Reason: res.Reason}
	case res.Reason == ReasonInvalidInput:
		return ReleaseTimeSlotResult{Message: invalidMessage(res.Err), Reason: res.Reason}
	default:
		return ReleaseTimeSlotResult{Message: MessageReleaseFailed, Reason: ReasonInfrastructure}
	}
}

func (b *BookingSlots) CheckSlotAvailability(ctx context.Context, examinerProfileID, bookingTime string) (result SlotAvailability) {
	defer b.recoverInto("check_availability", func() {
		result = SlotAvailability{Available: true}
	})

	res, err := b.svc.CheckSlotReservation(ctx, examinerProfileID, bookingTime)
	if IsInvalidInput(err) {
		return SlotAvailability{Reason: ReasonInvalidInput}
	}
	if err != nil {
		b.log.Warn("Availability check failed, reporting slot as available",
			"examiner_profile_id", examinerProfileID,
			"booking_time", bookingTime,
			"error", err,
		)
		return SlotAvailability{Available: true}
	}
	if res == nil {
		return SlotAvailability{Available: true}
	}
	expiresAt := res.ExpiresAt
	return SlotAvailability{ReservedBy: res.ExaminationID, ExpiresAt: &expiresAt}
}

// ReservedSlots lists booking times held for an examiner by other
// examinations. Failures yield an empty list.
func (b *BookingSlots) ReservedSlots(ctx context.Context, examinerProfileID, excludeExaminationID string) (result []string) {
	defer b.recoverInto("reserved_slots", func() {
		result = []string{}
	})

	slots, err := b.svc.GetExaminerReservedSlots(ctx, examinerProfileID, excludeExaminationID)
	if err != nil {
		b.log.Warn("Failed to list reserved slots",
			"examiner_profile_id", examinerProfileID,
			"error", err,
		)
		return []string{}
	}
	return slots
}

// recoverInto converts a panic in the wrapped call into the fallback result.
func (b *BookingSlots) recoverInto(operation string, fallback func()) {
	if r := recover(); r != nil {
		b.log.Error("Recovered from panic in slot operation",
			"operation", operation,
			"panic", fmt.Sprint(r),
		)
		fallback()
	}
}

func invalidMessage(err error) string {
	if err == nil {
		return MessageInvalidSlotParams
	}
	return fmt.Sprintf("%s: %v", MessageInvalidSlotParams, err)
}
