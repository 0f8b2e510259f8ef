package model

import "time"

const (
	SlotEventReserved = "slot.reserved"
	SlotEventReleased = "slot.released"
)

// SlotEvent announces a change in a slot's reservation state.
type SlotEvent struct {
	Type              string    `json:"type"`
	SlotKey           string    `json:"slot_key"`
	ExaminerProfileID string    `json:"examiner_profile_id"`
	BookingTime       string    `json:"booking_time"`
	ExaminationID     string    `json:"examination_id"`
	ClaimantID        string    `json:"claimant_id,omitempty"`
	ExpiresAt         int64     `json:"expires_at,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

const (
	BookingEventCompleted = "booking.completed"
	BookingEventCancelled = "booking.cancelled"
	BookingEventAbandoned = "booking.abandoned"
)

// BookingWorkflowEvent is emitted by the booking workflow when a claimant
// leaves the flow. Each of these ends any reservation the examination holds.
type BookingWorkflowEvent struct {
	Type              string `json:"type"`
	ExaminerProfileID string `json:"examiner_profile_id"`
	BookingTime       string `json:"booking_time"`
	ExaminationID     string `json:"examination_id"`
}
