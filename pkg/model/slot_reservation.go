package model

import (
	"fmt"
	"strings"
	"time"
)

// SlotKeySeparator joins the examiner id and the booking time in a slot key.
const SlotKeySeparator = "#"

// BookingTimeLayout is the canonical form a booking time is stored in.
const BookingTimeLayout = "2006-01-02T15:04:05Z"

// SlotReservation is a short-lived exclusive claim on one examiner time slot.
// Records are created and destroyed, never updated.
type SlotReservation struct {
	SlotKey           string `json:"slot_key" bson:"_id"`
	ExaminerProfileID string `json:"examiner_profile_id" bson:"examiner_profile_id"`
	BookingTime       string `json:"booking_time" bson:"booking_time"`
	ExaminationID     string `json:"examination_id" bson:"examination_id"`
	ClaimantID        string `json:"claimant_id" bson:"claimant_id"`
	ReservedAt        int64  `json:"reserved_at" bson:"reserved_at"`
	ExpiresAt         int64  `json:"expires_at" bson:"expires_at"`
}

// IsLive reports whether the reservation still holds the slot at now.
func (r *SlotReservation) IsLive(now time.Time) bool {
	return r != nil && r.ExpiresAt > now.Unix()
}

// ExpiresAtTime returns ExpiresAt as a UTC time.
func (r *SlotReservation) ExpiresAtTime() time.Time {
	return time.Unix(r.ExpiresAt, 0).UTC()
}

// CanonicalBookingTime parses an RFC 3339 instant and returns it in
// BookingTimeLayout, so equal instants written with different offsets or
// fractional seconds share one slot key.
func CanonicalBookingTime(bookingTime string) (string, error) {
	s := strings.TrimSpace(bookingTime)
	if s == "" {
		return "", fmt.Errorf("booking time is empty")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", fmt.Errorf("booking time %q is not an RFC 3339 timestamp: %w", bookingTime, err)
	}
	return t.UTC().Truncate(time.Second).Format(BookingTimeLayout), nil
}

// SlotKey builds the exclusivity key for an examiner and an already
// canonical booking time.
func SlotKey(examinerProfileID, bookingTime string) string {
	return examinerProfileID + SlotKeySeparator + bookingTime
}

// ParseSlotKey splits a slot key back into examiner id and booking time.
// The booking time never contains the separator, so the last one wins.
func ParseSlotKey(slotKey string) (examinerProfileID, bookingTime string, ok bool) {
	i := strings.LastIndex(slotKey, SlotKeySeparator)
	if i <= 0 || i == len(slotKey)-1 {
		return "", "", false
	}
	return slotKey[:i], slotKey[i+1:], true
}

// ReserveSlotRequest is the body of a reservation request.
type ReserveSlotRequest struct {
	ExaminerProfileID string `json:"examiner_profile_id" validate:"required,max=128,slot_id"`
	BookingTime       string `json:"booking_time" validate:"required,rfc3339"`
	ExaminationID     string `json:"examination_id" validate:"required,max=128"`
	ClaimantID        string `json:"claimant_id" validate:"required,max=128"`
}

// ReleaseSlotRequest is the body of a release request.
type ReleaseSlotRequest struct {
	ExaminerProfileID string `json:"examiner_profile_id" validate:"required,max=128,slot_id"`
	BookingTime       string `json:"booking_time" validate:"required,rfc3339"`
	ExaminationID     string `json:"examination_id" validate:"required,max=128"`
}

// SlotQuery identifies a slot in read requests.
type SlotQuery struct {
	ExaminerProfileID string `json:"examiner_profile_id" validate:"required,max=128,slot_id"`
	BookingTime       string `json:"booking_time" validate:"required,rfc3339"`
}
