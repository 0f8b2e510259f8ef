//go:build integration

package testutil

import (
	"time"

	"examslots/pkg/model"

	"github.com/google/uuid"
)

type ReserveRequestBuilder struct {
	req model.ReserveSlotRequest
}

// NewReserveRequestBuilder starts from a slot tomorrow with fresh ids, so
// tests never collide on a slot key.
func NewReserveRequestBuilder() *ReserveRequestBuilder {
	return &ReserveRequestBuilder{
		req: model.ReserveSlotRequest{
			ExaminerProfileID: "examiner-" + uuid.NewString()[:8],
			BookingTime:       time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour).Format(model.BookingTimeLayout),
			ExaminationID:     "examination-" + uuid.NewString()[:8],
			ClaimantID:        "claimant-" + uuid.NewString()[:8],
		},
	}
}

func (b *ReserveRequestBuilder) WithExaminer(id string) *ReserveRequestBuilder {
	b.req.ExaminerProfileID = id
	return b
}

func (b *ReserveRequestBuilder) WithBookingTime(bookingTime string) *ReserveRequestBuilder {
	b.req.BookingTime = bookingTime
	return b
}

func (b *ReserveRequestBuilder) WithExamination(id string) *ReserveRequestBuilder {
	b.req.ExaminationID = id
	return b
}

func (b *ReserveRequestBuilder) Build() model.ReserveSlotRequest {
	return b.req
}

func ReleaseFor(req model.ReserveSlotRequest) model.ReleaseSlotRequest {
	return model.ReleaseSlotRequest{
		ExaminerProfileID: req.ExaminerProfileID,
		BookingTime:       req.BookingTime,
		ExaminationID:     req.ExaminationID,
	}
}
