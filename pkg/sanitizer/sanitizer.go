package sanitizer

import (
	"strings"

	"examslots/pkg/model"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	idPipeline = Pipeline{
		stripInvisible,
		strings.TrimSpace,
	}

	bookingTimePipeline = Pipeline{
		stripInvisible,
		strings.TrimSpace,
		upperDesignators,
	}
)

// upperDesignators upper-cases the letters RFC 3339 allows in either case.
func upperDesignators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 't':
			return 'T'
		case 'z':
			return 'Z'
		}
		return r
	}, s)
}

func SanitizeID(id string) string {
	return idPipeline.Apply(id)
}

func SanitizeBookingTime(bookingTime string) string {
	return bookingTimePipeline.Apply(bookingTime)
}

func SanitizeReserveRequest(req *model.ReserveSlotRequest) {
	req.ExaminerProfileID = SanitizeID(req.ExaminerProfileID)
	req.BookingTime = SanitizeBookingTime(req.BookingTime)
	req.ExaminationID = SanitizeID(req.ExaminationID)
	req.ClaimantID = SanitizeID(req.ClaimantID)
}

func SanitizeReleaseRequest(req *model.ReleaseSlotRequest) {
	req.ExaminerProfileID = SanitizeID(req.ExaminerProfileID)
	req.BookingTime = SanitizeBookingTime(req.BookingTime)
	req.ExaminationID = SanitizeID(req.ExaminationID)
}

func SanitizeWorkflowEvent(event *model.BookingWorkflowEvent) {
	event.Type = TrimAndNormalize(event.Type)
	event.ExaminerProfileID = SanitizeID(event.ExaminerProfileID)
	event.BookingTime = SanitizeBookingTime(event.BookingTime)
	event.ExaminationID = SanitizeID(event.ExaminationID)
}
