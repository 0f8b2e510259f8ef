package events

import (
	"context"

	"examslots/internal/reservations/service"
	"examslots/pkg/kafka"
	"examslots/pkg/logger"
	"examslots/pkg/model"
	"examslots/pkg/sanitizer"
)

type slotReleaser interface {
	ReleaseTimeSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID string) service.ReleaseTimeSlotResult
}

// WorkflowHandler releases the slot held by an examination once the
// booking workflow reports it finished, cancelled or abandoned.
type WorkflowHandler struct {
	slots slotReleaser
	log   *logger.Logger
}

func NewWorkflowHandler(slots slotReleaser, log *logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{slots: slots, log: log}
}

// Handle is a kafka.MessageHandler. Store outages come back as transient
// errors so the consumer retries; anything else is settled here.
func (h *WorkflowHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.BookingWorkflowEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}
	if event.Type == "" {
		event.Type = msg.GetEventType()
	}
	sanitizer.SanitizeWorkflowEvent(&event)

	switch event.Type {
	case model.BookingEventCompleted, model.BookingEventCancelled, model.BookingEventAbandoned:
	default:
		h.log.Debug("Ignoring booking workflow event", "event_type", event.Type, "event_id", msg.GetEventID())
		return nil
	}

	ctx = kafka.WithCorrelationID(ctx, msg.GetCorrelationID())
	res := h.slots.ReleaseTimeSlot(ctx, event.ExaminerProfileID, event.BookingTime, event.ExaminationID)
	switch res.Reason {
	case service.ReasonNone:
		h.log.Info("Released slot after booking workflow event",
			"event_type", event.Type,
			"examiner_profile_id", event.ExaminerProfileID,
			"booking_time", event.BookingTime,
			"examination_id", event.ExaminationID,
		)
		return nil
	case service.ReasonInfrastructure:
		return kafka.NewTransientError(res.Message, nil)
	case service.ReasonInvalidInput:
		return kafka.NewPermanentError(res.Message, nil)
	default:
		h.log.Debug("Booking workflow event did not release slot",
			"event_type", event.Type,
			"examination_id", event.ExaminationID,
			"reason", res.Reason,
		)
		return nil
	}
}
