package handler

import (
	"context"
	"errors"
	"net/http"

	reservationserrors "examslots/internal/reservations/errors"
	"examslots/internal/reservations/service"
	"examslots/internal/reservations/validator"
	apperrors "examslots/pkg/errors"
	httputil "examslots/pkg/http"
	"examslots/pkg/kafka"
	"examslots/pkg/logger"
	"examslots/pkg/middleware"
	"examslots/pkg/model"
	"examslots/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

type bookingSlots interface {
	ReserveTimeSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID, claimantID string) service.ReserveTimeSlotResult
	ReleaseTimeSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID string) service.ReleaseTimeSlotResult
	CheckSlotAvailability(ctx context.Context, examinerProfileID, bookingTime string) service.SlotAvailability
	ReservedSlots(ctx context.Context, examinerProfileID, excludeExaminationID string) []string
}

type ReservationHandler struct {
	slots     bookingSlots
	service   service.SlotReservationService
	validator *validator.ReservationValidator
	log       *logger.Logger
}

func NewReservationHandler(slots bookingSlots, svc service.SlotReservationService, validator *validator.ReservationValidator, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		slots:     slots,
		service:   svc,
		validator: validator,
		log:       log,
	}
}

type ReservedSlotsResponse struct {
	BookingTimes []string `json:"booking_times"`
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Reserve)
	router.POST("/api/v1/reservations/release", h.Release)
	router.GET("/api/v1/reservations/availability", h.Availability)
	router.GET("/api/v1/reservations/slot", h.GetSlot)
	router.GET("/api/v1/examiners/:id/reserved-slots", h.ReservedSlots)
}

// Reserve answers 201 when the slot is now held, 409 when someone else
// holds it, 422 for bad input and 503 when the store cannot decide.
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReserveSlotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Reserve", err)
		return
	}
	if req.ClaimantID == "" {
		req.ClaimantID = r.Header.Get(middleware.HeaderClaimantID)
	}
	sanitizer.SanitizeReserveRequest(&req)

	res := h.slots.ReserveTimeSlot(h.requestContext(r), req.ExaminerProfileID, req.BookingTime, req.ExaminationID, req.ClaimantID)

	status := http.StatusCreated
	switch res.Reason {
	case service.ReasonAlreadyReserved:
		status = http.StatusConflict
	case service.ReasonInvalidInput:
		status = http.StatusUnprocessableEntity
	case service.ReasonInfrastructure:
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, "Reserve", status, res)
}

// Release answers 200 both when the slot was freed and when another
// examination holds it; success tells the two apart.
func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ReleaseSlotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Release", err)
		return
	}
	sanitizer.SanitizeReleaseRequest(&req)

	res := h.slots.ReleaseTimeSlot(h.requestContext(r), req.ExaminerProfileID, req.BookingTime, req.ExaminationID)

	status := http.StatusOK
	switch res.Reason {
	case service.ReasonInvalidInput:
		status = http.StatusUnprocessableEntity
	case service.ReasonInfrastructure:
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, "Release", status, res)
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query, err := h.slotQuery(r)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	h.writeJSON(w, "Availability", http.StatusOK, h.slots.CheckSlotAvailability(r.Context(), query.ExaminerProfileID, query.BookingTime))
}

func (h *ReservationHandler) GetSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query, err := h.slotQuery(r)
	if err != nil {
		h.writeError(w, "GetSlot", err)
		return
	}

	res, err := h.service.CheckSlotReservation(r.Context(), query.ExaminerProfileID, query.BookingTime)
	if err != nil {
		h.log.Error("Failed to read slot reservation",
			"examiner_profile_id", query.ExaminerProfileID,
			"booking_time", query.BookingTime,
			"error", err,
		)
		h.writeError(w, "GetSlot", err)
		return
	}
	if res == nil {
		h.writeError(w, "GetSlot", apperrors.NotFoundWithID("Reservation", slotKeyOf(query)))
		return
	}

	if err := httputil.WriteSuccess(w, res); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) ReservedSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	examinerProfileID := ps.ByName("id")
	if err := h.validator.ValidateExaminerID(examinerProfileID); err != nil {
		h.writeError(w, "ReservedSlots", err)
		return
	}

	times := h.slots.ReservedSlots(r.Context(), examinerProfileID, r.URL.Query().Get("exclude_examination_id"))
	if err := httputil.WriteSuccess(w, ReservedSlotsResponse{BookingTimes: times}); err != nil {
		h.log.Error("failed to write success response", "handler", "ReservedSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) slotQuery(r *http.Request) (*model.SlotQuery, error) {
	examinerProfileID, err := httputil.RequiredQuery(r, "examiner_profile_id")
	if err != nil {
		return nil, err
	}
	bookingTime, err := httputil.RequiredQuery(r, "booking_time")
	if err != nil {
		return nil, err
	}

	query := &model.SlotQuery{ExaminerProfileID: examinerProfileID, BookingTime: bookingTime}
	if err := h.validator.ValidateSlotQuery(query); err != nil {
		return nil, err
	}
	return query, nil
}

// requestContext lets slot events carry the request id as correlation id.
func (h *ReservationHandler) requestContext(r *http.Request) context.Context {
	return kafka.WithCorrelationID(r.Context(), middleware.RequestIDFromContext(r.Context()))
}

func (h *ReservationHandler) writeJSON(w http.ResponseWriter, handler string, status int, body any) {
	if err := httputil.WriteJSON(w, status, body); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, toAppError(err)); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func toAppError(err error) error {
	var validationErrs validator.ValidationErrors
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.As(err, &validationErrs):
		return apperrors.Validation("Invalid time slot details", validationErrs.Details())
	case errors.Is(err, reservationserrors.ErrInvalidBookingTime):
		return apperrors.Validation("Invalid time slot details", map[string]any{"booking_time": err.Error()})
	default:
		return apperrors.Unavailable("Reservation store")
	}
}

// slotKeyOf names the slot a validated query refers to.
func slotKeyOf(query *model.SlotQuery) string {
	canonical, err := model.CanonicalBookingTime(query.BookingTime)
	if err != nil {
		canonical = query.BookingTime
	}
	return model.SlotKey(query.ExaminerProfileID, canonical)
}
