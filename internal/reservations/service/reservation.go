package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"examslots/internal/reservations/config"
	reservationserrors "examslots/internal/reservations/errors"
	"examslots/internal/reservations/repository"
	"examslots/internal/reservations/validator"
	"examslots/pkg/logger"
	"examslots/pkg/model"
)

// Reason explains why a reserve or release did not succeed.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonAlreadyReserved   Reason = "already_reserved"
	ReasonOwnershipMismatch Reason = "ownership_mismatch"
	ReasonInfrastructure    Reason = "infrastructure"
	ReasonInvalidInput      Reason = "invalid_input"
)

type ReserveResult struct {
	Success   bool
	Reason    Reason
	ExpiresAt int64
	// Err carries the cause for ReasonInfrastructure and ReasonInvalidInput.
	Err error
}

type ReleaseResult struct {
	Success bool
	Reason  Reason
	Err     error
}

// SlotReservationService arbitrates short-lived exclusive claims on examiner
// time slots. It holds no reservation state of its own; every decision is
// made by a conditional write in the store, so any number of instances can
// run side by side.
type SlotReservationService interface {
	ReserveSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID, claimantID string) ReserveResult
	CheckSlotReservation(ctx context.Context, examinerProfileID, bookingTime string) (*model.SlotReservation, error)
	ReleaseSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID string) ReleaseResult
	GetExaminerReservedSlots(ctx context.Context, examinerProfileID, excludeExaminationID string) ([]string, error)
}

// EventPublisher is told about successful reserves and releases.
type EventPublisher interface {
	Publish(ctx context.Context, event model.SlotEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, model.SlotEvent) error { return nil }

type Option func(*slotReservationService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *slotReservationService) { s.now = now }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *slotReservationService) {
		if p != nil {
			s.events = p
		}
	}
}

type slotReservationService struct {
	store     repository.ReservationStore
	ttl       config.TTLProvider
	validator *validator.ReservationValidator
	events    EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

func NewSlotReservationService(
	store repository.ReservationStore,
	ttl config.TTLProvider,
	validator *validator.ReservationValidator,
	log *logger.Logger,
	opts ...Option,
) SlotReservationService {
	s := &slotReservationService{
		store:     store,
		ttl:       ttl,
		validator: validator,
		events:    noopPublisher{},
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *slotReservationService) ReserveSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID, claimantID string) ReserveResult {
	req := &model.ReserveSlotRequest{
		ExaminerProfileID: examinerProfileID,
		BookingTime:       bookingTime,
		ExaminationID:     examinationID,
		ClaimantID:        claimantID,
	}
	if err := s.validator.ValidateReserve(req); err != nil {
		return ReserveResult{Reason: ReasonInvalidInput, Err: err}
	}
	canonical, err := model.CanonicalBookingTime(bookingTime)
	if err != nil {
		return ReserveResult{Reason: ReasonInvalidInput, Err: fmt.Errorf("%w: %v", reservationserrors.ErrInvalidBookingTime, err)}
	}

	now := s.now()
	ttlSeconds := s.ttl.BookingReservationTimeSeconds()
	if !config.ValidTTL(ttlSeconds) {
		s.log.Error("Refusing to reserve slot with invalid TTL",
			"examination_id", examinationID,
			"ttl_seconds", ttlSeconds,
		)
		return ReserveResult{Reason: ReasonInfrastructure, Err: fmt.Errorf("%w: %d seconds", reservationserrors.ErrInvalidTTL, ttlSeconds)}
	}
	res := &model.SlotReservation{
		SlotKey:           model.SlotKey(examinerProfileID, canonical),
		ExaminerProfileID: examinerProfileID,
		BookingTime:       canonical,
		ExaminationID:     examinationID,
		ClaimantID:        claimantID,
		ReservedAt:        now.Unix(),
		ExpiresAt:         now.Unix() + int64(ttlSeconds),
	}

	if err := s.store.Create(ctx, res, now); err != nil {
		if errors.Is(err, reservationserrors.ErrConflict) {
			s.log.Debug("Slot already reserved",
				"slot_key", res.SlotKey,
				"examination_id", examinationID,
			)
			return ReserveResult{Reason: ReasonAlreadyReserved}
		}
		s.log.Error("Failed to reserve slot",
			"slot_key", res.SlotKey,
			"examination_id", examinationID,
			"error", err,
		)
		return ReserveResult{Reason: ReasonInfrastructure, Err: err}
	}

	s.log.Info("Slot reserved",
		"slot_key", res.SlotKey,
		"examination_id", examinationID,
		"claimant_id", claimantID,
		"expires_at", res.ExpiresAt,
	)
	s.publish(ctx, model.SlotEvent{
		Type:              model.SlotEventReserved,
		SlotKey:           res.SlotKey,
		ExaminerProfileID: examinerProfileID,
		BookingTime:       canonical,
		ExaminationID:     examinationID,
		ClaimantID:        claimantID,
		ExpiresAt:         res.ExpiresAt,
		OccurredAt:        now.UTC(),
	})
	return ReserveResult{Success: true, ExpiresAt: res.ExpiresAt}
}

func (s *slotReservationService) CheckSlotReservation(ctx context.Context, examinerProfileID, bookingTime string) (*model.SlotReservation, error) {
	slotKey, err := s.slotKey(examinerProfileID, bookingTime)
	if err != nil {
		return nil, err
	}

	res, err := s.store.Get(ctx, slotKey)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	// Records may outlive their expiry until the backend reclaims them.
	if !res.IsLive(s.now()) {
		return nil, nil
	}
	return res, nil
}

func (s *slotReservationService) ReleaseSlot(ctx context.Context, examinerProfileID, bookingTime, examinationID string) ReleaseResult {
	req := &model.ReleaseSlotRequest{
		ExaminerProfileID: examinerProfileID,
		BookingTime:       bookingTime,
		ExaminationID:     examinationID,
	}
	if err := s.validator.ValidateRelease(req); err != nil {
		return ReleaseResult{Reason: ReasonInvalidInput, Err: err}
	}
	slotKey, err := s.slotKey(examinerProfileID, bookingTime)
	if err != nil {
		return ReleaseResult{Reason: ReasonInvalidInput, Err: err}
	}

	err = s.store.DeleteIfOwner(ctx, slotKey, examinationID)
	switch {
	case err == nil:
		s.log.Info("Slot released", "slot_key", slotKey, "examination_id", examinationID)
		_, canonical, _ := model.ParseSlotKey(slotKey)
		s.publish(ctx, model.SlotEvent{
			Type:              model.SlotEventReleased,
			SlotKey:           slotKey,
			ExaminerProfileID: examinerProfileID,
			BookingTime:       canonical,
			ExaminationID:     examinationID,
			OccurredAt:        s.now().UTC(),
		})
		return ReleaseResult{Success: true}

	case errors.Is(err, reservationserrors.ErrNotFound):
		s.log.Debug("Slot already free on release", "slot_key", slotKey, "examination_id", examinationID)
		return ReleaseResult{Success: true}

	case errors.Is(err, reservationserrors.ErrConditionFailed):
		return s.releaseHeldByOther(ctx, slotKey, examinationID)

	default:
		s.log.Error("Failed to release slot",
			"slot_key", slotKey,
			"examination_id", examinationID,
			"error", err,
		)
		return ReleaseResult{Reason: ReasonInfrastructure, Err: err}
	}
}

// releaseHeldByOther treats a foreign record that has already expired as
// absent, so a late release still reads as a no-op success.
func (s *slotReservationService) releaseHeldByOther(ctx context.Context, slotKey, examinationID string) ReleaseResult {
	res, err := s.store.Get(ctx, slotKey)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return ReleaseResult{Success: true}
		}
		s.log.Error("Failed to inspect slot after ownership mismatch", "slot_key", slotKey, "error", err)
		return ReleaseResult{Reason: ReasonInfrastructure, Err: err}
	}
	if !res.IsLive(s.now()) {
		return ReleaseResult{Success: true}
	}

	s.log.Warn("Release refused, slot held by another examination",
		"slot_key", slotKey,
		"examination_id", examinationID,
		"holder_examination_id", res.ExaminationID,
	)
	return ReleaseResult{Reason: ReasonOwnershipMismatch}
}

func (s *slotReservationService) GetExaminerReservedSlots(ctx context.Context, examinerProfileID, excludeExaminationID string) ([]string, error) {
	if err := s.validator.ValidateExaminerID(examinerProfileID); err != nil {
		return nil, err
	}

	now := s.now()
	reservations, err := s.store.FindLiveByExaminer(ctx, examinerProfileID, now)
	if err != nil {
		return nil, err
	}

	bookingTimes := make([]string, 0, len(reservations))
	for _, res := range reservations {
		if !res.IsLive(now) {
			continue
		}
		if excludeExaminationID != "" && res.ExaminationID == excludeExaminationID {
			continue
		}
		bookingTimes = append(bookingTimes, res.BookingTime)
	}
	sort.Strings(bookingTimes)
	return bookingTimes, nil
}

func (s *slotReservationService) slotKey(examinerProfileID, bookingTime string) (string, error) {
	if err := s.validator.ValidateSlotQuery(&model.SlotQuery{
		ExaminerProfileID: examinerProfileID,
		BookingTime:       bookingTime,
	}); err != nil {
		return "", err
	}
	canonical, err := model.CanonicalBookingTime(bookingTime)
	if err != nil {
		return "", fmt.Errorf("%w: %v", reservationserrors.ErrInvalidBookingTime, err)
	}
	return model.SlotKey(examinerProfileID, canonical), nil
}

// IsInvalidInput reports whether err came from rejecting caller input rather
// than from the store.
func IsInvalidInput(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs) || errors.Is(err, reservationserrors.ErrInvalidBookingTime)
}

// publish never affects the outcome of the operation that triggered it.
func (s *slotReservationService) publish(ctx context.Context, event model.SlotEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish slot event",
			"type", event.Type,
			"slot_key", event.SlotKey,
			"error", err,
		)
	}
}
