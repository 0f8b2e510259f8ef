package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	reservationserrors "examslots/internal/reservations/errors"
	"examslots/pkg/model"
)

var (
	_ ReservationStore = (*MemoryReservationStore)(nil)
	_ Sweeper          = (*MemoryReservationStore)(nil)
	_ Sweeper          = (*postgresReservationStore)(nil)
)

// MemoryReservationStore keeps reservations in process memory. It gives the
// same per-key guarantees as the shared backends but only within one
// process, so it serves tests and single-instance development runs.
type MemoryReservationStore struct {
	mu      sync.Mutex
	records map[string]model.SlotReservation
}

func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{records: map[string]model.SlotReservation{}}
}

func (s *MemoryReservationStore) Create(_ context.Context, res *model.SlotReservation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[res.SlotKey]; ok && existing.IsLive(now) {
		return reservationserrors.ErrConflict
	}
	s.records[res.SlotKey] = *res
	return nil
}

func (s *MemoryReservationStore) Get(_ context.Context, slotKey string) (*model.SlotReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.records[slotKey]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return &res, nil
}

func (s *MemoryReservationStore) DeleteIfOwner(_ context.Context, slotKey, examinationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.records[slotKey]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	if res.ExaminationID != examinationID {
		return reservationserrors.ErrConditionFailed
	}
	delete(s.records, slotKey)
	return nil
}

func (s *MemoryReservationStore) FindLiveByExaminer(_ context.Context, examinerProfileID string, now time.Time) ([]*model.SlotReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservations := []*model.SlotReservation{}
	for _, res := range s.records {
		if res.ExaminerProfileID == examinerProfileID && res.IsLive(now) {
			res := res
			reservations = append(reservations, &res)
		}
	}
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].BookingTime < reservations[j].BookingTime
	})
	return reservations, nil
}

func (s *MemoryReservationStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, res := range s.records {
		if !res.IsLive(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryReservationStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryReservationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
