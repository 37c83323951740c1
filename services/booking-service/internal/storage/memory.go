package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// MemoryStore keeps appointments in process. It enforces the same one-appointment-per-
// instant rule as the Postgres schema and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]model.Appointment
	byStart map[int64]string
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]model.Appointment),
		byStart: make(map[int64]string),
		now:     time.Now,
	}
}

func (s *MemoryStore) Insert(_ context.Context, appt *model.Appointment) (string, error) {
	key := appt.StartsAt.UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byStart[key]; taken {
		return "", model.ErrSlotTaken
	}
	appt.ID = uuid.NewString()
	appt.StartsAt = appt.StartsAt.UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = s.now()
	}
	appt.CreatedAt = appt.CreatedAt.UTC()
	s.byID[appt.ID] = *appt
	s.byStart[key] = appt.ID
	return appt.ID, nil
}

func (s *MemoryStore) ExistsAt(_ context.Context, t time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byStart[t.UnixNano()]
	return ok, nil
}

func (s *MemoryStore) ListBetween(_ context.Context, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Time
	for _, a := range s.byID {
		if !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			out = append(out, a.StartsAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *MemoryStore) FindOwned(_ context.Context, ownerID, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok || a.OwnerID != ownerID {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) DeleteOwned(_ context.Context, ownerID, id string, _ time.Time) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.OwnerID != ownerID {
		return model.Appointment{}, model.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byStart, a.StartsAt.UnixNano())
	return a, nil
}

func (s *MemoryStore) ListUpcoming(_ context.Context, ownerID string, now time.Time, offset, limit int) ([]model.Appointment, int, error) {
	s.mu.RLock()
	var upcoming []model.Appointment
	for _, a := range s.byID {
		if a.OwnerID == ownerID && !a.StartsAt.Before(now) {
			upcoming = append(upcoming, a)
		}
	}
	s.mu.RUnlock()

	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].StartsAt.Before(upcoming[j].StartsAt) })
	total := len(upcoming)
	if offset >= total {
		return []model.Appointment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return upcoming[offset:end], total, nil
}
