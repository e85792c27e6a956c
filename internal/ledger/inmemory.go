package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu          sync.Mutex
	events      map[string]*Event
	noAtomic    bool // simulates a deployment without the stored settle path
	settleCalls int
}

// NewInMemory creates a concurrency-safe in-memory event store useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{events: make(map[string]*Event)}
}

func (s *inMemoryStore) Append(_ context.Context, ev Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	stored := ev
	s.events[ev.ID] = &stored
	return ev, nil
}

func (s *inMemoryStore) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	if ev.Status != StatusPending {
		return ErrNotPending
	}
	ev.Status = StatusFailed
	return nil
}

func (s *inMemoryStore) AttachSignature(_ context.Context, id, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	if ev.Status != StatusPending {
		return ErrNotPending
	}
	ev.Signature = signature
	return nil
}

func (s *inMemoryStore) Settle(ctx context.Context, id, signature string, balanceAfter int64) error {
	s.mu.Lock()
	s.settleCalls++
	unavailable := s.noAtomic
	s.mu.Unlock()

	if unavailable {
		return ErrCommitUnavailable
	}
	return s.SettleDirect(ctx, id, signature, balanceAfter)
}

func (s *inMemoryStore) SettleDirect(_ context.Context, id, signature string, balanceAfter int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	if ev.Status != StatusPending {
		return ErrNotPending
	}
	ev.Status = StatusCompleted
	ev.Signature = signature
	ev.BalanceAfter = &balanceAfter
	return nil
}

func (s *inMemoryStore) FindBySignature(_ context.Context, signature string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.events {
		if ev.Signature == signature && signature != "" {
			return *ev, nil
		}
	}
	return Event{}, ErrEventNotFound
}

func (s *inMemoryStore) CompletedTotalSince(_ context.Context, userID, kind string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, ev := range s.events {
		if ev.UserID == userID && ev.Kind == kind && ev.Status == StatusCompleted && !ev.CreatedAt.Before(since) {
			total += ev.Amount
		}
	}
	return total, nil
}

func (s *inMemoryStore) ListPendingBefore(_ context.Context, cutoff time.Time) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	for _, ev := range s.events {
		if ev.Status == StatusPending && ev.CreatedAt.Before(cutoff) {
			events = append(events, *ev)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}
