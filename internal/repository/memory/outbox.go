package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type OutboxStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*model.OutboxEvent
	order  []uuid.UUID
	now    func() time.Time
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{events: make(map[uuid.UUID]*model.OutboxEvent), now: time.Now}
}

func (r *OutboxStore) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = uuid.New()
	event.CreatedAt = r.now()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending
	cp := *event
	r.events[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	return nil
}

// ordered returns live events in insertion order. Callers hold mu.
func (r *OutboxStore) ordered() []*model.OutboxEvent {
	out := make([]*model.OutboxEvent, 0, len(r.events))
	for _, id := range r.order {
		if e, ok := r.events[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (r *OutboxStore) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	due := make([]*model.OutboxEvent, 0)
	for _, e := range r.ordered() {
		if e.Status != model.OutboxStatusPending {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		due = append(due, e)
	}
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*model.OutboxEvent, 0, len(due))
	for _, e := range due {
		e.Status = model.OutboxStatusProcessing
		e.UpdatedAt = now
		cp := *e
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (r *OutboxStore) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(e *model.OutboxEvent, now time.Time) {
		e.Status = model.OutboxStatusProcessed
		e.ProcessedAt = &now
		e.ErrorMessage = nil
	})
}

func (r *OutboxStore) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	return r.update(id, func(e *model.OutboxEvent, now time.Time) {
		e.Status = model.OutboxStatusPending
		e.ErrorMessage = &errMsg
		e.RetryCount++
		e.RetryAt = &retryAt
	})
}

func (r *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.update(id, func(e *model.OutboxEvent, now time.Time) {
		e.Status = model.OutboxStatusFailed
		e.ErrorMessage = &errMsg
		e.RetryCount++
	})
}

func (r *OutboxStore) update(id uuid.UUID, fn func(*model.OutboxEvent, time.Time)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.now()
	fn(e, now)
	e.UpdatedAt = now
	return nil
}

func (r *OutboxStore) CountPending(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, e := range r.events {
		if e.Status == model.OutboxStatusPending {
			n++
		}
	}
	return n, nil
}

func (r *OutboxStore) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, e := range r.events {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.events, id)
			n++
		}
	}
	return n, nil
}

// Events returns a snapshot of every stored event in insertion order.
func (r *OutboxStore) Events() []*model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.OutboxEvent, 0, len(r.events))
	for _, e := range r.ordered() {
		cp := *e
		out = append(out, &cp)
	}
	return out
}
