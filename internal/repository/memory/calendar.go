// Package memory holds mutex-guarded stores with the same semantics as the
// postgres repositories. They back `database.driver: memory` and the
// service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/civildate"
)

type CalendarStore struct {
	mu   sync.Mutex
	days map[civildate.Date]*model.AvailabilityDay
	// held reports whether a CONFIRMED appointment occupies a slot. It is
	// consulted under mu, mirroring the NOT EXISTS guards of the SQL store.
	held func(date civildate.Date, slot model.Slot) bool
}

func NewCalendarStore() *CalendarStore {
	return &CalendarStore{days: make(map[civildate.Date]*model.AvailabilityDay)}
}

func (r *CalendarStore) GetDay(ctx context.Context, date civildate.Date) (*model.AvailabilityDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day, ok := r.days[date]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *day
	return &cp, nil
}

func (r *CalendarStore) ListDays(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error) {
	return r.list(from, to, func(*model.AvailabilityDay) bool { return true }), nil
}

func (r *CalendarStore) ListOfferable(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error) {
	return r.list(from, to, (*model.AvailabilityDay).Offerable), nil
}

func (r *CalendarStore) list(from, to civildate.Date, keep func(*model.AvailabilityDay) bool) []*model.AvailabilityDay {
	r.mu.Lock()
	defer r.mu.Unlock()

	days := make([]*model.AvailabilityDay, 0)
	for date, day := range r.days {
		if date.Before(from) || date.After(to) || !keep(day) {
			continue
		}
		cp := *day
		days = append(days, &cp)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

func (r *CalendarStore) UpsertDay(ctx context.Context, day *model.AvailabilityDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *day
	for _, slot := range model.Slots {
		if cp.IsOpen(slot) && r.isHeld(day.Date, slot) {
			cp.SetSlot(slot, false)
		}
	}
	cp.UpdatedAt = time.Now()
	r.days[day.Date] = &cp
	*day = cp
	return nil
}

func (r *CalendarStore) ClaimSlot(ctx context.Context, date civildate.Date, slot model.Slot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day, ok := r.days[date]
	if !ok || !day.Available || !day.IsOpen(slot) {
		return false, nil
	}
	day.SetSlot(slot, false)
	day.UpdatedAt = time.Now()
	return true, nil
}

func (r *CalendarStore) ReleaseSlot(ctx context.Context, date civildate.Date, slot model.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day, ok := r.days[date]
	if !ok || !day.Available || r.isHeld(date, slot) {
		return nil
	}
	day.SetSlot(slot, true)
	day.UpdatedAt = time.Now()
	return nil
}

func (r *CalendarStore) isHeld(date civildate.Date, slot model.Slot) bool {
	return r.held != nil && r.held(date, slot)
}

func (r *CalendarStore) Ping(ctx context.Context) error {
	return nil
}
