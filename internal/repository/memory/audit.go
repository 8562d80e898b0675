package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
)

type AuditStore struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (r *AuditStore) Create(ctx context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	cp := *log
	r.logs = append(r.logs, &cp)
	return nil
}

// List returns newest first.
func (r *AuditStore) List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.AuditLog, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if filters != nil {
			if filters.EntityType != "" && l.EntityType != filters.EntityType {
				continue
			}
			if filters.EntityID != "" && l.EntityID != filters.EntityID {
				continue
			}
			if filters.Action != "" && l.Action != filters.Action {
				continue
			}
			if !filters.Since.IsZero() && l.CreatedAt.Before(filters.Since) {
				continue
			}
		}
		cp := *l
		out = append(out, &cp)
		if filters != nil && filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}
