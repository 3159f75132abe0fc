package audits

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used in dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Audit
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Audit)}
}

func (r *MemoryRepo) Create(ctx context.Context, audit Audit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[audit.ID] = audit
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Audit, error) {
	if err := ctx.Err(); err != nil {
		return Audit{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	audit, ok := r.data[id]
	if !ok {
		return Audit{}, ErrNotFound
	}
	return audit, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Audit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Audit
	for _, audit := range r.data {
		if audit.UserID == userID {
			out = append(out, audit)
		}
	}
	sortNewestFirst(out)
	return truncate(out, limit), nil
}

func (r *MemoryRepo) ListByManuscript(ctx context.Context, userID, manuscriptID string, limit int) ([]Audit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Audit
	for _, audit := range r.data {
		if audit.UserID == userID && audit.ManuscriptID == manuscriptID {
			out = append(out, audit)
		}
	}
	sortNewestFirst(out)
	return truncate(out, limit), nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	audit, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	audit.Status = status
	r.data[id] = audit
	return nil
}

func (r *MemoryRepo) UpdateResult(ctx context.Context, id string, result map[string]any, warnings []string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	audit, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	audit.Status = StatusCompleted
	audit.Result = result
	audit.RigorWarnings = warnings
	audit.ErrorCode = ""
	audit.ErrorMessage = ""
	audit.Retryable = nil
	audit.CompletedAt = &completedAt
	r.data[id] = audit
	return nil
}

func (r *MemoryRepo) UpdateFailure(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	audit, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	audit.Status = StatusFailed
	audit.ErrorCode = code
	audit.ErrorMessage = message
	audit.Retryable = &retryable
	audit.CompletedAt = &completedAt
	r.data[id] = audit
	return nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, audit := range r.data {
		if audit.UserID == userID {
			delete(r.data, id)
		}
	}
	return nil
}

// ClaimGuest reassigns audits owned by a guest identity to the
// authenticated user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	claimed := 0
	for id, audit := range r.data {
		if audit.UserID == guestUserID {
			audit.UserID = authedUserID
			r.data[id] = audit
			claimed++
		}
	}
	return claimed, nil
}

func sortNewestFirst(audits []Audit) {
	sort.Slice(audits, func(i, j int) bool {
		return audits[i].CreatedAt.After(audits[j].CreatedAt)
	})
}

func truncate(audits []Audit, limit int) []Audit {
	if limit > 0 && len(audits) > limit {
		return audits[:limit]
	}
	return audits
}
