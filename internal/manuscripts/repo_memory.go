package manuscripts

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Manuscript // userID -> manuscripts
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Manuscript),
	}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Create(ctx context.Context, ms Manuscript) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[ms.UserID] = append(r.data[ms.UserID], ms)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, manuscriptID string) (Manuscript, error) {
	if err := ctx.Err(); err != nil {
		return Manuscript{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ms := range r.data[userID] {
		if ms.ID == manuscriptID {
			return ms, nil
		}
	}
	return Manuscript{}, ErrNotFound
}

func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Manuscript, error) {
	if err := ctx.Err(); err != nil {
		return Manuscript{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.data[userID]
	if len(list) == 0 {
		return Manuscript{}, ErrNotFound
	}
	return list[len(list)-1], nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Manuscript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	userDocs := r.data[userID]
	r.mu.RUnlock()

	if len(userDocs) == 0 || offset >= len(userDocs) {
		return []Manuscript{}, nil
	}

	out := make([]Manuscript, len(userDocs))
	copy(out, userDocs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) UpdateExtraction(ctx context.Context, userID, manuscriptID, extractedKey string, extractedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.data[userID]
	for i := range list {
		if list[i].ID == manuscriptID {
			if list[i].ExtractedTextKey == "" {
				list[i].ExtractedTextKey = extractedKey
				list[i].ExtractedAt = &extractedAt
				r.data[userID] = list
			}
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) UpdatePaperType(ctx context.Context, userID, manuscriptID, paperType, confidence string, textLength int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.data[userID]
	for i := range list {
		if list[i].ID == manuscriptID {
			list[i].PaperType = paperType
			list[i].PaperTypeConfidence = confidence
			list[i].TextLength = textLength
			r.data[userID] = list
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, userID)
	return nil
}

// ClaimGuest moves all manuscripts from a guest identity onto the
// authenticated user.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	claimed := r.data[guestUserID]
	if len(claimed) == 0 {
		return 0, nil
	}
	for i := range claimed {
		claimed[i].UserID = authedUserID
	}
	r.data[authedUserID] = append(r.data[authedUserID], claimed...)
	delete(r.data, guestUserID)
	return len(claimed), nil
}
