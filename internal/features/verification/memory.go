// Package verification — memory.go: in-memory реализация Repository
// для тестов и одноузлового режима. Мьютекс делает Resolve атомарным.
package verification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository хранит заявки в карте, id назначает монотонно.
type MemoryRepository struct {
	mu       sync.Mutex
	requests map[int64]*Request
	nextID   int64
}

// NewMemoryRepository создаёт пустое хранилище заявок.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{requests: make(map[int64]*Request)}
}

func (r *MemoryRepository) Insert(_ context.Context, requesterID int64, reference string) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req := &Request{
		ID:          r.nextID,
		RequesterID: requesterID,
		Reference:   reference,
		SubmittedAt: time.Now(),
		Status:      StatusPending,
	}
	r.requests[req.ID] = req
	copied := *req
	return &copied, nil
}

func (r *MemoryRepository) Resolve(_ context.Context, id int64, to Status) (ResolveResult, *Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return ResolveNotFound, nil, nil
	}
	if req.Status != StatusPending {
		copied := *req
		return ResolveAlreadyDone, &copied, nil
	}
	req.Status = to
	copied := *req
	return ResolveOK, &copied, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (r *MemoryRepository) ListPending(_ context.Context) ([]*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*Request
	for _, req := range r.requests {
		if req.Status == StatusPending {
			copied := *req
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].SubmittedAt.Equal(pending[j].SubmittedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].SubmittedAt.Before(pending[j].SubmittedAt)
	})
	return pending, nil
}

func (r *MemoryRepository) CountByStatus(_ context.Context, st Status) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, req := range r.requests {
		if req.Status == st {
			count++
		}
	}
	return count, nil
}
