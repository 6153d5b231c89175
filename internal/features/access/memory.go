// Package access — memory.go: in-memory реализация Repository.
// Используется в тестах и в одноузловом режиме без Postgres.
// Мьютекс на хранилище даёт ту же взаимную исключительность,
// что и конфликтобезопасные запросы в Postgres-реализации.
package access

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository хранит пользователей и гранты в картах.
type MemoryRepository struct {
	mu     sync.Mutex
	users  map[int64]*User
	grants map[int64]*Grant
	nextID int64
}

// NewMemoryRepository создаёт пустое in-memory хранилище.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:  make(map[int64]*User),
		grants: make(map[int64]*Grant),
	}
}

func (r *MemoryRepository) EnsureUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; ok {
		return nil
	}
	r.nextID++
	r.users[userID] = &User{ID: r.nextID, UserID: userID, CreatedAt: time.Now()}
	return nil
}

func (r *MemoryRepository) IncrementSearches(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.SearchCount++
	}
	return nil
}

func (r *MemoryRepository) SearchCount(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		return u.SearchCount, nil
	}
	return 0, nil
}

func (r *MemoryRepository) CountUsers(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *MemoryRepository) ActiveGrant(_ context.Context, userID int64, now time.Time) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[userID]
	if !ok || !g.Active || !g.ExpiresAt.After(now) {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (r *MemoryRepository) UpsertGrant(_ context.Context, g *Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.grants[g.UserID]
	if ok {
		existing.GrantedAt = g.GrantedAt
		existing.ExpiresAt = g.ExpiresAt
		existing.Active = true
		return nil
	}
	r.nextID++
	stored := *g
	stored.ID = r.nextID
	r.grants[g.UserID] = &stored
	return nil
}

func (r *MemoryRepository) DeactivateGrant(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[userID]
	if !ok || !g.Active {
		return false, nil
	}
	g.Active = false
	return true, nil
}

func (r *MemoryRepository) CountActiveGrants(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, g := range r.grants {
		if g.Active && g.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) ListActiveGrants(_ context.Context, now time.Time, limit int) ([]*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var grants []*Grant
	for _, g := range r.grants {
		if g.Active && g.ExpiresAt.After(now) {
			copied := *g
			grants = append(grants, &copied)
		}
	}
	// Новые первыми, как в Postgres-реализации
	for i := 0; i < len(grants); i++ {
		for j := i + 1; j < len(grants); j++ {
			if grants[j].GrantedAt.After(grants[i].GrantedAt) {
				grants[i], grants[j] = grants[j], grants[i]
			}
		}
	}
	if len(grants) > limit {
		grants = grants[:limit]
	}
	return grants, nil
}

func (r *MemoryRepository) ExpireGrants(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, g := range r.grants {
		if g.Active && !g.ExpiresAt.After(now) {
			g.Active = false
			n++
		}
	}
	return n, nil
}
