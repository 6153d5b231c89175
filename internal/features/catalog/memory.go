// Package catalog — memory.go: in-memory реализация Repository
// для тестов и одноузлового режима.
package catalog

import (
	"context"
	"sort"
	"sync"

	"edustack.in/resource-bot/internal/common"
)

// MemoryRepository хранит каталог в картах под одним мьютексом —
// каскадное удаление атомарно по построению.
type MemoryRepository struct {
	mu        sync.Mutex
	subjects  map[int64]*Subject
	resources map[int64]*Resource
	nextID    int64
}

// NewMemoryRepository создаёт пустой каталог.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subjects:  make(map[int64]*Subject),
		resources: make(map[int64]*Resource),
	}
}

func (r *MemoryRepository) InsertSubject(_ context.Context, name string) (*Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subjects {
		if s.Name == name {
			return nil, common.ErrDuplicateSubject
		}
	}
	r.nextID++
	subj := &Subject{ID: r.nextID, Name: name}
	r.subjects[subj.ID] = subj
	copied := *subj
	return &copied, nil
}

func (r *MemoryRepository) SubjectByName(_ context.Context, name string) (*Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subjects {
		if s.Name == name {
			copied := *s
			return &copied, nil
		}
	}
	return nil, common.ErrSubjectNotFound
}

func (r *MemoryRepository) InsertResource(_ context.Context, subjectID int64, title, link string) (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	res := &Resource{ID: r.nextID, SubjectID: subjectID, Title: title, Link: link}
	r.resources[res.ID] = res
	copied := *res
	return &copied, nil
}

func (r *MemoryRepository) UpdateResourceLink(_ context.Context, id int64, link string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resources[id]
	if !ok {
		return false, nil
	}
	res.Link = link
	return true, nil
}

func (r *MemoryRepository) DeleteResource(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[id]; !ok {
		return false, nil
	}
	delete(r.resources, id)
	return true, nil
}

func (r *MemoryRepository) DeleteSubjectCascade(_ context.Context, name string) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subj *Subject
	for _, s := range r.subjects {
		if s.Name == name {
			subj = s
			break
		}
	}
	if subj == nil {
		return 0, false, nil
	}
	removed := 0
	for id, res := range r.resources {
		if res.SubjectID == subj.ID {
			delete(r.resources, id)
			removed++
		}
	}
	delete(r.subjects, subj.ID)
	return removed, true, nil
}

func (r *MemoryRepository) IncrementAccess(_ context.Context, resourceID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resources[resourceID]
	if !ok {
		return false, nil
	}
	res.AccessCount++
	return true, nil
}

func (r *MemoryRepository) MostAccessed(_ context.Context) (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *Resource
	for _, res := range r.resources {
		if best == nil ||
			res.AccessCount > best.AccessCount ||
			(res.AccessCount == best.AccessCount && res.ID < best.ID) {
			best = res
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (r *MemoryRepository) ResourcesBySubject(_ context.Context, subjectID int64) ([]*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var resources []*Resource
	for _, res := range r.resources {
		if res.SubjectID == subjectID {
			copied := *res
			resources = append(resources, &copied)
		}
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })
	return resources, nil
}

func (r *MemoryRepository) ListSubjects(_ context.Context) ([]*SubjectInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[int64]int)
	for _, res := range r.resources {
		counts[res.SubjectID]++
	}
	var subjects []*SubjectInfo
	for _, s := range r.subjects {
		subjects = append(subjects, &SubjectInfo{Subject: *s, ResourceCount: counts[s.ID]})
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (r *MemoryRepository) CountResources(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resources), nil
}

func (r *MemoryRepository) CountSubjects(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects), nil
}
