// Package catalog — service.go: операции над предметами и материалами.
// Все «не найдено» и «дубликат» — восстановимые исходы, не отказы.
package catalog

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/common"
)

// Repository — хранилище каталога.
// Реализации: Postgres (repository.go) и in-memory (memory.go).
type Repository interface {
	// InsertSubject возвращает common.ErrDuplicateSubject при точном
	// совпадении названия.
	InsertSubject(ctx context.Context, name string) (*Subject, error)
	// SubjectByName возвращает common.ErrSubjectNotFound, если предмета нет.
	SubjectByName(ctx context.Context, name string) (*Subject, error)
	InsertResource(ctx context.Context, subjectID int64, title, link string) (*Resource, error)
	UpdateResourceLink(ctx context.Context, id int64, link string) (bool, error)
	DeleteResource(ctx context.Context, id int64) (bool, error)
	// DeleteSubjectCascade атомарно удаляет предмет вместе с его
	// материалами; removed — сколько материалов снесено.
	DeleteSubjectCascade(ctx context.Context, name string) (removed int, found bool, err error)
	IncrementAccess(ctx context.Context, resourceID int64) (bool, error)
	// MostAccessed: максимум счётчика, при равенстве — меньший id;
	// nil на пустом каталоге.
	MostAccessed(ctx context.Context) (*Resource, error)
	ResourcesBySubject(ctx context.Context, subjectID int64) ([]*Resource, error)
	ListSubjects(ctx context.Context) ([]*SubjectInfo, error)
	CountResources(ctx context.Context) (int, error)
	CountSubjects(ctx context.Context) (int, error)
}

// Service управляет каталогом.
type Service struct {
	repo Repository
}

// NewService создаёт сервис каталога.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddSubject заводит новый предмет. Точное совпадение названия —
// common.ErrDuplicateSubject.
func (s *Service) AddSubject(ctx context.Context, name string) (*Subject, error) {
	subj, err := s.repo.InsertSubject(ctx, name)
	if err != nil {
		return nil, err
	}
	log.WithField("subject", name).Info("Предмет добавлен")
	return subj, nil
}

// AddResource добавляет материал в существующий предмет.
// Неизвестный предмет — common.ErrSubjectNotFound, каталог не меняется.
func (s *Service) AddResource(ctx context.Context, subjectName, title, link string) (*Resource, error) {
	subj, err := s.repo.SubjectByName(ctx, subjectName)
	if err != nil {
		return nil, err
	}
	res, err := s.repo.InsertResource(ctx, subj.ID, title, link)
	if err != nil {
		return nil, fmt.Errorf("insert resource: %w", err)
	}
	log.WithFields(log.Fields{
		"subject":     subjectName,
		"resource_id": res.ID,
	}).Info("Материал добавлен")
	return res, nil
}

// EditResource меняет ссылку материала.
func (s *Service) EditResource(ctx context.Context, id int64, link string) error {
	ok, err := s.repo.UpdateResourceLink(ctx, id, link)
	if err != nil {
		return fmt.Errorf("edit resource %d: %w", id, err)
	}
	if !ok {
		return common.ErrResourceNotFound
	}
	return nil
}

// RemoveResource удаляет материал. Идемпотентно: второе удаление
// возвращает common.ErrResourceNotFound, это сообщение, не отказ.
func (s *Service) RemoveResource(ctx context.Context, id int64) error {
	ok, err := s.repo.DeleteResource(ctx, id)
	if err != nil {
		return fmt.Errorf("remove resource %d: %w", id, err)
	}
	if !ok {
		return common.ErrResourceNotFound
	}
	return nil
}

// DeleteSubject каскадно сносит предмет и все его материалы.
// Возвращает, сколько материалов удалено вместе с предметом.
func (s *Service) DeleteSubject(ctx context.Context, name string) (int, error) {
	removed, found, err := s.repo.DeleteSubjectCascade(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("delete subject %q: %w", name, err)
	}
	if !found {
		return 0, common.ErrSubjectNotFound
	}
	log.WithFields(log.Fields{
		"subject": name,
		"removed": removed,
	}).Info("Предмет удалён вместе с материалами")
	return removed, nil
}

// RecordAccess увеличивает счётчик выдач материала. Вызывается
// пользовательским потоком при каждой доставке ссылки.
func (s *Service) RecordAccess(ctx context.Context, resourceID int64) error {
	ok, err := s.repo.IncrementAccess(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("record access %d: %w", resourceID, err)
	}
	if !ok {
		return common.ErrResourceNotFound
	}
	return nil
}

// MostAccessed — самый выдаваемый материал; nil на пустом каталоге.
func (s *Service) MostAccessed(ctx context.Context) (*Resource, error) {
	return s.repo.MostAccessed(ctx)
}

// Find возвращает предмет и его материалы для пользовательского поиска.
func (s *Service) Find(ctx context.Context, subjectName string) (*Subject, []*Resource, error) {
	subj, err := s.repo.SubjectByName(ctx, subjectName)
	if err != nil {
		return nil, nil, err
	}
	resources, err := s.repo.ResourcesBySubject(ctx, subj.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("resources of %q: %w", subjectName, err)
	}
	return subj, resources, nil
}

// ListSubjects — предметы с числом материалов, для меню каталога.
func (s *Service) ListSubjects(ctx context.Context) ([]*SubjectInfo, error) {
	return s.repo.ListSubjects(ctx)
}

// CountResources — всего материалов (для статистики).
func (s *Service) CountResources(ctx context.Context) (int, error) {
	return s.repo.CountResources(ctx)
}

// CountSubjects — всего предметов (для статистики).
func (s *Service) CountSubjects(ctx context.Context) (int, error) {
	return s.repo.CountSubjects(ctx)
}
