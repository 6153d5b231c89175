// Package verification — service.go: создание заявок и их идемпотентное
// разрешение. Конкурентные approve/reject одной заявки детерминированно
// дают один ResolveOK и один ResolveAlreadyDone.
package verification

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Repository — хранилище заявок.
// Resolve обязан быть атомарным: переход выполняется только из pending.
type Repository interface {
	Insert(ctx context.Context, requesterID int64, reference string) (*Request, error)
	// Resolve атомарно переводит pending-заявку в to.
	// Возвращает заявку после перехода (для ResolveOK) либо nil.
	Resolve(ctx context.Context, id int64, to Status) (ResolveResult, *Request, error)
	Get(ctx context.Context, id int64) (*Request, error)
	ListPending(ctx context.Context) ([]*Request, error)
	CountByStatus(ctx context.Context, st Status) (int, error)
}

// Service управляет очередью верификации.
type Service struct {
	repo Repository
}

// NewService создаёт сервис очереди.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit регистрирует новую pending-заявку от пользователя.
func (s *Service) Submit(ctx context.Context, requesterID int64, reference string) (*Request, error) {
	req, err := s.repo.Insert(ctx, requesterID, reference)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	log.WithFields(log.Fields{
		"request_id":   req.ID,
		"requester_id": requesterID,
	}).Info("Новая заявка на верификацию")
	return req, nil
}

// Approve одобряет заявку. Повторное одобрение возвращает
// ResolveAlreadyDone, статус при этом не меняется.
func (s *Service) Approve(ctx context.Context, id int64) (ResolveResult, *Request, error) {
	return s.resolve(ctx, id, StatusApproved)
}

// Reject отклоняет заявку, симметрично Approve.
func (s *Service) Reject(ctx context.Context, id int64) (ResolveResult, *Request, error) {
	return s.resolve(ctx, id, StatusRejected)
}

func (s *Service) resolve(ctx context.Context, id int64, to Status) (ResolveResult, *Request, error) {
	res, req, err := s.repo.Resolve(ctx, id, to)
	if err != nil {
		return 0, nil, fmt.Errorf("resolve request %d: %w", id, err)
	}
	if res == ResolveOK {
		log.WithFields(log.Fields{
			"request_id": id,
			"status":     to,
		}).Info("Заявка разрешена")
	}
	return res, req, nil
}

// ListPending возвращает неразрешённые заявки по времени подачи,
// старые первыми — админ разбирает их в порядке поступления.
func (s *Service) ListPending(ctx context.Context) ([]*Request, error) {
	return s.repo.ListPending(ctx)
}

// Get возвращает заявку по id (nil, если нет).
func (s *Service) Get(ctx context.Context, id int64) (*Request, error) {
	return s.repo.Get(ctx, id)
}

// CountApproved — число одобренных оплат (для статистики).
func (s *Service) CountApproved(ctx context.Context) (int, error) {
	return s.repo.CountByStatus(ctx, StatusApproved)
}

// CountPending — число ожидающих заявок (для статистики).
func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountByStatus(ctx, StatusPending)
}
