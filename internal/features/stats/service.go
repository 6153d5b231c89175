// Package stats собирает сводную статистику по остальным сервисам.
// Чисто читающая проекция: никакого кеширования, каждая отрисовка
// меню и каждый HTTP-запрос пересчитывают цифры заново, чтобы
// админ никогда не видел устаревших значений.
package stats

import (
	"context"
	"fmt"

	"edustack.in/resource-bot/internal/features/access"
	"edustack.in/resource-bot/internal/features/catalog"
	"edustack.in/resource-bot/internal/features/verification"
)

// Summary — сводные цифры для меню статистики и веб-страницы статуса.
type Summary struct {
	TotalUsers        int    `json:"total_users"`
	ActiveSubscribers int    `json:"active_subscribers"`
	VerifiedPayments  int    `json:"verified_payments"`
	PendingRequests   int    `json:"pending_requests"`
	TotalResources    int    `json:"total_resources"`
	SubjectCount      int    `json:"subject_count"`
	MostAccessed      string `json:"most_accessed"` // пусто на пустом каталоге
}

// Service — агрегатор. Не владеет данными и ничего не мутирует.
type Service struct {
	access  *access.Service
	queue   *verification.Service
	catalog *catalog.Service
}

// NewService создаёт агрегатор поверх трёх сервисов-владельцев.
func NewService(a *access.Service, q *verification.Service, c *catalog.Service) *Service {
	return &Service{access: a, queue: q, catalog: c}
}

// Collect пересчитывает сводку из актуальных данных.
func (s *Service) Collect(ctx context.Context) (Summary, error) {
	var sum Summary
	var err error

	if sum.TotalUsers, err = s.access.CountUsers(ctx); err != nil {
		return Summary{}, fmt.Errorf("count users: %w", err)
	}
	if sum.ActiveSubscribers, err = s.access.CountActiveGrants(ctx); err != nil {
		return Summary{}, fmt.Errorf("count grants: %w", err)
	}
	if sum.VerifiedPayments, err = s.queue.CountApproved(ctx); err != nil {
		return Summary{}, fmt.Errorf("count approved: %w", err)
	}
	if sum.PendingRequests, err = s.queue.CountPending(ctx); err != nil {
		return Summary{}, fmt.Errorf("count pending: %w", err)
	}
	if sum.TotalResources, err = s.catalog.CountResources(ctx); err != nil {
		return Summary{}, fmt.Errorf("count resources: %w", err)
	}
	if sum.SubjectCount, err = s.catalog.CountSubjects(ctx); err != nil {
		return Summary{}, fmt.Errorf("count subjects: %w", err)
	}

	top, err := s.catalog.MostAccessed(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("most accessed: %w", err)
	}
	if top != nil {
		sum.MostAccessed = top.Title
	}
	return sum, nil
}
