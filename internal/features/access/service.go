// Package access — service.go содержит логику проверки белого списка
// и идемпотентной выдачи/отзыва доступа.
package access

import (
	"context"
	"fmt"
	"time"

	"edustack.in/resource-bot/internal/config"
)

// Repository — хранилище пользователей и грантов.
// Реализации: Postgres (repository.go) и in-memory (memory.go).
type Repository interface {
	EnsureUser(ctx context.Context, userID int64) error
	IncrementSearches(ctx context.Context, userID int64) error
	SearchCount(ctx context.Context, userID int64) (int, error)
	CountUsers(ctx context.Context) (int, error)

	// ActiveGrant возвращает (nil, nil), если активного гранта нет.
	ActiveGrant(ctx context.Context, userID int64, now time.Time) (*Grant, error)
	UpsertGrant(ctx context.Context, g *Grant) error
	DeactivateGrant(ctx context.Context, userID int64) (bool, error)
	CountActiveGrants(ctx context.Context, now time.Time) (int, error)
	ListActiveGrants(ctx context.Context, now time.Time, limit int) ([]*Grant, error)
	ExpireGrants(ctx context.Context, now time.Time) (int64, error)
}

// Service управляет доступом.
type Service struct {
	repo     Repository
	admins   map[int64]struct{} // неизменяемый белый список из конфига
	grantDur time.Duration
}

// NewService создаёт сервис доступа. Белый список фиксируется на старте
// и в рантайме не мутируется.
func NewService(repo Repository, cfg *config.Config) *Service {
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Service{
		repo:     repo,
		admins:   admins,
		grantDur: cfg.GrantDuration,
	}
}

// IsAdmin проверяет идентификатор по белому списку.
// Вызывается раньше любой логики состояний — на каждом входе в панель.
func (s *Service) IsAdmin(id int64) bool {
	_, ok := s.admins[id]
	return ok
}

// Grant выдаёт пользователю доступ на настроенный срок.
// Идемпотентна: повторная выдача активному пользователю возвращает
// GrantAlreadyActive без ошибки.
func (s *Service) Grant(ctx context.Context, userID int64) (GrantResult, error) {
	if err := s.repo.EnsureUser(ctx, userID); err != nil {
		return 0, fmt.Errorf("ensure user %d: %w", userID, err)
	}

	now := time.Now()
	existing, err := s.repo.ActiveGrant(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("check grant %d: %w", userID, err)
	}
	if existing != nil {
		return GrantAlreadyActive, nil
	}

	g := &Grant{
		UserID:    userID,
		GrantedAt: now,
		ExpiresAt: now.Add(s.grantDur),
		Active:    true,
	}
	if err := s.repo.UpsertGrant(ctx, g); err != nil {
		return 0, fmt.Errorf("upsert grant %d: %w", userID, err)
	}
	return GrantIssued, nil
}

// Revoke отзывает активный доступ. Отзыв несуществующего гранта
// возвращает RevokeNotFound, это не ошибка.
func (s *Service) Revoke(ctx context.Context, userID int64) (RevokeResult, error) {
	ok, err := s.repo.DeactivateGrant(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke grant %d: %w", userID, err)
	}
	if !ok {
		return RevokeNotFound, nil
	}
	return Revoked, nil
}

// HasAccess сообщает, есть ли у пользователя активная подписка.
func (s *Service) HasAccess(ctx context.Context, userID int64) (bool, error) {
	g, err := s.repo.ActiveGrant(ctx, userID, time.Now())
	if err != nil {
		return false, err
	}
	return g != nil, nil
}

// AccessExpiry возвращает срок действия активного гранта или nil.
func (s *Service) AccessExpiry(ctx context.Context, userID int64) (*time.Time, error) {
	g, err := s.repo.ActiveGrant(ctx, userID, time.Now())
	if err != nil || g == nil {
		return nil, err
	}
	return &g.ExpiresAt, nil
}

// EnsureUser регистрирует пользователя при первом обращении.
func (s *Service) EnsureUser(ctx context.Context, userID int64) error {
	return s.repo.EnsureUser(ctx, userID)
}

// RegisterSearch увеличивает счётчик поисков пользователя.
func (s *Service) RegisterSearch(ctx context.Context, userID int64) error {
	return s.repo.IncrementSearches(ctx, userID)
}

// SearchCount возвращает, сколько поисков уже сделано.
func (s *Service) SearchCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.SearchCount(ctx, userID)
}

// CountUsers — всего отслеживаемых пользователей (для статистики).
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}

// CountActiveGrants — активных подписчиков сейчас (для статистики).
func (s *Service) CountActiveGrants(ctx context.Context) (int, error) {
	return s.repo.CountActiveGrants(ctx, time.Now())
}

// ListActiveGrants — последние активные гранты для меню пользователей.
func (s *Service) ListActiveGrants(ctx context.Context, limit int) ([]*Grant, error) {
	return s.repo.ListActiveGrants(ctx, time.Now(), limit)
}

// ExpireGrants деактивирует просроченные гранты. Вызывается из cron.
func (s *Service) ExpireGrants(ctx context.Context) (int64, error) {
	return s.repo.ExpireGrants(ctx, time.Now())
}
