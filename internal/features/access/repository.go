// Package access — repository.go работает с таблицами users и access_grants.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository работает с таблицами доступа.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureUser создаёт пользователя, если его ещё нет.
func (r *PostgresRepository) EnsureUser(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO users (user_id, search_count)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

// IncrementSearches увеличивает счётчик поисков.
func (r *PostgresRepository) IncrementSearches(ctx context.Context, userID int64) error {
	query := `UPDATE users SET search_count = search_count + 1 WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// SearchCount возвращает текущий счётчик поисков (0, если пользователя нет).
func (r *PostgresRepository) SearchCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT search_count FROM users WHERE user_id = $1`, userID,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// CountUsers возвращает общее число пользователей.
func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// ActiveGrant возвращает активный непросроченный грант или nil.
func (r *PostgresRepository) ActiveGrant(ctx context.Context, userID int64, now time.Time) (*Grant, error) {
	query := `
		SELECT id, user_id, granted_at, expires_at, active
		FROM access_grants
		WHERE user_id = $1 AND active = TRUE AND expires_at > $2
	`
	var g Grant
	err := r.db.QueryRow(ctx, query, userID, now).Scan(
		&g.ID, &g.UserID, &g.GrantedAt, &g.ExpiresAt, &g.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения гранта: %w", err)
	}
	return &g, nil
}

// UpsertGrant создаёт или обновляет грант пользователя.
// Один грант на user_id — повторная выдача перезаписывает сроки.
func (r *PostgresRepository) UpsertGrant(ctx context.Context, g *Grant) error {
	query := `
		INSERT INTO access_grants (user_id, granted_at, expires_at, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id) DO UPDATE
		SET granted_at = EXCLUDED.granted_at,
		    expires_at = EXCLUDED.expires_at,
		    active     = TRUE
	`
	if _, err := r.db.Exec(ctx, query, g.UserID, g.GrantedAt, g.ExpiresAt); err != nil {
		return fmt.Errorf("ошибка выдачи гранта: %w", err)
	}
	return nil
}

// DeactivateGrant отключает активный грант. false — гранта не было.
func (r *PostgresRepository) DeactivateGrant(ctx context.Context, userID int64) (bool, error) {
	query := `UPDATE access_grants SET active = FALSE WHERE user_id = $1 AND active = TRUE`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка отзыва гранта: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountActiveGrants — активные подписчики на момент now.
func (r *PostgresRepository) CountActiveGrants(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM access_grants WHERE active = TRUE AND expires_at > $1`, now,
	).Scan(&count)
	return count, err
}

// ListActiveGrants — свежие активные гранты, новые первыми.
func (r *PostgresRepository) ListActiveGrants(ctx context.Context, now time.Time, limit int) ([]*Grant, error) {
	query := `
		SELECT id, user_id, granted_at, expires_at, active
		FROM access_grants
		WHERE active = TRUE AND expires_at > $1
		ORDER BY granted_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка грантов: %w", err)
	}
	defer rows.Close()

	var grants []*Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.UserID, &g.GrantedAt, &g.ExpiresAt, &g.Active); err != nil {
			return nil, err
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}

// ExpireGrants деактивирует просроченные гранты, возвращает число строк.
func (r *PostgresRepository) ExpireGrants(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE access_grants SET active = FALSE WHERE active = TRUE AND expires_at <= $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка деактивации грантов: %w", err)
	}
	return tag.RowsAffected(), nil
}
