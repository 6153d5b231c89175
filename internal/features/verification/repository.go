// Package verification — repository.go работает с таблицей
// verification_requests. Разрешение заявки — условный UPDATE:
// два конкурентных approve дадут ровно одну изменённую строку.
package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository работает с таблицей заявок.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert создаёт pending-заявку; id назначает BIGSERIAL (монотонно).
func (r *PostgresRepository) Insert(ctx context.Context, requesterID int64, reference string) (*Request, error) {
	query := `
		INSERT INTO verification_requests (requester_id, reference, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, requester_id, reference, submitted_at, status
	`
	var req Request
	err := r.db.QueryRow(ctx, query, requesterID, reference).Scan(
		&req.ID, &req.RequesterID, &req.Reference, &req.SubmittedAt, &req.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return &req, nil
}

// Resolve переводит заявку из pending в терминальный статус.
// WHERE status = 'pending' гарантирует единственный успешный переход.
func (r *PostgresRepository) Resolve(ctx context.Context, id int64, to Status) (ResolveResult, *Request, error) {
	query := `
		UPDATE verification_requests
		SET status = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING id, requester_id, reference, submitted_at, status
	`
	var req Request
	err := r.db.QueryRow(ctx, query, id, string(to)).Scan(
		&req.ID, &req.RequesterID, &req.Reference, &req.SubmittedAt, &req.Status,
	)
	if err == nil {
		return ResolveOK, &req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, fmt.Errorf("ошибка разрешения заявки: %w", err)
	}

	// Ничего не обновили: различаем «нет заявки» и «уже разрешена»
	existing, err := r.Get(ctx, id)
	if err != nil {
		return 0, nil, err
	}
	if existing == nil {
		return ResolveNotFound, nil, nil
	}
	return ResolveAlreadyDone, existing, nil
}

// Get возвращает заявку по id или nil.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Request, error) {
	query := `
		SELECT id, requester_id, reference, submitted_at, status
		FROM verification_requests
		WHERE id = $1
	`
	var req Request
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.RequesterID, &req.Reference, &req.SubmittedAt, &req.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заявки: %w", err)
	}
	return &req, nil
}

// ListPending — ожидающие заявки, старые первыми.
func (r *PostgresRepository) ListPending(ctx context.Context) ([]*Request, error) {
	query := `
		SELECT id, requester_id, reference, submitted_at, status
		FROM verification_requests
		WHERE status = 'pending'
		ORDER BY submitted_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка заявок: %w", err)
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.RequesterID, &req.Reference, &req.SubmittedAt, &req.Status); err != nil {
			return nil, err
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}

// CountByStatus возвращает число заявок в статусе st.
func (r *PostgresRepository) CountByStatus(ctx context.Context, st Status) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM verification_requests WHERE status = $1`, string(st),
	).Scan(&count)
	return count, err
}
