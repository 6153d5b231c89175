// Package catalog — repository.go работает с таблицами subjects и resources.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"edustack.in/resource-bot/internal/common"
)

// PostgresRepository работает с таблицами каталога.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertSubject создаёт предмет; нарушение уникальности названия
// превращается в common.ErrDuplicateSubject.
func (r *PostgresRepository) InsertSubject(ctx context.Context, name string) (*Subject, error) {
	query := `INSERT INTO subjects (name) VALUES ($1) RETURNING id, name`
	var subj Subject
	err := r.db.QueryRow(ctx, query, name).Scan(&subj.ID, &subj.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrDuplicateSubject
		}
		return nil, fmt.Errorf("ошибка создания предмета: %w", err)
	}
	return &subj, nil
}

// SubjectByName ищет предмет по точному названию.
func (r *PostgresRepository) SubjectByName(ctx context.Context, name string) (*Subject, error) {
	var subj Subject
	err := r.db.QueryRow(ctx,
		`SELECT id, name FROM subjects WHERE name = $1`, name,
	).Scan(&subj.ID, &subj.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения предмета: %w", err)
	}
	return &subj, nil
}

// InsertResource добавляет материал в предмет.
func (r *PostgresRepository) InsertResource(ctx context.Context, subjectID int64, title, link string) (*Resource, error) {
	query := `
		INSERT INTO resources (subject_id, title, link, access_count)
		VALUES ($1, $2, $3, 0)
		RETURNING id, subject_id, title, link, access_count
	`
	var res Resource
	err := r.db.QueryRow(ctx, query, subjectID, title, link).Scan(
		&res.ID, &res.SubjectID, &res.Title, &res.Link, &res.AccessCount,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания материала: %w", err)
	}
	return &res, nil
}

// UpdateResourceLink меняет ссылку; false — материала нет.
func (r *PostgresRepository) UpdateResourceLink(ctx context.Context, id int64, link string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE resources SET link = $2 WHERE id = $1`, id, link)
	if err != nil {
		return false, fmt.Errorf("ошибка обновления материала: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteResource удаляет материал; false — уже удалён.
func (r *PostgresRepository) DeleteResource(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления материала: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSubjectCascade в одной транзакции считает материалы предмета
// и удаляет предмет; материалы уходят по ON DELETE CASCADE.
func (r *PostgresRepository) DeleteSubjectCascade(ctx context.Context, name string) (int, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var subjectID int64
	err = tx.QueryRow(ctx, `SELECT id FROM subjects WHERE name = $1`, name).Scan(&subjectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("ошибка чтения предмета: %w", err)
	}

	var removed int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM resources WHERE subject_id = $1`, subjectID,
	).Scan(&removed)
	if err != nil {
		return 0, false, fmt.Errorf("ошибка подсчёта материалов: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, subjectID); err != nil {
		return 0, false, fmt.Errorf("ошибка удаления предмета: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("ошибка фиксации: %w", err)
	}
	return removed, true, nil
}

// IncrementAccess увеличивает счётчик выдач материала.
func (r *PostgresRepository) IncrementAccess(ctx context.Context, resourceID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE resources SET access_count = access_count + 1 WHERE id = $1`, resourceID,
	)
	if err != nil {
		return false, fmt.Errorf("ошибка счётчика: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MostAccessed — материал с максимальным счётчиком; при равенстве
// побеждает меньший id (созданный раньше).
func (r *PostgresRepository) MostAccessed(ctx context.Context) (*Resource, error) {
	query := `
		SELECT id, subject_id, title, link, access_count
		FROM resources
		ORDER BY access_count DESC, id ASC
		LIMIT 1
	`
	var res Resource
	err := r.db.QueryRow(ctx, query).Scan(
		&res.ID, &res.SubjectID, &res.Title, &res.Link, &res.AccessCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска популярного материала: %w", err)
	}
	return &res, nil
}

// ResourcesBySubject — материалы предмета по возрастанию id.
func (r *PostgresRepository) ResourcesBySubject(ctx context.Context, subjectID int64) ([]*Resource, error) {
	query := `
		SELECT id, subject_id, title, link, access_count
		FROM resources
		WHERE subject_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка материалов: %w", err)
	}
	defer rows.Close()

	var resources []*Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.SubjectID, &res.Title, &res.Link, &res.AccessCount); err != nil {
			return nil, err
		}
		resources = append(resources, &res)
	}
	return resources, rows.Err()
}

// ListSubjects — предметы по алфавиту с числом материалов.
func (r *PostgresRepository) ListSubjects(ctx context.Context) ([]*SubjectInfo, error) {
	query := `
		SELECT s.id, s.name, COUNT(r.id)
		FROM subjects s
		LEFT JOIN resources r ON r.subject_id = s.id
		GROUP BY s.id, s.name
		ORDER BY s.name ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка предметов: %w", err)
	}
	defer rows.Close()

	var subjects []*SubjectInfo
	for rows.Next() {
		var info SubjectInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.ResourceCount); err != nil {
			return nil, err
		}
		subjects = append(subjects, &info)
	}
	return subjects, rows.Err()
}

// CountResources — всего материалов.
func (r *PostgresRepository) CountResources(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM resources`).Scan(&count)
	return count, err
}

// CountSubjects — всего предметов.
func (r *PostgresRepository) CountSubjects(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM subjects`).Scan(&count)
	return count, err
}
