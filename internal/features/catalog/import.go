// Package catalog — import.go: пакетная загрузка материалов.
// Пакет не атомарен: каждая запись применяется независимо,
// вызывающий получает статус по каждой записи.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/common"
)

// Ограничения полей записи — те же, что в пошаговом вводе панели.
const (
	minTitleLen = 3
	maxTitleLen = 100
)

// ValidateRecord проверяет одну запись пакета без обращения к хранилищу.
func ValidateRecord(rec ImportRecord) error {
	if strings.TrimSpace(rec.Subject) == "" {
		return fmt.Errorf("%w: empty subject", common.ErrValidation)
	}
	title := strings.TrimSpace(rec.Title)
	if len([]rune(title)) < minTitleLen || len([]rune(title)) > maxTitleLen {
		return fmt.Errorf("%w: title must be %d-%d characters", common.ErrValidation, minTitleLen, maxTitleLen)
	}
	if !strings.HasPrefix(rec.Link, "http://") && !strings.HasPrefix(rec.Link, "https://") {
		return fmt.Errorf("%w: link must start with http:// or https://", common.ErrValidation)
	}
	return nil
}

// Import применяет уже разобранный пакет записей по порядку.
// Отсутствующие предметы создаются на лету.
// Результат — статус на каждую запись.
func (s *Service) Import(ctx context.Context, records []ImportRecord) []ImportResult {
	batchID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"batch_id": batchID,
		"records":  len(records),
	})
	logger.Info("Пакетная загрузка началась")

	results := make([]ImportResult, 0, len(records))
	failed := 0
	for i, rec := range records {
		err := s.importOne(ctx, rec)
		if err != nil {
			failed++
		}
		results = append(results, ImportResult{Index: i, Err: err})
	}

	logger.WithField("failed", failed).Info("Пакетная загрузка завершена")
	return results
}

func (s *Service) importOne(ctx context.Context, rec ImportRecord) error {
	if err := ValidateRecord(rec); err != nil {
		return err
	}

	subject := strings.TrimSpace(rec.Subject)
	if _, err := s.repo.SubjectByName(ctx, subject); err != nil {
		if !errors.Is(err, common.ErrSubjectNotFound) {
			return err
		}
		if _, err := s.repo.InsertSubject(ctx, subject); err != nil &&
			!errors.Is(err, common.ErrDuplicateSubject) {
			// Дубликат допустим: предмет мог создать параллельный импорт
			return err
		}
	}

	_, err := s.AddResource(ctx, subject, strings.TrimSpace(rec.Title), rec.Link)
	return err
}
