// Package bot — upload.go: пакетная загрузка каталога JSON-файлом.
// Доступна только администраторам; каждая запись применяется
// независимо, админ получает отчёт по каждой.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/features/catalog"
)

const maxUploadBytes = 1 << 20 // 1 МБ JSON хватает на тысячи записей

// handleUpload скачивает присланный документ и прогоняет его через
// пакетный импорт каталога.
func (b *Bot) handleUpload(ctx context.Context, chatID int64, doc *tgbotapi.Document) {
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".json") {
		b.sendMessage(chatID, "Send the catalog as a .json file.")
		return
	}

	records, err := b.downloadRecords(ctx, doc.FileID)
	if err != nil {
		log.WithError(err).WithField("file", doc.FileName).Error("Не удалось прочитать файл импорта")
		b.sendMessage(chatID, "Could not read the file: "+err.Error())
		return
	}
	if len(records) == 0 {
		b.sendMessage(chatID, "The file contains no records.")
		return
	}

	results := b.catalog.Import(ctx, records)

	var sb strings.Builder
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(&sb, "record %d: %v\n", res.Index+1, res.Err)
		}
	}

	header := fmt.Sprintf("Import finished: %d ok, %d failed.", len(results)-failed, failed)
	if failed == 0 {
		b.sendMessage(chatID, "✅ "+header)
		return
	}
	b.sendMessage(chatID, "⚠️ "+header+"\n\n"+sb.String())
}

func (b *Bot) downloadRecords(ctx context.Context, fileID string) ([]catalog.ImportRecord, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		return nil, err
	}

	var records []catalog.ImportRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return records, nil
}
