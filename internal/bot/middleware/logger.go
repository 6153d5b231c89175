// Package middleware содержит промежуточные обработчики транспорта:
// логирование входящих событий, восстановление после паники и
// ограничение частоты запросов.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/common"
)

// Текст обрезается: ссылки и платёжные реквизиты в логах не нужны целиком.
const logTextLimit = 50

// LogMessage логирует входящее личное сообщение:
// user_id, username и начало текста.
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	log.WithFields(log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
		"text":     common.Truncate(message.Text, logTextLimit),
		"document": message.Document != nil,
	}).Debug("Входящее сообщение")
}

// LogCallback логирует нажатие inline-кнопки: кнопки панели — это
// отдельный поток событий, их видно в логах рядом с сообщениями.
func LogCallback(cb *tgbotapi.CallbackQuery) {
	if cb == nil || cb.From == nil {
		return
	}

	log.WithFields(log.Fields{
		"user_id":  cb.From.ID,
		"username": cb.From.UserName,
		"token":    common.Truncate(cb.Data, logTextLimit),
	}).Debug("Нажатие кнопки")
}
