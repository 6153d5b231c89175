// Package bot — транспортный слой Telegram: polling, маршрутизация
// апдейтов и отправка сообщений. Вся доменная логика живёт в features;
// здесь только преобразование апдейтов в события и отрисовок в сообщения.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/bot/middleware"
	"edustack.in/resource-bot/internal/config"
	"edustack.in/resource-bot/internal/features/access"
	"edustack.in/resource-bot/internal/features/catalog"
	"edustack.in/resource-bot/internal/features/panel"
	"edustack.in/resource-bot/internal/features/verification"
)

// Bot — главная структура транспорта.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	rateLimiter *middleware.RateLimiter

	machine *panel.Machine
	access  *access.Service
	queue   *verification.Service
	catalog *catalog.Service

	gate   *loginGate
	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт транспорт со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	machine *panel.Machine,
	accessService *access.Service,
	queueService *verification.Service,
	catalogService *catalog.Service,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:         api,
		cfg:         cfg,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		machine:     machine,
		access:      accessService,
		queue:       queueService,
		catalog:     catalogService,
		gate:        newLoginGate(cfg.AdminPasswordHash),
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic("bot.update")

	// Нажатия inline-кнопок — это события панели.
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}
	message := update.Message
	if message.From == nil || message.Chat == nil {
		return
	}

	middleware.LogMessage(message)
	if !message.Chat.IsPrivate() {
		// Бот работает только в личных сообщениях.
		return
	}

	userID := message.From.ID
	chatID := message.Chat.ID

	if !b.rateLimiter.Allow(userID) {
		return
	}

	if err := b.access.EnsureUser(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsureUser failed")
	}

	// Документ от администратора — пакетная загрузка каталога.
	if message.Document != nil {
		if b.access.IsAdmin(userID) && b.gate.unlocked(userID) {
			b.handleUpload(ctx, chatID, message.Document)
		}
		return
	}

	if message.Text == "" {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)

	// /login обрабатывается до панели: барьер пароля стоит перед ней.
	if isCommand && cmd == "login" {
		b.handleLogin(chatID, userID, args)
		return
	}

	// Администратор внутри панели: всё уходит в конечный автомат.
	if b.access.IsAdmin(userID) && b.gate.unlocked(userID) {
		if isCommand {
			if b.routeAdminCommand(ctx, chatID, userID, cmd, args) {
				return
			}
			// Не-панельные команды (/verify_payment и т.п.) падают
			// в пользовательский маршрут ниже.
		} else {
			render := b.machine.Handle(ctx, userID, panel.TextReply(message.Text))
			b.sendRender(chatID, render)
			return
		}
	}

	if isCommand {
		b.routeUserCommand(ctx, chatID, userID, cmd, args)
		return
	}
	b.handleSearch(ctx, chatID, userID, message.Text)
}

// handleCallback превращает callback query в событие панели.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	middleware.LogCallback(cb)
	userID := cb.From.ID

	// Сразу подтверждаем нажатие, чтобы у кнопки не крутился спиннер.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.WithError(err).Debug("callback ack failed")
	}

	if !b.gate.unlocked(userID) {
		b.sendMessage(userID, "Log in first: /login <password>")
		return
	}

	render := b.machine.Handle(ctx, userID, panel.ButtonPress(cb.Data))
	chatID := userID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}
	b.sendRender(chatID, render)
}

// routeAdminCommand — панельные команды. false, если команда не панельная.
func (b *Bot) routeAdminCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) bool {
	switch cmd {
	case "start", "menu", "stats", "add_resource", "grant_access", "delete_subject":
		render := b.machine.Handle(ctx, userID, panel.Command(cmd, args...))
		b.sendRender(chatID, render)
		return true
	}
	return false
}

// routeUserCommand — команды пользовательского потока.
func (b *Bot) routeUserCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	switch cmd {
	case "start", "help":
		b.sendMessage(chatID, startMessage(b.cfg.FreeSearches))
	case "verify_payment":
		b.handleVerifyPayment(ctx, chatID, userID, args)
	case "my_history":
		b.handleMyHistory(ctx, chatID, userID)
	default:
		b.sendMessage(chatID, "Unknown command. Send a subject code (e.g. CSE211) to search.")
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser отправляет сообщение пользователю (для уведомлений).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}

// CommandParser разбирает команды вида /name arg1 arg2.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	// /command@botname в группах
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}
