// Package bot — render.go: превращение panel.Render в сообщение
// Telegram с inline-клавиатурой. Панель не знает о разметке,
// весь маппинг «состояние -> кнопки» живёт здесь.
package bot

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/common"
	"edustack.in/resource-bot/internal/features/panel"
)

// sendRender отправляет отрисовку админу и доставляет уведомления
// пользователям, если панель их назначила.
func (b *Bot) sendRender(chatID int64, r panel.Render) {
	// Чужому пользователю панель не показываем даже пустой.
	if errors.Is(r.Err, common.ErrAccessDenied) {
		b.sendMessage(chatID, "This command is for administrators only.")
		return
	}

	for _, n := range r.Notify {
		b.SendMessageToUser(n.UserID, n.Text)
	}

	text, keyboard := composeRender(r)
	msg := tgbotapi.NewMessage(chatID, text)
	if len(keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки меню")
	}
}

func composeRender(r panel.Render) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder

	if r.Err != nil {
		sb.WriteString("⚠️ ")
		sb.WriteString(errorText(r.Err))
		sb.WriteString("\n\n")
	}
	if r.Notice != "" {
		sb.WriteString("✅ ")
		sb.WriteString(r.Notice)
		sb.WriteString("\n\n")
	}

	// Посреди пошагового ввода показываем только приглашение:
	// меню перерисуется после завершения или отмены.
	if r.Prompt != "" {
		sb.WriteString(r.Prompt)
		sb.WriteString("\nSend \"cancel\" to abort.")
		return sb.String(), cancelKeyboard()
	}

	sb.WriteString(menuTitle(r.State))

	if r.State == panel.StateStats || r.State == panel.StateMainMenu {
		sb.WriteString("\n\n")
		sb.WriteString(summaryText(r))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(r.Items) > 0 {
		sb.WriteString("\n")
		for _, item := range r.Items {
			sb.WriteString("\n• ")
			sb.WriteString(item.Text)
			if len(item.Actions) > 0 {
				var row []tgbotapi.InlineKeyboardButton
				for _, a := range item.Actions {
					row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Token))
				}
				rows = append(rows, row)
			}
		}
	} else if r.State == panel.StateVerification {
		sb.WriteString("\n\nNo pending requests.")
	}

	rows = append(rows, menuButtons(r.State)...)
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func menuTitle(state panel.MenuState) string {
	switch state {
	case panel.StateVerification:
		return "🗂 Payment Verification"
	case panel.StateResources:
		return "📚 Resource Management"
	case panel.StateUsers:
		return "👥 User Management"
	case panel.StateStats:
		return "📊 Statistics"
	default:
		return "🛠 Admin Panel"
	}
}

func summaryText(r panel.Render) string {
	s := r.Summary
	lines := []string{
		"Users: " + common.FormatNumber(int64(s.TotalUsers)),
		fmt.Sprintf("Active subscribers: %d", s.ActiveSubscribers),
		"Verified payments: " + common.FormatNumber(int64(s.VerifiedPayments)),
		fmt.Sprintf("Pending requests: %d", s.PendingRequests),
		fmt.Sprintf("Materials: %s in %s",
			common.FormatNumber(int64(s.TotalResources)),
			common.CountNoun(s.SubjectCount, "subject", "subjects")),
	}
	if s.MostAccessed != "" {
		lines = append(lines, "Most accessed: "+common.Truncate(s.MostAccessed, 60))
	}
	return strings.Join(lines, "\n")
}

// menuButtons — навигация и действия, доступные из состояния.
// Токены должны совпадать с таблицами переходов автомата.
func menuButtons(state panel.MenuState) [][]tgbotapi.InlineKeyboardButton {
	row := func(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
		return buttons
	}
	data := tgbotapi.NewInlineKeyboardButtonData

	switch state {
	case panel.StateMainMenu:
		return [][]tgbotapi.InlineKeyboardButton{
			row(data("🗂 Verification", panel.TokenVerification), data("📚 Resources", panel.TokenResources)),
			row(data("👥 Users", panel.TokenUsers), data("📊 Statistics", panel.TokenStats)),
		}
	case panel.StateVerification:
		return [][]tgbotapi.InlineKeyboardButton{
			row(data("⬅️ Back", panel.TokenBack)),
		}
	case panel.StateResources:
		return [][]tgbotapi.InlineKeyboardButton{
			row(data("➕ Subject", string(panel.ActionAddSubject)), data("➕ Material", string(panel.ActionAddResource))),
			row(data("✏️ Edit link", string(panel.ActionEditResource)), data("🗑 Material", string(panel.ActionRemoveResource))),
			row(data("🗑 Subject", string(panel.ActionDeleteSubject))),
			row(data("⬅️ Back", panel.TokenBack)),
		}
	case panel.StateUsers:
		return [][]tgbotapi.InlineKeyboardButton{
			row(data("➕ Grant access", string(panel.ActionGrantAccess)), data("➖ Revoke access", string(panel.ActionRevokeAccess))),
			row(data("📊 Statistics", panel.TokenStats), data("⬅️ Back", panel.TokenBack)),
		}
	case panel.StateStats:
		return [][]tgbotapi.InlineKeyboardButton{
			row(data("⬅️ Back", panel.TokenBack)),
		}
	}
	return nil
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", panel.TokenCancel),
		},
	)
}

// errorText — человекочитаемый текст для ошибок таксономии.
func errorText(err error) string {
	if errors.Is(err, common.ErrUnavailable) {
		return "Storage is temporarily unavailable, try again in a minute."
	}
	return err.Error()
}

func startMessage(freeSearches int) string {
	return strings.Join([]string{
		"👋 Welcome to the study resource bot!",
		"",
		"Send a subject code (e.g. CSE211) or subject name to get materials.",
		fmt.Sprintf("You get %d free searches; after that a subscription is required.", freeSearches),
		"",
		"Commands:",
		"/verify_payment <reference> — submit your payment for verification",
		"/my_history — your search count and subscription status",
	}, "\n")
}
