// Package bot — search.go: пользовательский поток. Поиск материалов
// по коду предмета, квота бесплатных поисков, подача заявки на
// верификацию оплаты и личная история.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/common"
)

// Код предмета внутри произвольного текста: «дай CSE211 пожалуйста».
var searchCodeRe = regexp.MustCompile(`\b[A-Za-z]{2,3}[0-9]{3}\b`)

// handleSearch обрабатывает свободный текст пользователя как поиск.
func (b *Bot) handleSearch(ctx context.Context, chatID, userID int64, text string) {
	subject := strings.TrimSpace(text)
	if code := searchCodeRe.FindString(subject); code != "" {
		subject = strings.ToUpper(code)
	}
	if subject == "" {
		b.sendMessage(chatID, "Send a subject code (e.g. CSE211) to search.")
		return
	}

	ok, err := b.allowSearch(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Проверка квоты не удалась")
		b.sendMessage(chatID, "Something went wrong, try again in a minute.")
		return
	}
	if !ok {
		b.sendMessage(chatID, b.paywallMessage())
		return
	}

	subj, resources, err := b.catalog.Find(ctx, subject)
	if errors.Is(err, common.ErrSubjectNotFound) {
		b.sendMessage(chatID, fmt.Sprintf("Subject %q not found. Check the code and try again.", subject))
		return
	}
	if err != nil {
		log.WithError(err).WithField("subject", subject).Error("Поиск не удался")
		b.sendMessage(chatID, "Something went wrong, try again in a minute.")
		return
	}

	if err := b.access.RegisterSearch(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("RegisterSearch failed")
	}

	if len(resources) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("No materials for %s yet.", subj.Name))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 %s — %s:\n", subj.Name,
		common.CountNoun(len(resources), "material", "materials"))
	for _, res := range resources {
		fmt.Fprintf(&sb, "\n%s\n%s\n", res.Title, res.Link)
		// Счётчик выдач — по каждому доставленному материалу.
		if err := b.catalog.RecordAccess(ctx, res.ID); err != nil {
			log.WithError(err).WithField("resource_id", res.ID).Warn("RecordAccess failed")
		}
	}
	b.sendMessage(chatID, sb.String())
}

// allowSearch решает, пускать ли пользователя к поиску: активная
// подписка — без ограничений, иначе действует квота бесплатных поисков.
func (b *Bot) allowSearch(ctx context.Context, userID int64) (bool, error) {
	hasAccess, err := b.access.HasAccess(ctx, userID)
	if err != nil {
		return false, err
	}
	if hasAccess {
		return true, nil
	}
	count, err := b.access.SearchCount(ctx, userID)
	if err != nil {
		return false, err
	}
	return count < b.cfg.FreeSearches, nil
}

func (b *Bot) paywallMessage() string {
	return strings.Join([]string{
		fmt.Sprintf("🔒 You have used all %d free searches.", b.cfg.FreeSearches),
		"",
		fmt.Sprintf("To continue, pay via UPI: %s", b.cfg.PaymentUPI),
		"Then submit the payment reference:",
		"/verify_payment <reference>",
		"",
		"An administrator will verify it and unlock full access.",
	}, "\n")
}

// handleVerifyPayment регистрирует заявку на верификацию оплаты.
func (b *Bot) handleVerifyPayment(ctx context.Context, chatID, userID int64, args []string) {
	reference := strings.TrimSpace(strings.Join(args, " "))
	if reference == "" {
		b.sendMessage(chatID, "Usage: /verify_payment <payment reference>")
		return
	}

	req, err := b.queue.Submit(ctx, userID, reference)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Не удалось принять заявку")
		b.sendMessage(chatID, "Could not submit your request, try again in a minute.")
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(
		"✅ Request #%d submitted. An administrator will verify your payment shortly.", req.ID))
}

// handleMyHistory показывает пользователю его счётчик поисков и подписку.
func (b *Bot) handleMyHistory(ctx context.Context, chatID, userID int64) {
	count, err := b.access.SearchCount(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Не удалось прочитать историю")
		b.sendMessage(chatID, "Something went wrong, try again in a minute.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 Searches made: %d\n", count)

	expiry, err := b.access.AccessExpiry(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("AccessExpiry failed")
	}
	if expiry != nil {
		fmt.Fprintf(&sb, "💳 Subscription active until %s", common.FormatDate(*expiry))
	} else {
		remaining := b.cfg.FreeSearches - count
		if remaining < 0 {
			remaining = 0
		}
		fmt.Fprintf(&sb, "💳 No active subscription, %s left",
			common.CountNoun(remaining, "free search", "free searches"))
	}
	b.sendMessage(chatID, sb.String())
}
