// Package bot — auth.go: опциональный парольный барьер панели.
// Белый список проверяет конечный автомат; пароль — второй рубеж,
// он включается, только если задан ADMIN_PASSWORD_HASH.
package bot

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"edustack.in/resource-bot/internal/common"
)

const (
	maxLoginAttempts = 3
	lockoutWindow    = time.Hour
)

// loginGate хранит, кто из администраторов уже ввёл пароль,
// и ограничивает перебор: 3 неудачные попытки — блокировка на час.
type loginGate struct {
	hash string // пустая строка = барьер выключен

	mu       sync.Mutex
	passed   map[int64]struct{}
	attempts map[int64][]time.Time
}

func newLoginGate(hash string) *loginGate {
	return &loginGate{
		hash:     hash,
		passed:   make(map[int64]struct{}),
		attempts: make(map[int64][]time.Time),
	}
}

// unlocked сообщает, пройден ли барьер. Без хеша барьера нет.
func (g *loginGate) unlocked(userID int64) bool {
	if g.hash == "" {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.passed[userID]
	return ok
}

// tryLogin проверяет пароль с учётом лимита попыток.
func (g *loginGate) tryLogin(userID int64, password string) error {
	if g.hash == "" {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := time.Now().Add(-lockoutWindow)
	var recent []time.Time
	for _, t := range g.attempts[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= maxLoginAttempts {
		g.attempts[userID] = recent
		return common.ErrTooManyAttempts
	}

	if !verifyArgon2id(password, g.hash) {
		g.attempts[userID] = append(recent, time.Now())
		return common.ErrWrongPassword
	}

	delete(g.attempts, userID)
	g.passed[userID] = struct{}{}
	return nil
}

func (b *Bot) handleLogin(chatID, userID int64, args []string) {
	if !b.access.IsAdmin(userID) {
		// Чужим не сообщаем, что команда вообще существует.
		return
	}
	if b.gate.hash == "" {
		b.sendMessage(chatID, "Password login is not configured. The panel is already available: /menu")
		return
	}
	if len(args) == 0 {
		b.sendMessage(chatID, "Usage: /login <password>")
		return
	}

	if err := b.gate.tryLogin(userID, strings.Join(args, " ")); err != nil {
		log.WithField("user_id", userID).Warn("Неудачная попытка входа в панель")
		b.sendMessage(chatID, err.Error())
		return
	}
	log.WithField("user_id", userID).Info("Администратор вошёл в панель")
	b.sendMessage(chatID, "Logged in. Open the panel: /menu")
}

// verifyArgon2id проверяет пароль против хеша в формате
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>.
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравнение в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
