// Package panel — validate.go: поля пошаговых действий и их проверки.
package panel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"edustack.in/resource-bot/internal/common"
)

// Коды предметов вида CSE211: 2-3 буквы и 3 цифры.
var subjectCodeRe = regexp.MustCompile(`^[A-Za-z]{2,3}[0-9]{3}$`)

const (
	minNameLen  = 3
	maxNameLen  = 100
	minTitleLen = 3
)

// fieldSpec — одно поле пошагового ввода: приглашение и проверка.
// validate возвращает нормализованное значение; ошибка оставляет
// действие на том же шаге.
type fieldSpec struct {
	prompt   string
	validate func(raw string) (string, error)
}

// actionFields — поля каждого действия по порядку запроса.
// Число полей фиксировано, Step не выходит за границу среза.
var actionFields = map[ActionKind][]fieldSpec{
	ActionAddSubject: {
		{prompt: "Enter the subject name or code (e.g. CSE211):", validate: validateSubject},
	},
	ActionAddResource: {
		{prompt: "Enter the subject name or code:", validate: validateSubject},
		{prompt: "Enter the material title (3-100 characters):", validate: validateTitle},
		{prompt: "Enter the material link (http:// or https://):", validate: validateLink},
	},
	ActionEditResource: {
		{prompt: "Enter the material ID:", validate: validateNumericID},
		{prompt: "Enter the new link (http:// or https://):", validate: validateLink},
	},
	ActionRemoveResource: {
		{prompt: "Enter the material ID to remove:", validate: validateNumericID},
	},
	ActionDeleteSubject: {
		{prompt: "Enter the subject name to delete (all its materials go with it):", validate: validateSubject},
		{prompt: "Type confirm to delete the subject and all its materials:", validate: validateConfirm},
	},
	ActionGrantAccess: {
		{prompt: "Enter the numeric user ID to grant access:", validate: validateNumericID},
	},
	ActionRevokeAccess: {
		{prompt: "Enter the numeric user ID to revoke access:", validate: validateNumericID},
	},
}

// actionOwner — в какое меню возвращается сессия после действия.
var actionOwner = map[ActionKind]MenuState{
	ActionAddSubject:     StateResources,
	ActionAddResource:    StateResources,
	ActionEditResource:   StateResources,
	ActionRemoveResource: StateResources,
	ActionDeleteSubject:  StateResources,
	ActionGrantAccess:    StateUsers,
	ActionRevokeAccess:   StateUsers,
}

// validateSubject нормализует название предмета: коды приводятся
// к верхнему регистру, обычные названия проходят как есть.
// Существование предмета здесь не проверяется — это дело финализации.
func validateSubject(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if subjectCodeRe.MatchString(name) {
		return strings.ToUpper(name), nil
	}
	n := len([]rune(name))
	if n < minNameLen || n > maxNameLen {
		return "", fmt.Errorf("%w: subject name must be %d-%d characters",
			common.ErrValidation, minNameLen, maxNameLen)
	}
	return name, nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	n := len([]rune(title))
	if n < minTitleLen || n > maxNameLen {
		return "", fmt.Errorf("%w: title must be %d-%d characters",
			common.ErrValidation, minTitleLen, maxNameLen)
	}
	return title, nil
}

func validateLink(raw string) (string, error) {
	link := strings.TrimSpace(raw)
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return "", fmt.Errorf("%w: link must start with http:// or https://", common.ErrValidation)
	}
	return link, nil
}

func validateNumericID(raw string) (string, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("%w: expected a positive numeric ID", common.ErrValidation)
	}
	return strconv.FormatInt(id, 10), nil
}

func validateConfirm(raw string) (string, error) {
	if strings.ToLower(strings.TrimSpace(raw)) != "confirm" {
		return "", fmt.Errorf("%w: type confirm to proceed", common.ErrValidation)
	}
	return "confirm", nil
}
