// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки доступа к панели
var (
	// ErrAccessDenied — идентификатор не входит в белый список администраторов.
	// Терминальная для события: состояние сессии и данные не меняются.
	ErrAccessDenied = errors.New("access denied: not an administrator")
	// ErrWrongPassword — неверный пароль панели
	ErrWrongPassword = errors.New("wrong password")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("too many attempts, try again in an hour")
)

// Ошибки пошагового ввода и кнопок
var (
	// ErrValidation — некорректное поле пошагового ввода; шаг не двигается
	ErrValidation = errors.New("invalid input for this step")
	// ErrInvalidInput — неизвестная кнопка для текущего меню
	ErrInvalidInput = errors.New("this button does nothing here")
)

// Ошибки «не найдено» — восстановимые, показываются как сообщение
var (
	// ErrSubjectNotFound — предмет отсутствует в каталоге
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrResourceNotFound — ресурс отсутствует в каталоге
	ErrResourceNotFound = errors.New("resource not found")
	// ErrRequestNotFound — заявка на верификацию не существует
	ErrRequestNotFound = errors.New("verification request not found")
	// ErrGrantNotFound — у пользователя нет активного доступа
	ErrGrantNotFound = errors.New("no active access grant for this user")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("user not found")
)

// Конфликты — повторная операция безвредна, сообщаем и ничего не делаем
var (
	// ErrDuplicateSubject — предмет с таким названием уже есть
	ErrDuplicateSubject = errors.New("subject already exists")
	// ErrAlreadyResolved — заявка уже одобрена или отклонена
	ErrAlreadyResolved = errors.New("request already resolved")
)

// ErrUnavailable — отказ внешнего коллаборатора (БД, транспорт).
// Ретраи — забота вызывающего слоя; pendingAction не остаётся
// полузавершённым.
var ErrUnavailable = errors.New("storage temporarily unavailable")

// IsNotFound сообщает, относится ли ошибка к семейству «не найдено».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrGrantNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict сообщает, относится ли ошибка к семейству конфликтов.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateSubject) || errors.Is(err, ErrAlreadyResolved)
}
