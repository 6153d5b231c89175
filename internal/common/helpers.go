// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: плюрализация, форматирование чисел и времени.
package common

import (
	"fmt"
	"time"
)

// Plural возвращает единственную или множественную форму английского
// существительного для числа n.
//
// Примеры:
//
//	Plural(1, "request", "requests") → "request"
//	Plural(5, "request", "requests") → "requests"
func Plural(n int, singular, plural string) string {
	if n == 1 || n == -1 {
		return singular
	}
	return plural
}

// CountNoun форматирует число вместе с существительным.
// Пример: CountNoun(3, "subject", "subjects") → "3 subjects"
func CountNoun(n int, singular, plural string) string {
	return fmt.Sprintf("%d %s", n, Plural(n, singular, plural))
}

// Truncate обрезает строку до max символов (рун), добавляя многоточие.
// Используется в логах и списках меню.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат заявок и подписок.
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatDate форматирует дату окончания подписки: "02-Jan-2006".
func FormatDate(t time.Time) string {
	return t.Format("02-Jan-2006")
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	// Простая реализация для чисел до миллиарда
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Рекурсивно добавляем разделители
	rest := n / 1000
	last := n % 1000

	if rest > 0 {
		return fmt.Sprintf("%s %03d", FormatNumber(rest), last)
	}
	return fmt.Sprintf("%d", last)
}
