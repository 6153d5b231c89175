package middleware

import (
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic гасит панику в одном обработчике: кривой апдейт
// или упавшая фоновая задача не должны ронять весь процесс.
// component — имя места вызова ("bot.update", "jobs.expire_grants").
// Вызывается через defer.
func RecoverFromPanic(component string) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": component,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА — восстановлено")
	}
}
