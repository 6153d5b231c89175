// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасная деактивация
// просроченных подписок и уборка молчащих админ-сессий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/bot/middleware"
	"edustack.in/resource-bot/internal/features/access"
	"edustack.in/resource-bot/internal/features/panel"
)

// Карта сессий чистится от записей, молчащих дольше суток.
// Семантика сброса от этого не зависит: просроченная сессия и так
// сбрасывается при первом же обращении.
const sessionSweepAge = 24 * time.Hour

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron          *cron.Cron
	accessService *access.Service
	sessions      *panel.SessionManager
}

// NewScheduler создаёт планировщик задач с часовым поясом Индии
// (подписки и оплаты привязаны к местному времени пользователей).
func NewScheduler(accessService *access.Service, sessions *panel.SessionManager) *Scheduler {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Asia/Kolkata, используем UTC+5:30")
		loc = time.FixedZone("IST", 5*60*60+30*60)
	}

	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		accessService: accessService,
		sessions:      sessions,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ежечасная деактивация просроченных подписок
	s.cron.AddFunc("0 * * * *", func() {
		defer middleware.RecoverFromPanic("jobs.expire_grants")
		expired, err := s.accessService.ExpireGrants(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка деактивации подписок")
			return
		}
		if expired > 0 {
			log.WithField("expired", expired).Info("[CRON] Просроченные подписки деактивированы")
		}
	})

	// Уборка карты сессий раз в полчаса
	s.cron.AddFunc("*/30 * * * *", func() {
		defer middleware.RecoverFromPanic("jobs.session_sweep")
		if removed := s.sessions.Sweep(sessionSweepAge); removed > 0 {
			log.WithField("removed", removed).Debug("[CRON] Старые админ-сессии убраны")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Asia/Kolkata)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
