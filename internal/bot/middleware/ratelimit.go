package middleware

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RateLimiter отсекает флуд по скользящему окну на пользователя.
// Через один лимит проходят и поисковые запросы, и события панели.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[int64][]time.Time
	limit  int
	window time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		hits:   make(map[int64][]time.Time),
		limit:  limit,
		window: window,
		done:   make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Close останавливает фоновую чистку. Вызывается на shutdown бота.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

// Allow регистрирует обращение и отвечает, пропускать ли его.
// Отказ логируется на уровне Debug: в проде эти записи выключены,
// при разборе флуда их включают через APP_LOG_LEVEL.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.trim(userID, now)

	if len(recent) >= rl.limit {
		log.WithFields(log.Fields{
			"user_id": userID,
			"limit":   rl.limit,
			"window":  rl.window.String(),
		}).Debug("Запрос отброшен: превышен лимит")
		return false
	}

	rl.hits[userID] = append(recent, now)
	return true
}

// trim отбрасывает обращения старше окна. Сжимает срез на месте,
// чтобы не аллоцировать на каждый апдейт. Вызывается под rl.mu.
func (rl *RateLimiter) trim(userID int64, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	recent := rl.hits[userID][:0]
	for _, t := range rl.hits[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	rl.hits[userID] = recent
	return recent
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

// sweep удаляет записи замолчавших пользователей, иначе карта
// растёт на каждого, кто хоть раз написал боту.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID := range rl.hits {
		if len(rl.trim(userID, now)) == 0 {
			delete(rl.hits, userID)
		}
	}
}
