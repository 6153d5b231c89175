// Package panel — session.go: менеджер сессий администраторов.
package panel

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SessionManager хранит сессии по идентификатору администратора.
// Простой и ленивый: просроченная сессия сбрасывается при первом
// обращении, фоновая уборка лишь подчищает карту от давно молчащих.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	idle     time.Duration
}

// NewSessionManager создаёт менеджер с таймаутом простоя.
func NewSessionManager(idle time.Duration) *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*Session),
		idle:     idle,
	}
}

// GetOrCreate возвращает сессию администратора, создавая её в главном
// меню при первом обращении.
func (m *SessionManager) GetOrCreate(adminID int64) *Session {
	m.mu.RLock()
	s, ok := m.sessions[adminID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[adminID]; ok {
		return s
	}
	s = &Session{
		AdminID:      adminID,
		State:        StateMainMenu,
		LastActivity: time.Now(),
	}
	m.sessions[adminID] = s
	return s
}

// Touch обновляет момент последней активности.
func (m *SessionManager) Touch(adminID int64) {
	m.mu.RLock()
	s, ok := m.sessions[adminID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

// Reset возвращает сессию в главное меню и отменяет пошаговый ввод.
func (m *SessionManager) Reset(adminID int64) {
	m.mu.RLock()
	s, ok := m.sessions[adminID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	s.mu.Lock()
	s.State = StateMainMenu
	s.Pending = nil
	s.mu.Unlock()
}

// expireIfIdle сбрасывает просроченную сессию в главное меню.
// Сброс тихий: без уведомлений, следующее событие обрабатывается
// уже свежим состоянием. Вызывающий держит s.mu.
func (m *SessionManager) expireIfIdle(s *Session, now time.Time) bool {
	if now.Sub(s.LastActivity) <= m.idle {
		return false
	}
	log.WithField("admin_id", s.AdminID).Debug("Сессия просрочена, сброс в главное меню")
	s.State = StateMainMenu
	s.Pending = nil
	return true
}

// Sweep удаляет из карты сессии, молчащие дольше maxAge.
// Вызывается планировщиком; удалённая сессия пересоздастся при
// следующем событии уже в главном меню, семантика не меняется.
func (m *SessionManager) Sweep(maxAge time.Duration) int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		stale := now.Sub(s.LastActivity) > maxAge
		s.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
