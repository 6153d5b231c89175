package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateStartsInMainMenu(t *testing.T) {
	m := NewSessionManager(15 * time.Minute)

	s := m.GetOrCreate(42)
	require.NotNil(t, s)
	assert.Equal(t, StateMainMenu, s.State)
	assert.Nil(t, s.Pending)

	// Повторный вызов возвращает ту же сессию.
	assert.Same(t, s, m.GetOrCreate(42))
}

func TestResetClearsPending(t *testing.T) {
	m := NewSessionManager(15 * time.Minute)

	s := m.GetOrCreate(42)
	s.mu.Lock()
	s.State = StateResources
	s.Pending = &PendingAction{Kind: ActionAddSubject}
	s.mu.Unlock()

	m.Reset(42)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, StateMainMenu, s.State)
	assert.Nil(t, s.Pending)
}

func TestExpireIfIdle(t *testing.T) {
	m := NewSessionManager(15 * time.Minute)
	s := m.GetOrCreate(42)

	s.mu.Lock()
	s.State = StateUsers
	s.Pending = &PendingAction{Kind: ActionGrantAccess, Step: 0}
	s.LastActivity = time.Now().Add(-10 * time.Minute)

	// Ещё не просрочена.
	assert.False(t, m.expireIfIdle(s, time.Now()))
	assert.Equal(t, StateUsers, s.State)

	s.LastActivity = time.Now().Add(-16 * time.Minute)
	assert.True(t, m.expireIfIdle(s, time.Now()))
	assert.Equal(t, StateMainMenu, s.State)
	assert.Nil(t, s.Pending)
	s.mu.Unlock()
}

func TestSweepRemovesStaleSessions(t *testing.T) {
	m := NewSessionManager(15 * time.Minute)

	stale := m.GetOrCreate(1)
	stale.mu.Lock()
	stale.LastActivity = time.Now().Add(-48 * time.Hour)
	stale.mu.Unlock()

	m.GetOrCreate(2) // свежая

	removed := m.Sweep(24 * time.Hour)
	assert.Equal(t, 1, removed)

	m.mu.RLock()
	_, staleExists := m.sessions[1]
	_, freshExists := m.sessions[2]
	m.mu.RUnlock()
	assert.False(t, staleExists)
	assert.True(t, freshExists)
}

func TestTouchUpdatesActivity(t *testing.T) {
	m := NewSessionManager(15 * time.Minute)

	s := m.GetOrCreate(42)
	s.mu.Lock()
	s.LastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	m.Touch(42)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.WithinDuration(t, time.Now(), s.LastActivity, time.Second)
}
