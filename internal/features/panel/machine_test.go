package panel

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edustack.in/resource-bot/internal/common"
	"edustack.in/resource-bot/internal/config"
	"edustack.in/resource-bot/internal/features/access"
	"edustack.in/resource-bot/internal/features/catalog"
	"edustack.in/resource-bot/internal/features/stats"
	"edustack.in/resource-bot/internal/features/verification"
)

const (
	testAdminID  int64 = 1001
	testUserID   int64 = 2002
	idleTimeout        = 15 * time.Minute
)

type testEnv struct {
	machine  *Machine
	sessions *SessionManager
	access   *access.Service
	queue    *verification.Service
	catalog  *catalog.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AdminIDs:           []int64{testAdminID},
		GrantDuration:      168 * time.Hour,
		SessionIdleTimeout: idleTimeout,
		FreeSearches:       4,
	}

	accessService := access.NewService(access.NewMemoryRepository(), cfg)
	queueService := verification.NewService(verification.NewMemoryRepository())
	catalogService := catalog.NewService(catalog.NewMemoryRepository())
	statsService := stats.NewService(accessService, queueService, catalogService)
	sessions := NewSessionManager(cfg.SessionIdleTimeout)

	return &testEnv{
		machine:  NewMachine(accessService, queueService, catalogService, statsService, sessions),
		sessions: sessions,
		access:   accessService,
		queue:    queueService,
		catalog:  catalogService,
	}
}

func TestHandleDeniesNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.machine.Handle(ctx, testUserID, ButtonPress(TokenResources))
	assert.ErrorIs(t, r.Err, common.ErrAccessDenied)

	// Для чужого идентификатора сессия не заводится.
	env.sessions.mu.RLock()
	_, exists := env.sessions.sessions[testUserID]
	env.sessions.mu.RUnlock()
	assert.False(t, exists)
}

func TestNavigationBetweenMenus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.machine.Handle(ctx, testAdminID, ButtonPress(TokenVerification))
	require.NoError(t, r.Err)
	assert.Equal(t, StateVerification, r.State)

	r = env.machine.Handle(ctx, testAdminID, ButtonPress(TokenBack))
	require.NoError(t, r.Err)
	assert.Equal(t, StateMainMenu, r.State)
}

func TestUnknownTokenKeepsState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// approve-кнопки не существуют в главном меню.
	r := env.machine.Handle(ctx, testAdminID, ButtonPress("approve#1"))
	assert.ErrorIs(t, r.Err, common.ErrInvalidInput)
	assert.Equal(t, StateMainMenu, r.State)

	r = env.machine.Handle(ctx, testAdminID, ButtonPress("no-such-token"))
	assert.ErrorIs(t, r.Err, common.ErrInvalidInput)
	assert.Equal(t, StateMainMenu, r.State)
}

func TestAddSubjectFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenResources))
	r := env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionAddSubject)))
	require.NoError(t, r.Err)
	assert.NotEmpty(t, r.Prompt)

	r = env.machine.Handle(ctx, testAdminID, TextReply("cse211"))
	require.NoError(t, r.Err)
	assert.Contains(t, r.Notice, "CSE211") // код нормализован к верхнему регистру

	_, pending := env.machine.State(testAdminID)
	assert.Nil(t, pending)

	_, _, err := env.catalog.Find(ctx, "CSE211")
	assert.NoError(t, err)
}

func TestAddResourceUnknownSubjectFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenResources))
	env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionAddResource)))
	env.machine.Handle(ctx, testAdminID, TextReply("math"))
	env.machine.Handle(ctx, testAdminID, TextReply("Lecture notes"))
	r := env.machine.Handle(ctx, testAdminID, TextReply("https://example.com/notes"))

	// Проверка существования — на финализации, не на шаге ввода.
	assert.ErrorIs(t, r.Err, common.ErrSubjectNotFound)

	// Действие завершено, полузавершённого ввода не осталось.
	_, pending := env.machine.State(testAdminID)
	assert.Nil(t, pending)

	count, err := env.catalog.CountResources(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestValidationFailureKeepsStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.AddSubject(ctx, "CSE211")
	require.NoError(t, err)

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenResources))
	env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionAddResource)))
	env.machine.Handle(ctx, testAdminID, TextReply("CSE211"))

	// Слишком короткое название: шаг не двигается.
	r := env.machine.Handle(ctx, testAdminID, TextReply("ab"))
	assert.ErrorIs(t, r.Err, common.ErrValidation)

	_, pending := env.machine.State(testAdminID)
	require.NotNil(t, pending)
	assert.Equal(t, 1, pending.Step)
	assert.Equal(t, []string{"CSE211"}, pending.Fields)

	// Ссылка без схемы — тоже мимо.
	env.machine.Handle(ctx, testAdminID, TextReply("Lecture notes"))
	r = env.machine.Handle(ctx, testAdminID, TextReply("ftp://example.com"))
	assert.ErrorIs(t, r.Err, common.ErrValidation)

	r = env.machine.Handle(ctx, testAdminID, TextReply("https://example.com/notes"))
	require.NoError(t, r.Err)
	assert.Contains(t, r.Notice, "added")

	count, err := env.catalog.CountResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCancelAbortsWithoutMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenResources))
	env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionAddSubject)))
	r := env.machine.Handle(ctx, testAdminID, TextReply("cancel"))
	require.NoError(t, r.Err)
	assert.Equal(t, StateResources, r.State)

	_, pending := env.machine.State(testAdminID)
	assert.Nil(t, pending)

	count, err := env.catalog.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteSubjectNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.AddSubject(ctx, "CSE211")
	require.NoError(t, err)
	_, err = env.catalog.AddResource(ctx, "CSE211", "Lecture notes", "https://example.com/1")
	require.NoError(t, err)
	_, err = env.catalog.AddResource(ctx, "CSE211", "Past papers", "https://example.com/2")
	require.NoError(t, err)

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenResources))
	env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionDeleteSubject)))
	env.machine.Handle(ctx, testAdminID, TextReply("CSE211"))

	// Любой текст, кроме confirm, не проходит.
	r := env.machine.Handle(ctx, testAdminID, TextReply("yes"))
	assert.ErrorIs(t, r.Err, common.ErrValidation)
	count, err := env.catalog.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	r = env.machine.Handle(ctx, testAdminID, TextReply("confirm"))
	require.NoError(t, r.Err)
	assert.Contains(t, r.Notice, "2 materials")

	count, err = env.catalog.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = env.catalog.CountResources(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestApproveGrantsAccessAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.queue.Submit(ctx, testUserID, "UPI-12345")
	require.NoError(t, err)

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenVerification))
	r := env.machine.Handle(ctx, testAdminID, ButtonPress("approve#"+itoa(req.ID)))
	require.NoError(t, r.Err)
	assert.Contains(t, r.Notice, "approved")
	require.Len(t, r.Notify, 1)
	assert.Equal(t, testUserID, r.Notify[0].UserID)

	hasAccess, err := env.access.HasAccess(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, hasAccess)

	// Повторное нажатие — идемпотентно, статус не меняется.
	r = env.machine.Handle(ctx, testAdminID, ButtonPress("approve#"+itoa(req.ID)))
	assert.ErrorIs(t, r.Err, common.ErrAlreadyResolved)

	got, err := env.queue.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusApproved, got.Status)
}

func TestRejectDoesNotGrantAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.queue.Submit(ctx, testUserID, "UPI-12345")
	require.NoError(t, err)

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenVerification))
	r := env.machine.Handle(ctx, testAdminID, ButtonPress("reject#"+itoa(req.ID)))
	require.NoError(t, r.Err)
	require.Len(t, r.Notify, 1)

	hasAccess, err := env.access.HasAccess(ctx, testUserID)
	require.NoError(t, err)
	assert.False(t, hasAccess)
}

func TestResolveUnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenVerification))
	r := env.machine.Handle(ctx, testAdminID, ButtonPress("approve#999"))
	assert.ErrorIs(t, r.Err, common.ErrRequestNotFound)
}

func TestGrantAccessViaCommandArgs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.machine.Handle(ctx, testAdminID, Command("grant_access", "2002"))
	require.NoError(t, r.Err)
	assert.Contains(t, r.Notice, "granted")

	hasAccess, err := env.access.HasAccess(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, hasAccess)

	// Повторная выдача — идемпотентна.
	r = env.machine.Handle(ctx, testAdminID, Command("grant_access", "2002"))
	require.NoError(t, r.Err)
	assert.Contains(t, r.Notice, "already")
}

func TestRevokeWithoutGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenUsers))
	env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionRevokeAccess)))
	r := env.machine.Handle(ctx, testAdminID, TextReply("2002"))
	assert.ErrorIs(t, r.Err, common.ErrGrantNotFound)
}

func TestMenuCommandResetsPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenResources))
	env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionAddSubject)))
	_, pending := env.machine.State(testAdminID)
	require.NotNil(t, pending)

	r := env.machine.Handle(ctx, testAdminID, Command("menu"))
	require.NoError(t, r.Err)
	assert.Equal(t, StateMainMenu, r.State)

	_, pending = env.machine.State(testAdminID)
	assert.Nil(t, pending)
}

func TestIdleSessionSilentlyResets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.machine.Handle(ctx, testAdminID, ButtonPress(TokenResources))
	env.machine.Handle(ctx, testAdminID, ButtonPress(string(ActionAddSubject)))

	// Имитируем простой дольше таймаута.
	s := env.sessions.GetOrCreate(testAdminID)
	s.mu.Lock()
	s.LastActivity = time.Now().Add(-idleTimeout - time.Minute)
	s.mu.Unlock()

	// Текст, который был бы ответом на шаг, падает в свежую сессию.
	r := env.machine.Handle(ctx, testAdminID, TextReply("CSE211"))
	assert.ErrorIs(t, r.Err, common.ErrInvalidInput)
	assert.Equal(t, StateMainMenu, r.State)

	count, err := env.catalog.CountSubjects(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRendersAreRecomputed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.machine.Handle(ctx, testAdminID, ButtonPress(TokenStats))
	require.NoError(t, r.Err)
	assert.Zero(t, r.Summary.SubjectCount)

	_, err := env.catalog.AddSubject(ctx, "CSE211")
	require.NoError(t, err)

	// Изменение видно при следующей отрисовке без каких-либо действий.
	r = env.machine.Handle(ctx, testAdminID, ButtonPress(TokenBack))
	require.NoError(t, r.Err)
	assert.Equal(t, 1, r.Summary.SubjectCount)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
