// Package panel — machine.go: конечный автомат меню.
// Единственная точка входа — Handle: проверка белого списка, затем
// просрочка сессии, затем пошаговый ввод, затем таблица переходов.
package panel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/common"
	"edustack.in/resource-bot/internal/features/access"
	"edustack.in/resource-bot/internal/features/catalog"
	"edustack.in/resource-bot/internal/features/stats"
	"edustack.in/resource-bot/internal/features/verification"
)

// Токены кнопок. Транспорт передаёт их как есть (callback data).
const (
	TokenVerification = "verification"
	TokenResources    = "resources"
	TokenUsers        = "users"
	TokenStats        = "stats"
	TokenBack         = "back"
	TokenCancel       = "cancel"

	// approve#<id> / reject#<id> — кнопки строк списка заявок.
	tokenApprovePrefix = "approve#"
	tokenRejectPrefix  = "reject#"
)

const grantListLimit = 10

// Machine — конечный автомат панели. Не хранит состояние сам:
// всё состояние живёт в сессиях, данные — у сервисов-владельцев.
type Machine struct {
	access   *access.Service
	queue    *verification.Service
	catalog  *catalog.Service
	stats    *stats.Service
	sessions *SessionManager

	// Таблицы переходов: состояние -> токен -> реакция.
	nav     map[MenuState]map[string]MenuState
	actions map[MenuState]map[string]ActionKind
}

// NewMachine собирает автомат и его таблицы переходов.
func NewMachine(a *access.Service, q *verification.Service, c *catalog.Service,
	st *stats.Service, sessions *SessionManager) *Machine {
	return &Machine{
		access:   a,
		queue:    q,
		catalog:  c,
		stats:    st,
		sessions: sessions,
		nav: map[MenuState]map[string]MenuState{
			StateMainMenu: {
				TokenVerification: StateVerification,
				TokenResources:    StateResources,
				TokenUsers:        StateUsers,
				TokenStats:        StateStats,
			},
			StateVerification: {TokenBack: StateMainMenu},
			StateResources:    {TokenBack: StateMainMenu},
			StateUsers: {
				TokenBack:  StateMainMenu,
				TokenStats: StateStats,
			},
			StateStats: {TokenBack: StateMainMenu},
		},
		actions: map[MenuState]map[string]ActionKind{
			StateResources: {
				string(ActionAddSubject):     ActionAddSubject,
				string(ActionAddResource):    ActionAddResource,
				string(ActionEditResource):   ActionEditResource,
				string(ActionRemoveResource): ActionRemoveResource,
				string(ActionDeleteSubject):  ActionDeleteSubject,
			},
			StateUsers: {
				string(ActionGrantAccess):  ActionGrantAccess,
				string(ActionRevokeAccess): ActionRevokeAccess,
			},
		},
	}
}

// Handle обрабатывает одно событие администратора и возвращает,
// что отрисовать. Белый список проверяется раньше любой логики
// состояний: для чужого идентификатора сессия не создаётся и
// ничего не мутируется. События одного админа сериализуются
// мьютексом его сессии.
func (m *Machine) Handle(ctx context.Context, adminID int64, ev Event) Render {
	if !m.access.IsAdmin(adminID) {
		log.WithField("user_id", adminID).Warn("Попытка входа в панель без прав")
		return Render{Err: common.ErrAccessDenied}
	}

	s := m.sessions.GetOrCreate(adminID)
	s.mu.Lock()
	defer s.mu.Unlock()

	// Просрочка оценивается по активности до текущего события.
	m.sessions.expireIfIdle(s, time.Now())
	defer func() { s.LastActivity = time.Now() }()

	// Команды работают из любого состояния, даже посреди диалога.
	if ev.Kind == EventCommand {
		return m.handleCommand(ctx, s, ev)
	}
	if s.Pending != nil {
		return m.handlePendingInput(ctx, s, ev)
	}
	if ev.Kind == EventButton {
		return m.handleButton(ctx, s, ev.Token)
	}
	// Свободный текст вне пошагового ввода меню не понимает.
	return m.render(ctx, s.State, withErr(common.ErrInvalidInput))
}

// State возвращает снимок состояния сессии (для транспорта и тестов).
func (m *Machine) State(adminID int64) (MenuState, *PendingAction) {
	s := m.sessions.GetOrCreate(adminID)
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending *PendingAction
	if s.Pending != nil {
		copied := *s.Pending
		copied.Fields = append([]string(nil), s.Pending.Fields...)
		pending = &copied
	}
	return s.State, pending
}

func (m *Machine) handleCommand(ctx context.Context, s *Session, ev Event) Render {
	switch ev.Command {
	case "start", "menu":
		s.State = StateMainMenu
		s.Pending = nil
		return m.render(ctx, s.State)
	case "stats":
		s.State = StateStats
		s.Pending = nil
		return m.render(ctx, s.State)
	case "add_resource":
		return m.startAction(ctx, s, ActionAddResource, ev.Args)
	case "grant_access":
		return m.startAction(ctx, s, ActionGrantAccess, ev.Args)
	case "delete_subject":
		return m.startAction(ctx, s, ActionDeleteSubject, ev.Args)
	default:
		return m.render(ctx, s.State, withErr(common.ErrInvalidInput))
	}
}

// startAction открывает пошаговый ввод, вытесняя предыдущий:
// на сессию — максимум одно незавершённое действие. Аргументы
// команды проигрываются как готовые ответы на первые поля.
func (m *Machine) startAction(ctx context.Context, s *Session, kind ActionKind, args []string) Render {
	s.State = actionOwner[kind]
	s.Pending = &PendingAction{Kind: kind}

	for _, arg := range args {
		r := m.handlePendingInput(ctx, s, TextReply(arg))
		if s.Pending == nil || r.Err != nil {
			return r
		}
	}
	if s.Pending == nil {
		// Все поля пришли аргументами, действие уже завершилось.
		return m.render(ctx, s.State)
	}
	return m.render(ctx, s.State, withPrompt(actionFields[kind][s.Pending.Step].prompt))
}

// handlePendingInput продвигает пошаговый ввод на одно поле.
// Невалидный ввод оставляет шаг на месте; «cancel» (текстом или
// кнопкой) отменяет действие без каких-либо мутаций.
func (m *Machine) handlePendingInput(ctx context.Context, s *Session, ev Event) Render {
	pending := s.Pending
	fields := actionFields[pending.Kind]

	if ev.Kind == EventButton {
		if ev.Token == TokenCancel || ev.Token == TokenBack {
			s.Pending = nil
			s.State = actionOwner[pending.Kind]
			return m.render(ctx, s.State, withNotice("Action cancelled."))
		}
		// Прочие кнопки посреди диалога игнорируются, шаг сохраняется.
		return m.render(ctx, s.State,
			withPrompt(fields[pending.Step].prompt),
			withErr(common.ErrInvalidInput))
	}

	if strings.EqualFold(strings.TrimSpace(ev.Text), "cancel") {
		s.Pending = nil
		s.State = actionOwner[pending.Kind]
		return m.render(ctx, s.State, withNotice("Action cancelled."))
	}

	value, err := fields[pending.Step].validate(ev.Text)
	if err != nil {
		// Шаг не двигается, уже принятые поля не трогаем.
		return m.render(ctx, s.State,
			withPrompt(fields[pending.Step].prompt),
			withErr(err))
	}

	pending.Fields = append(pending.Fields, value)
	pending.Step++
	if pending.Step < len(fields) {
		return m.render(ctx, s.State, withPrompt(fields[pending.Step].prompt))
	}

	// Последнее поле собрано: ровно одна диспетчеризация во владеющий
	// сервис, после чего действие завершено независимо от исхода.
	s.Pending = nil
	s.State = actionOwner[pending.Kind]
	notice, err := m.finalize(ctx, pending.Kind, pending.Fields)
	if err != nil {
		return m.render(ctx, s.State, withErr(err))
	}
	return m.render(ctx, s.State, withNotice(notice))
}

// finalize выполняет собранное действие. Частичных мутаций нет:
// либо сервис-владелец применил операцию, либо вернул ошибку.
func (m *Machine) finalize(ctx context.Context, kind ActionKind, fields []string) (string, error) {
	switch kind {
	case ActionAddSubject:
		subj, err := m.catalog.AddSubject(ctx, fields[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Subject %s added.", subj.Name), nil

	case ActionAddResource:
		res, err := m.catalog.AddResource(ctx, fields[0], fields[1], fields[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Material #%d added to %s.", res.ID, fields[0]), nil

	case ActionEditResource:
		id, _ := strconv.ParseInt(fields[0], 10, 64)
		if err := m.catalog.EditResource(ctx, id, fields[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("Material #%d updated.", id), nil

	case ActionRemoveResource:
		id, _ := strconv.ParseInt(fields[0], 10, 64)
		if err := m.catalog.RemoveResource(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("Material #%d removed.", id), nil

	case ActionDeleteSubject:
		removed, err := m.catalog.DeleteSubject(ctx, fields[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Subject %s deleted along with %s.",
			fields[0], common.CountNoun(removed, "material", "materials")), nil

	case ActionGrantAccess:
		userID, _ := strconv.ParseInt(fields[0], 10, 64)
		res, err := m.access.Grant(ctx, userID)
		if err != nil {
			return "", err
		}
		if res == access.GrantAlreadyActive {
			return fmt.Sprintf("User %d already has active access.", userID), nil
		}
		return fmt.Sprintf("Access granted to user %d.", userID), nil

	case ActionRevokeAccess:
		userID, _ := strconv.ParseInt(fields[0], 10, 64)
		res, err := m.access.Revoke(ctx, userID)
		if err != nil {
			return "", err
		}
		if res == access.RevokeNotFound {
			return "", common.ErrGrantNotFound
		}
		return fmt.Sprintf("Access revoked for user %d.", userID), nil
	}
	return "", common.ErrInvalidInput
}

// handleButton — таблица переходов для нажатий вне пошагового ввода.
func (m *Machine) handleButton(ctx context.Context, s *Session, token string) Render {
	// Кнопки заявок существуют только в меню верификации.
	if id, resolve, ok := parseResolveToken(token); ok {
		if s.State != StateVerification {
			return m.render(ctx, s.State, withErr(common.ErrInvalidInput))
		}
		return m.resolveRequest(ctx, s, id, resolve)
	}

	if target, ok := m.nav[s.State][token]; ok {
		s.State = target
		return m.render(ctx, s.State)
	}
	if kind, ok := m.actions[s.State][token]; ok {
		return m.startAction(ctx, s, kind, nil)
	}
	return m.render(ctx, s.State, withErr(common.ErrInvalidInput))
}

func parseResolveToken(token string) (int64, bool, bool) {
	var raw string
	var approve bool
	switch {
	case strings.HasPrefix(token, tokenApprovePrefix):
		raw, approve = token[len(tokenApprovePrefix):], true
	case strings.HasPrefix(token, tokenRejectPrefix):
		raw, approve = token[len(tokenRejectPrefix):], false
	default:
		return 0, false, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, false
	}
	return id, approve, true
}

// resolveRequest одобряет или отклоняет заявку. Повторное нажатие и
// гонка двух админов дают ErrAlreadyResolved без смены статуса;
// одобрение выдаёт доступ заявителю.
func (m *Machine) resolveRequest(ctx context.Context, s *Session, id int64, approve bool) Render {
	var (
		res verification.ResolveResult
		req *verification.Request
		err error
	)
	if approve {
		res, req, err = m.queue.Approve(ctx, id)
	} else {
		res, req, err = m.queue.Reject(ctx, id)
	}
	if err != nil {
		return m.render(ctx, s.State, withErr(err))
	}

	switch res {
	case verification.ResolveNotFound:
		return m.render(ctx, s.State, withErr(common.ErrRequestNotFound))
	case verification.ResolveAlreadyDone:
		return m.render(ctx, s.State, withErr(common.ErrAlreadyResolved))
	}

	if !approve {
		return m.render(ctx, s.State,
			withNotice(fmt.Sprintf("Request #%d rejected.", id)),
			withNotify(req.RequesterID,
				"Your payment verification was rejected. Contact an administrator if you believe this is a mistake."))
	}

	if _, err := m.access.Grant(ctx, req.RequesterID); err != nil {
		// Заявка уже одобрена; доступ доедет повторной выдачей вручную.
		log.WithError(err).WithField("request_id", id).Error("Не удалось выдать доступ после одобрения")
		return m.render(ctx, s.State,
			withErr(fmt.Errorf("%w: request approved, but granting access failed", common.ErrUnavailable)))
	}
	return m.render(ctx, s.State,
		withNotice(fmt.Sprintf("Request #%d approved, access granted to user %d.", id, req.RequesterID)),
		withNotify(req.RequesterID,
			"Your payment has been verified. Full access is now active."))
}
