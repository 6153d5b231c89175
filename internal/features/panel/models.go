// Package panel реализует админ-панель: сессии администраторов
// и конечный автомат меню (пошаговые диалоги, кнопки, команды).
// models.go описывает состояния, события и контракт отрисовки.
package panel

import (
	"sync"
	"time"

	"edustack.in/resource-bot/internal/features/stats"
)

// MenuState — в каком меню находится администратор.
// У сессии всегда ровно одно активное состояние.
type MenuState string

const (
	StateMainMenu     MenuState = "main"
	StateVerification MenuState = "verification"
	StateResources    MenuState = "resources"
	StateUsers        MenuState = "users"
	StateStats        MenuState = "stats"
)

// ActionKind — вид пошагового действия (guided input).
type ActionKind string

const (
	ActionAddSubject     ActionKind = "add_subject"
	ActionAddResource    ActionKind = "add_resource"
	ActionEditResource   ActionKind = "edit_resource"
	ActionRemoveResource ActionKind = "remove_resource"
	ActionDeleteSubject  ActionKind = "delete_subject"
	ActionGrantAccess    ActionKind = "grant_access"
	ActionRevokeAccess   ActionKind = "revoke_access"
)

// PendingAction — пошаговый ввод в процессе. На сессию — максимум один.
// Инвариант: Step никогда не превышает число полей, требуемых Kind;
// диспетчеризация во владеющий сервис происходит ровно один раз,
// когда собрано последнее поле.
type PendingAction struct {
	Kind   ActionKind
	Step   int
	Fields []string // нормализованные значения уже принятых полей
}

// Session — состояние одного администратора. Владеет ей SessionManager,
// мутирует только Machine. Мьютекс сериализует события одного админа:
// шаг n и шаг n+1 пошагового ввода никогда не гонятся друг с другом.
type Session struct {
	AdminID      int64
	State        MenuState
	Pending      *PendingAction
	LastActivity time.Time

	mu sync.Mutex
}

// EventKind — тип входящего события от транспорта.
type EventKind int

const (
	EventButton EventKind = iota
	EventText
	EventCommand
)

// Event — входящее событие: нажатие кнопки, текстовый ответ или команда.
type Event struct {
	Kind    EventKind
	Token   string   // кнопка (callback data)
	Text    string   // текстовый ответ
	Command string   // имя команды без слеша
	Args    []string // аргументы команды
}

// ButtonPress — событие нажатия inline-кнопки.
func ButtonPress(token string) Event {
	return Event{Kind: EventButton, Token: token}
}

// TextReply — событие текстового ответа.
func TextReply(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// Command — событие команды вида /name arg1 arg2.
func Command(name string, args ...string) Event {
	return Event{Kind: EventCommand, Command: name, Args: args}
}

// ItemAction — кнопка, привязанная к элементу списка (approve/reject).
type ItemAction struct {
	Label string
	Token string
}

// Item — строка списка меню с опциональными кнопками.
type Item struct {
	Text    string
	Actions []ItemAction
}

// Notification — сообщение пользователю (не админу), которое транспорт
// должен доставить вместе с отрисовкой: заявителю о вердикте по заявке.
type Notification struct {
	UserID int64
	Text   string
}

// Render — инструкция отрисовки для транспорта. Сводка и списки
// пересчитываются из актуальных данных при каждой отрисовке;
// в сессии ничего из этого не кешируется. Платформенную разметку
// строит транспорт, панель её не знает.
type Render struct {
	State   MenuState
	Summary stats.Summary
	Items   []Item
	Prompt  string // приглашение следующего поля пошагового ввода
	Notice  string // сообщение об успехе
	Notify  []Notification
	Err     error // ошибка из таксономии common, nil если всё хорошо
}
