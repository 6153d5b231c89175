// Package access реализует контроль доступа: белый список администраторов,
// учёт конечных пользователей и выданные подписки (гранты доступа).
// models.go описывает структуры пользователей и грантов.
package access

import "time"

// User — конечный пользователь бота. Заводится при первом обращении,
// счётчик поисков ограничивает бесплатный режим.
type User struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	SearchCount int       `db:"search_count"`
	CreatedAt   time.Time `db:"created_at"`
}

// Grant — запись о выданном доступе. Уникальна по UserID.
// Активна, пока не отозвана и не истёк срок.
type Grant struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	GrantedAt time.Time `db:"granted_at"`
	ExpiresAt time.Time `db:"expires_at"`
	Active    bool      `db:"active"`
}

// GrantResult — исход операции выдачи доступа.
type GrantResult int

const (
	// GrantIssued — доступ выдан (новый или продлён после отзыва/истечения)
	GrantIssued GrantResult = iota
	// GrantAlreadyActive — у пользователя уже есть активный доступ.
	// Не ошибка: повторная выдача безвредна и считается успехом.
	GrantAlreadyActive
)

// RevokeResult — исход операции отзыва доступа.
type RevokeResult int

const (
	// Revoked — активный грант деактивирован
	Revoked RevokeResult = iota
	// RevokeNotFound — активного гранта не было; не фатально,
	// показывается администратору как сообщение
	RevokeNotFound
)
