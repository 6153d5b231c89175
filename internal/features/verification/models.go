// Package verification реализует очередь заявок на проверку оплаты.
// models.go описывает заявку и исходы её разрешения.
package verification

import "time"

// Status — статус заявки. Переход pending → approved/rejected
// происходит ровно один раз и необратим.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request — заявка на верификацию оплаты. Создаётся пользовательским
// потоком (/verify_payment) со статусом pending; идентификаторы
// назначаются монотонно.
type Request struct {
	ID          int64     `db:"id"`
	RequesterID int64     `db:"requester_id"`
	Reference   string    `db:"reference"`
	SubmittedAt time.Time `db:"submitted_at"`
	Status      Status    `db:"status"`
}

// ResolveResult — исход approve/reject. Обе операции тотальны:
// любой id даёт один из трёх исходов, ни один не фатален.
type ResolveResult int

const (
	// ResolveOK — заявка переведена в терминальный статус
	ResolveOK ResolveResult = iota
	// ResolveNotFound — заявки с таким id нет
	ResolveNotFound
	// ResolveAlreadyDone — заявка уже была разрешена раньше;
	// двойное нажатие кнопки безвредно
	ResolveAlreadyDone
)
