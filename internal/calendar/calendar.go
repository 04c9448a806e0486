// Package calendar зеркалирует подтверждённые записи во внешний календарь.
//
// Все вызовы best-effort: неудача синхронизации никогда не становится
// ошибкой бронирования. Результат возвращается значением, а вызывающий
// сам решает, что с ним делать (залогировать и пометить мягким флагом).
package calendar

import (
	"context"
	"time"
)

// Event — данные события для зеркала.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string // IANA-таймзона бизнеса
	CalendarID  string // календарь сотрудника; пустой — календарь по умолчанию
}

// Result — исход одной операции синхронизации: Ok(eventID) либо Err.
type Result struct {
	EventID string
	Err     error
}

func Ok(eventID string) Result { return Result{EventID: eventID} }
func Err(err error) Result     { return Result{Err: err} }

// Synced сообщает, прошла ли операция.
func (r Result) Synced() bool { return r.Err == nil }

// Syncer — контракт зеркала. Реализации не должны паниковать и не должны
// держать вызов дольше, чем позволяет ctx.
type Syncer interface {
	Insert(ctx context.Context, ev Event) Result
	Patch(ctx context.Context, calendarID, eventID string, start, end time.Time, timezone string) Result
	Delete(ctx context.Context, calendarID, eventID string) Result
}
