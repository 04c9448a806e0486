package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"    // Активная запись
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменена, остаётся в истории
)

// Appointment — подтверждённая запись. Никогда не удаляется физически,
// отмена только меняет статус.
type Appointment struct {
	ID              uuid.UUID         `json:"id"`
	BusinessID      int64             `json:"business_id"`
	ServiceID       int64             `json:"service_id"`
	StaffID         *int64            `json:"staff_id"` // nil для бизнеса без записи по сотрудникам
	StartAt         time.Time         `json:"start_at"`
	EndAt           time.Time         `json:"end_at"`
	Status          AppointmentStatus `json:"status"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	CalendarEventID *string           `json:"calendar_event_id"` // id события во внешнем календаре
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Overlaps проверяет пересечение полуинтервалов [start, end).
// Касание границ пересечением не считается.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
