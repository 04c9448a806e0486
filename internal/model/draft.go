package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentDraft — черновик записи, ещё не подтверждённый клиентом.
// Живёт не дольше одной диалоговой сессии: подтверждение превращает его
// в Appointment и удаляет, отказ просто удаляет.
type AppointmentDraft struct {
	ID            uuid.UUID `json:"id"`
	BusinessID    int64     `json:"business_id"`
	ServiceID     int64     `json:"service_id"`
	StaffID       *int64    `json:"staff_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	SessionKey    string    `json:"session_key"`
	CreatedAt     time.Time `json:"created_at"`
}
