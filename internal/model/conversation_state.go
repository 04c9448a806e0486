package model

import (
	"time"

	"github.com/google/uuid"
)

// FlowMode — какой сценарий сейчас ведёт диалог.
type FlowMode string

const (
	FlowModeNone         FlowMode = ""
	FlowModeBooking      FlowMode = "booking"
	FlowModeCancel       FlowMode = "cancel"
	FlowModeReschedule   FlowMode = "reschedule"
	FlowModeInfo         FlowMode = "info"
	FlowModeAvailability FlowMode = "availability"
)

// DialogStage — где внутри сценария находится диалог.
type DialogStage string

const (
	StageNone                 DialogStage = ""
	StageCollecting           DialogStage = "collecting"            // собираем недостающие слоты
	StageAwaitingConfirmation DialogStage = "awaiting_confirmation" // черновик создан, ждём явного "да"
)

// AppointmentContext — частично заполненные слоты текущего сценария.
// Явная структура вместо свободной map: каждое чтение валидируется,
// прошлым записям не доверяем.
type AppointmentContext struct {
	Mode  FlowMode    `json:"mode,omitempty"`
	Stage DialogStage `json:"stage,omitempty"`

	Date          string     `json:"date,omitempty"` // каноничный YYYY-MM-DD
	Time          string     `json:"time,omitempty"` // каноничный HH:MM, 24ч
	ServiceID     int64      `json:"service_id,omitempty"`
	StaffID       *int64     `json:"staff_id,omitempty"`
	StaffName     string     `json:"staff_name,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	DraftID       *uuid.UUID `json:"draft_id,omitempty"`
}

// IsEmpty сообщает, есть ли в контексте хоть что-то накопленное.
func (c *AppointmentContext) IsEmpty() bool {
	return c.Mode == FlowModeNone && c.Stage == StageNone &&
		c.Date == "" && c.Time == "" && c.ServiceID == 0 &&
		c.StaffID == nil && c.StaffName == "" &&
		c.CustomerName == "" && c.CustomerPhone == "" && c.DraftID == nil
}

// ConversationState — состояние одной телефонной сессии.
// Ключ (business_id, channel, session_key); мутирует его только оркестратор.
type ConversationState struct {
	ID         int64              `json:"id"`
	BusinessID int64              `json:"business_id"`
	Channel    string             `json:"channel"`
	SessionKey string             `json:"session_key"`
	LastIntent string             `json:"last_intent"`
	Context    AppointmentContext `json:"context"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
