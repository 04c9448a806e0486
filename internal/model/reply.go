package model

import "github.com/google/uuid"

// ReplyKind — дискриминатор результата одного хода диалога.
type ReplyKind string

const (
	ReplyNeedInfo            ReplyKind = "need_info"
	ReplyConfirm             ReplyKind = "confirm"
	ReplyConfirmed           ReplyKind = "confirmed"
	ReplyCancelled           ReplyKind = "cancelled"
	ReplyCancelNotFound      ReplyKind = "cancel_not_found"
	ReplyRescheduled         ReplyKind = "rescheduled"
	ReplyRescheduleNotFound  ReplyKind = "reschedule_not_found"
	ReplyInfo                ReplyKind = "info"
	ReplyInfoNone            ReplyKind = "info_none"
	ReplyAvailability        ReplyKind = "availability"
	ReplyAvailabilityNone    ReplyKind = "availability_none"
	ReplyError               ReplyKind = "error"
	ReplyNone                ReplyKind = "none"
)

// Слоты, которые оркестратор может запросить в need_info.
const (
	SlotService      = "service"
	SlotDate         = "date"
	SlotTime         = "time"
	SlotStaff        = "staff"
	SlotCustomerName = "customer_name"
	SlotCustomer     = "customer" // имя или телефон, для appointment_info
)

// Reply — результат обработки реплики, отдаётся телефонному слою.
// Заполненность полей зависит от Kind.
type Reply struct {
	Kind ReplyKind `json:"kind"`

	// need_info
	Missing  string `json:"missing,omitempty"`
	Question string `json:"question,omitempty"`

	// confirm
	DraftID *uuid.UUID `json:"draft_id,omitempty"`
	Preview string     `json:"preview,omitempty"`
	Phrase  string     `json:"phrase,omitempty"`

	// confirmed / cancelled / rescheduled / info
	Appointment    *Appointment `json:"appointment,omitempty"`
	CalendarSynced bool         `json:"calendar_synced,omitempty"`
	CalendarError  string       `json:"calendar_error,omitempty"`

	// availability и подсказки времени внутри need_info
	Suggestions []string `json:"suggestions,omitempty"` // локальные HH:MM, по возрастанию

	// error
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`
}

func NeedInfo(missing, question string) *Reply {
	return &Reply{Kind: ReplyNeedInfo, Missing: missing, Question: question}
}

func NeedTime(question string, suggestions []string) *Reply {
	return &Reply{Kind: ReplyNeedInfo, Missing: SlotTime, Question: question, Suggestions: suggestions}
}

func ErrorReply(kind, details string) *Reply {
	return &Reply{Kind: ReplyError, ErrorKind: kind, ErrorDetails: details}
}

func NoneReply() *Reply {
	return &Reply{Kind: ReplyNone}
}
