package model

// Intent — распознанное намерение из внешнего классификатора.
// Закрытый набор: оркестратор диспетчеризует по нему одним switch,
// чтобы переходы можно было проверить исчерпывающе.
type Intent string

const (
	IntentUnknown               Intent = ""
	IntentCreateAppointment     Intent = "create_appointment"
	IntentAppointmentConfirm    Intent = "appointment_confirm"
	IntentCancelAppointment     Intent = "cancel_appointment"
	IntentRescheduleAppointment Intent = "reschedule_appointment"
	IntentAppointmentInfo       Intent = "appointment_info"
	IntentAvailability          Intent = "availability"
	IntentStaffAvailability     Intent = "staff_availability"
)

// ParseIntent сопоставляет строку классификатора с известным интентом.
func ParseIntent(raw string) (Intent, bool) {
	switch Intent(raw) {
	case IntentCreateAppointment,
		IntentAppointmentConfirm,
		IntentCancelAppointment,
		IntentRescheduleAppointment,
		IntentAppointmentInfo,
		IntentAvailability,
		IntentStaffAvailability:
		return Intent(raw), true
	}
	return IntentUnknown, false
}

// Slots — сырые значения слотов из классификатора. Всё недоверенное:
// каждое поле проходит нормализацию перед использованием.
type Slots struct {
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	Service       string `json:"service,omitempty"`
	Staff         string `json:"staff,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	WindowStart   string `json:"window_start,omitempty"` // HH:MM, сужение окна поиска
	WindowEnd     string `json:"window_end,omitempty"`   // HH:MM
}

// Utterance — одна реплика звонящего после классификации.
type Utterance struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Slots      Slots   `json:"slots"`
}
