// Package events публикует события жизненного цикла записей в Kafka.
// Контракт тот же, что у календарного зеркала: best-effort, неудача
// публикации не влияет на исход бронирования.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
)

const (
	EventAppointmentBooked      = "appointment.booked"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentRescheduled = "appointment.rescheduled"
)

// writer — то, что нужно от kafka.Writer; в тестах подменяется стабом.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher пишет события для downstream-потребителей (напоминания, панель).
type Publisher struct {
	w      writer
	logger *zap.Logger
}

// NewPublisher создаёт публикатор поверх настроенного kafka.Writer.
func NewPublisher(w *kafka.Writer, logger *zap.Logger) *Publisher {
	return &Publisher{w: w, logger: logger}
}

func newPublisherWithWriter(w writer, logger *zap.Logger) *Publisher {
	return &Publisher{w: w, logger: logger}
}

type appointmentEvent struct {
	EventID     string             `json:"event_id"`
	EventType   string             `json:"event_type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Appointment *model.Appointment `json:"appointment"`
}

// Publish отправляет одно событие. Ошибка возвращается вызывающему
// только для логирования и метрик, не для отката.
func (p *Publisher) Publish(ctx context.Context, eventType string, appt *model.Appointment) error {
	if p == nil || p.w == nil {
		return nil
	}

	ev := appointmentEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		OccurredAt:  time.Now().UTC(),
		Appointment: appt,
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(appt.ID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("event_type", eventType),
		zap.String("appointment_id", appt.ID.String()))

	return nil
}
