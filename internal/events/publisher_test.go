package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
)

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func testAppointment() *model.Appointment {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &model.Appointment{
		ID:           uuid.New(),
		BusinessID:   1,
		ServiceID:    7,
		StartAt:      start,
		EndAt:        start.Add(30 * time.Minute),
		Status:       model.AppointmentStatusBooked,
		CustomerName: "Анна",
	}
}

func TestPublish_WritesEventWithHeaders(t *testing.T) {
	w := &stubWriter{}
	p := newPublisherWithWriter(w, zap.NewNop())
	appt := testAppointment()

	err := p.Publish(context.Background(), EventAppointmentBooked, appt)
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, appt.ID.String(), string(msg.Key), "ключ партиционирования — id записи")

	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventAppointmentBooked, headers["event_type"])
	assert.NotEmpty(t, headers["event_id"])

	var ev appointmentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, EventAppointmentBooked, ev.EventType)
	assert.Equal(t, headers["event_id"], ev.EventID)
	require.NotNil(t, ev.Appointment)
	assert.Equal(t, appt.ID, ev.Appointment.ID)
}

func TestPublish_WriteFailureIsReturnedNotSwallowed(t *testing.T) {
	w := &stubWriter{err: errors.New("broker unreachable")}
	p := newPublisherWithWriter(w, zap.NewNop())

	err := p.Publish(context.Background(), EventAppointmentCancelled, testAppointment())
	assert.Error(t, err)
}

func TestPublish_NilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), EventAppointmentBooked, testAppointment()))
}
