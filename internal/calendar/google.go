package calendar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleSyncer зеркалирует записи в Google Calendar.
type GoogleSyncer struct {
	svc               *gcal.Service
	defaultCalendarID string
	logger            *zap.Logger
}

// NewGoogleSyncer создаёт зеркало поверх сервисного аккаунта.
// credentialsFile — путь к json-ключу, defaultCalendarID — календарь,
// используемый когда у сотрудника нет своего.
func NewGoogleSyncer(ctx context.Context, credentialsFile, defaultCalendarID string, logger *zap.Logger) (*GoogleSyncer, error) {
	svc, err := gcal.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	if defaultCalendarID == "" {
		defaultCalendarID = "primary"
	}

	return &GoogleSyncer{
		svc:               svc,
		defaultCalendarID: defaultCalendarID,
		logger:            logger,
	}, nil
}

func (g *GoogleSyncer) calendarID(id string) string {
	if id == "" {
		return g.defaultCalendarID
	}
	return id
}

// Insert создаёт событие и возвращает его внешний id.
func (g *GoogleSyncer) Insert(ctx context.Context, ev Event) Result {
	created, err := g.svc.Events.Insert(g.calendarID(ev.CalendarID), &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
	}).Context(ctx).Do()

	if err != nil {
		g.logger.Warn("calendar insert failed", zap.Error(err))
		return Err(fmt.Errorf("insert calendar event: %w", err))
	}

	return Ok(created.Id)
}

// Patch двигает существующее событие на новое окно.
func (g *GoogleSyncer) Patch(ctx context.Context, calendarID, eventID string, start, end time.Time, timezone string) Result {
	_, err := g.svc.Events.Patch(g.calendarID(calendarID), eventID, &gcal.Event{
		Start: &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: timezone},
		End:   &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: timezone},
	}).Context(ctx).Do()

	if err != nil {
		g.logger.Warn("calendar patch failed", zap.String("event_id", eventID), zap.Error(err))
		return Err(fmt.Errorf("patch calendar event: %w", err))
	}

	return Ok(eventID)
}

// Delete удаляет событие отменённой записи.
func (g *GoogleSyncer) Delete(ctx context.Context, calendarID, eventID string) Result {
	err := g.svc.Events.Delete(g.calendarID(calendarID), eventID).Context(ctx).Do()
	if err != nil {
		g.logger.Warn("calendar delete failed", zap.String("event_id", eventID), zap.Error(err))
		return Err(fmt.Errorf("delete calendar event: %w", err))
	}

	return Ok(eventID)
}
