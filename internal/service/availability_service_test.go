package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

type fakeHours struct {
	byWeekday map[time.Weekday]*model.BusinessHours
}

func (f *fakeHours) GetForWeekday(_ context.Context, _ int64, weekday time.Weekday) (*model.BusinessHours, error) {
	return f.byWeekday[weekday], nil
}

type fakeOverlaps struct {
	appts []*model.Appointment
	calls int
}

func (f *fakeOverlaps) ListOverlapping(_ context.Context, _ base.Querier, _ int64, staffID *int64, from, to time.Time, _ *uuid.UUID) ([]*model.Appointment, error) {
	f.calls++
	var out []*model.Appointment
	for _, a := range f.appts {
		if staffID != nil && (a.StaffID == nil || *a.StaffID != *staffID) {
			continue
		}
		if model.Overlaps(a.StartAt, a.EndAt, from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func berlinBusiness(t *testing.T) *model.Business {
	t.Helper()
	_, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return &model.Business{ID: 1, Name: "Salon", Timezone: "Europe/Berlin"}
}

// будни 09:00–18:00
func weekdayHours() map[time.Weekday]*model.BusinessHours {
	h := make(map[time.Weekday]*model.BusinessHours)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		h[wd] = &model.BusinessHours{BusinessID: 1, Weekday: int(wd), OpenMin: 9 * 60, CloseMin: 18 * 60}
	}
	return h
}

func newTestAvailability(hours *fakeHours, appts *fakeOverlaps) *AvailabilityService {
	return NewAvailabilityService(nil, hours, appts, zap.NewNop())
}

func TestFindSlots_EmptyDayReturnsOpeningStarts(t *testing.T) {
	business := berlinBusiness(t)
	svc := newTestAvailability(&fakeHours{byWeekday: weekdayHours()}, &fakeOverlaps{})

	// понедельник
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, business.Location())

	slots, err := svc.FindSlots(context.Background(), svc.NewChecker(), business, nil, day, 30, 3, nil)
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.Equal(t, "09:00", slots[0].Format("15:04"))
	assert.Equal(t, "09:15", slots[1].Format("15:04"))
	assert.Equal(t, "09:30", slots[2].Format("15:04"))
}

func TestFindSlots_SkipsConflictingStarts(t *testing.T) {
	business := berlinBusiness(t)
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, business.Location())

	booked := &model.Appointment{
		ID:      uuid.New(),
		StartAt: day.Add(10 * time.Hour),
		EndAt:   day.Add(10*time.Hour + 30*time.Minute),
		Status:  model.AppointmentStatusBooked,
	}
	svc := newTestAvailability(&fakeHours{byWeekday: weekdayHours()}, &fakeOverlaps{appts: []*model.Appointment{booked}})

	// сканируем с 09:45: кандидаты 09:45, 10:00, 10:15 пересекаются
	// с записью 10:00–10:30, первый свободный — 10:30
	window := &TimeWindow{StartMin: 9*60 + 45}
	slots, err := svc.FindSlots(context.Background(), svc.NewChecker(), business, nil, day, 30, 1, window)
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.Equal(t, "10:30", slots[0].Format("15:04"))
}

func TestFindSlots_ClosedDayHasNoSlots(t *testing.T) {
	business := berlinBusiness(t)
	svc := newTestAvailability(&fakeHours{byWeekday: weekdayHours()}, &fakeOverlaps{})

	// воскресенье: строки графика нет
	day := time.Date(2026, 3, 8, 0, 0, 0, 0, business.Location())

	slots, err := svc.FindSlots(context.Background(), svc.NewChecker(), business, nil, day, 30, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestFindSlots_LastSlotMustFitEntirely(t *testing.T) {
	business := berlinBusiness(t)
	svc := newTestAvailability(&fakeHours{byWeekday: weekdayHours()}, &fakeOverlaps{})

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, business.Location())

	// с 17:00 при длительности 30 минут допустимы только 17:00, 17:15, 17:30
	window := &TimeWindow{StartMin: 17 * 60}
	slots, err := svc.FindSlots(context.Background(), svc.NewChecker(), business, nil, day, 30, 10, window)
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.Equal(t, "17:30", slots[len(slots)-1].Format("15:04"))
}

func TestFindSlots_WindowNarrowsDay(t *testing.T) {
	business := berlinBusiness(t)
	svc := newTestAvailability(&fakeHours{byWeekday: weekdayHours()}, &fakeOverlaps{})

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, business.Location())

	window := &TimeWindow{StartMin: 15 * 60, EndMin: 16 * 60}
	slots, err := svc.FindSlots(context.Background(), svc.NewChecker(), business, nil, day, 30, 10, window)
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.Equal(t, "15:00", slots[0].Format("15:04"))
	assert.Equal(t, "15:30", slots[len(slots)-1].Format("15:04"))
}

func TestDayChecker_CachesBusyIntervalsPerDay(t *testing.T) {
	business := berlinBusiness(t)
	overlaps := &fakeOverlaps{}
	svc := newTestAvailability(&fakeHours{byWeekday: weekdayHours()}, overlaps)

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, business.Location())
	checker := svc.NewChecker()

	_, err := svc.FindSlots(context.Background(), checker, business, nil, day, 30, 5, nil)
	require.NoError(t, err)

	// весь проход по дню поднимает занятость не больше двух раз:
	// суточные ключи кэша в UTC могут разрезать локальный день надвое
	assert.LessOrEqual(t, overlaps.calls, 2)

	before := overlaps.calls
	_, err = checker.Overlaps(context.Background(), business.ID, nil, day.Add(12*time.Hour), day.Add(12*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, before, overlaps.calls, "повторная проверка того же дня не должна ходить в базу")
}

func TestHoursFor_ClosedFlagMeansClosed(t *testing.T) {
	business := berlinBusiness(t)
	hours := weekdayHours()
	hours[time.Monday].Closed = true
	svc := newTestAvailability(&fakeHours{byWeekday: hours}, &fakeOverlaps{})

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, business.Location())
	h, err := svc.HoursFor(context.Background(), business, day)
	require.NoError(t, err)
	assert.Nil(t, h)
}
