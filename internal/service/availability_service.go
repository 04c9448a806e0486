package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

// SlotStepMinutes — шаг перебора кандидатов при поиске свободного времени.
const SlotStepMinutes = 15

// TimeWindow — сужение дневного окна поиска, минуты от полуночи.
type TimeWindow struct {
	StartMin int
	EndMin   int
}

type hoursSource interface {
	GetForWeekday(ctx context.Context, businessID int64, weekday time.Weekday) (*model.BusinessHours, error)
}

type overlapSource interface {
	ListOverlapping(ctx context.Context, q base.Querier, businessID int64, staffID *int64, from, to time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error)
}

// ConflictChecker отвечает на вопрос "пересекается ли окно с существующими
// записями". Реализация с кэшем живёт ровно один входящий ход диалога.
type ConflictChecker interface {
	Overlaps(ctx context.Context, businessID int64, staffID *int64, start, end time.Time) (bool, error)
}

// AvailabilityService — оракул графика работы и поиск свободных слотов.
type AvailabilityService struct {
	db     base.DB
	hours  hoursSource
	appts  overlapSource
	logger *zap.Logger
}

func NewAvailabilityService(db base.DB, hours hoursSource, appts overlapSource, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		db:     db,
		hours:  hours,
		appts:  appts,
		logger: logger,
	}
}

// HoursFor возвращает окно работы бизнеса на конкретный день.
// nil означает выходной. День недели берётся в таймзоне бизнеса.
func (s *AvailabilityService) HoursFor(ctx context.Context, business *model.Business, day time.Time) (*model.BusinessHours, error) {
	weekday := day.In(business.Location()).Weekday()

	h, err := s.hours.GetForWeekday(ctx, business.ID, weekday)
	if err != nil {
		return nil, fmt.Errorf("hours for weekday: %w", err)
	}

	// Нет строки графика — считаем выходным, открытость не домысливаем.
	if h == nil || h.Closed {
		return nil, nil
	}

	return h, nil
}

// NewChecker создаёт проверку конфликтов на один входящий ход.
// Кэш дневных занятостей нельзя переиспользовать между ходами или
// сессиями: устаревшие данные протекут в чужие бронирования.
func (s *AvailabilityService) NewChecker() ConflictChecker {
	return &dayChecker{svc: s, cache: make(map[busyKey][]*model.Appointment)}
}

type busyKey struct {
	businessID int64
	staffID    int64 // 0 — проверка по всему бизнесу
	day        string
}

type dayChecker struct {
	svc   *AvailabilityService
	cache map[busyKey][]*model.Appointment
}

func (c *dayChecker) Overlaps(ctx context.Context, businessID int64, staffID *int64, start, end time.Time) (bool, error) {
	busy, err := c.busyForDay(ctx, businessID, staffID, start)
	if err != nil {
		return false, err
	}

	for _, appt := range busy {
		if model.Overlaps(start, end, appt.StartAt, appt.EndAt) {
			return true, nil
		}
	}

	return false, nil
}

// busyForDay поднимает все записи за суточное окно вокруг кандидата одним
// запросом и запоминает их на время хода, чтобы не ходить в базу на каждый
// 15-минутный шаг поиска.
func (c *dayChecker) busyForDay(ctx context.Context, businessID int64, staffID *int64, at time.Time) ([]*model.Appointment, error) {
	dayStart := at.Truncate(24 * time.Hour)

	key := busyKey{businessID: businessID, day: dayStart.Format("2006-01-02")}
	if staffID != nil {
		key.staffID = *staffID
	}

	if busy, ok := c.cache[key]; ok {
		return busy, nil
	}

	busy, err := c.svc.appts.ListOverlapping(ctx, c.svc.db, businessID, staffID, dayStart, dayStart.Add(48*time.Hour), nil)
	if err != nil {
		return nil, fmt.Errorf("load busy intervals: %w", err)
	}

	c.cache[key] = busy
	return busy, nil
}

// FindSlots перебирает кандидатов начала записи в пределах рабочего окна дня
// с шагом 15 минут и отдаёт первые maxResults стартов без конфликтов.
// Жадный проход слева направо: результат детерминирован и строго возрастает,
// на этом порядке держится стабильность подсказок в диалоге.
//
// day — полночь нужного дня в таймзоне бизнеса. window может сузить дневное
// окно (например, "после 15:00" или "не раньше чем сейчас").
func (s *AvailabilityService) FindSlots(
	ctx context.Context,
	checker ConflictChecker,
	business *model.Business,
	staffID *int64,
	day time.Time,
	durationMin int,
	maxResults int,
	window *TimeWindow,
) ([]time.Time, error) {
	if durationMin <= 0 || maxResults <= 0 {
		return nil, nil
	}

	h, err := s.HoursFor(ctx, business, day)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}

	openMin, closeMin := h.OpenMin, h.CloseMin
	if window != nil {
		if window.StartMin > openMin {
			openMin = window.StartMin
		}
		if window.EndMin > 0 && window.EndMin < closeMin {
			closeMin = window.EndMin
		}
	}

	// Стартуем с границы шага, чтобы подсказки всегда были "ровными".
	if rem := openMin % SlotStepMinutes; rem != 0 {
		openMin += SlotStepMinutes - rem
	}

	windowEnd := day.Add(time.Duration(closeMin) * time.Minute)
	duration := time.Duration(durationMin) * time.Minute

	var slots []time.Time
	for m := openMin; ; m += SlotStepMinutes {
		start := day.Add(time.Duration(m) * time.Minute)
		if start.Add(duration).After(windowEnd) {
			break
		}

		conflict, err := checker.Overlaps(ctx, business.ID, staffID, start, start.Add(duration))
		if err != nil {
			return nil, err
		}
		if conflict {
			continue
		}

		slots = append(slots, start)
		if len(slots) >= maxResults {
			break
		}
	}

	s.logger.Debug("availability scan finished",
		zap.Int64("business_id", business.ID),
		zap.String("day", day.Format("2006-01-02")),
		zap.Int("found", len(slots)))

	return slots, nil
}
