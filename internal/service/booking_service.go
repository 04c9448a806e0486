package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

// Доменные исходы подтверждения и переноса. Это не аварии:
// оркестратор превращает их в повторный вопрос или отдельный ответ.
var (
	ErrDraftNotFound       = errors.New("draft not found or already consumed")
	ErrOutsideHours        = errors.New("outside business hours")
	ErrSlotTaken           = errors.New("slot already taken")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// BookingService управляет черновиками и записями: двухфазный
// create/confirm, отмена, перенос, справка о ближайшей записи.
type BookingService struct {
	db           base.DB
	drafts       *repository.DraftRepository
	appts        *repository.AppointmentRepository
	availability *AvailabilityService
	logger       *zap.Logger
}

func NewBookingService(
	db base.DB,
	drafts *repository.DraftRepository,
	appts *repository.AppointmentRepository,
	availability *AvailabilityService,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		db:           db,
		drafts:       drafts,
		appts:        appts,
		availability: availability,
		logger:       logger,
	}
}

// CreateDraft создаёт черновик записи.
func (s *BookingService) CreateDraft(ctx context.Context, draft *model.AppointmentDraft) error {
	if err := s.drafts.Create(ctx, draft); err != nil {
		return err
	}

	s.logger.Info("draft created",
		zap.String("draft_id", draft.ID.String()),
		zap.Int64("business_id", draft.BusinessID),
		zap.Time("start_at", draft.StartAt))

	return nil
}

// UpdateDraftCustomer дозаполняет контакт клиента в черновике.
func (s *BookingService) UpdateDraftCustomer(ctx context.Context, id uuid.UUID, name, phone string) error {
	return s.drafts.UpdateCustomer(ctx, id, name, phone)
}

// GetDraft получает черновик по ID.
func (s *BookingService) GetDraft(ctx context.Context, id uuid.UUID) (*model.AppointmentDraft, error) {
	return s.drafts.GetByID(ctx, id)
}

// DiscardDraft удаляет черновик без подтверждения.
func (s *BookingService) DiscardDraft(ctx context.Context, id uuid.UUID) error {
	if err := s.drafts.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("draft discarded", zap.String("draft_id", id.String()))
	return nil
}

// Confirm превращает черновик в запись.
//
// Часы работы и конфликты перепроверяются здесь же, в транзакции: между
// созданием черновика и подтверждением мир мог измениться. Advisory-lock
// по бизнесу сериализует конкурентные подтверждения, чтобы две записи
// не проскочили проверку одновременно. Потребление черновика через
// DELETE ... RETURNING исключает двойное подтверждение. При любом отказе
// транзакция откатывается и черновик остаётся валидным для повтора.
func (s *BookingService) Confirm(ctx context.Context, business *model.Business, draftID uuid.UUID) (*model.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, business.ID); err != nil {
		return nil, fmt.Errorf("acquire booking lock: %w", err)
	}

	draft, err := s.drafts.ConsumeTx(ctx, tx, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}

	if err := s.validateWindow(ctx, tx, business, draft.StaffID, draft.StartAt, draft.EndAt, nil); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		ID:            draft.ID, // черновик и запись делят id: удобно трассировать
		BusinessID:    draft.BusinessID,
		ServiceID:     draft.ServiceID,
		StaffID:       draft.StaffID,
		StartAt:       draft.StartAt,
		EndAt:         draft.EndAt,
		Status:        model.AppointmentStatusBooked,
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
	}

	if err := s.appts.Create(ctx, tx, appt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID.String()),
		zap.Int64("business_id", appt.BusinessID),
		zap.Time("start_at", appt.StartAt),
		zap.String("customer", appt.CustomerName))

	return appt, nil
}

// Cancel отменяет активную запись по дате-времени и имени клиента.
func (s *BookingService) Cancel(ctx context.Context, business *model.Business, startAt time.Time, customerName string) (*model.Appointment, error) {
	appt, err := s.appts.FindByStartAndCustomer(ctx, business.ID, startAt, customerName)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}

	if err := s.appts.MarkCancelled(ctx, appt.ID); err != nil {
		return nil, err
	}
	appt.Status = model.AppointmentStatusCancelled

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", appt.ID.String()),
		zap.Int64("business_id", business.ID))

	return appt, nil
}

// Reschedule переносит ближайшую будущую запись клиента на новое время.
// Длительность сохраняется, новое окно проходит те же проверки, что и
// подтверждение, с исключением самой переносимой записи из поиска конфликтов.
func (s *BookingService) Reschedule(ctx context.Context, business *model.Business, customerName string, now, newStart time.Time) (*model.Appointment, error) {
	appt, err := s.appts.FindNextByCustomer(ctx, business.ID, customerName, "", now)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}

	newEnd := newStart.Add(appt.EndAt.Sub(appt.StartAt))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, business.ID); err != nil {
		return nil, fmt.Errorf("acquire booking lock: %w", err)
	}

	if err := s.validateWindow(ctx, tx, business, appt.StaffID, newStart, newEnd, &appt.ID); err != nil {
		return nil, err
	}

	if err := s.appts.UpdateWindow(ctx, tx, appt.ID, newStart, newEnd); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	appt.StartAt = newStart
	appt.EndAt = newEnd

	s.logger.Info("appointment rescheduled",
		zap.String("appointment_id", appt.ID.String()),
		zap.Time("new_start", newStart))

	return appt, nil
}

// NextUpcoming получает ближайшую будущую запись клиента по имени или телефону.
// nil без ошибки — записей нет.
func (s *BookingService) NextUpcoming(ctx context.Context, business *model.Business, customerName, customerPhone string, now time.Time) (*model.Appointment, error) {
	return s.appts.FindNextByCustomer(ctx, business.ID, customerName, customerPhone, now)
}

// SetCalendarEventID сохраняет внешний календарный id на записи.
func (s *BookingService) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	return s.appts.SetCalendarEventID(ctx, id, eventID)
}

// validateWindow проверяет окно кандидата против графика работы и
// существующих записей. Читает свежие данные через переданный Querier,
// а не через кэш хода: внутри транзакции кэшу доверять нельзя.
func (s *BookingService) validateWindow(ctx context.Context, q base.Querier, business *model.Business, staffID *int64, start, end time.Time, excludeID *uuid.UUID) error {
	local := start.In(business.Location())
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, business.Location())

	h, err := s.availability.HoursFor(ctx, business, day)
	if err != nil {
		return err
	}
	if h == nil {
		return ErrOutsideHours
	}

	startMin := local.Hour()*60 + local.Minute()
	endMin := startMin + int(end.Sub(start).Minutes())
	if startMin < h.OpenMin || endMin > h.CloseMin {
		return ErrOutsideHours
	}

	busy, err := s.appts.ListOverlapping(ctx, q, business.ID, staffID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(busy) > 0 {
		return ErrSlotTaken
	}

	return nil
}
