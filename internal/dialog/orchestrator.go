package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/calendar"
	"github.com/Freeeeeet/reception_core/internal/events"
	"github.com/Freeeeeet/reception_core/internal/metrics"
	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/service"
)

const (
	// maxSuggestions — сколько вариантов времени предлагаем в одном ответе.
	maxSuggestions = 5
	// defaultProbeDurationMin — длительность для проверки свободных окон,
	// когда услуга в запросе не названа.
	defaultProbeDurationMin = 30
)

// Контракты зависимостей оркестратора. Все зависимости передаются явно,
// никаких глобальных клиентов.

type StateStore interface {
	Ensure(ctx context.Context, businessID int64, channel, sessionKey string) (*model.ConversationState, error)
	Patch(ctx context.Context, stateID int64, lastIntent string, c model.AppointmentContext) error
	Clear(ctx context.Context, businessID int64, channel, sessionKey string) error
}

type BusinessSource interface {
	GetByID(ctx context.Context, id int64) (*model.Business, error)
}

type ServiceSource interface {
	ListActive(ctx context.Context, businessID int64) ([]*model.Service, error)
	GetByID(ctx context.Context, id int64) (*model.Service, error)
}

type StaffSource interface {
	GetByID(ctx context.Context, id int64) (*model.Staff, error)
	GetByName(ctx context.Context, businessID int64, name string) (*model.Staff, error)
}

type Scheduler interface {
	NewChecker() service.ConflictChecker
	HoursFor(ctx context.Context, business *model.Business, day time.Time) (*model.BusinessHours, error)
	FindSlots(ctx context.Context, checker service.ConflictChecker, business *model.Business, staffID *int64, day time.Time, durationMin, maxResults int, window *service.TimeWindow) ([]time.Time, error)
}

type StaffResolver interface {
	Resolve(ctx context.Context, checker service.ConflictChecker, business *model.Business, svc *model.Service, requestedName string, start, end time.Time) (service.StaffResolution, error)
}

type Booking interface {
	CreateDraft(ctx context.Context, draft *model.AppointmentDraft) error
	UpdateDraftCustomer(ctx context.Context, id uuid.UUID, name, phone string) error
	GetDraft(ctx context.Context, id uuid.UUID) (*model.AppointmentDraft, error)
	DiscardDraft(ctx context.Context, id uuid.UUID) error
	Confirm(ctx context.Context, business *model.Business, draftID uuid.UUID) (*model.Appointment, error)
	Cancel(ctx context.Context, business *model.Business, startAt time.Time, customerName string) (*model.Appointment, error)
	Reschedule(ctx context.Context, business *model.Business, customerName string, now, newStart time.Time) (*model.Appointment, error)
	NextUpcoming(ctx context.Context, business *model.Business, customerName, customerPhone string, now time.Time) (*model.Appointment, error)
	SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, appt *model.Appointment) error
}

// Deps — зависимости оркестратора. Calendar, Events и Metrics опциональны.
type Deps struct {
	States        StateStore
	Businesses    BusinessSource
	Services      ServiceSource
	Staff         StaffSource
	Availability  Scheduler
	StaffResolver StaffResolver
	Booking       Booking
	Calendar      calendar.Syncer
	Events        EventPublisher
	Metrics       *metrics.Metrics
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Orchestrator — машина состояний диалога записи. Единственный владелец
// ConversationState: читает его в начале хода, пишет в конце.
type Orchestrator struct {
	d Deps
}

func NewOrchestrator(d Deps) *Orchestrator {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Orchestrator{d: d}
}

// turn — всё, что нужно обработчикам одного хода. Checker создаётся
// заново на каждый ход и умирает вместе с ним.
type turn struct {
	business *model.Business
	state    *model.ConversationState
	checker  service.ConflictChecker
	utt      model.Utterance
	now      time.Time // локальное время бизнеса
}

// HandleTurn обрабатывает одну классифицированную реплику звонящего.
// Ошибка возвращается только при отказе зависимостей (база недоступна);
// все диалоговые исходы, включая "не понял", приходят как Reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, businessID int64, channel, sessionKey string, utt model.Utterance) (*model.Reply, error) {
	business, err := o.d.Businesses.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return model.ErrorReply("business_not_found", fmt.Sprintf("business %d is not registered", businessID)), nil
	}

	st, err := o.d.States.Ensure(ctx, businessID, channel, sessionKey)
	if err != nil {
		return nil, err
	}

	t := &turn{
		business: business,
		state:    st,
		checker:  o.d.Availability.NewChecker(),
		utt:      utt,
		now:      o.d.Clock().In(business.Location()),
	}

	intent, known := model.ParseIntent(string(utt.Intent))
	if o.d.Metrics != nil {
		o.d.Metrics.TurnsTotal.WithLabelValues(string(intent)).Inc()
	}

	o.d.Logger.Info("dialog turn",
		zap.Int64("business_id", businessID),
		zap.String("channel", channel),
		zap.String("session", sessionKey),
		zap.String("intent", string(intent)),
		zap.String("mode", string(st.Context.Mode)))

	// Интент не распознан: если сценарий уже идёт, реплика — это ответ
	// на наш вопрос, продолжаем сбор слотов того же сценария.
	if !known {
		switch st.Context.Mode {
		case model.FlowModeBooking:
			return o.handleCreate(ctx, t)
		case model.FlowModeCancel:
			return o.handleCancel(ctx, t)
		case model.FlowModeReschedule:
			return o.handleReschedule(ctx, t)
		case model.FlowModeInfo:
			return o.handleInfo(ctx, t)
		case model.FlowModeAvailability:
			return o.handleAvailability(ctx, t, false)
		}
		return model.NoneReply(), nil
	}

	switch intent {
	case model.IntentCreateAppointment:
		return o.handleCreate(ctx, t)
	case model.IntentAppointmentConfirm:
		return o.handleConfirm(ctx, t)
	case model.IntentCancelAppointment:
		return o.handleCancel(ctx, t)
	case model.IntentRescheduleAppointment:
		return o.handleReschedule(ctx, t)
	case model.IntentAppointmentInfo:
		return o.handleInfo(ctx, t)
	case model.IntentAvailability:
		return o.handleAvailability(ctx, t, false)
	case model.IntentStaffAvailability:
		return o.handleAvailability(ctx, t, true)
	}

	return model.NoneReply(), nil
}

// --- запись ---

func (o *Orchestrator) handleCreate(ctx context.Context, t *turn) (*model.Reply, error) {
	c := t.state.Context
	if c.Mode != model.FlowModeNone && c.Mode != model.FlowModeBooking {
		// предыдущий сценарий брошен — начинаем запись с чистого листа
		c = model.AppointmentContext{}
	}
	c.Mode = model.FlowModeBooking
	mergeCustomer(&c, t.utt.Slots)

	loc := t.business.Location()

	// услуга
	var svc *model.Service
	if c.ServiceID != 0 {
		var err error
		svc, err = o.d.Services.GetByID(ctx, c.ServiceID)
		if err != nil {
			return nil, err
		}
	}
	if svc == nil {
		raw := strings.TrimSpace(t.utt.Slots.Service)
		if raw == "" {
			return o.ask(ctx, t, c, model.SlotService, questionFor(model.SlotService))
		}
		list, err := o.d.Services.ListActive(ctx, t.business.ID)
		if err != nil {
			return nil, err
		}
		svc = MatchService(raw, list)
		if svc == nil {
			return o.ask(ctx, t, c, model.SlotService, serviceNotFoundQuestion(raw))
		}
		c.ServiceID = svc.ID
	}

	// дата и время
	if reply, err := o.collectDate(ctx, t, &c); reply != nil || err != nil {
		return reply, err
	}
	if reply, err := o.collectTime(ctx, t, &c); reply != nil || err != nil {
		return reply, err
	}

	day, start, ok := contextWindow(c, loc)
	if !ok {
		// контекст прошлых ходов оказался битым — собираем дату заново
		c.Date, c.Time = "", ""
		return o.ask(ctx, t, c, model.SlotDate, questionFor(model.SlotDate))
	}
	end := start.Add(svc.Duration())

	if !start.After(t.now) {
		sugg := o.suggest(ctx, t, nil, day, svc.DurationMin)
		return o.askTime(ctx, t, c, pastTimeQuestion(sugg), sugg)
	}

	// часы работы
	h, err := o.d.Availability.HoursFor(ctx, t.business, day)
	if err != nil {
		return nil, err
	}
	if h == nil {
		c.Date, c.Time = "", ""
		return o.ask(ctx, t, c, model.SlotDate, closedDayQuestion())
	}
	local := start.In(loc)
	startMin := local.Hour()*60 + local.Minute()
	if startMin < h.OpenMin || startMin+svc.DurationMin > h.CloseMin {
		sugg := o.suggest(ctx, t, nil, day, svc.DurationMin)
		return o.askTime(ctx, t, c, outsideHoursQuestion(sugg), sugg)
	}

	// сотрудник: только если бизнес ведёт запись по сотрудникам
	var staffID *int64
	staffName := ""
	if t.business.StaffScheduling {
		res, err := o.d.StaffResolver.Resolve(ctx, t.checker, t.business, svc, c.StaffName, start, end)
		if err != nil {
			return nil, err
		}
		switch {
		case res.NotFound:
			requested := c.StaffName
			c.StaffName = ""
			return o.ask(ctx, t, c, model.SlotStaff, staffNotFoundQuestion(requested))
		case res.NoneFree:
			sugg := o.suggest(ctx, t, nil, day, svc.DurationMin)
			return o.askTime(ctx, t, c, busyTimeQuestion(sugg), sugg)
		default:
			staffID = &res.Staff.ID
			c.StaffID = staffID
			c.StaffName = res.Staff.Name
			staffName = res.Staff.Name
		}
	}

	// конфликт с существующими записями
	busy, err := t.checker.Overlaps(ctx, t.business.ID, staffID, start, end)
	if err != nil {
		return nil, err
	}
	if busy {
		sugg := o.suggest(ctx, t, staffID, day, svc.DurationMin)
		return o.askTime(ctx, t, c, busyTimeQuestion(sugg), sugg)
	}

	// черновик: переиспользуем существующий, если параметры не изменились
	if c.DraftID != nil {
		draft, err := o.d.Booking.GetDraft(ctx, *c.DraftID)
		if err != nil {
			return nil, err
		}
		if draft == nil || !draft.StartAt.Equal(start) || draft.ServiceID != svc.ID || !staffIDEqual(draft.StaffID, staffID) {
			if draft != nil {
				if err := o.d.Booking.DiscardDraft(ctx, draft.ID); err != nil {
					return nil, err
				}
			}
			c.DraftID = nil
		}
	}
	if c.DraftID == nil {
		draft := &model.AppointmentDraft{
			BusinessID:    t.business.ID,
			ServiceID:     svc.ID,
			StaffID:       staffID,
			StartAt:       start,
			EndAt:         end,
			CustomerName:  c.CustomerName,
			CustomerPhone: c.CustomerPhone,
			SessionKey:    t.state.SessionKey,
		}
		if err := o.d.Booking.CreateDraft(ctx, draft); err != nil {
			return nil, err
		}
		id := draft.ID
		c.DraftID = &id
	}

	// имя клиента спрашиваем последним: черновик к этому моменту уже есть,
	// и подтверждение в следующем ходе найдёт его через контекст сессии
	if c.CustomerName == "" {
		return o.ask(ctx, t, c, model.SlotCustomerName, questionFor(model.SlotCustomerName))
	}

	if err := o.d.Booking.UpdateDraftCustomer(ctx, *c.DraftID, c.CustomerName, c.CustomerPhone); err != nil {
		return nil, err
	}

	c.Stage = model.StageAwaitingConfirmation
	if err := o.save(ctx, t, c); err != nil {
		return nil, err
	}

	preview := previewText(svc.Title, staffName, start, loc)
	return &model.Reply{
		Kind:    model.ReplyConfirm,
		DraftID: c.DraftID,
		Preview: preview,
		Phrase:  confirmPhrase(preview),
	}, nil
}

func (o *Orchestrator) handleConfirm(ctx context.Context, t *turn) (*model.Reply, error) {
	c := t.state.Context
	if c.DraftID == nil {
		if err := o.clear(ctx, t); err != nil {
			return nil, err
		}
		return model.ErrorReply("draft_not_found", "нет черновика, ожидающего подтверждения"), nil
	}

	// "да" прозвучало раньше, чем звонящий назвал имя — дособираем слоты
	if c.Mode == model.FlowModeBooking && c.CustomerName == "" {
		return o.handleCreate(ctx, t)
	}

	appt, err := o.d.Booking.Confirm(ctx, t.business, *c.DraftID)
	switch {
	case errors.Is(err, service.ErrDraftNotFound):
		if cerr := o.clear(ctx, t); cerr != nil {
			return nil, cerr
		}
		return model.ErrorReply("draft_not_found", "черновик уже использован или удалён"), nil

	case errors.Is(err, service.ErrOutsideHours), errors.Is(err, service.ErrSlotTaken):
		// мир изменился с момента создания черновика; сам черновик
		// остался валидным — предлагаем другое время
		draft, derr := o.d.Booking.GetDraft(ctx, *c.DraftID)
		if derr != nil {
			return nil, derr
		}
		var sugg []string
		if draft != nil {
			loc := t.business.Location()
			local := draft.StartAt.In(loc)
			day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
			sugg = o.suggest(ctx, t, draft.StaffID, day, int(draft.EndAt.Sub(draft.StartAt).Minutes()))
		}
		question := busyTimeQuestion(sugg)
		if errors.Is(err, service.ErrOutsideHours) {
			question = outsideHoursQuestion(sugg)
		}
		return o.askTime(ctx, t, c, question, sugg)

	case err != nil:
		return nil, err
	}

	synced, calErr := o.mirrorInsert(ctx, t, appt)
	o.publish(ctx, events.EventAppointmentBooked, appt)
	if o.d.Metrics != nil {
		o.d.Metrics.BookingsConfirmed.Inc()
	}

	if err := o.clear(ctx, t); err != nil {
		return nil, err
	}

	return &model.Reply{
		Kind:           model.ReplyConfirmed,
		Appointment:    appt,
		CalendarSynced: synced,
		CalendarError:  calErr,
	}, nil
}

// --- отмена ---

func (o *Orchestrator) handleCancel(ctx context.Context, t *turn) (*model.Reply, error) {
	c := t.state.Context
	if c.Mode != model.FlowModeNone && c.Mode != model.FlowModeCancel {
		c = o.abandonFlow(ctx, c)
	}
	c.Mode = model.FlowModeCancel
	mergeCustomer(&c, t.utt.Slots)

	if reply, err := o.collectDate(ctx, t, &c); reply != nil || err != nil {
		return reply, err
	}
	if reply, err := o.collectTime(ctx, t, &c); reply != nil || err != nil {
		return reply, err
	}
	if c.CustomerName == "" {
		return o.ask(ctx, t, c, model.SlotCustomerName, questionFor(model.SlotCustomerName))
	}

	_, start, ok := contextWindow(c, t.business.Location())
	if !ok {
		c.Date, c.Time = "", ""
		return o.ask(ctx, t, c, model.SlotDate, questionFor(model.SlotDate))
	}

	appt, err := o.d.Booking.Cancel(ctx, t.business, start, c.CustomerName)
	if errors.Is(err, service.ErrAppointmentNotFound) {
		if cerr := o.clear(ctx, t); cerr != nil {
			return nil, cerr
		}
		return &model.Reply{Kind: model.ReplyCancelNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	synced, calErr := o.mirrorDelete(ctx, appt)
	o.publish(ctx, events.EventAppointmentCancelled, appt)
	if o.d.Metrics != nil {
		o.d.Metrics.BookingsCancelled.Inc()
	}

	if err := o.clear(ctx, t); err != nil {
		return nil, err
	}

	return &model.Reply{
		Kind:           model.ReplyCancelled,
		Appointment:    appt,
		CalendarSynced: synced,
		CalendarError:  calErr,
	}, nil
}

// --- перенос ---

func (o *Orchestrator) handleReschedule(ctx context.Context, t *turn) (*model.Reply, error) {
	c := t.state.Context
	if c.Mode != model.FlowModeNone && c.Mode != model.FlowModeReschedule {
		c = o.abandonFlow(ctx, c)
	}
	c.Mode = model.FlowModeReschedule
	mergeCustomer(&c, t.utt.Slots)

	// порядок вопросов: имя, затем новые дата и время
	if c.CustomerName == "" {
		return o.ask(ctx, t, c, model.SlotCustomerName, questionFor(model.SlotCustomerName))
	}
	if reply, err := o.collectDate(ctx, t, &c); reply != nil || err != nil {
		return reply, err
	}
	if reply, err := o.collectTime(ctx, t, &c); reply != nil || err != nil {
		return reply, err
	}

	_, newStart, ok := contextWindow(c, t.business.Location())
	if !ok {
		c.Date, c.Time = "", ""
		return o.ask(ctx, t, c, model.SlotDate, questionFor(model.SlotDate))
	}

	appt, err := o.d.Booking.Reschedule(ctx, t.business, c.CustomerName, t.now, newStart)
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		if cerr := o.clear(ctx, t); cerr != nil {
			return nil, cerr
		}
		return &model.Reply{Kind: model.ReplyRescheduleNotFound}, nil

	case errors.Is(err, service.ErrOutsideHours), errors.Is(err, service.ErrSlotTaken):
		current, derr := o.d.Booking.NextUpcoming(ctx, t.business, c.CustomerName, "", t.now)
		if derr != nil {
			return nil, derr
		}
		durationMin := defaultProbeDurationMin
		var staffID *int64
		if current != nil {
			durationMin = int(current.EndAt.Sub(current.StartAt).Minutes())
			staffID = current.StaffID
		}
		loc := t.business.Location()
		local := newStart.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		sugg := o.suggest(ctx, t, staffID, day, durationMin)
		question := busyTimeQuestion(sugg)
		if errors.Is(err, service.ErrOutsideHours) {
			question = outsideHoursQuestion(sugg)
		}
		return o.askTime(ctx, t, c, question, sugg)

	case err != nil:
		return nil, err
	}

	synced, calErr := o.mirrorPatch(ctx, t, appt)
	o.publish(ctx, events.EventAppointmentRescheduled, appt)
	if o.d.Metrics != nil {
		o.d.Metrics.BookingsRescheduled.Inc()
	}

	if err := o.clear(ctx, t); err != nil {
		return nil, err
	}

	return &model.Reply{
		Kind:           model.ReplyRescheduled,
		Appointment:    appt,
		CalendarSynced: synced,
		CalendarError:  calErr,
	}, nil
}

// --- справка ---

func (o *Orchestrator) handleInfo(ctx context.Context, t *turn) (*model.Reply, error) {
	c := t.state.Context
	if c.Mode != model.FlowModeNone && c.Mode != model.FlowModeInfo {
		c = o.abandonFlow(ctx, c)
	}
	c.Mode = model.FlowModeInfo
	mergeCustomer(&c, t.utt.Slots)

	if c.CustomerName == "" && c.CustomerPhone == "" {
		return o.ask(ctx, t, c, model.SlotCustomer, questionFor(model.SlotCustomer))
	}

	appt, err := o.d.Booking.NextUpcoming(ctx, t.business, c.CustomerName, c.CustomerPhone, t.now)
	if err != nil {
		return nil, err
	}

	if err := o.clear(ctx, t); err != nil {
		return nil, err
	}

	if appt == nil {
		return &model.Reply{Kind: model.ReplyInfoNone}, nil
	}
	return &model.Reply{Kind: model.ReplyInfo, Appointment: appt}, nil
}

// --- свободные окна ---

func (o *Orchestrator) handleAvailability(ctx context.Context, t *turn, staffRequired bool) (*model.Reply, error) {
	c := t.state.Context
	if c.Mode != model.FlowModeNone && c.Mode != model.FlowModeAvailability {
		c = o.abandonFlow(ctx, c)
	}
	c.Mode = model.FlowModeAvailability
	mergeCustomer(&c, t.utt.Slots)

	if reply, err := o.collectDate(ctx, t, &c); reply != nil || err != nil {
		return reply, err
	}

	loc := t.business.Location()
	var staffID *int64
	if c.StaffName != "" {
		st, err := o.d.Staff.GetByName(ctx, t.business.ID, c.StaffName)
		if err != nil {
			return nil, err
		}
		if st == nil {
			requested := c.StaffName
			c.StaffName = ""
			return o.ask(ctx, t, c, model.SlotStaff, staffNotFoundQuestion(requested))
		}
		staffID = &st.ID
	} else if staffRequired && t.business.StaffScheduling {
		return o.ask(ctx, t, c, model.SlotStaff, questionFor(model.SlotStaff))
	}

	// длительность пробного окна: из услуги, если она названа
	durationMin := defaultProbeDurationMin
	if raw := strings.TrimSpace(t.utt.Slots.Service); raw != "" {
		list, err := o.d.Services.ListActive(ctx, t.business.ID)
		if err != nil {
			return nil, err
		}
		if svc := MatchService(raw, list); svc != nil {
			durationMin = svc.DurationMin
		}
	}

	var win *service.TimeWindow
	if h, m, ok := AsClockTime(t.utt.Slots.WindowStart); ok {
		win = &service.TimeWindow{StartMin: h*60 + m}
	}
	if h, m, ok := AsClockTime(t.utt.Slots.WindowEnd); ok {
		if win == nil {
			win = &service.TimeWindow{}
		}
		win.EndMin = h*60 + m
	}

	day, _, ok := contextWindow(model.AppointmentContext{Date: c.Date, Time: "00:00"}, loc)
	if !ok {
		c.Date = ""
		return o.ask(ctx, t, c, model.SlotDate, questionFor(model.SlotDate))
	}
	if sameLocalDay(day, t.now) {
		nowMin := t.now.Hour()*60 + t.now.Minute()
		if win == nil {
			win = &service.TimeWindow{StartMin: nowMin}
		} else if win.StartMin < nowMin {
			win.StartMin = nowMin
		}
	}

	slots, err := o.d.Availability.FindSlots(ctx, t.checker, t.business, staffID, day, durationMin, maxSuggestions, win)
	if err != nil {
		return nil, err
	}

	if err := o.clear(ctx, t); err != nil {
		return nil, err
	}

	if len(slots) == 0 {
		return &model.Reply{Kind: model.ReplyAvailabilityNone}, nil
	}
	return &model.Reply{
		Kind:        model.ReplyAvailability,
		Suggestions: formatLocalTimes(slots, loc),
	}, nil
}

// --- общие шаги сбора слотов ---

// collectDate заполняет c.Date из реплики. Ненулевой Reply означает
// "ход закончен вопросом", nil Reply — слот заполнен, идём дальше.
func (o *Orchestrator) collectDate(ctx context.Context, t *turn, c *model.AppointmentContext) (*model.Reply, error) {
	if c.Date != "" {
		return nil, nil
	}
	raw := strings.TrimSpace(t.utt.Slots.Date)
	if raw == "" {
		return o.ask(ctx, t, *c, model.SlotDate, questionFor(model.SlotDate))
	}
	day, ok := NormalizeDate(raw, t.now)
	if !ok {
		return o.ask(ctx, t, *c, model.SlotDate, questionFor(model.SlotDate))
	}
	c.Date = day.Format("2006-01-02")
	return nil, nil
}

// collectTime — то же для c.Time.
func (o *Orchestrator) collectTime(ctx context.Context, t *turn, c *model.AppointmentContext) (*model.Reply, error) {
	if c.Time != "" {
		return nil, nil
	}
	raw := strings.TrimSpace(t.utt.Slots.Time)
	if raw == "" {
		return o.ask(ctx, t, *c, model.SlotTime, questionFor(model.SlotTime))
	}
	h, m, ok := AsClockTime(raw)
	if !ok {
		return o.ask(ctx, t, *c, model.SlotTime, questionFor(model.SlotTime))
	}
	c.Time = fmt.Sprintf("%02d:%02d", h, m)
	return nil, nil
}

// --- вспомогательное ---

// abandonFlow бросает незавершённый сценарий другого типа: черновик
// брошенной записи удаляем, чтобы не висел до конца сессии.
func (o *Orchestrator) abandonFlow(ctx context.Context, c model.AppointmentContext) model.AppointmentContext {
	if c.DraftID != nil {
		if err := o.d.Booking.DiscardDraft(ctx, *c.DraftID); err != nil {
			o.d.Logger.Warn("discard abandoned draft failed", zap.Error(err))
		}
	}
	return model.AppointmentContext{}
}

// save перезаписывает контекст состояния целиком.
func (o *Orchestrator) save(ctx context.Context, t *turn, c model.AppointmentContext) error {
	t.state.Context = c
	return o.d.States.Patch(ctx, t.state.ID, string(t.utt.Intent), c)
}

func (o *Orchestrator) clear(ctx context.Context, t *turn) error {
	return o.d.States.Clear(ctx, t.business.ID, t.state.Channel, t.state.SessionKey)
}

// ask сохраняет частично заполненный контекст и задаёт вопрос ровно про
// недостающий слот. Уже заполненные слоты повторно не спрашиваются.
func (o *Orchestrator) ask(ctx context.Context, t *turn, c model.AppointmentContext, missing, question string) (*model.Reply, error) {
	c.Stage = model.StageCollecting
	if err := o.save(ctx, t, c); err != nil {
		return nil, err
	}
	r := model.NeedInfo(missing, question)
	r.DraftID = c.DraftID
	return r, nil
}

// askTime — вопрос про время с подсказками; ранее выбранное время сбрасывается.
func (o *Orchestrator) askTime(ctx context.Context, t *turn, c model.AppointmentContext, question string, suggestions []string) (*model.Reply, error) {
	c.Time = ""
	c.Stage = model.StageCollecting
	if err := o.save(ctx, t, c); err != nil {
		return nil, err
	}
	r := model.NeedTime(question, suggestions)
	r.DraftID = c.DraftID
	return r, nil
}

// suggest подбирает до maxSuggestions свободных стартов на день.
// Для сегодняшнего дня прошедшие часы отсекаются.
func (o *Orchestrator) suggest(ctx context.Context, t *turn, staffID *int64, day time.Time, durationMin int) []string {
	var win *service.TimeWindow
	if sameLocalDay(day, t.now) {
		win = &service.TimeWindow{StartMin: t.now.Hour()*60 + t.now.Minute()}
	}

	slots, err := o.d.Availability.FindSlots(ctx, t.checker, t.business, staffID, day, durationMin, maxSuggestions, win)
	if err != nil {
		o.d.Logger.Warn("suggestion scan failed", zap.Error(err))
		return nil
	}

	return formatLocalTimes(slots, t.business.Location())
}

// mirrorInsert зеркалирует подтверждённую запись в календарь. Любая
// неудача здесь мягкая: запись уже существует и является источником истины.
func (o *Orchestrator) mirrorInsert(ctx context.Context, t *turn, appt *model.Appointment) (bool, string) {
	if o.d.Calendar == nil {
		return false, ""
	}

	title := "Запись"
	if svc, err := o.d.Services.GetByID(ctx, appt.ServiceID); err == nil && svc != nil {
		title = svc.Title
	}

	res := o.d.Calendar.Insert(ctx, calendar.Event{
		Summary:     fmt.Sprintf("%s — %s", title, appt.CustomerName),
		Description: fmt.Sprintf("Телефон: %s", appt.CustomerPhone),
		Start:       appt.StartAt,
		End:         appt.EndAt,
		Timezone:    t.business.Timezone,
		CalendarID:  o.staffCalendarID(ctx, appt.StaffID),
	})
	if !res.Synced() {
		o.noteCalendarFailure("insert", res.Err)
		return false, res.Err.Error()
	}

	if err := o.d.Booking.SetCalendarEventID(ctx, appt.ID, res.EventID); err != nil {
		// запись уже подтверждена, потеря ссылки на зеркало не фатальна
		o.d.Logger.Warn("store calendar event id failed", zap.Error(err))
	}
	eventID := res.EventID
	appt.CalendarEventID = &eventID
	return true, ""
}

func (o *Orchestrator) mirrorDelete(ctx context.Context, appt *model.Appointment) (bool, string) {
	if o.d.Calendar == nil || appt.CalendarEventID == nil {
		return false, ""
	}

	res := o.d.Calendar.Delete(ctx, o.staffCalendarID(ctx, appt.StaffID), *appt.CalendarEventID)
	if !res.Synced() {
		o.noteCalendarFailure("delete", res.Err)
		return false, res.Err.Error()
	}
	return true, ""
}

func (o *Orchestrator) mirrorPatch(ctx context.Context, t *turn, appt *model.Appointment) (bool, string) {
	if o.d.Calendar == nil || appt.CalendarEventID == nil {
		return false, ""
	}

	res := o.d.Calendar.Patch(ctx, o.staffCalendarID(ctx, appt.StaffID), *appt.CalendarEventID,
		appt.StartAt, appt.EndAt, t.business.Timezone)
	if !res.Synced() {
		o.noteCalendarFailure("patch", res.Err)
		return false, res.Err.Error()
	}
	return true, ""
}

func (o *Orchestrator) staffCalendarID(ctx context.Context, staffID *int64) string {
	if staffID == nil {
		return ""
	}
	st, err := o.d.Staff.GetByID(ctx, *staffID)
	if err != nil || st == nil || st.CalendarID == nil {
		return ""
	}
	return *st.CalendarID
}

func (o *Orchestrator) noteCalendarFailure(op string, err error) {
	if o.d.Metrics != nil {
		o.d.Metrics.CalendarSyncFailures.Inc()
	}
	o.d.Logger.Warn("calendar sync failed", zap.String("op", op), zap.Error(err))
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, appt *model.Appointment) {
	if o.d.Events == nil {
		return
	}
	if err := o.d.Events.Publish(ctx, eventType, appt); err != nil {
		if o.d.Metrics != nil {
			o.d.Metrics.EventPublishFailures.Inc()
		}
		o.d.Logger.Warn("event publish failed", zap.String("event_type", eventType), zap.Error(err))
	}
}

func mergeCustomer(c *model.AppointmentContext, s model.Slots) {
	if v := strings.TrimSpace(s.CustomerName); v != "" {
		c.CustomerName = v
	}
	if v := strings.TrimSpace(s.CustomerPhone); v != "" {
		c.CustomerPhone = v
	}
	if v := strings.TrimSpace(s.Staff); v != "" && !strings.EqualFold(v, c.StaffName) {
		c.StaffName = v
		c.StaffID = nil // имя сменилось, прошлый выбор недействителен
	}
}

func staffIDEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameLocalDay(day, now time.Time) bool {
	return day.Year() == now.Year() && day.Month() == now.Month() && day.Day() == now.Day()
}

// contextWindow восстанавливает локальные день и старт из канонических
// значений контекста. Контекст прошлых ходов не считается доверенным.
func contextWindow(c model.AppointmentContext, loc *time.Location) (day, start time.Time, ok bool) {
	d, okDate := AsCalendarDate(c.Date)
	h, m, okTime := AsClockTime(c.Time)
	if !okDate || !okTime {
		return time.Time{}, time.Time{}, false
	}

	day = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	start = time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc)
	return day, start, true
}
