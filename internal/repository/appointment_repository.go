package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

const appointmentColumns = `
	id, business_id, service_id, staff_id, start_at, end_at, status,
	customer_name, customer_phone, calendar_event_id, created_at, updated_at`

type AppointmentRepository struct {
	db base.DB
}

func NewAppointmentRepository(db base.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func scanAppointment(row interface{ Scan(...any) error }) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.ServiceID,
		&a.StaffID,
		&a.StartAt,
		&a.EndAt,
		&a.Status,
		&a.CustomerName,
		&a.CustomerPhone,
		&a.CalendarEventID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create вставляет подтверждённую запись. Выполняется внутри транзакции
// подтверждения черновика, поэтому принимает Querier явно.
func (r *AppointmentRepository) Create(ctx context.Context, q base.Querier, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments
			(id, business_id, service_id, staff_id, start_at, end_at, status, customer_name, customer_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}

	err := q.QueryRow(
		ctx, query,
		appt.ID,
		appt.BusinessID,
		appt.ServiceID,
		appt.StaffID,
		appt.StartAt,
		appt.EndAt,
		appt.Status,
		appt.CustomerName,
		appt.CustomerPhone,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID.
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`

	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appt, nil
}

// ListOverlapping получает неотменённые записи, пересекающие окно [from, to).
// staffID = nil означает проверку по всему бизнесу, иначе по конкретному
// сотруднику. excludeID исключает саму переносимую запись.
func (r *AppointmentRepository) ListOverlapping(ctx context.Context, q base.Querier, businessID int64, staffID *int64, from, to time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1
		  AND status = 'booked'
		  AND start_at < $2
		  AND end_at > $3
		  AND ($4::bigint IS NULL OR staff_id = $4)
		  AND ($5::uuid IS NULL OR id <> $5)
		ORDER BY start_at
	`

	rows, err := q.Query(ctx, query, businessID, to, from, staffID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list overlapping appointments: %w", err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	return appts, rows.Err()
}

// FindByStartAndCustomer ищет активную запись на точное время по имени клиента.
func (r *AppointmentRepository) FindByStartAndCustomer(ctx context.Context, businessID int64, startAt time.Time, customerName string) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1
		  AND status = 'booked'
		  AND start_at = $2
		  AND lower(customer_name) = lower($3)
		LIMIT 1
	`

	appt, err := scanAppointment(r.db.QueryRow(ctx, query, businessID, startAt, customerName))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find appointment by start and customer: %w", err)
	}

	return appt, nil
}

// FindNextByCustomer ищет ближайшую будущую активную запись клиента
// по имени или телефону.
func (r *AppointmentRepository) FindNextByCustomer(ctx context.Context, businessID int64, customerName, customerPhone string, after time.Time) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1
		  AND status = 'booked'
		  AND start_at >= $2
		  AND (($3 <> '' AND lower(customer_name) = lower($3))
		    OR ($4 <> '' AND customer_phone = $4))
		ORDER BY start_at
		LIMIT 1
	`

	appt, err := scanAppointment(r.db.QueryRow(ctx, query, businessID, after, customerName, customerPhone))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find next appointment by customer: %w", err)
	}

	return appt, nil
}

// MarkCancelled переводит запись в cancelled.
func (r *AppointmentRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE appointments
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'booked'
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

// UpdateWindow переносит запись на новое окно. Выполняется внутри
// транзакции переноса.
func (r *AppointmentRepository) UpdateWindow(ctx context.Context, q base.Querier, id uuid.UUID, startAt, endAt time.Time) error {
	query := `
		UPDATE appointments
		SET start_at = $2, end_at = $3, updated_at = now()
		WHERE id = $1 AND status = 'booked'
	`

	result, err := q.Exec(ctx, query, id, startAt, endAt)
	if err != nil {
		return fmt.Errorf("update appointment window: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

// SetCalendarEventID сохраняет id события во внешнем календаре.
func (r *AppointmentRepository) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	query := `
		UPDATE appointments
		SET calendar_event_id = $2, updated_at = now()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, id, eventID); err != nil {
		return fmt.Errorf("set calendar event id: %w", err)
	}

	return nil
}
