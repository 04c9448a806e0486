package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

const draftColumns = `
	id, business_id, service_id, staff_id, start_at, end_at,
	customer_name, customer_phone, session_key, created_at`

type DraftRepository struct {
	db base.DB
}

func NewDraftRepository(db base.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func scanDraft(row interface{ Scan(...any) error }) (*model.AppointmentDraft, error) {
	var d model.AppointmentDraft
	err := row.Scan(
		&d.ID,
		&d.BusinessID,
		&d.ServiceID,
		&d.StaffID,
		&d.StartAt,
		&d.EndAt,
		&d.CustomerName,
		&d.CustomerPhone,
		&d.SessionKey,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create создаёт черновик записи.
func (r *DraftRepository) Create(ctx context.Context, draft *model.AppointmentDraft) error {
	query := `
		INSERT INTO appointment_drafts
			(id, business_id, service_id, staff_id, start_at, end_at, customer_name, customer_phone, session_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}

	err := r.db.QueryRow(
		ctx, query,
		draft.ID,
		draft.BusinessID,
		draft.ServiceID,
		draft.StaffID,
		draft.StartAt,
		draft.EndAt,
		draft.CustomerName,
		draft.CustomerPhone,
		draft.SessionKey,
	).Scan(&draft.CreatedAt)

	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}

	return nil
}

// GetByID получает черновик по ID.
func (r *DraftRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AppointmentDraft, error) {
	query := `SELECT` + draftColumns + `
		FROM appointment_drafts
		WHERE id = $1
	`

	draft, err := scanDraft(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get draft by id: %w", err)
	}

	return draft, nil
}

// UpdateCustomer дозаполняет контакт клиента в уже созданном черновике.
func (r *DraftRepository) UpdateCustomer(ctx context.Context, id uuid.UUID, name, phone string) error {
	query := `
		UPDATE appointment_drafts
		SET customer_name = $2, customer_phone = $3
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, name, phone)
	if err != nil {
		return fmt.Errorf("update draft customer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("draft not found")
	}

	return nil
}

// ConsumeTx удаляет черновик и возвращает его содержимое одной операцией.
// DELETE ... RETURNING гарантирует, что два конкурентных подтверждения
// не заберут один черновик дважды: второй получит nil.
func (r *DraftRepository) ConsumeTx(ctx context.Context, q base.Querier, id uuid.UUID) (*model.AppointmentDraft, error) {
	query := `
		DELETE FROM appointment_drafts
		WHERE id = $1
		RETURNING` + draftColumns

	draft, err := scanDraft(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume draft: %w", err)
	}

	return draft, nil
}

// Delete удаляет черновик без подтверждения.
func (r *DraftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM appointment_drafts WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	return nil
}

// DeleteExpired чистит черновики, созданные раньше порога.
// Черновик живёт один телефонный разговор; всё старше часа — мусор
// брошенных сессий.
func (r *DraftRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM appointment_drafts WHERE created_at < $1`

	result, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired drafts: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteBySession чистит черновики брошенной сессии.
func (r *DraftRepository) DeleteBySession(ctx context.Context, businessID int64, sessionKey string) error {
	query := `DELETE FROM appointment_drafts WHERE business_id = $1 AND session_key = $2`

	if _, err := r.db.Exec(ctx, query, businessID, sessionKey); err != nil {
		return fmt.Errorf("delete drafts by session: %w", err)
	}

	return nil
}
