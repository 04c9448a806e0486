package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

type StaffRepository struct {
	db base.DB
}

func NewStaffRepository(db base.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// ListActive получает активных сотрудников бизнеса.
// Порядок по id — на него опирается детерминированный выбор "первого свободного".
func (r *StaffRepository) ListActive(ctx context.Context, businessID int64) ([]*model.Staff, error) {
	query := `
		SELECT id, business_id, name, calendar_id, is_active, created_at
		FROM staff
		WHERE business_id = $1 AND is_active = TRUE
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	defer rows.Close()

	var staff []*model.Staff
	for rows.Next() {
		var st model.Staff
		err := rows.Scan(
			&st.ID,
			&st.BusinessID,
			&st.Name,
			&st.CalendarID,
			&st.IsActive,
			&st.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		staff = append(staff, &st)
	}

	return staff, rows.Err()
}

// GetByName ищет сотрудника по точному имени без учёта регистра.
func (r *StaffRepository) GetByName(ctx context.Context, businessID int64, name string) (*model.Staff, error) {
	query := `
		SELECT id, business_id, name, calendar_id, is_active, created_at
		FROM staff
		WHERE business_id = $1 AND lower(name) = lower($2) AND is_active = TRUE
	`

	var st model.Staff
	err := r.db.QueryRow(ctx, query, businessID, name).Scan(
		&st.ID,
		&st.BusinessID,
		&st.Name,
		&st.CalendarID,
		&st.IsActive,
		&st.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get staff by name: %w", err)
	}

	return &st, nil
}

// GetByID получает сотрудника по ID.
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*model.Staff, error) {
	query := `
		SELECT id, business_id, name, calendar_id, is_active, created_at
		FROM staff
		WHERE id = $1
	`

	var st model.Staff
	err := r.db.QueryRow(ctx, query, id).Scan(
		&st.ID,
		&st.BusinessID,
		&st.Name,
		&st.CalendarID,
		&st.IsActive,
		&st.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get staff by id: %w", err)
	}

	return &st, nil
}
