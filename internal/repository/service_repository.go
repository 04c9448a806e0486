package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

type ServiceRepository struct {
	db base.DB
}

func NewServiceRepository(db base.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// ListActive получает активные услуги бизнеса в стабильном порядке.
func (r *ServiceRepository) ListActive(ctx context.Context, businessID int64) ([]*model.Service, error) {
	query := `
		SELECT id, business_id, title, duration_min, default_staff_id, is_active, created_at
		FROM services
		WHERE business_id = $1 AND is_active = TRUE
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list active services: %w", err)
	}
	defer rows.Close()

	var services []*model.Service
	for rows.Next() {
		var s model.Service
		err := rows.Scan(
			&s.ID,
			&s.BusinessID,
			&s.Title,
			&s.DurationMin,
			&s.DefaultStaffID,
			&s.IsActive,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, &s)
	}

	return services, rows.Err()
}

// GetByID получает услугу по ID.
func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*model.Service, error) {
	query := `
		SELECT id, business_id, title, duration_min, default_staff_id, is_active, created_at
		FROM services
		WHERE id = $1
	`

	var s model.Service
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.BusinessID,
		&s.Title,
		&s.DurationMin,
		&s.DefaultStaffID,
		&s.IsActive,
		&s.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}

	return &s, nil
}
