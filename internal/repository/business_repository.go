package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

type BusinessRepository struct {
	db base.DB
}

func NewBusinessRepository(db base.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// GetByID получает бизнес по ID.
func (r *BusinessRepository) GetByID(ctx context.Context, id int64) (*model.Business, error) {
	query := `
		SELECT id, name, timezone, staff_scheduling, created_at
		FROM businesses
		WHERE id = $1
	`

	var b model.Business
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Name,
		&b.Timezone,
		&b.StaffScheduling,
		&b.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business by id: %w", err)
	}

	return &b, nil
}
