package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

type HoursRepository struct {
	db base.DB
}

func NewHoursRepository(db base.DB) *HoursRepository {
	return &HoursRepository{db: db}
}

// GetForWeekday получает график на день недели.
// nil без ошибки означает "строки нет" — вызывающий обязан трактовать это
// как выходной, никогда как "открыто".
func (r *HoursRepository) GetForWeekday(ctx context.Context, businessID int64, weekday time.Weekday) (*model.BusinessHours, error) {
	query := `
		SELECT business_id, weekday, open_min, close_min, closed
		FROM business_hours
		WHERE business_id = $1 AND weekday = $2
	`

	var h model.BusinessHours
	err := r.db.QueryRow(ctx, query, businessID, int(weekday)).Scan(
		&h.BusinessID,
		&h.Weekday,
		&h.OpenMin,
		&h.CloseMin,
		&h.Closed,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business hours: %w", err)
	}

	return &h, nil
}
