package model

import "time"

type Staff struct {
	ID         int64     `json:"id"`
	BusinessID int64     `json:"business_id"`
	Name       string    `json:"name"`
	CalendarID *string   `json:"calendar_id"` // внешний календарь сотрудника, может быть nil
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
