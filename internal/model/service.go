package model

import "time"

type Service struct {
	ID             int64     `json:"id"`
	BusinessID     int64     `json:"business_id"`
	Title          string    `json:"title"`
	DurationMin    int       `json:"duration_min"` // длительность в минутах
	DefaultStaffID *int64    `json:"default_staff_id"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Duration возвращает длительность услуги как time.Duration.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMin) * time.Minute
}
