package model

import "time"

type Business struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Timezone        string    `json:"timezone"`         // IANA, например "Europe/Berlin"
	StaffScheduling bool      `json:"staff_scheduling"` // ведётся ли запись по конкретным сотрудникам
	CreatedAt       time.Time `json:"created_at"`
}

// Location возвращает таймзону бизнеса. При пустой или битой таймзоне
// откатываемся на UTC, а не падаем.
func (b *Business) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Now возвращает "сейчас" в локальном времени бизнеса.
func (b *Business) Now(clock func() time.Time) time.Time {
	return clock().In(b.Location())
}
