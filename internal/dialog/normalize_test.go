package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/reception_core/internal/model"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func TestAsClockTime(t *testing.T) {
	cases := []struct {
		raw    string
		hour   int
		minute int
		ok     bool
	}{
		{"09:00", 9, 0, true},
		{"23:59", 23, 59, true},
		{"00:00", 0, 0, true},
		{" 14:30 ", 14, 30, true},
		{"24:00", 0, 0, false},
		{"9:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"полдень", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tc := range cases {
		h, m, ok := AsClockTime(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw=%q", tc.raw)
		if tc.ok {
			assert.Equal(t, tc.hour, h, "raw=%q", tc.raw)
			assert.Equal(t, tc.minute, m, "raw=%q", tc.raw)
		}
	}
}

func TestAsCalendarDate(t *testing.T) {
	d, ok := AsCalendarDate("2026-03-09")
	require.True(t, ok)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 9, d.Day())

	_, ok = AsCalendarDate("09.03.2026")
	assert.False(t, ok)
	_, ok = AsCalendarDate("2026-13-01")
	assert.False(t, ok)
}

func TestResolveRelativeDate(t *testing.T) {
	loc := berlin(t)
	// среда
	now := time.Date(2026, 3, 11, 15, 30, 0, 0, loc)

	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"сегодня", "2026-03-11", true},
		{"завтра", "2026-03-12", true},
		{"послезавтра", "2026-03-13", true},
		{"в пятницу", "2026-03-13", true},
		{"в субботу", "2026-03-14", true},
		{"понедельник", "2026-03-16", true},
		// сегодняшний день недели означает сегодня, не следующую неделю
		{"в среду", "2026-03-11", true},
		{"tomorrow", "2026-03-12", true},
		{"on friday", "2026-03-13", true},
		{"когда-нибудь", "", false},
	}

	for _, tc := range cases {
		got, ok := ResolveRelativeDate(tc.raw, now)
		assert.Equal(t, tc.ok, ok, "raw=%q", tc.raw)
		if tc.ok {
			assert.Equal(t, tc.want, got.Format("2006-01-02"), "raw=%q", tc.raw)
			assert.Equal(t, loc, got.Location(), "raw=%q", tc.raw)
		}
	}
}

func TestNormalizeDate_StrictFormatWins(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, loc)

	got, ok := NormalizeDate("2026-04-01", now)
	require.True(t, ok)
	assert.Equal(t, "2026-04-01", got.Format("2006-01-02"))
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 0, got.Hour())
}

func TestMatchService(t *testing.T) {
	services := []*model.Service{
		{ID: 1, Title: "Стрижка мужская", DurationMin: 30},
		{ID: 2, Title: "Стрижка женская", DurationMin: 60},
		{ID: 3, Title: "Маникюр", DurationMin: 45},
	}

	assert.Equal(t, int64(3), MatchService("маникюр", services).ID)
	assert.Equal(t, int64(3), MatchService("Маникюр классический", services).ID)
	// первое совпадение выигрывает
	assert.Equal(t, int64(1), MatchService("стрижка", services).ID)
	assert.Nil(t, MatchService("массаж", services))
	assert.Nil(t, MatchService("", services))
}
