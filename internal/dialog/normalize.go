package dialog

import (
	"regexp"
	"strings"
	"time"

	"github.com/Freeeeeet/reception_core/internal/model"
)

// Нормализация слотов. Все функции чистые и никогда не возвращают ошибку:
// непригодное значение — это "слот всё ещё не заполнен", а не авария.

var clockTimeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// AsCalendarDate валидирует строгий формат YYYY-MM-DD.
func AsCalendarDate(raw string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AsClockTime валидирует строгий формат HH:MM (24 часа).
func AsClockTime(raw string) (hour, minute int, ok bool) {
	m := clockTimeRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, 0, false
	}
	// Регулярка уже гарантирует диапазоны, Atoi не может упасть.
	hour = int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	minute = int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	return hour, minute, true
}

var relativeDays = map[string]int{
	"сегодня":      0,
	"today":        0,
	"завтра":       1,
	"tomorrow":     1,
	"послезавтра":  2,
}

var weekdayWords = map[string]time.Weekday{
	"воскресенье": time.Sunday,
	"понедельник": time.Monday,
	"вторник":     time.Tuesday,
	"среда":       time.Wednesday,
	"среду":       time.Wednesday,
	"четверг":     time.Thursday,
	"пятница":     time.Friday,
	"пятницу":     time.Friday,
	"суббота":     time.Saturday,
	"субботу":     time.Saturday,
	"sunday":      time.Sunday,
	"monday":      time.Monday,
	"tuesday":     time.Tuesday,
	"wednesday":   time.Wednesday,
	"thursday":    time.Thursday,
	"friday":      time.Friday,
	"saturday":    time.Saturday,
}

// ResolveRelativeDate превращает относительную дату ("завтра", название дня
// недели) в конкретный день относительно now. Название дня недели означает
// ближайший такой день; сегодняшний день недели — это сегодня.
func ResolveRelativeDate(raw string, now time.Time) (time.Time, bool) {
	word := strings.ToLower(strings.TrimSpace(raw))
	word = strings.TrimPrefix(word, "в ")
	word = strings.TrimPrefix(word, "во ")
	word = strings.TrimPrefix(word, "on ")

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if delta, ok := relativeDays[word]; ok {
		return today.AddDate(0, 0, delta), true
	}

	if wd, ok := weekdayWords[word]; ok {
		delta := (int(wd) - int(now.Weekday()) + 7) % 7
		return today.AddDate(0, 0, delta), true
	}

	return time.Time{}, false
}

// NormalizeDate приводит дату из классификатора к полуночи нужного дня
// в таймзоне now: сначала строгий формат, затем относительные слова.
func NormalizeDate(raw string, now time.Time) (time.Time, bool) {
	if t, ok := AsCalendarDate(raw); ok {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), true
	}
	return ResolveRelativeDate(raw, now)
}

// MatchService ищет услугу по свободному названию: подстрока без учёта
// регистра в любую сторону, первое совпадение выигрывает, без ранжирования.
func MatchService(raw string, services []*model.Service) *model.Service {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return nil
	}

	for _, svc := range services {
		title := strings.ToLower(svc.Title)
		if strings.Contains(title, needle) || strings.Contains(needle, title) {
			return svc
		}
	}

	return nil
}
