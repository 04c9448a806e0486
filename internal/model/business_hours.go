package model

// BusinessHours — график работы на один день недели.
//
// Нумерация дней недели везде совпадает с time.Weekday:
// 0 = воскресенье ... 6 = суббота. День недели всегда вычисляется
// в таймзоне бизнеса, не в UTC. Отсутствующая строка графика
// трактуется как выходной.
type BusinessHours struct {
	BusinessID int64 `json:"business_id"`
	Weekday    int   `json:"weekday"`     // 0-6, как time.Weekday
	OpenMin    int   `json:"open_min"`    // минут от полуночи
	CloseMin   int   `json:"close_min"`   // минут от полуночи
	Closed     bool  `json:"closed"`
}
