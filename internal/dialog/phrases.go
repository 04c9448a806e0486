package dialog

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/reception_core/internal/model"
)

// Реплики ресепшиониста. Телефонный слой озвучивает их как есть,
// поэтому формулировки короткие и однозначные.

func questionFor(missing string) string {
	switch missing {
	case model.SlotService:
		return "На какую услугу вы хотите записаться?"
	case model.SlotDate:
		return "На какую дату вас записать?"
	case model.SlotTime:
		return "На какое время вас записать?"
	case model.SlotStaff:
		return "К какому специалисту вас записать?"
	case model.SlotCustomerName:
		return "Подскажите, пожалуйста, ваше имя."
	case model.SlotCustomer:
		return "Назовите, пожалуйста, имя или номер телефона, на который оформлена запись."
	}
	return "Уточните, пожалуйста."
}

func serviceNotFoundQuestion(raw string) string {
	return fmt.Sprintf("Не нашла услугу «%s». На какую услугу вы хотите записаться?", raw)
}

func staffNotFoundQuestion(raw string) string {
	return fmt.Sprintf("Не нашла специалиста с именем «%s». К кому вас записать?", raw)
}

func closedDayQuestion() string {
	return "В этот день мы не работаем. На какую дату вас записать?"
}

func busyTimeQuestion(suggestions []string) string {
	if len(suggestions) == 0 {
		return "К сожалению, это время занято, и свободных окон в этот день больше нет. На какое время вас записать?"
	}
	return fmt.Sprintf("К сожалению, это время занято. Свободно: %s. На какое время вас записать?",
		strings.Join(suggestions, ", "))
}

func outsideHoursQuestion(suggestions []string) string {
	if len(suggestions) == 0 {
		return "В это время мы уже не работаем. На какое время вас записать?"
	}
	return fmt.Sprintf("В это время мы не работаем. Свободно: %s. На какое время вас записать?",
		strings.Join(suggestions, ", "))
}

func pastTimeQuestion(suggestions []string) string {
	if len(suggestions) == 0 {
		return "Это время уже прошло. На какое время вас записать?"
	}
	return fmt.Sprintf("Это время уже прошло. Свободно: %s. На какое время вас записать?",
		strings.Join(suggestions, ", "))
}

func formatLocalTimes(slots []time.Time, loc *time.Location) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.In(loc).Format("15:04"))
	}
	return out
}

func previewText(serviceTitle, staffName string, start time.Time, loc *time.Location) string {
	local := start.In(loc)
	if staffName != "" {
		return fmt.Sprintf("%s, %s в %s, специалист %s",
			serviceTitle, local.Format("02.01.2006"), local.Format("15:04"), staffName)
	}
	return fmt.Sprintf("%s, %s в %s",
		serviceTitle, local.Format("02.01.2006"), local.Format("15:04"))
}

func confirmPhrase(preview string) string {
	return fmt.Sprintf("Записываю: %s. Подтверждаете?", preview)
}
