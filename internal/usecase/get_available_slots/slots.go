package get_available_slots

import (
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/pkg/types"
)

// rulesForDate выбирает правила, действующие в указанный день
// Правила на конкретную дату полностью ЗАМЕНЯЮТ рекуррентные правила этого
// дня недели, а не дополняют их
func rulesForDate(rules []*domain.AvailabilityRule, date time.Time) []*domain.AvailabilityRule {
	dateStr := date.Format(domain.DateFormat)

	specific := make([]*domain.AvailabilityRule, 0)
	for _, rule := range rules {
		if rule.SpecificDate == dateStr {
			specific = append(specific, rule)
		}
	}
	if len(specific) > 0 {
		return specific
	}

	weekday := domain.WeekdayName(date.Weekday())
	recurring := make([]*domain.AvailabilityRule, 0)
	for _, rule := range rules {
		if rule.IsRecurring() && rule.DayOfWeek == weekday {
			recurring = append(recurring, rule)
		}
	}

	return recurring
}

// windowsForDate переводит правила дня в абсолютные интервалы
// Возвращает открытые окна и блокировки раздельно
func windowsForDate(
	dayRules []*domain.AvailabilityRule,
	date time.Time,
	loc *time.Location,
) (open, blocked []domain.TimeSlot, err error) {
	for _, rule := range dayRules {
		start, err := timeOnDate(date, rule.StartTime, loc)
		if err != nil {
			return nil, nil, err
		}
		end, err := timeOnDate(date, rule.EndTime, loc)
		if err != nil {
			return nil, nil, err
		}
		if !start.Before(end) {
			// Пустое или вывернутое окно слотов не даёт
			continue
		}

		window := domain.TimeSlot{Start: start, End: end}
		if rule.IsBlocked {
			blocked = append(blocked, window)
		} else {
			open = append(open, window)
		}
	}

	return open, blocked, nil
}

// tileWindow нарезает окно на слоты фиксированной длительности
// Следующий слот начинается после конца предыдущего плюс буфер
func tileWindow(window domain.TimeSlot, duration, buffer time.Duration) []domain.TimeSlot {
	slots := make([]domain.TimeSlot, 0)

	slotStart := window.Start
	for {
		slotEnd := slotStart.Add(duration)
		if slotEnd.After(window.End) {
			break
		}
		slots = append(slots, domain.TimeSlot{Start: slotStart, End: slotEnd})
		slotStart = slotEnd.Add(buffer)
	}

	return slots
}

// overlapsAny проверяет пересечение слота хотя бы с одним интервалом
func overlapsAny(slot domain.TimeSlot, intervals []domain.TimeSlot) bool {
	for _, interval := range intervals {
		if slot.Overlaps(interval) {
			return true
		}
	}
	return false
}

// timeOnDate совмещает дату и время HH:MM в указанном часовом поясе
func timeOnDate(date time.Time, ts types.TimeString, loc *time.Location) (time.Time, error) {
	minutes, err := ts.Minutes()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		minutes/60, minutes%60, 0, 0,
		loc,
	), nil
}

// startOfDay обнуляет время, оставляя дату в указанном часовом поясе
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
