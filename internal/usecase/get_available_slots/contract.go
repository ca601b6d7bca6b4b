package get_available_slots

import (
	"context"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

// RuleRepository интерфейс репозитория правил доступности
type RuleRepository interface {
	List(ctx context.Context) ([]*domain.AvailabilityRule, error)
}

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	// ListOverlapping возвращает бронирования, пересекающиеся с окном поиска
	ListOverlapping(ctx context.Context, start, end time.Time) ([]*domain.Booking, error)
}

// CalendarProvider интерфейс источника занятости внешних календарей
type CalendarProvider interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]domain.TimeSlot, error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
