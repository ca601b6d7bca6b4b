package create_booking

import (
	"context"
	"time"

	"github.com/vberezn/schedulebot/internal/calendar"
	"github.com/vberezn/schedulebot/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	// CountOverlapping подсчитывает бронирования, пересекающиеся с интервалом
	// Вызывается только внутри сериализуемой транзакции
	CountOverlapping(ctx context.Context, start, end time.Time) (int, error)
	// CreatePlaceholder резервирует интервал плейсхолдером
	CreatePlaceholder(ctx context.Context, id string, slot domain.TimeSlot) error
	// Finalize дополняет плейсхолдер данными гостя и события
	Finalize(ctx context.Context, booking *domain.Booking) error
	// Release снимает резерв с интервала
	Release(ctx context.Context, id string) error
	// GetByID получает бронирование по id
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

// CalendarProvider интерфейс book-календаря
type CalendarProvider interface {
	CreateEvent(ctx context.Context, req *calendar.EventRequest) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// TransactionManager интерфейс менеджера транзакций
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
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
