package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

var (
	// ErrEventNotFound возвращается, когда событие отсутствует в календаре
	ErrEventNotFound = errors.New("calendar: event not found")

	// ErrProviderUnavailable возвращается, когда календарь недоступен
	ErrProviderUnavailable = errors.New("calendar: provider unavailable")
)

// Event созданное в календаре событие
type Event struct {
	ID       string
	MeetLink string
}

// EventRequest параметры создаваемого события
type EventRequest struct {
	Summary        string
	Description    string
	Slot           domain.TimeSlot
	AttendeeEmails []string
	// WithMeetLink запрашивает создание видеовстречи для события
	WithMeetLink bool
}

// Provider единый интерфейс внешнего календаря
// Реализации: Google Calendar и статический провайдер для тестов
type Provider interface {
	// Name возвращает человекочитаемое имя календаря для логов
	Name() string

	// BusyIntervals возвращает занятые интервалы в окне [from, to)
	BusyIntervals(ctx context.Context, from, to time.Time) ([]domain.TimeSlot, error)

	// CreateEvent создает событие и возвращает его идентификатор
	CreateEvent(ctx context.Context, req *EventRequest) (*Event, error)

	// DeleteEvent удаляет событие по идентификатору
	DeleteEvent(ctx context.Context, eventID string) error
}
