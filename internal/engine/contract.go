package engine

import (
	"context"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/internal/usecase/create_booking"
	"github.com/vberezn/schedulebot/internal/usecase/get_available_slots"
)

// ConversationRepository интерфейс репозитория диалогов
type ConversationRepository interface {
	Get(ctx context.Context, senderID string) (*domain.Conversation, error)
	Upsert(ctx context.Context, conv *domain.Conversation) error
	Delete(ctx context.Context, senderID string) error
}

// RuleRepository интерфейс репозитория правил доступности
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error)
	List(ctx context.Context) ([]*domain.AvailabilityRule, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context, dayOfWeek, specificDate string) (int64, error)
}

// SlotsUseCase интерфейс use case расчёта доступных слотов
type SlotsUseCase interface {
	Execute(ctx context.Context, req *get_available_slots.Request) (*get_available_slots.Response, error)
}

// BookingUseCase интерфейс use case создания бронирования
type BookingUseCase interface {
	Execute(ctx context.Context, req *create_booking.Request) (*create_booking.Response, error)
}

// Guard интерфейс проверки входящих сообщений
type Guard interface {
	Check(senderID, text string, now time.Time) error
}

// BookingNotice уведомление владельцу о новом бронировании
type BookingNotice struct {
	BookingID  string
	GuestName  string
	GuestEmail string
	Topic      string
	MeetLink   string
	Slot       domain.TimeSlot
}

// Notifier интерфейс уведомлений владельца
// Внедряется сеттером после создания движка: отправитель становится известен
// только после подключения транспорта
type Notifier interface {
	NotifyNewBooking(ctx context.Context, notice *BookingNotice) error
}

// Metrics интерфейс счётчиков движка
type Metrics interface {
	IncMessage(channel, mode string)
	IncRejection(reason string)
	IncToolExecution(tool string)
	IncBooking()
	IncLostRace()
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
