package get_available_slots

import (
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

// Request параметры расчёта доступных слотов
// Нулевые значения заменяются дефолтами владельца
type Request struct {
	// DurationMinutes длительность встречи
	DurationMinutes int
	// BufferMinutes пауза после каждой встречи
	BufferMinutes int
	// MinNoticeHours минимальный срок до начала слота
	MinNoticeHours int
	// MaxDaysAhead горизонт поиска в днях
	MaxDaysAhead int
	// Location часовой пояс владельца, в котором заданы правила
	Location *time.Location
	// Strict требует свежей занятости календаря: при его недоступности
	// возвращается ошибка вместо деградации
	Strict bool
}

// Response результат расчёта
type Response struct {
	// Slots доступные слоты в хронологическом порядке
	Slots []domain.TimeSlot
	// Degraded выставлен, если занятость календаря получить не удалось
	// и слоты рассчитаны только по правилам и локальным бронированиям
	Degraded bool
}
