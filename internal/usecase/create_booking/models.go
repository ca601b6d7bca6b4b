package create_booking

import (
	"github.com/vberezn/schedulebot/internal/domain"
)

// Request параметры создания бронирования
type Request struct {
	// BookingID идентификатор уже завершённого бронирования
	// Заполняется при повторном подтверждении, чтобы не создавать дубликат
	BookingID string

	GuestName      string
	GuestChannel   string
	GuestSenderID  string
	GuestEmail     string
	GuestTimezone  string
	Topic          string
	AttendeeEmails []string
	Slot           domain.TimeSlot
}

// Response результат создания бронирования
type Response struct {
	BookingID   string
	MeetLink    string
	CancelToken string
	Slot        domain.TimeSlot
}
