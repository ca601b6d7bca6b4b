package models

import (
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

// BookingResponse модель бронирования для владельческого API
// Токен отмены наружу не отдается
type BookingResponse struct {
	ID             string   `json:"id"`
	GuestName      string   `json:"guestName"`
	GuestChannel   string   `json:"guestChannel"`
	GuestEmail     string   `json:"guestEmail"`
	GuestTimezone  string   `json:"guestTimezone,omitempty"`
	Topic          string   `json:"topic,omitempty"`
	AttendeeEmails []string `json:"attendeeEmails,omitempty"`
	SlotStart      string   `json:"slotStart"` // RFC3339
	SlotEnd        string   `json:"slotEnd"`   // RFC3339
	Status         string   `json:"status"`
	MeetLink       string   `json:"meetLink,omitempty"`
	CreatedAt      string   `json:"createdAt"`
}

// BookingListResponse список бронирований
type BookingListResponse struct {
	Bookings []*BookingResponse `json:"bookings"`
	Total    int                `json:"total"`
}

// FromDomainBooking конвертирует доменную модель в ответ API
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:             b.ID,
		GuestName:      b.GuestName,
		GuestChannel:   b.GuestChannel,
		GuestEmail:     b.GuestEmail,
		GuestTimezone:  b.GuestTimezone,
		Topic:          b.Topic,
		AttendeeEmails: b.AttendeeEmails,
		SlotStart:      b.Slot.Start.Format(time.RFC3339),
		SlotEnd:        b.Slot.End.Format(time.RFC3339),
		Status:         string(b.Status),
		MeetLink:       b.MeetLink,
		CreatedAt:      b.CreatedAt.Format(time.RFC3339),
	}
}

// FromDomainBookingList конвертирует список доменных моделей
func FromDomainBookingList(bookings []*domain.Booking) *BookingListResponse {
	result := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, FromDomainBooking(b))
	}
	return &BookingListResponse{
		Bookings: result,
		Total:    len(result),
	}
}
