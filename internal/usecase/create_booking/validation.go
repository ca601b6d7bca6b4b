package create_booking

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vberezn/schedulebot/internal/domain"
)

var validate = validator.New()

// validateRequest проверяет параметры бронирования
func validateRequest(req *Request, now time.Time) error {
	if req.Slot.IsZero() || !req.Slot.Start.Before(req.Slot.End) {
		return ErrInvalidSlot
	}
	if req.Slot.Start.Before(now) {
		return ErrSlotInPast
	}
	if req.GuestName == "" || req.GuestEmail == "" {
		return ErrGuestIncomplete
	}
	if err := validate.Var(req.GuestEmail, "email"); err != nil {
		return ErrInvalidEmail
	}
	if len(req.AttendeeEmails) > domain.MaxAttendeeEmails {
		return ErrTooManyAttendees
	}
	for _, email := range req.AttendeeEmails {
		if err := validate.Var(email, "email"); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}
