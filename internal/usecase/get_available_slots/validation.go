package get_available_slots

import (
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

// applyDefaults заполняет нулевые поля запроса дефолтами владельца
func applyDefaults(req *Request) {
	if req.DurationMinutes == 0 {
		req.DurationMinutes = domain.DefaultMeetingDurationMinutes
	}
	if req.BufferMinutes == 0 {
		req.BufferMinutes = domain.DefaultBufferMinutes
	}
	if req.MinNoticeHours == 0 {
		req.MinNoticeHours = domain.DefaultMinNoticeHours
	}
	if req.MaxDaysAhead == 0 {
		req.MaxDaysAhead = domain.DefaultMaxDaysAhead
	}
	if req.Location == nil {
		req.Location = time.Local
	}
}

// validateRequest проверяет параметры после подстановки дефолтов
func validateRequest(req *Request) error {
	if req.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if req.BufferMinutes < 0 {
		return ErrInvalidBuffer
	}
	if req.MaxDaysAhead <= 0 {
		return ErrInvalidHorizon
	}
	return nil
}
