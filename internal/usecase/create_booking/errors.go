package create_booking

import "errors"

var (
	// ErrInvalidSlot невалидный интервал встречи
	ErrInvalidSlot = errors.New("create_booking: invalid slot")

	// ErrSlotInPast слот уже начался
	ErrSlotInPast = errors.New("create_booking: slot is in the past")

	// ErrGuestIncomplete не собраны обязательные данные гостя
	ErrGuestIncomplete = errors.New("create_booking: guest name and email are required")

	// ErrInvalidEmail невалидный email
	ErrInvalidEmail = errors.New("create_booking: invalid email")

	// ErrTooManyAttendees превышен лимит дополнительных участников
	ErrTooManyAttendees = errors.New("create_booking: too many attendee emails")

	// ErrSlotTaken слот занят другим бронированием
	ErrSlotTaken = errors.New("create_booking: slot already taken")

	// ErrCalendarFailed не удалось создать событие в календаре
	ErrCalendarFailed = errors.New("create_booking: failed to create calendar event")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("create_booking: internal error")
)
