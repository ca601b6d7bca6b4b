package get_available_slots

import "errors"

var (
	// ErrInvalidDuration невалидная длительность встречи
	ErrInvalidDuration = errors.New("get_available_slots: meeting duration must be positive")

	// ErrInvalidBuffer невалидный буфер между встречами
	ErrInvalidBuffer = errors.New("get_available_slots: buffer must not be negative")

	// ErrInvalidHorizon невалидный горизонт бронирования
	ErrInvalidHorizon = errors.New("get_available_slots: days ahead must be positive")

	// ErrCalendarUnavailable календарь недоступен в строгом режиме
	ErrCalendarUnavailable = errors.New("get_available_slots: calendar unavailable")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("get_available_slots: internal error")
)
