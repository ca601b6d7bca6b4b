package cancel_booking

import "errors"

var (
	// ErrBookingNotFound бронирование не найдено
	ErrBookingNotFound = errors.New("cancel_booking: booking not found")

	// ErrEmptyToken пустой токен отмены
	ErrEmptyToken = errors.New("cancel_booking: cancel token is required")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("cancel_booking: internal error")
)
