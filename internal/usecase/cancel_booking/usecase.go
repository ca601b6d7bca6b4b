package cancel_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/vberezn/schedulebot/internal/calendar"
	"github.com/vberezn/schedulebot/internal/domain"
	bookingsRepo "github.com/vberezn/schedulebot/internal/infra/storage/bookings"
)

// UseCase use case отмены бронирования
type UseCase struct {
	bookingRepo BookingRepository
	calendar    CalendarProvider
	logger      Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(bookingRepo BookingRepository, cal CalendarProvider, logger Logger) *UseCase {
	return &UseCase{
		bookingRepo: bookingRepo,
		calendar:    cal,
		logger:      logger,
	}
}

// Request параметры отмены
// Заполняется либо токен (отмена гостем по ссылке), либо id (отмена владельцем)
type Request struct {
	CancelToken string
	BookingID   string
}

// Response результат отмены
type Response struct {
	Booking *domain.Booking
}

// Execute отменяет бронирование: удаляет событие из book-календаря и строку из БД
// Отсутствие события в календаре не ошибка, оно могло быть удалено вручную
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	booking, err := uc.find(ctx, req)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("CancelBooking: cancelling booking id=%s, slot=%s", booking.ID, booking.Slot)

	if booking.CalendarEventID != "" {
		err := uc.calendar.DeleteEvent(ctx, booking.CalendarEventID)
		if err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
			uc.logger.Error("CancelBooking: failed to delete calendar event id=%s: %v",
				booking.CalendarEventID, err)
			return nil, fmt.Errorf("%w: failed to delete calendar event: %v", ErrInternal, err)
		}
	}

	if err := uc.bookingRepo.Delete(ctx, booking.ID); err != nil {
		if errors.Is(err, bookingsRepo.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		uc.logger.Error("CancelBooking: failed to delete booking id=%s: %v", booking.ID, err)
		return nil, fmt.Errorf("%w: failed to delete booking: %v", ErrInternal, err)
	}

	uc.logger.Info("CancelBooking: successfully cancelled booking id=%s", booking.ID)

	return &Response{Booking: booking}, nil
}

func (uc *UseCase) find(ctx context.Context, req *Request) (*domain.Booking, error) {
	switch {
	case req.BookingID != "":
		booking, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
		if err != nil {
			if errors.Is(err, bookingsRepo.ErrBookingNotFound) {
				uc.logger.Warn("CancelBooking: booking id=%s not found", req.BookingID)
				return nil, ErrBookingNotFound
			}
			return nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
		}
		return booking, nil
	case req.CancelToken != "":
		booking, err := uc.bookingRepo.GetByCancelToken(ctx, req.CancelToken)
		if err != nil {
			if errors.Is(err, bookingsRepo.ErrBookingNotFound) {
				uc.logger.Warn("CancelBooking: no booking for cancel token")
				return nil, ErrBookingNotFound
			}
			return nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
		}
		return booking, nil
	default:
		return nil, ErrEmptyToken
	}
}
