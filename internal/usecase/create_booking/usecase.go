package create_booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vberezn/schedulebot/internal/calendar"
	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/pkg/txmanager"
)

// UseCase use case для создания бронирования
type UseCase struct {
	bookingRepo  BookingRepository
	calendar     CalendarProvider
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	cal CalendarProvider,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		calendar:     cal,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет протокол резервирования в три фазы
//
// Фаза 1 (сериализуемая транзакция): проверка пересечений и вставка
// плейсхолдера, удерживающего интервал. Из двух гонящихся подтверждений
// одного слота ровно одно проходит эту фазу.
// Фаза 2 (вне транзакции): создание события во внешнем календаре.
// Медленный сетевой вызов не держит блокировки БД.
// Фаза 3: финализация плейсхолдера либо его освобождение при сбое календаря.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: guest=%q, slot=%s", req.GuestName, req.Slot)

	// Повторное подтверждение уже завершённого бронирования
	if req.BookingID != "" {
		existing, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
		if err == nil && existing.IsFinalized() {
			uc.logger.Info("CreateBooking: booking id=%s already finalized, returning as is", existing.ID)
			return &Response{
				BookingID:   existing.ID,
				MeetLink:    existing.MeetLink,
				CancelToken: existing.CancelToken,
				Slot:        existing.Slot,
			}, nil
		}
	}

	now := uc.timeProvider.Now()
	if err := validateRequest(req, now); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	bookingID := uuid.NewString()

	// Фаза 1: резервирование интервала
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		count, err := uc.bookingRepo.CountOverlapping(txCtx, req.Slot.Start, req.Slot.End)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to count overlapping bookings: %v", err)
			return fmt.Errorf("%w: failed to count overlapping bookings: %v", ErrInternal, err)
		}
		if count > 0 {
			uc.logger.Warn("CreateBooking: slot %s already taken (%d overlapping)", req.Slot, count)
			return ErrSlotTaken
		}

		if err := uc.bookingRepo.CreatePlaceholder(txCtx, bookingID, req.Slot); err != nil {
			uc.logger.Error("CreateBooking: failed to create placeholder: %v", err)
			return fmt.Errorf("%w: failed to create placeholder: %v", ErrInternal, err)
		}

		return nil
	})
	if err != nil {
		// Проигрыш конфликта сериализации означает, что параллельное
		// бронирование того же интервала уже зафиксировалось
		if txmanager.IsSerializationFailure(err) {
			uc.logger.Warn("CreateBooking: lost serialization race for slot %s: %v", req.Slot, err)
			return nil, fmt.Errorf("%w: %v", ErrSlotTaken, err)
		}
		return nil, err
	}

	// Фаза 2: событие во внешнем календаре
	attendees := append([]string{req.GuestEmail}, req.AttendeeEmails...)
	event, err := uc.calendar.CreateEvent(ctx, &calendar.EventRequest{
		Summary:        fmt.Sprintf("Meeting: %s", req.GuestName),
		Description:    req.Topic,
		Slot:           req.Slot,
		AttendeeEmails: attendees,
		WithMeetLink:   true,
	})
	if err != nil {
		uc.logger.Error("CreateBooking: calendar event creation failed, releasing slot: %v", err)
		if releaseErr := uc.bookingRepo.Release(ctx, bookingID); releaseErr != nil {
			uc.logger.Error("CreateBooking: failed to release placeholder id=%s: %v", bookingID, releaseErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrCalendarFailed, err)
	}

	// Фаза 3: финализация
	booking := &domain.Booking{
		ID:              bookingID,
		GuestName:       req.GuestName,
		GuestChannel:    req.GuestChannel,
		GuestSenderID:   req.GuestSenderID,
		GuestEmail:      req.GuestEmail,
		GuestTimezone:   req.GuestTimezone,
		Topic:           req.Topic,
		AttendeeEmails:  req.AttendeeEmails,
		Slot:            req.Slot,
		CalendarEventID: event.ID,
		MeetLink:        event.MeetLink,
		CancelToken:     uuid.NewString(),
	}

	if err := uc.bookingRepo.Finalize(ctx, booking); err != nil {
		uc.logger.Error("CreateBooking: failed to finalize booking id=%s, compensating: %v", bookingID, err)
		if delErr := uc.calendar.DeleteEvent(ctx, event.ID); delErr != nil {
			uc.logger.Error("CreateBooking: failed to delete calendar event id=%s: %v", event.ID, delErr)
		}
		if releaseErr := uc.bookingRepo.Release(ctx, bookingID); releaseErr != nil {
			uc.logger.Error("CreateBooking: failed to release placeholder id=%s: %v", bookingID, releaseErr)
		}
		return nil, fmt.Errorf("%w: failed to finalize booking: %v", ErrInternal, err)
	}

	uc.logger.Info("CreateBooking: successfully created booking id=%s, slot=%s", bookingID, req.Slot)

	return &Response{
		BookingID:   booking.ID,
		MeetLink:    booking.MeetLink,
		CancelToken: booking.CancelToken,
		Slot:        booking.Slot,
	}, nil
}
