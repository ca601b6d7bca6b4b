package cancel_booking

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vberezn/schedulebot/internal/api/handlers"
	cancelBooking "github.com/vberezn/schedulebot/internal/usecase/cancel_booking"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgMissingToken     = "токен отмены обязателен"
	msgNotFound         = "бронирование не найдено"
)

type Handler struct {
	useCase CancelBookingUseCase
	logger  Logger
}

func NewHandler(useCase CancelBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle DELETE /api/v1/bookings/{bookingId}
// Владельческая отмена по ID
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookingID := vars["bookingId"]
	if bookingID == "" {
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	h.cancel(w, r, &cancelBooking.Request{BookingID: bookingID}, "DELETE /bookings/{id}")
}

// HandleByToken POST /api/v1/cancel?token={cancelToken}
// Гостевая отмена по секретному токену из подтверждения
func (h *Handler) HandleByToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		handlers.RespondBadRequest(w, msgMissingToken)
		return
	}

	h.cancel(w, r, &cancelBooking.Request{CancelToken: token}, "POST /cancel")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request, req *cancelBooking.Request, op string) {
	result, err := h.useCase.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, cancelBooking.ErrBookingNotFound):
			h.logger.Warn("%s - Booking not found", op)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, cancelBooking.ErrEmptyToken):
			handlers.RespondBadRequest(w, msgMissingToken)

		default:
			h.logger.Error("%s - Failed to cancel booking: %v", op, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("%s - Booking cancelled successfully: booking_id=%s", op, result.Booking.ID)
	handlers.RespondJSON(w, http.StatusOK, nil)
}
