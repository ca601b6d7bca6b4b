package get_available_slots

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vberezn/schedulebot/internal/api/handlers"
	getAvailableSlots "github.com/vberezn/schedulebot/internal/usecase/get_available_slots"
)

const (
	msgInvalidDuration     = "некорректная длительность встречи"
	msgInvalidBuffer       = "некорректный буфер между встречами"
	msgInvalidHorizon      = "некорректный горизонт бронирования"
	msgInvalidTimezone     = "некорректный часовой пояс"
	msgCalendarUnavailable = "календарь недоступен"
)

type Handler struct {
	useCase  GetAvailableSlotsUseCase
	ownerLoc *time.Location
	logger   Logger
}

func NewHandler(useCase GetAvailableSlotsUseCase, ownerLoc *time.Location, logger Logger) *Handler {
	return &Handler{
		useCase:  useCase,
		ownerLoc: ownerLoc,
		logger:   logger,
	}
}

// Handle GET /api/v1/slots
// Query params (все опциональны): durationMinutes, bufferMinutes, minNoticeHours,
// maxDaysAhead, timezone (IANA), strict (bool)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	useCaseReq := &getAvailableSlots.Request{Location: h.ownerLoc}

	var parseErr string
	useCaseReq.DurationMinutes, parseErr = intParam(query.Get("durationMinutes"), msgInvalidDuration)
	if parseErr != "" {
		handlers.RespondBadRequest(w, parseErr)
		return
	}
	useCaseReq.BufferMinutes, parseErr = intParam(query.Get("bufferMinutes"), msgInvalidBuffer)
	if parseErr != "" {
		handlers.RespondBadRequest(w, parseErr)
		return
	}
	useCaseReq.MinNoticeHours, parseErr = intParam(query.Get("minNoticeHours"), msgInvalidHorizon)
	if parseErr != "" {
		handlers.RespondBadRequest(w, parseErr)
		return
	}
	useCaseReq.MaxDaysAhead, parseErr = intParam(query.Get("maxDaysAhead"), msgInvalidHorizon)
	if parseErr != "" {
		handlers.RespondBadRequest(w, parseErr)
		return
	}

	displayLoc := h.ownerLoc
	if tz := query.Get("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			h.logger.Warn("GET /slots - Invalid timezone %q: %v", tz, err)
			handlers.RespondBadRequest(w, msgInvalidTimezone)
			return
		}
		displayLoc = loc
	}

	useCaseReq.Strict = query.Get("strict") == "true"

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, getAvailableSlots.ErrInvalidDuration):
			handlers.RespondBadRequest(w, msgInvalidDuration)

		case errors.Is(err, getAvailableSlots.ErrInvalidBuffer):
			handlers.RespondBadRequest(w, msgInvalidBuffer)

		case errors.Is(err, getAvailableSlots.ErrInvalidHorizon):
			handlers.RespondBadRequest(w, msgInvalidHorizon)

		case errors.Is(err, getAvailableSlots.ErrCalendarUnavailable):
			h.logger.Warn("GET /slots - Calendar unavailable in strict mode")
			handlers.RespondError(w, http.StatusServiceUnavailable, msgCalendarUnavailable)

		default:
			h.logger.Error("GET /slots - Failed to get slots: %v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /slots - Slots retrieved successfully: slots_count=%d, degraded=%t",
		len(result.Slots), result.Degraded)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result, displayLoc))
}

func intParam(raw, msg string) (int, string) {
	if raw == "" {
		return 0, ""
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, msg
	}
	return v, ""
}
