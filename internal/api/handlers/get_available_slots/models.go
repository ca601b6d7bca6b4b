package get_available_slots

import (
	"time"

	getAvailableSlots "github.com/vberezn/schedulebot/internal/usecase/get_available_slots"
)

// SlotResponse HTTP model одного слота
type SlotResponse struct {
	Start string `json:"start"` // RFC3339
	End   string `json:"end"`   // RFC3339
	Label string `json:"label"` // человекочитаемое описание в запрошенном поясе
}

// SlotsResponse HTTP response model
type SlotsResponse struct {
	Slots    []SlotResponse `json:"slots"`
	Degraded bool           `json:"degraded"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response, loc *time.Location) *SlotsResponse {
	slots := make([]SlotResponse, 0, len(resp.Slots))
	for _, slot := range resp.Slots {
		slots = append(slots, SlotResponse{
			Start: slot.Start.Format(time.RFC3339),
			End:   slot.End.Format(time.RFC3339),
			Label: slot.FormatInLocation(loc),
		})
	}
	return &SlotsResponse{
		Slots:    slots,
		Degraded: resp.Degraded,
	}
}
