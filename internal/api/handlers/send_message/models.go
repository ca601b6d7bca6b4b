package send_message

import (
	"github.com/vberezn/schedulebot/internal/domain"
)

// SendMessageRequest HTTP request model
type SendMessageRequest struct {
	Channel    string `json:"channel"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Text       string `json:"text"`
}

// MessageResponse HTTP response model
type MessageResponse struct {
	Text      string `json:"text"`
	BookingID string `json:"bookingId,omitempty"`
	MeetLink  string `json:"meetLink,omitempty"`
}

// ToIncomingMessage конвертирует HTTP запрос в доменную модель
func (r *SendMessageRequest) ToIncomingMessage() *domain.IncomingMessage {
	return &domain.IncomingMessage{
		Channel:    r.Channel,
		SenderID:   r.SenderID,
		SenderName: r.SenderName,
		Text:       r.Text,
	}
}

// FromOutgoingMessage конвертирует ответ движка в HTTP response
func FromOutgoingMessage(out *domain.OutgoingMessage) *MessageResponse {
	return &MessageResponse{
		Text:      out.Text,
		BookingID: out.Metadata.BookingID,
		MeetLink:  out.Metadata.MeetLink,
	}
}
