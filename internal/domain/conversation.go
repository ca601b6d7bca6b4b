package domain

import "time"

// ConversationState is the closed set of scheduling conversation states.
// Transitions are driven only by successful tool executions, never by free-text
// pattern matching alone.
type ConversationState string

const (
	StateGreeting       ConversationState = "greeting"
	StateCollectingInfo ConversationState = "collecting_info"
	StateConfirmation   ConversationState = "confirmation"
	StateBooked         ConversationState = "booked"
	StateCancelled      ConversationState = "cancelled"
)

// ConversationMode distinguishes the owner managing their schedule from a guest
// booking a meeting.
type ConversationMode string

const (
	ModeOwner ConversationMode = "owner"
	ModeGuest ConversationMode = "guest"
)

// Message is a single entry of the persisted conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Conversation tracks per-sender scheduling state. There is exactly one
// conversation per sender_id at a time; it is overwritten on every turn and
// re-created on reset (/start, /cancel).
type Conversation struct {
	SenderID string
	Channel  string
	Mode     ConversationMode
	State    ConversationState

	GuestName      string
	GuestEmail     string
	GuestTopic     string
	GuestTimezone  string // IANA zone resolved from the guest's city, if any
	AttendeeEmails []string
	SelectedSlot   *TimeSlot

	// BookingID is set once the conversation reaches the booked state. A
	// repeated confirm on a booked conversation returns this booking instead
	// of creating a duplicate.
	BookingID string

	Messages []Message

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversation creates a fresh conversation in the greeting state.
func NewConversation(senderID, channel string, mode ConversationMode, now time.Time) *Conversation {
	return &Conversation{
		SenderID:  senderID,
		Channel:   channel,
		Mode:      mode,
		State:     StateGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a history entry, dropping the oldest entries once the
// history exceeds MaxHistoryMessages. The cap bounds both storage and the
// model-context size.
func (c *Conversation) AddMessage(role, content string, now time.Time) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
	if len(c.Messages) > MaxHistoryMessages {
		c.Messages = c.Messages[len(c.Messages)-MaxHistoryMessages:]
	}
	c.UpdatedAt = now
}

// ClearSelection drops the selected slot and rolls the state back to
// collecting info. Used when a reservation loses the race or a downstream step
// fails, so the guest can retry without restarting.
func (c *Conversation) ClearSelection() {
	c.SelectedSlot = nil
	c.State = StateCollectingInfo
}
