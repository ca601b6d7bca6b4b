package domain

// IncomingMessage is the channel-agnostic inbound envelope delivered by a
// transport adapter.
type IncomingMessage struct {
	Channel    string `validate:"required"`
	SenderID   string `validate:"required"`
	SenderName string
	Text       string `validate:"required"`
}

// OutgoingMessage is the channel-agnostic response returned to the transport.
type OutgoingMessage struct {
	Text     string
	Metadata ResponseMetadata
}

// ResponseMetadata carries structured results alongside the response text.
type ResponseMetadata struct {
	BookingID string
	MeetLink  string
}
