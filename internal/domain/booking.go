package domain

import "time"

// BookingStatus represents the lifecycle state of a booking row.
type BookingStatus string

const (
	// StatusReserved is a placeholder row holding only the interval. It blocks
	// overlap checks for concurrent reservations but carries no guest detail yet.
	StatusReserved BookingStatus = "reserved"
	// StatusConfirmed is a finalized booking with full guest and meeting detail.
	StatusConfirmed BookingStatus = "confirmed"
)

// Booking represents a reserved or confirmed meeting.
//
// Lifecycle: reserved (placeholder, holds the slot against concurrent
// confirmations) → confirmed (finalized with guest detail) → removed on release
// (external event creation failed) or cancellation. A reserved-but-never-finalized
// row still counts as a held slot for overlap purposes.
type Booking struct {
	ID             string
	GuestName      string
	GuestChannel   string
	GuestSenderID  string
	GuestEmail     string
	GuestTimezone  string // IANA zone, empty when unknown
	Topic          string
	AttendeeEmails []string
	Slot           TimeSlot
	Status         BookingStatus

	CalendarEventID string
	MeetLink        string

	// CancelToken is the guest-facing secret for self-service cancellation.
	CancelToken string

	ReminderSent bool
	CreatedAt    time.Time
}

// IsFinalized reports whether the booking carries full guest detail.
func (b *Booking) IsFinalized() bool {
	return b.Status == StatusConfirmed
}
