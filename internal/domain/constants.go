package domain

import "time"

// Availability defaults.
const (
	DefaultMeetingDurationMinutes = 30
	DefaultBufferMinutes          = 15
	DefaultMinNoticeHours         = 4
	DefaultMaxDaysAhead           = 14
)

// Guest input limits. Enforced before any model call, so a rejected message
// never costs tokens.
const (
	MaxMessageLength   = 300
	RateLimitMessages  = 8
	RateLimitWindow    = time.Minute
	MaxAttendeeEmails  = 2
	MaxHistoryMessages = 40
)

// Conversation driver limits.
const (
	// MaxToolIterations caps the model tool-calling loop per turn.
	MaxToolIterations = 5
)

// Time format constants.
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)
