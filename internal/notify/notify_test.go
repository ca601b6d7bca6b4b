package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/internal/engine"
)

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) SendToOwner(_ context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

type fakeChannelSender struct {
	sent map[string]string
	err  error
}

func (s *fakeChannelSender) Send(_ context.Context, senderID, text string) error {
	if s.err != nil {
		return s.err
	}
	if s.sent == nil {
		s.sent = map[string]string{}
	}
	s.sent[senderID] = text
	return nil
}

type fakeRepo struct {
	bookings []*domain.Booking
	marked   []string
	listErr  error
}

func (r *fakeRepo) ListNeedingReminder(_ context.Context, _, _ time.Time) ([]*domain.Booking, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.bookings, nil
}

func (r *fakeRepo) MarkReminderSent(_ context.Context, id string) error {
	r.marked = append(r.marked, id)
	return nil
}

type fixedTime struct{ now time.Time }

func (f *fixedTime) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func testBooking(id string) *domain.Booking {
	start := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	return &domain.Booking{
		ID:            id,
		GuestName:     "Dana",
		GuestChannel:  "telegram",
		GuestSenderID: "tg:42",
		MeetLink:      "https://meet.google.com/abc-defg-hij",
		Slot:          domain.TimeSlot{Start: start, End: start.Add(30 * time.Minute)},
		Status:        domain.StatusConfirmed,
	}
}

func TestNotifyNewBooking_Format(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, time.UTC, nopLogger{})

	start := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	err := n.NotifyNewBooking(context.Background(), &engine.BookingNotice{
		BookingID:  "bk-1",
		GuestName:  "Dana",
		GuestEmail: "dana@example.com",
		Topic:      "contract review",
		MeetLink:   "https://meet.google.com/abc-defg-hij",
		Slot:       domain.TimeSlot{Start: start, End: start.Add(30 * time.Minute)},
	})

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "New booking!")
	assert.Contains(t, sender.sent[0], "Dana <dana@example.com>")
	assert.Contains(t, sender.sent[0], "Topic: contract review")
	assert.Contains(t, sender.sent[0], "Booking ID: bk-1")
}

func TestNotifyNewBooking_SendError(t *testing.T) {
	n := New(&fakeSender{err: errors.New("channel down")}, time.UTC, nopLogger{})

	err := n.NotifyNewBooking(context.Background(), &engine.BookingNotice{BookingID: "bk-1"})

	assert.Error(t, err)
}

func TestReminderTick_SendsAndMarks(t *testing.T) {
	sender := &fakeSender{}
	guests := &fakeChannelSender{}
	repo := &fakeRepo{bookings: []*domain.Booking{testBooking("bk-1"), testBooking("bk-2")}}
	loop := NewReminderLoop(repo, New(sender, time.UTC, nopLogger{}),
		map[string]ChannelSender{"telegram": guests},
		time.Minute, &fixedTime{now: time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)}, nopLogger{})

	loop.tick(context.Background())

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0], "Reminder: meeting with Dana")
	assert.Contains(t, guests.sent["tg:42"], "Reminder: your meeting is at")
	assert.Equal(t, []string{"bk-1", "bk-2"}, repo.marked)
}

func TestReminderTick_GuestTimezoneUsed(t *testing.T) {
	booking := testBooking("bk-1")
	booking.GuestTimezone = "Europe/Berlin"
	guests := &fakeChannelSender{}
	repo := &fakeRepo{bookings: []*domain.Booking{booking}}
	loop := NewReminderLoop(repo, New(&fakeSender{}, time.UTC, nopLogger{}),
		map[string]ChannelSender{"telegram": guests},
		time.Minute, &fixedTime{now: time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)}, nopLogger{})

	loop.tick(context.Background())

	// 10:00 UTC является 12:00 в Берлине летом
	assert.Contains(t, guests.sent["tg:42"], "12:00")
}

func TestReminderTick_UnknownChannelSkipsGuest(t *testing.T) {
	booking := testBooking("bk-1")
	booking.GuestChannel = "http"
	sender := &fakeSender{}
	repo := &fakeRepo{bookings: []*domain.Booking{booking}}
	loop := NewReminderLoop(repo, New(sender, time.UTC, nopLogger{}), nil,
		time.Minute, &fixedTime{now: time.Now()}, nopLogger{})

	loop.tick(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"bk-1"}, repo.marked)
}

func TestReminderTick_MarksEvenWhenSendFails(t *testing.T) {
	sender := &fakeSender{err: errors.New("channel down")}
	repo := &fakeRepo{bookings: []*domain.Booking{testBooking("bk-1")}}
	loop := NewReminderLoop(repo, New(sender, time.UTC, nopLogger{}),
		map[string]ChannelSender{"telegram": &fakeChannelSender{err: errors.New("channel down")}},
		time.Minute, &fixedTime{now: time.Now()}, nopLogger{})

	loop.tick(context.Background())

	assert.Equal(t, []string{"bk-1"}, repo.marked)
}

func TestReminderTick_ListErrorSkipsCycle(t *testing.T) {
	sender := &fakeSender{}
	repo := &fakeRepo{listErr: errors.New("db down")}
	loop := NewReminderLoop(repo, New(sender, time.UTC, nopLogger{}), nil,
		time.Minute, &fixedTime{now: time.Now()}, nopLogger{})

	loop.tick(context.Background())

	assert.Empty(t, sender.sent)
	assert.Empty(t, repo.marked)
}
