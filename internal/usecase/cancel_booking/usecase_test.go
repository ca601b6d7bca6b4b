package cancel_booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberezn/schedulebot/internal/calendar"
	"github.com/vberezn/schedulebot/internal/domain"
	bookingsRepo "github.com/vberezn/schedulebot/internal/infra/storage/bookings"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type memRepo struct {
	bookings map[string]*domain.Booking
}

func newMemRepo(bookings ...*domain.Booking) *memRepo {
	r := &memRepo{bookings: map[string]*domain.Booking{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingsRepo.ErrBookingNotFound
	}
	return b, nil
}

func (r *memRepo) GetByCancelToken(_ context.Context, token string) (*domain.Booking, error) {
	for _, b := range r.bookings {
		if b.CancelToken == token {
			return b, nil
		}
	}
	return nil, bookingsRepo.ErrBookingNotFound
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.bookings[id]; !ok {
		return bookingsRepo.ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}

func testBooking(t *testing.T, cal *calendar.Static) *domain.Booking {
	t.Helper()
	start := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	slot := domain.TimeSlot{Start: start, End: start.Add(30 * time.Minute)}

	event, err := cal.CreateEvent(context.Background(), &calendar.EventRequest{
		Summary: "Meeting: Dana",
		Slot:    slot,
	})
	require.NoError(t, err)

	return &domain.Booking{
		ID:              "bk-1",
		GuestName:       "Dana",
		Slot:            slot,
		Status:          domain.StatusConfirmed,
		CalendarEventID: event.ID,
		CancelToken:     "tok-1",
	}
}

func TestExecute_CancelByID(t *testing.T) {
	cal := calendar.NewStatic("book")
	repo := newMemRepo(testBooking(t, cal))
	uc := NewUseCase(repo, cal, nopLogger{})

	resp, err := uc.Execute(context.Background(), &Request{BookingID: "bk-1"})

	require.NoError(t, err)
	assert.Equal(t, "bk-1", resp.Booking.ID)
	assert.Empty(t, repo.bookings)
	assert.Empty(t, cal.Events())
}

func TestExecute_CancelByToken(t *testing.T) {
	cal := calendar.NewStatic("book")
	repo := newMemRepo(testBooking(t, cal))
	uc := NewUseCase(repo, cal, nopLogger{})

	resp, err := uc.Execute(context.Background(), &Request{CancelToken: "tok-1"})

	require.NoError(t, err)
	assert.Equal(t, "bk-1", resp.Booking.ID)
	assert.Empty(t, repo.bookings)
}

func TestExecute_MissingEventTolerated(t *testing.T) {
	cal := calendar.NewStatic("book")
	booking := testBooking(t, cal)
	require.NoError(t, cal.DeleteEvent(context.Background(), booking.CalendarEventID))
	repo := newMemRepo(booking)
	uc := NewUseCase(repo, cal, nopLogger{})

	_, err := uc.Execute(context.Background(), &Request{BookingID: "bk-1"})

	require.NoError(t, err)
	assert.Empty(t, repo.bookings)
}

func TestExecute_NotFound(t *testing.T) {
	uc := NewUseCase(newMemRepo(), calendar.NewStatic("book"), nopLogger{})

	_, err := uc.Execute(context.Background(), &Request{BookingID: "missing"})

	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestExecute_EmptyRequest(t *testing.T) {
	uc := NewUseCase(newMemRepo(), calendar.NewStatic("book"), nopLogger{})

	_, err := uc.Execute(context.Background(), &Request{})

	assert.ErrorIs(t, err, ErrEmptyToken)
}
