package list_bookings

import (
	"context"

	"github.com/vberezn/schedulebot/internal/service/bookings/models"
)

type BookingService interface {
	List(ctx context.Context, limit int) (*models.BookingListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
