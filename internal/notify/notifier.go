package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vberezn/schedulebot/internal/engine"
)

// Sender интерфейс отправки сообщения владельцу в его канале
type Sender interface {
	SendToOwner(ctx context.Context, text string) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Notifier отправляет владельцу уведомления о бронированиях
type Notifier struct {
	sender   Sender
	ownerLoc *time.Location
	logger   Logger
}

// New создает уведомитель владельца
func New(sender Sender, ownerLoc *time.Location, logger Logger) *Notifier {
	if ownerLoc == nil {
		ownerLoc = time.Local
	}
	return &Notifier{
		sender:   sender,
		ownerLoc: ownerLoc,
		logger:   logger,
	}
}

// NotifyNewBooking сообщает владельцу о новом бронировании
func (n *Notifier) NotifyNewBooking(ctx context.Context, notice *engine.BookingNotice) error {
	var sb strings.Builder
	sb.WriteString("New booking!\n")
	fmt.Fprintf(&sb, "  %s\n", notice.Slot.FormatInLocation(n.ownerLoc))
	fmt.Fprintf(&sb, "  Guest: %s <%s>\n", notice.GuestName, notice.GuestEmail)
	if notice.Topic != "" {
		fmt.Fprintf(&sb, "  Topic: %s\n", notice.Topic)
	}
	if notice.MeetLink != "" {
		fmt.Fprintf(&sb, "  Join: %s\n", notice.MeetLink)
	}
	fmt.Fprintf(&sb, "  Booking ID: %s", notice.BookingID)

	if err := n.sender.SendToOwner(ctx, sb.String()); err != nil {
		return fmt.Errorf("notify owner: %w", err)
	}

	n.logger.Info("Notifier: owner notified about booking %s", notice.BookingID)
	return nil
}
