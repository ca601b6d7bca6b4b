package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

const defaultReminderLead = 24 * time.Hour

// BookingRepository интерфейс чтения бронирований для напоминаний
type BookingRepository interface {
	ListNeedingReminder(ctx context.Context, after, before time.Time) ([]*domain.Booking, error)
	MarkReminderSent(ctx context.Context, id string) error
}

// ChannelSender интерфейс отправки сообщения отправителю в его канале
type ChannelSender interface {
	Send(ctx context.Context, senderID, text string) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// ReminderLoop периодически напоминает о встречах в ближайшие сутки:
// владельцу через уведомитель, гостю через канал, по которому он бронировал
// Каждая встреча напоминается один раз: отметка ставится даже при ошибке
// отправки, иначе сбой канала превращается в шторм повторов
type ReminderLoop struct {
	repo     BookingRepository
	notifier *Notifier
	senders  map[string]ChannelSender
	interval time.Duration
	lead     time.Duration
	tp       TimeProvider
	logger   Logger
}

// NewReminderLoop создает цикл напоминаний
// senders сопоставляет имя канала отправителю гостевых напоминаний,
// для бронирований из неизвестных каналов гостевое напоминание пропускается
func NewReminderLoop(
	repo BookingRepository,
	notifier *Notifier,
	senders map[string]ChannelSender,
	interval time.Duration,
	tp TimeProvider,
	logger Logger,
) *ReminderLoop {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReminderLoop{
		repo:     repo,
		notifier: notifier,
		senders:  senders,
		interval: interval,
		lead:     defaultReminderLead,
		tp:       tp,
		logger:   logger,
	}
}

// Run блокирует до отмены контекста
func (l *ReminderLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("ReminderLoop: started, interval %s", l.interval)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("ReminderLoop: stopped")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *ReminderLoop) tick(ctx context.Context) {
	now := l.tp.Now()
	bookings, err := l.repo.ListNeedingReminder(ctx, now, now.Add(l.lead))
	if err != nil {
		l.logger.Error("ReminderLoop: failed to list bookings: %v", err)
		return
	}

	for _, booking := range bookings {
		if err := l.remindOwner(ctx, booking); err != nil {
			l.logger.Error("ReminderLoop: owner reminder for booking %s failed: %v", booking.ID, err)
		}
		if err := l.remindGuest(ctx, booking); err != nil {
			l.logger.Error("ReminderLoop: guest reminder for booking %s failed: %v", booking.ID, err)
		}
		if err := l.repo.MarkReminderSent(ctx, booking.ID); err != nil {
			l.logger.Error("ReminderLoop: failed to mark booking %s: %v", booking.ID, err)
		}
	}
}

func (l *ReminderLoop) remindOwner(ctx context.Context, booking *domain.Booking) error {
	text := fmt.Sprintf("Reminder: meeting with %s at %s",
		booking.GuestName, booking.Slot.FormatInLocation(l.notifier.ownerLoc))
	if booking.MeetLink != "" {
		text += fmt.Sprintf("\n  Join: %s", booking.MeetLink)
	}
	return l.notifier.sender.SendToOwner(ctx, text)
}

func (l *ReminderLoop) remindGuest(ctx context.Context, booking *domain.Booking) error {
	sender, ok := l.senders[booking.GuestChannel]
	if !ok || booking.GuestSenderID == "" {
		return nil
	}

	loc := l.notifier.ownerLoc
	if booking.GuestTimezone != "" {
		if guestLoc, err := time.LoadLocation(booking.GuestTimezone); err == nil {
			loc = guestLoc
		}
	}

	text := fmt.Sprintf("Reminder: your meeting is at %s", booking.Slot.FormatInLocation(loc))
	if booking.MeetLink != "" {
		text += fmt.Sprintf("\n  Join: %s", booking.MeetLink)
	}
	return sender.Send(ctx, booking.GuestSenderID, text)
}
