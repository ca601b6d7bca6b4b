package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/pkg/psqlbuilder"
	"github.com/vberezn/schedulebot/pkg/txmanager"
)

// Repository репозиторий диалогов
// Диалог хранится одной строкой на отправителя, история сообщений в JSONB
type Repository struct {
	db txmanager.DBExecutor
}

// NewRepository создает новый экземпляр репозитория диалогов
func NewRepository(db txmanager.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Get возвращает диалог отправителя
func (r *Repository) Get(ctx context.Context, senderID string) (*domain.Conversation, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"sender_id", "channel", "mode", "state",
		"guest_name", "guest_email", "guest_topic", "guest_timezone",
		"attendee_emails", "selected_slot_start", "selected_slot_end", "booking_id",
		"messages", "created_at", "updated_at",
	).
		From("conversations").
		Where(squirrel.Eq{"sender_id": senderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Get - build select query: %v", ErrBuildQuery, err)
	}

	var conv domain.Conversation
	var attendees pq.StringArray
	var slotStart, slotEnd sql.NullTime
	var rawMessages []byte

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&conv.SenderID,
		&conv.Channel,
		&conv.Mode,
		&conv.State,
		&conv.GuestName,
		&conv.GuestEmail,
		&conv.GuestTopic,
		&conv.GuestTimezone,
		&attendees,
		&slotStart,
		&slotEnd,
		&conv.BookingID,
		&rawMessages,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Get - scan conversation: %v", ErrScanRow, err)
	}

	conv.AttendeeEmails = attendees
	if slotStart.Valid && slotEnd.Valid {
		conv.SelectedSlot = &domain.TimeSlot{Start: slotStart.Time, End: slotEnd.Time}
	}
	if len(rawMessages) > 0 {
		if err := json.Unmarshal(rawMessages, &conv.Messages); err != nil {
			return nil, fmt.Errorf("%w: Get - unmarshal messages: %v", ErrScanRow, err)
		}
	}

	return &conv, nil
}

// Upsert сохраняет диалог, перезаписывая существующий для того же отправителя
func (r *Repository) Upsert(ctx context.Context, conv *domain.Conversation) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	rawMessages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("%w: Upsert - marshal messages: %v", ErrMarshalMessages, err)
	}

	var slotStart, slotEnd interface{}
	if conv.SelectedSlot != nil {
		slotStart = conv.SelectedSlot.Start
		slotEnd = conv.SelectedSlot.End
	}

	query, args, err := psqlbuilder.Insert("conversations").
		Columns(
			"sender_id", "channel", "mode", "state",
			"guest_name", "guest_email", "guest_topic", "guest_timezone",
			"attendee_emails", "selected_slot_start", "selected_slot_end", "booking_id",
			"messages", "created_at", "updated_at",
		).
		Values(
			conv.SenderID, conv.Channel, conv.Mode, conv.State,
			conv.GuestName, conv.GuestEmail, conv.GuestTopic, conv.GuestTimezone,
			pq.Array(conv.AttendeeEmails), slotStart, slotEnd, conv.BookingID,
			rawMessages, conv.CreatedAt, conv.UpdatedAt,
		).
		Suffix(`ON CONFLICT (sender_id) DO UPDATE SET
			channel = EXCLUDED.channel,
			mode = EXCLUDED.mode,
			state = EXCLUDED.state,
			guest_name = EXCLUDED.guest_name,
			guest_email = EXCLUDED.guest_email,
			guest_topic = EXCLUDED.guest_topic,
			guest_timezone = EXCLUDED.guest_timezone,
			attendee_emails = EXCLUDED.attendee_emails,
			selected_slot_start = EXCLUDED.selected_slot_start,
			selected_slot_end = EXCLUDED.selected_slot_end,
			booking_id = EXCLUDED.booking_id,
			messages = EXCLUDED.messages,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Upsert - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// Delete удаляет диалог отправителя
// Отсутствие диалога не ошибка: сброс и так приводит к чистому состоянию
func (r *Repository) Delete(ctx context.Context, senderID string) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("conversations").
		Where(squirrel.Eq{"sender_id": senderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %v", ErrExecQuery, err)
	}

	return nil
}
