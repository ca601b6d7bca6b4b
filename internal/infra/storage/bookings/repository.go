package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/pkg/psqlbuilder"
	"github.com/vberezn/schedulebot/pkg/txmanager"
)

const bookingColumns = `id, guest_name, guest_channel, guest_sender_id, guest_email, guest_timezone,
	topic, attendee_emails, slot_start, slot_end, status, calendar_event_id, meet_link,
	cancel_token, reminder_sent, created_at`

// Repository репозиторий бронирований
// Резервирующие методы (CountOverlapping, CreatePlaceholder) предназначены для
// вызова только внутри сериализуемой транзакции txmanager.DoSerializable:
// атомарность проверки пересечений и вставки плейсхолдера и есть вся защита
// от двойного бронирования
type Repository struct {
	db txmanager.DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db txmanager.DBExecutor) *Repository {
	return &Repository{db: db}
}

// CountOverlapping подсчитывает бронирования (включая зарезервированные
// плейсхолдеры), пересекающиеся с интервалом [start, end)
// Пересечение полуоткрытое: граничащие интервалы не считаются
// Блокирует найденные строки (FOR UPDATE) до конца транзакции
func (r *Repository) CountOverlapping(ctx context.Context, start, end time.Time) (int, error) {
	if !txmanager.IsInTransaction(ctx) {
		return 0, ErrNotInTransaction
	}
	executor := txmanager.GetExecutor(ctx, r.db)

	// COUNT(*) с FOR UPDATE несовместимы, поэтому блокируем строки подзапросом
	query, args, err := psqlbuilder.Select("count(*)").
		FromSelect(
			psqlbuilder.Select("id").
				From("bookings").
				Where(squirrel.Lt{"slot_start": end}).
				Where(squirrel.Gt{"slot_end": start}).
				Suffix("FOR UPDATE"),
			"overlapping",
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: CountOverlapping - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountOverlapping - execute query: %v", ErrExecQuery, err)
	}

	return count, nil
}

// CreatePlaceholder вставляет зарезервированный плейсхолдер, удерживающий интервал
// Полные данные гостя добавляются позже через Finalize
func (r *Repository) CreatePlaceholder(ctx context.Context, id string, slot domain.TimeSlot) error {
	if !txmanager.IsInTransaction(ctx) {
		return ErrNotInTransaction
	}
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns("id", "slot_start", "slot_end", "status").
		Values(id, slot.Start, slot.End, domain.StatusReserved).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: CreatePlaceholder - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: CreatePlaceholder - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// Finalize дополняет плейсхолдер полными данными гостя и встречи
// Интервал бронирования никогда не меняется
func (r *Repository) Finalize(ctx context.Context, booking *domain.Booking) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("guest_name", booking.GuestName).
		Set("guest_channel", booking.GuestChannel).
		Set("guest_sender_id", booking.GuestSenderID).
		Set("guest_email", booking.GuestEmail).
		Set("guest_timezone", booking.GuestTimezone).
		Set("topic", booking.Topic).
		Set("attendee_emails", pq.Array(booking.AttendeeEmails)).
		Set("calendar_event_id", booking.CalendarEventID).
		Set("meet_link", booking.MeetLink).
		Set("cancel_token", booking.CancelToken).
		Set("status", domain.StatusConfirmed).
		Where(squirrel.Eq{"id": booking.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Finalize - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Finalize - execute update: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Finalize - get rows affected: %v", ErrExecQuery, err)
	}
	if affected == 0 {
		return ErrBookingNotFound
	}

	booking.Status = domain.StatusConfirmed
	return nil
}

// Release удаляет зарезервированный плейсхолдер, освобождая интервал
// Вызывается, когда создание внешнего события в календаре не удалось
func (r *Repository) Release(ctx context.Context, id string) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("bookings").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": domain.StatusReserved}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Release - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Release - execute delete: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Release - get rows affected: %v", ErrExecQuery, err)
	}
	if affected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// GetByID получает бронирование по id
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByCancelToken получает бронирование по гостевому токену отмены
func (r *Repository) GetByCancelToken(ctx context.Context, token string) (*domain.Booking, error) {
	return r.getOne(ctx, squirrel.Eq{"cancel_token": token})
}

// List возвращает последние бронирования, отсортированные по началу слота
func (r *Repository) List(ctx context.Context, limit uint64) ([]*domain.Booking, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns).
		From("bookings").
		OrderBy("slot_start DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListOverlapping возвращает подтверждённые и зарезервированные бронирования,
// пересекающиеся с интервалом [start, end)
// Консультативное чтение для движка доступности: допускает устаревание,
// строк не блокирует
func (r *Repository) ListOverlapping(ctx context.Context, start, end time.Time) ([]*domain.Booking, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns).
		From("bookings").
		Where(squirrel.Lt{"slot_start": end}).
		Where(squirrel.Gt{"slot_end": start}).
		OrderBy("slot_start ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListOverlapping - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListOverlapping - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// Delete удаляет бронирование (отмена гостем или владельцем)
func (r *Repository) Delete(ctx context.Context, id string) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Delete - get rows affected: %v", ErrExecQuery, err)
	}
	if affected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// ListNeedingReminder возвращает подтверждённые бронирования с началом в окне
// (after, before], для которых напоминание ещё не отправлялось
func (r *Repository) ListNeedingReminder(ctx context.Context, after, before time.Time) ([]*domain.Booking, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns).
		From("bookings").
		Where(squirrel.Eq{"status": domain.StatusConfirmed}).
		Where(squirrel.Eq{"reminder_sent": false}).
		Where(squirrel.Gt{"slot_start": after}).
		Where(squirrel.LtOrEq{"slot_start": before}).
		OrderBy("slot_start ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListNeedingReminder - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListNeedingReminder - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// MarkReminderSent помечает бронирование как получившее напоминание
// Ставится даже при сбое отправки, чтобы не повторять попытки бесконечно
func (r *Repository) MarkReminderSent(ctx context.Context, id string) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("reminder_sent", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: MarkReminderSent - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: MarkReminderSent - execute update: %v", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: MarkReminderSent - get rows affected: %v", ErrExecQuery, err)
	}
	if affected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func (r *Repository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Booking, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns).
		From("bookings").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: getOne - build select query: %v", ErrBuildQuery, err)
	}

	row := executor.QueryRowContext(ctx, query, args...)
	booking, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getOne - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

func (r *Repository) scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	result := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %v", ErrScanRow, err)
		}
		result = append(result, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %v", ErrScanRow, err)
	}

	return result, nil
}

func scanBooking(scan func(dest ...interface{}) error) (*domain.Booking, error) {
	var booking domain.Booking
	var guestName, guestChannel, guestSenderID, guestEmail sql.NullString
	var guestTimezone, topic, eventID, meetLink, cancelToken sql.NullString
	var attendees pq.StringArray
	var createdAt sql.NullTime

	if err := scan(
		&booking.ID,
		&guestName,
		&guestChannel,
		&guestSenderID,
		&guestEmail,
		&guestTimezone,
		&topic,
		&attendees,
		&booking.Slot.Start,
		&booking.Slot.End,
		&booking.Status,
		&eventID,
		&meetLink,
		&cancelToken,
		&booking.ReminderSent,
		&createdAt,
	); err != nil {
		return nil, err
	}

	booking.GuestName = guestName.String
	booking.GuestChannel = guestChannel.String
	booking.GuestSenderID = guestSenderID.String
	booking.GuestEmail = guestEmail.String
	booking.GuestTimezone = guestTimezone.String
	booking.Topic = topic.String
	booking.AttendeeEmails = attendees
	booking.CalendarEventID = eventID.String
	booking.MeetLink = meetLink.String
	booking.CancelToken = cancelToken.String
	booking.CreatedAt = createdAt.Time

	return &booking, nil
}
