package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/internal/guard"
	"github.com/vberezn/schedulebot/internal/llm"
)

// Тексты отказов guard-проверок
const (
	msgTooLong     = "Please keep your message under 300 characters."
	msgRateLimited = "You're sending messages too fast. Please wait a minute."
	msgSuspicious  = "I can only help with scheduling meetings. How can I help you book a time?"
)

// Config параметры движка
type Config struct {
	// OwnerName имя владельца для промптов и подтверждений
	OwnerName string
	// OwnerIDs отправители-владельцы по каналам: канал -> sender id
	OwnerIDs map[string]string
	// BookingLinks ссылки на каналы бронирования для владельческого промпта
	BookingLinks map[string]string
	// OwnerLocation часовой пояс владельца
	OwnerLocation *time.Location
	// Slots переопределяет дефолты расчёта слотов, нулевые поля не трогаются
	Slots SlotParams
}

// SlotParams параметры расчёта доступных слотов
type SlotParams struct {
	DurationMinutes int
	BufferMinutes   int
	MinNoticeHours  int
	MaxDaysAhead    int
}

// driver стратегия ведения диалога с моделью
// Выбирается один раз при создании движка по возможностям модели:
// инструментные вызовы либо легаси-протокол текстовых тегов
type guestDriver interface {
	handle(ctx context.Context, conv *domain.Conversation, slots []domain.TimeSlot, profileName string) (*domain.OutgoingMessage, error)
}

type ownerDriver interface {
	handle(ctx context.Context, conv *domain.Conversation) (string, error)
}

// Engine обрабатывает входящие сообщения обоих режимов
// Маршрутизация: отправитель-владелец управляет расписанием, все остальные
// бронируют встречи
type Engine struct {
	cfg Config

	convRepo  ConversationRepository
	ruleRepo  RuleRepository
	slotsUC   SlotsUseCase
	bookingUC BookingUseCase
	guard     Guard

	guestDriver guestDriver
	ownerDriver ownerDriver

	notifier     Notifier
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
}

// New создает движок и выбирает стратегию диалога
// Модель с поддержкой инструментов получает инструментный драйвер, любая
// другая получает драйвер текстовых тегов
func New(
	cfg Config,
	convRepo ConversationRepository,
	ruleRepo RuleRepository,
	slotsUC SlotsUseCase,
	bookingUC BookingUseCase,
	g Guard,
	converser llm.Converser,
	metrics Metrics,
	logger Logger,
) *Engine {
	e := &Engine{
		cfg:          cfg,
		convRepo:     convRepo,
		ruleRepo:     ruleRepo,
		slotsUC:      slotsUC,
		bookingUC:    bookingUC,
		guard:        g,
		metrics:      metrics,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}

	if tc, ok := converser.(llm.ToolConverser); ok {
		e.guestDriver = &guestToolDriver{engine: e, llm: tc}
		e.ownerDriver = &ownerToolDriver{engine: e, llm: tc}
	} else {
		e.guestDriver = &guestTextDriver{engine: e, llm: converser}
		e.ownerDriver = &ownerTextDriver{engine: e, llm: converser}
	}

	return e
}

// SetNotifier внедряет уведомитель владельца
// Вызывается после подключения транспорта
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// HandleMessage обрабатывает входящее сообщение и возвращает ответ
func (e *Engine) HandleMessage(ctx context.Context, msg *domain.IncomingMessage) (*domain.OutgoingMessage, error) {
	if e.isOwner(msg.Channel, msg.SenderID) {
		e.metrics.IncMessage(msg.Channel, string(domain.ModeOwner))
		return e.handleOwnerMessage(ctx, msg)
	}

	e.metrics.IncMessage(msg.Channel, string(domain.ModeGuest))

	// Guard-проверки до любого обращения к модели
	// Команды не проверяются: они обрабатываются без модели
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		if err := e.guard.Check(msg.SenderID, text, e.timeProvider.Now()); err != nil {
			return e.rejectGuestMessage(msg, err), nil
		}
	}

	return e.handleGuestMessage(ctx, msg)
}

func (e *Engine) isOwner(channel, senderID string) bool {
	ownerID := e.cfg.OwnerIDs[channel]
	return ownerID != "" && ownerID == senderID
}

func (e *Engine) rejectGuestMessage(msg *domain.IncomingMessage, err error) *domain.OutgoingMessage {
	var reason, reply string
	switch {
	case errors.Is(err, guard.ErrMessageTooLong):
		reason, reply = "too_long", msgTooLong
	case errors.Is(err, guard.ErrRateLimited):
		reason, reply = "rate_limited", msgRateLimited
	case errors.Is(err, guard.ErrSuspiciousInput):
		reason, reply = "suspicious", msgSuspicious
		e.logger.Warn("Engine: injection attempt from %s: %.50s", msg.SenderID, msg.Text)
	default:
		reason, reply = "unknown", msgSuspicious
	}

	e.metrics.IncRejection(reason)
	e.logger.Info("Engine: rejected guest message from %s: %s", msg.SenderID, reason)

	return &domain.OutgoingMessage{Text: reply}
}

// loadConversation читает диалог отправителя или создает новый
func (e *Engine) loadConversation(
	ctx context.Context,
	msg *domain.IncomingMessage,
	mode domain.ConversationMode,
) *domain.Conversation {
	conv, err := e.convRepo.Get(ctx, msg.SenderID)
	if err != nil || conv == nil {
		return domain.NewConversation(msg.SenderID, msg.Channel, mode, e.timeProvider.Now())
	}
	conv.Mode = mode
	return conv
}

func (e *Engine) saveConversation(ctx context.Context, conv *domain.Conversation) {
	if err := e.convRepo.Upsert(ctx, conv); err != nil {
		e.logger.Error("Engine: failed to save conversation for %s: %v", conv.SenderID, err)
	}
}

func (e *Engine) notifyOwner(ctx context.Context, notice *BookingNotice) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyNewBooking(ctx, notice); err != nil {
		e.logger.Error("Engine: failed to notify owner about booking %s: %v", notice.BookingID, err)
	}
}
