package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vberezn/schedulebot/internal/domain"
)

// ChannelName имя канала в доменных сообщениях и конфигурации владельца
const ChannelName = "telegram"

const pollTimeoutSeconds = 30

// MessageEngine интерфейс движка диалогов
type MessageEngine interface {
	HandleMessage(ctx context.Context, msg *domain.IncomingMessage) (*domain.OutgoingMessage, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Config параметры телеграм-бота
type Config struct {
	Token       string
	OwnerChatID int64
}

// Bot обрабатывает входящие сообщения Telegram через long polling
// Реализует notify.Sender: владелец получает уведомления в свой чат
type Bot struct {
	api         *tgbotapi.BotAPI
	engine      MessageEngine
	ownerChatID int64
	logger      Logger
}

// New создает бота и проверяет токен запросом getMe
func New(cfg Config, engine MessageEngine, logger Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot api: %w", err)
	}

	logger.Info("Telegram: authorized as @%s", api.Self.UserName)

	return &Bot{
		api:         api,
		engine:      engine,
		ownerChatID: cfg.OwnerChatID,
		logger:      logger,
	}, nil
}

// OwnerSenderID идентификатор владельца для конфигурации движка
func (b *Bot) OwnerSenderID() string {
	return SenderID(b.ownerChatID)
}

// Run блокирует до отмены контекста
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	b.logger.Info("Telegram: long polling started")

	for update := range updates {
		m := update.Message
		if m == nil || strings.TrimSpace(m.Text) == "" {
			continue
		}
		b.handleUpdate(ctx, m)
	}

	b.logger.Info("Telegram: long polling stopped")
}

func (b *Bot) handleUpdate(ctx context.Context, m *tgbotapi.Message) {
	msg := &domain.IncomingMessage{
		Channel:  ChannelName,
		SenderID: SenderID(m.Chat.ID),
		Text:     m.Text,
	}
	if m.From != nil {
		msg.SenderName = strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
	}

	out, err := b.engine.HandleMessage(ctx, msg)
	if err != nil {
		b.logger.Error("Telegram: failed to handle message from chat %d: %v", m.Chat.ID, err)
		return
	}
	if out == nil || out.Text == "" {
		return
	}

	reply := tgbotapi.NewMessage(m.Chat.ID, out.Text)
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("Telegram: failed to send reply to chat %d: %v", m.Chat.ID, err)
	}
}

// SendToOwner отправляет сообщение в чат владельца
func (b *Bot) SendToOwner(_ context.Context, text string) error {
	if b.ownerChatID == 0 {
		return fmt.Errorf("telegram: owner chat id is not configured")
	}

	msg := tgbotapi.NewMessage(b.ownerChatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send to owner: %w", err)
	}
	return nil
}

// Send отправляет сообщение отправителю по его доменному идентификатору
func (b *Bot) Send(_ context.Context, senderID, text string) error {
	chatID, err := ChatID(senderID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send to chat %d: %w", chatID, err)
	}
	return nil
}

// SenderID доменный идентификатор отправителя для чата Telegram
func SenderID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// ChatID извлекает идентификатор чата из доменного идентификатора отправителя
func ChatID(senderID string) (int64, error) {
	raw, ok := strings.CutPrefix(senderID, "tg:")
	if !ok {
		return 0, fmt.Errorf("telegram: sender id %q is not a telegram id", senderID)
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: malformed sender id %q: %w", senderID, err)
	}
	return chatID, nil
}
