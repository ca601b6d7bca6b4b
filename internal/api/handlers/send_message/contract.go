package send_message

import (
	"context"

	"github.com/vberezn/schedulebot/internal/domain"
)

type MessageEngine interface {
	HandleMessage(ctx context.Context, msg *domain.IncomingMessage) (*domain.OutgoingMessage, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
