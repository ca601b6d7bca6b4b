package conversations

import "errors"

var (
	// ErrConversationNotFound возвращается, когда диалог не найден
	ErrConversationNotFound = errors.New("conversations.repository: conversation not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("conversations.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("conversations.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("conversations.repository: failed to scan row")

	// ErrMarshalMessages возвращается при ошибке сериализации истории сообщений
	ErrMarshalMessages = errors.New("conversations.repository: failed to marshal messages")
)
