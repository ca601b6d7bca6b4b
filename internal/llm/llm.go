package llm

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrRequestFailed запрос к провайдеру не удался
	ErrRequestFailed = errors.New("llm: request failed")

	// ErrInvalidResponse провайдер вернул неожиданный ответ
	ErrInvalidResponse = errors.New("llm: invalid response")
)

// Роли сообщений в диалоге с моделью
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Типы блоков контента
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock блок контента сообщения: текст, вызов инструмента или
// результат его выполнения
type ContentBlock struct {
	Type string `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockToolUse
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// BlockToolResult
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// TextBlock создает текстовый блок
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolResultBlock создает блок с результатом выполнения инструмента
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}
}

// Message сообщение диалога с моделью
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserMessage создает текстовое сообщение пользователя
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantMessage создает текстовое сообщение ассистента
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// Tool описание инструмента, доступного модели
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolCall запрошенный моделью вызов инструмента
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// StringArg извлекает строковый аргумент вызова
func (c ToolCall) StringArg(key string) string {
	v, _ := c.Input[key].(string)
	return v
}

// IntArg извлекает целочисленный аргумент вызова
// JSON числа приходят как float64
func (c ToolCall) IntArg(key string) int {
	switch v := c.Input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// StringsArg извлекает массив строк
func (c ToolCall) StringsArg(key string) []string {
	raw, ok := c.Input[key].([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// ToolResponse ответ модели: текст плюс запрошенные вызовы инструментов
type ToolResponse struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Converser текстовый диалог с моделью
type Converser interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// ToolConverser диалог с поддержкой вызова инструментов
// Выполнение инструментов и отправка результатов лежит на вызывающем
type ToolConverser interface {
	Converser
	ChatWithTools(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*ToolResponse, error)
}
