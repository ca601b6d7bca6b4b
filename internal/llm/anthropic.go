package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vberezn/schedulebot/pkg/backoff"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 2048
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// AnthropicClient клиент Anthropic Messages API
// Реализует Converser и ToolConverser
type AnthropicClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	retry      backoff.Config
	log        Logger
}

// NewAnthropicClient создает новый экземпляр клиента Anthropic
func NewAnthropicClient(apiKey, model string, timeout time.Duration, log Logger) *AnthropicClient {
	return &AnthropicClient{
		baseURL: anthropicBaseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: backoff.DefaultConfig,
		log:   log,
	}
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat текстовый диалог без инструментов
func (c *AnthropicClient) Chat(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	resp, err := c.send(ctx, &anthropicRequest{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}

	for _, block := range resp.Content {
		if block.Type == BlockText {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("%w: no text block in response", ErrInvalidResponse)
}

// ChatWithTools диалог с объявленными инструментами
// Выполнение вызовов и отправка результатов лежит на вызывающем
func (c *AnthropicClient) ChatWithTools(
	ctx context.Context,
	systemPrompt string,
	messages []Message,
	tools []Tool,
) (*ToolResponse, error) {
	resp, err := c.send(ctx, &anthropicRequest{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages:  messages,
		Tools:     tools,
	})
	if err != nil {
		return nil, err
	}

	result := &ToolResponse{StopReason: resp.StopReason}
	for _, block := range resp.Content {
		switch block.Type {
		case BlockText:
			if result.Text != "" {
				result.Text += " "
			}
			result.Text += block.Text
		case BlockToolUse:
			var input map[string]interface{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return nil, fmt.Errorf("%w: failed to decode tool input: %v", ErrInvalidResponse, err)
				}
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	return result, nil
}

func (c *AnthropicClient) send(ctx context.Context, payload *anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrRequestFailed, err)
	}

	var result anthropicResponse
	err = backoff.Retry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.MarkTransient(fmt.Errorf("%w: failed to execute request: %v", ErrRequestFailed, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			// Продолжаем обработку
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			raw, _ := io.ReadAll(resp.Body)
			c.log.Warn("Anthropic: retryable status %d: %s", resp.StatusCode, string(raw))
			return backoff.MarkTransient(fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode))
		default:
			raw, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("%w: unexpected status %d: %s", ErrRequestFailed, resp.StatusCode, string(raw))
		}

		result = anthropicResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
		}
		if result.Error != nil {
			return fmt.Errorf("%w: %s: %s", ErrRequestFailed, result.Error.Type, result.Error.Message)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
