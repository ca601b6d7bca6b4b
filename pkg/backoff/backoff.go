package backoff

import (
	"context"
	"errors"
	"time"
)

// Config параметры повторов с экспоненциальной задержкой
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultConfig параметры по умолчанию для внешних API (LLM, календарь)
var DefaultConfig = Config{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

// Transient помечает ошибку как временную (rate limit, 5xx, сетевые сбои)
// Только такие ошибки повторяются, остальные возвращаются сразу
type Transient struct {
	Err error
}

func (t *Transient) Error() string { return t.Err.Error() }

func (t *Transient) Unwrap() error { return t.Err }

// MarkTransient оборачивает ошибку как временную
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &Transient{Err: err}
}

// Retry вызывает fn с повторами по экспоненциальной задержке
// Повторяются только ошибки, обёрнутые в *Transient
func Retry(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var transient *Transient
		if !errors.As(lastErr, &transient) || attempt == cfg.MaxRetries {
			return lastErr
		}

		delay := cfg.BaseDelay << attempt
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
