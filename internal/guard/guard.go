package guard

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

var (
	// ErrMessageTooLong сообщение длиннее допустимого
	ErrMessageTooLong = errors.New("guard: message too long")

	// ErrRateLimited отправитель превысил лимит сообщений
	ErrRateLimited = errors.New("guard: rate limited")

	// ErrSuspiciousInput сообщение похоже на попытку инъекции промпта
	ErrSuspiciousInput = errors.New("guard: suspicious input")
)

// injectionPatterns эвристики попыток перехвата системного промпта
// Проверяются по нижнему регистру сообщения
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`you\s+are\s+now\s+an?\s`),
	regexp.MustCompile(`(^|\n)\s*system\s*:`),
	regexp.MustCompile(regexp.QuoteMeta(`</system>`)),
	regexp.MustCompile(regexp.QuoteMeta(`[inst]`)),
	regexp.MustCompile(regexp.QuoteMeta(`<<sys>>`)),
}

// Guard проверяет входящие сообщения до обращения к модели
// Отклонённое сообщение не попадает в историю диалога и не тратит токены
type Guard struct {
	limiter   RateLimiter
	maxLength int
}

// New создает guard с внедрённым лимитером
func New(limiter RateLimiter) *Guard {
	return &Guard{
		limiter:   limiter,
		maxLength: domain.MaxMessageLength,
	}
}

// Check валидирует сообщение, возвращает одну из сентинельных ошибок
// Порядок проверок: длина, лимит частоты, эвристики инъекций
func (g *Guard) Check(senderID, text string, now time.Time) error {
	if len([]rune(text)) > g.maxLength {
		return ErrMessageTooLong
	}

	if !g.limiter.Check(senderID, now) {
		return ErrRateLimited
	}

	lowered := strings.ToLower(text)
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(lowered) {
			return ErrSuspiciousInput
		}
	}

	return nil
}
