package guard

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту сообщений от одного отправителя
type RateLimiter interface {
	// Check возвращает true, если сообщение в момент now допустимо
	Check(senderID string, now time.Time) bool
}

// SlidingWindowLimiter скользящее окно: не более limit сообщений за window
// Хранилище ограничено maxEntries отправителями, при переполнении
// вытесняется самый давно активный
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	entries    map[string]*senderEntry
	limit      int
	window     time.Duration
	maxEntries int
}

type senderEntry struct {
	timestamps []time.Time
	lastAccess time.Time
}

// NewSlidingWindowLimiter создает лимитер на limit сообщений за window
func NewSlidingWindowLimiter(limit int, window time.Duration, maxEntries int) *SlidingWindowLimiter {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &SlidingWindowLimiter{
		entries:    make(map[string]*senderEntry),
		limit:      limit,
		window:     window,
		maxEntries: maxEntries,
	}
}

// Check регистрирует сообщение и возвращает true, если лимит не превышен
// Отклонённые сообщения окно не пополняют
func (l *SlidingWindowLimiter) Check(senderID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[senderID]
	if !ok {
		if len(l.entries) >= l.maxEntries {
			l.evictOldest()
		}
		entry = &senderEntry{}
		l.entries[senderID] = entry
	}
	entry.lastAccess = now

	cutoff := now.Add(-l.window)
	kept := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	entry.timestamps = kept

	if len(entry.timestamps) >= l.limit {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (l *SlidingWindowLimiter) evictOldest() {
	var oldestID string
	var oldestTime time.Time

	for id, entry := range l.entries {
		if oldestID == "" || entry.lastAccess.Before(oldestTime) {
			oldestID = id
			oldestTime = entry.lastAccess
		}
	}

	if oldestID != "" {
		delete(l.entries, oldestID)
	}
}
