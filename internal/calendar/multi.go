package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vberezn/schedulebot/internal/domain"
)

// BlockedPrefix помечает события-блокировки, созданные владельцем
const BlockedPrefix = "[Blocked] "

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Multi агрегирует несколько календарей
// Ровно один календарь принимает бронирования (book), остальные только
// наблюдаются на предмет занятости (watch)
// Ошибка book-календаря фатальна для операции, ошибки watch-календарей
// логируются и проглатываются: устаревшая занятость лучше, чем отказ
type Multi struct {
	book   Provider
	watch  []Provider
	logger Logger
}

// NewMulti создает агрегатор поверх book-календаря и watch-календарей
func NewMulti(book Provider, watch []Provider, logger Logger) *Multi {
	return &Multi{
		book:   book,
		watch:  watch,
		logger: logger,
	}
}

// Name возвращает имя агрегатора
func (m *Multi) Name() string {
	return "multi"
}

// BusyIntervals собирает занятость со всех календарей параллельно
// Результат объединён и отсортирован по началу интервала
func (m *Multi) BusyIntervals(ctx context.Context, from, to time.Time) ([]domain.TimeSlot, error) {
	var mu sync.Mutex
	busy := make([]domain.TimeSlot, 0)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		intervals, err := m.book.BusyIntervals(gctx, from, to)
		if err != nil {
			return fmt.Errorf("book calendar %q: %w", m.book.Name(), err)
		}
		mu.Lock()
		busy = append(busy, intervals...)
		mu.Unlock()
		return nil
	})

	for _, w := range m.watch {
		w := w
		g.Go(func() error {
			intervals, err := w.BusyIntervals(gctx, from, to)
			if err != nil {
				m.logger.Warn("Multi.BusyIntervals: watch calendar %q unavailable, skipping: %v", w.Name(), err)
				return nil
			}
			mu.Lock()
			busy = append(busy, intervals...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(busy, func(i, j int) bool {
		return busy[i].Start.Before(busy[j].Start)
	})

	return busy, nil
}

// CreateEvent создает событие в book-календаре и блокирующие плейсхолдеры
// во всех watch-календарях, чтобы остальные календари владельца не выглядели
// свободными. Сбой плейсхолдера логируется и не отменяет бронирование
func (m *Multi) CreateEvent(ctx context.Context, req *EventRequest) (*Event, error) {
	event, err := m.book.CreateEvent(ctx, req)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for _, w := range m.watch {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.CreateEvent(ctx, &EventRequest{
				Summary: BlockedPrefix + req.Summary,
				Slot:    req.Slot,
			})
			if err != nil {
				m.logger.Warn("Multi.CreateEvent: failed to create blocker in watch calendar %q: %v", w.Name(), err)
			}
		}()
	}
	wg.Wait()

	return event, nil
}

// DeleteEvent удаляет событие только из book-календаря
// Плейсхолдеры в watch-календарях не отслеживаются и при отмене остаются,
// это известное ограничение v1
func (m *Multi) DeleteEvent(ctx context.Context, eventID string) error {
	return m.book.DeleteEvent(ctx, eventID)
}
