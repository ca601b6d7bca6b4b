package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

// Static провайдер календаря в памяти
// Используется в тестах и в dry-run режиме без внешнего календаря
type Static struct {
	mu     sync.Mutex
	name   string
	busy   []domain.TimeSlot
	events map[string]*EventRequest
	nextID int

	// CreateErr и BusyErr позволяют тестам имитировать сбои
	CreateErr error
	BusyErr   error
}

// NewStatic создает пустой статический календарь
func NewStatic(name string) *Static {
	return &Static{
		name:   name,
		events: make(map[string]*EventRequest),
	}
}

// Name возвращает имя календаря
func (s *Static) Name() string {
	return s.name
}

// SetBusy задает занятые интервалы
func (s *Static) SetBusy(busy []domain.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = busy
}

// BusyIntervals возвращает занятые интервалы, пересекающиеся с окном
func (s *Static) BusyIntervals(_ context.Context, from, to time.Time) ([]domain.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.BusyErr != nil {
		return nil, s.BusyErr
	}

	window := domain.TimeSlot{Start: from, End: to}
	result := make([]domain.TimeSlot, 0)
	for _, interval := range s.busy {
		if interval.Overlaps(window) {
			result = append(result, interval)
		}
	}
	for _, req := range s.events {
		if req.Slot.Overlaps(window) {
			result = append(result, req.Slot)
		}
	}

	return result, nil
}

// CreateEvent сохраняет событие в памяти
func (s *Static) CreateEvent(_ context.Context, req *EventRequest) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	s.nextID++
	id := fmt.Sprintf("%s-event-%d", s.name, s.nextID)
	s.events[id] = req

	event := &Event{ID: id}
	if req.WithMeetLink {
		event.MeetLink = fmt.Sprintf("https://meet.example.com/%s", id)
	}

	return event, nil
}

// DeleteEvent удаляет событие из памяти
func (s *Static) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return ErrEventNotFound
	}
	delete(s.events, eventID)

	return nil
}

// Events возвращает снимок созданных событий
func (s *Static) Events() map[string]*EventRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*EventRequest, len(s.events))
	for id, req := range s.events {
		snapshot[id] = req
	}

	return snapshot
}
