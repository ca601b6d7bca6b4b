package get_available_slots

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

// UseCase use case расчёта доступных слотов
type UseCase struct {
	ruleRepo     RuleRepository
	bookingRepo  BookingRepository
	calendar     CalendarProvider
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	ruleRepo RuleRepository,
	bookingRepo BookingRepository,
	calendar CalendarProvider,
	logger Logger,
) *UseCase {
	return &UseCase{
		ruleRepo:     ruleRepo,
		bookingRepo:  bookingRepo,
		calendar:     calendar,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет расчёт доступных слотов
//
// Порядок: правила дня (конкретная дата заменяет рекуррентные) -> нарезка
// открытых окон на слоты с буфером -> вычитание блокировок, минимального
// срока и занятости (календарь + локальные бронирования)
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	applyDefaults(req)
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now().In(req.Location)
	minStart := now.Add(time.Duration(req.MinNoticeHours) * time.Hour)

	windowStart := startOfDay(now, req.Location)
	windowEnd := windowStart.AddDate(0, 0, req.MaxDaysAhead)

	// 1. Правила владельца
	rules, err := uc.ruleRepo.List(ctx)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to list rules: %v", err)
		return nil, fmt.Errorf("%w: failed to list rules: %v", ErrInternal, err)
	}
	if len(rules) == 0 {
		uc.logger.Info("GetAvailableSlots: no availability rules configured")
		return &Response{Slots: []domain.TimeSlot{}}, nil
	}

	// 2. Занятость внешних календарей
	// Вне строгого режима недоступный календарь не блокирует ответ
	degraded := false
	busy, err := uc.calendar.BusyIntervals(ctx, windowStart, windowEnd)
	if err != nil {
		if req.Strict {
			uc.logger.Error("GetAvailableSlots: calendar unavailable in strict mode: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
		}
		uc.logger.Warn("GetAvailableSlots: calendar unavailable, degrading to rules only: %v", err)
		degraded = true
		busy = nil
	}

	// 3. Локальные бронирования, включая зарезервированные плейсхолдеры
	bookings, err := uc.bookingRepo.ListOverlapping(ctx, windowStart, windowEnd)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to list bookings: %v", err)
		return nil, fmt.Errorf("%w: failed to list bookings: %v", ErrInternal, err)
	}
	for _, booking := range bookings {
		busy = append(busy, booking.Slot)
	}

	// 4. По дням: правила -> окна -> слоты -> фильтры
	duration := time.Duration(req.DurationMinutes) * time.Minute
	buffer := time.Duration(req.BufferMinutes) * time.Minute

	slots := make([]domain.TimeSlot, 0)
	for offset := 0; offset < req.MaxDaysAhead; offset++ {
		date := windowStart.AddDate(0, 0, offset)

		dayRules := rulesForDate(rules, date)
		if len(dayRules) == 0 {
			continue
		}

		open, blocked, err := windowsForDate(dayRules, date, req.Location)
		if err != nil {
			uc.logger.Error("GetAvailableSlots: invalid rule time on %s: %v",
				date.Format(domain.DateFormat), err)
			return nil, fmt.Errorf("%w: invalid rule time: %v", ErrInternal, err)
		}

		for _, window := range open {
			for _, slot := range tileWindow(window, duration, buffer) {
				if slot.Start.Before(minStart) {
					continue
				}
				if overlapsAny(slot, blocked) {
					continue
				}
				if overlapsAny(slot, busy) {
					continue
				}
				slots = append(slots, slot)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})

	uc.logger.Info("GetAvailableSlots: %d slots in next %d days (degraded=%t)",
		len(slots), req.MaxDaysAhead, degraded)

	return &Response{Slots: slots, Degraded: degraded}, nil
}
