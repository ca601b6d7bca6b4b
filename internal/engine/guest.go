package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/internal/llm"
	"github.com/vberezn/schedulebot/internal/timezone"
	"github.com/vberezn/schedulebot/internal/usecase/create_booking"
	"github.com/vberezn/schedulebot/internal/usecase/get_available_slots"
	"github.com/vberezn/schedulebot/pkg/ptr"
)

const (
	msgGuestLLMError   = "Sorry, I'm having trouble right now. Please try again in a moment."
	msgGuestCancelled  = "Scheduling cancelled. Send a message anytime to start over."
	msgSlotLost        = "Sorry, this slot was just booked by someone else. Please pick a different slot."
	msgBookingFailed   = "Failed to create booking. Calendar may be unavailable. Please try picking a slot again."
	msgCalendarOffline = "I can't confirm bookings right now, the calendar is unavailable. Please try again in a few minutes."
	msgGuestFallback   = "Something went wrong. Please try again."
)

var emailValidator = validator.New()

// handleGuestMessage гостевой режим: бронирование встречи
func (e *Engine) handleGuestMessage(ctx context.Context, msg *domain.IncomingMessage) (*domain.OutgoingMessage, error) {
	text := strings.ToLower(strings.TrimSpace(msg.Text))

	if text == "/cancel" {
		if err := e.convRepo.Delete(ctx, msg.SenderID); err != nil {
			e.logger.Warn("Engine: failed to delete guest conversation: %v", err)
		}
		return &domain.OutgoingMessage{Text: msgGuestCancelled}, nil
	}

	conv := e.loadConversation(ctx, msg, domain.ModeGuest)
	if text == "/start" {
		if err := e.convRepo.Delete(ctx, msg.SenderID); err != nil {
			e.logger.Warn("Engine: failed to delete guest conversation: %v", err)
		}
		conv = domain.NewConversation(msg.SenderID, msg.Channel, domain.ModeGuest, e.timeProvider.Now())
	}

	conv.AddMessage(llm.RoleUser, msg.Text, e.timeProvider.Now())

	slots := e.availableSlots(ctx, false)

	out, err := e.guestDriver.handle(ctx, conv, slots, msg.SenderName)
	if err != nil {
		e.logger.Error("Engine: guest driver failed: %v", err)
		conv.AddMessage(llm.RoleAssistant, msgGuestLLMError, e.timeProvider.Now())
		out = &domain.OutgoingMessage{Text: msgGuestLLMError}
	}

	e.saveConversation(ctx, conv)
	return out, nil
}

// availableSlots получает слоты; вне строгого режима ошибка даёт пустой список
func (e *Engine) availableSlots(ctx context.Context, strict bool) []domain.TimeSlot {
	resp, err := e.slotsUC.Execute(ctx, e.slotsRequest(strict))
	if err != nil {
		e.logger.Error("Engine: failed to get available slots: %v", err)
		return nil
	}
	return resp.Slots
}

func (e *Engine) slotsRequest(strict bool) *get_available_slots.Request {
	return &get_available_slots.Request{
		DurationMinutes: e.cfg.Slots.DurationMinutes,
		BufferMinutes:   e.cfg.Slots.BufferMinutes,
		MinNoticeHours:  e.cfg.Slots.MinNoticeHours,
		MaxDaysAhead:    e.cfg.Slots.MaxDaysAhead,
		Location:        e.cfg.OwnerLocation,
		Strict:          strict,
	}
}

// confirmSelection выполняет подтверждение выбранного слота
// Возвращает текст результата и уведомление, если бронирование состоялось
func (e *Engine) confirmSelection(ctx context.Context, conv *domain.Conversation) (string, *BookingNotice) {
	// Повторное подтверждение завершённого диалога идемпотентно
	if conv.State == domain.StateBooked && conv.BookingID != "" {
		resp, err := e.bookingUC.Execute(ctx, &create_booking.Request{BookingID: conv.BookingID})
		if err == nil {
			notice := &BookingNotice{
				BookingID:  resp.BookingID,
				GuestName:  conv.GuestName,
				GuestEmail: conv.GuestEmail,
				Topic:      conv.GuestTopic,
				MeetLink:   resp.MeetLink,
				Slot:       resp.Slot,
			}
			return formatConfirmation(notice, conv.GuestTimezone, e.cfg.OwnerLocation), nil
		}
		e.logger.Warn("Engine: idempotent reconfirm failed for booking %s: %v", conv.BookingID, err)
	}

	if conv.SelectedSlot == nil {
		return msgGuestFallback, nil
	}

	// Перед бронированием занятость календаря перечитывается строго:
	// деградированный список здесь не годится
	fresh, err := e.slotsUC.Execute(ctx, e.slotsRequest(true))
	if err != nil {
		e.logger.Warn("Engine: strict slot check failed: %v", err)
		return msgCalendarOffline, nil
	}
	if !containsSlot(fresh.Slots, *conv.SelectedSlot) {
		e.metrics.IncLostRace()
		conv.ClearSelection()
		return msgSlotLost, nil
	}

	resp, err := e.bookingUC.Execute(ctx, &create_booking.Request{
		GuestName:      conv.GuestName,
		GuestChannel:   conv.Channel,
		GuestSenderID:  conv.SenderID,
		GuestEmail:     conv.GuestEmail,
		GuestTimezone:  conv.GuestTimezone,
		Topic:          conv.GuestTopic,
		AttendeeEmails: conv.AttendeeEmails,
		Slot:           *conv.SelectedSlot,
	})
	if err != nil {
		switch {
		case errors.Is(err, create_booking.ErrSlotTaken):
			e.metrics.IncLostRace()
			conv.ClearSelection()
			return msgSlotLost, nil
		case errors.Is(err, create_booking.ErrCalendarFailed):
			conv.ClearSelection()
			return msgBookingFailed, nil
		default:
			e.logger.Error("Engine: booking failed: %v", err)
			conv.ClearSelection()
			return msgBookingFailed, nil
		}
	}

	conv.State = domain.StateBooked
	conv.BookingID = resp.BookingID
	e.metrics.IncBooking()

	notice := &BookingNotice{
		BookingID:  resp.BookingID,
		GuestName:  conv.GuestName,
		GuestEmail: conv.GuestEmail,
		Topic:      conv.GuestTopic,
		MeetLink:   resp.MeetLink,
		Slot:       resp.Slot,
	}
	return formatConfirmation(notice, conv.GuestTimezone, e.cfg.OwnerLocation), notice
}

func containsSlot(slots []domain.TimeSlot, want domain.TimeSlot) bool {
	for _, slot := range slots {
		if slot.Start.Equal(want.Start) && slot.End.Equal(want.End) {
			return true
		}
	}
	return false
}

// executeGuestTool выполняет гостевой инструмент, возвращает текст результата
// Подтверждение бронирования только переводит диалог в состояние confirmation,
// само бронирование выполняет вызывающий через confirmSelection
func (e *Engine) executeGuestTool(call llm.ToolCall, conv *domain.Conversation, slots []domain.TimeSlot) string {
	e.metrics.IncToolExecution(call.Name)

	switch call.Name {
	case llm.ToolCollectGuestInfo:
		name := strings.TrimSpace(call.StringArg("name"))
		email := strings.TrimSpace(call.StringArg("email"))
		topic := strings.TrimSpace(call.StringArg("topic"))
		city := strings.TrimSpace(call.StringArg("city"))

		if name == "" {
			return "Error: name is required."
		}
		if email == "" || emailValidator.Var(email, "email") != nil {
			return fmt.Sprintf("Error: valid email is required. Got: %q", email)
		}

		conv.GuestName = name
		conv.GuestEmail = email
		conv.GuestTopic = topic
		conv.State = domain.StateCollectingInfo

		tzInfo := ""
		if city != "" {
			if resolved := timezone.Resolve(city); resolved != "" {
				conv.GuestTimezone = resolved
				tzInfo = fmt.Sprintf(", timezone: %s", resolved)
			} else {
				tzInfo = fmt.Sprintf(" (could not resolve timezone for %q, slots shown in owner timezone)", city)
			}
		}

		e.logger.Info("Engine: guest info collected: %s <%s> topic=%q tz=%s",
			name, email, topic, conv.GuestTimezone)

		result := fmt.Sprintf("Saved: %s, %s", name, email)
		if topic != "" {
			result += fmt.Sprintf(", topic: %s", topic)
		}
		return result + tzInfo

	case llm.ToolConfirmBooking:
		if conv.GuestName == "" || conv.GuestEmail == "" {
			return "Error: must call collect_guest_info first (need name + email)."
		}

		attendees := call.StringsArg("attendee_emails")
		if len(attendees) > domain.MaxAttendeeEmails {
			return fmt.Sprintf("Error: max %d additional attendees allowed.", domain.MaxAttendeeEmails)
		}
		for _, email := range attendees {
			if emailValidator.Var(email, "email") != nil {
				return fmt.Sprintf("Error: invalid attendee email: %q", email)
			}
		}

		slotNumber := call.IntArg("slot_number")
		idx := slotNumber - 1
		if idx < 0 || idx >= len(slots) {
			return fmt.Sprintf("Error: invalid slot number %d. Valid range: 1-%d.", slotNumber, len(slots))
		}

		conv.SelectedSlot = ptr.Ptr(slots[idx])
		conv.AttendeeEmails = attendees
		conv.State = domain.StateConfirmation
		return "PENDING_BOOKING"
	}

	return fmt.Sprintf("Unknown tool: %s", call.Name)
}

// guestToolDriver гостевой диалог через инструментные вызовы
type guestToolDriver struct {
	engine *Engine
	llm    llm.ToolConverser
}

func (d *guestToolDriver) handle(
	ctx context.Context,
	conv *domain.Conversation,
	slots []domain.TimeSlot,
	profileName string,
) (*domain.OutgoingMessage, error) {
	e := d.engine

	systemPrompt := llm.BuildGuestPrompt(llm.GuestPromptParams{
		OwnerName:   e.cfg.OwnerName,
		Slots:       slots,
		Location:    e.cfg.OwnerLocation,
		State:       conv.State,
		GuestName:   conv.GuestName,
		ProfileName: profileName,
	})

	apiMessages := historyToMessages(conv.Messages)
	tools := llm.GuestTools()

	var result *llm.ToolResponse
	var err error

	for i := 0; i < domain.MaxToolIterations; i++ {
		result, err = d.llm.ChatWithTools(ctx, systemPrompt, apiMessages, tools)
		if err != nil {
			return nil, fmt.Errorf("guest tool chat: %w", err)
		}

		if len(result.ToolCalls) == 0 {
			conv.AddMessage(llm.RoleAssistant, result.Text, e.timeProvider.Now())
			return &domain.OutgoingMessage{Text: result.Text}, nil
		}

		apiMessages = append(apiMessages, assistantTurn(result))

		var notice *BookingNotice
		toolResults := make([]llm.ContentBlock, 0, len(result.ToolCalls))
		for _, call := range result.ToolCalls {
			output := e.executeGuestTool(call, conv, slots)

			if call.Name == llm.ToolConfirmBooking &&
				(conv.State == domain.StateConfirmation || conv.State == domain.StateBooked) {
				var n *BookingNotice
				output, n = e.confirmSelection(ctx, conv)
				if n != nil {
					notice = n
				}
			}

			e.logger.Info("Engine: guest tool %s -> %.80s", call.Name, output)
			toolResults = append(toolResults, llm.ToolResultBlock(call.ID, output, false))
		}
		apiMessages = append(apiMessages, llm.Message{Role: llm.RoleUser, Content: toolResults})

		if notice != nil {
			confirmation := formatConfirmation(notice, conv.GuestTimezone, e.cfg.OwnerLocation)
			finalText := confirmation
			if final, err := d.llm.ChatWithTools(ctx, systemPrompt, apiMessages, tools); err == nil {
				if text := strings.TrimSpace(final.Text); text != "" {
					finalText = text
				}
			}
			conv.AddMessage(llm.RoleAssistant, finalText, e.timeProvider.Now())
			e.notifyOwner(ctx, notice)
			return &domain.OutgoingMessage{
				Text: finalText,
				Metadata: domain.ResponseMetadata{
					BookingID: notice.BookingID,
					MeetLink:  notice.MeetLink,
				},
			}, nil
		}
	}

	// Лимит итераций исчерпан
	text := result.Text
	if text == "" {
		text = msgGuestFallback
	}
	conv.AddMessage(llm.RoleAssistant, text, e.timeProvider.Now())
	return &domain.OutgoingMessage{Text: text}, nil
}

// guestTextDriver гостевой диалог через легаси-тег [BOOK:N]
type guestTextDriver struct {
	engine *Engine
	llm    llm.Converser
}

var (
	bookTagRe    = regexp.MustCompile(`\[BOOK:(\d+)\]`)
	bookTagAnyRe = regexp.MustCompile(`\s*\[BOOK:\S+\]`)
)

func (d *guestTextDriver) handle(
	ctx context.Context,
	conv *domain.Conversation,
	slots []domain.TimeSlot,
	profileName string,
) (*domain.OutgoingMessage, error) {
	e := d.engine

	systemPrompt := llm.BuildGuestPrompt(llm.GuestPromptParams{
		OwnerName:   e.cfg.OwnerName,
		Slots:       slots,
		Location:    e.cfg.OwnerLocation,
		State:       conv.State,
		GuestName:   conv.GuestName,
		ProfileName: profileName,
		UseTags:     true,
	})

	response, err := d.llm.Chat(ctx, systemPrompt, historyToMessages(conv.Messages))
	if err != nil {
		return nil, fmt.Errorf("guest text chat: %w", err)
	}

	if match := bookTagRe.FindStringSubmatch(response); match != nil {
		idx, _ := strconv.Atoi(match[1])
		idx--
		if idx >= 0 && idx < len(slots) {
			conv.SelectedSlot = ptr.Ptr(slots[idx])
			conv.State = domain.StateConfirmation

			output, notice := e.confirmSelection(ctx, conv)
			conv.AddMessage(llm.RoleAssistant, output, e.timeProvider.Now())
			out := &domain.OutgoingMessage{Text: output}
			if notice != nil {
				e.notifyOwner(ctx, notice)
				out.Metadata = domain.ResponseMetadata{
					BookingID: notice.BookingID,
					MeetLink:  notice.MeetLink,
				}
			}
			return out, nil
		}
	}

	if conv.State == domain.StateGreeting {
		conv.State = domain.StateCollectingInfo
	}

	clean := strings.TrimSpace(bookTagAnyRe.ReplaceAllString(response, ""))
	conv.AddMessage(llm.RoleAssistant, response, e.timeProvider.Now())
	return &domain.OutgoingMessage{Text: clean}, nil
}
