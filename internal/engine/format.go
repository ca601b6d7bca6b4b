package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/vberezn/schedulebot/internal/domain"
)

// formatRulesSummary собирает человекочитаемую сводку правил
// Рекуррентные правила идут в порядке дней недели, затем конкретные даты
func formatRulesSummary(rules []*domain.AvailabilityRule) string {
	if len(rules) == 0 {
		return "No availability rules configured. Tell me your schedule to get started."
	}

	var recurring, specific []string
	for _, day := range domain.WeekdayNames {
		for _, rule := range rules {
			if rule.DayOfWeek == day {
				recurring = append(recurring, formatRuleLine(rule, day))
			}
		}
	}
	for _, rule := range rules {
		if rule.SpecificDate != "" {
			specific = append(specific, formatRuleLine(rule, rule.SpecificDate))
		}
	}

	var sb strings.Builder
	sb.WriteString("Current availability rules:\n")
	for _, line := range recurring {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	for _, line := range specific {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatRuleLine(rule *domain.AvailabilityRule, target string) string {
	suffix := ""
	if rule.IsBlocked {
		suffix = " [blocked]"
	}
	return fmt.Sprintf("  #%d %s %s-%s%s", rule.ID, target, rule.StartTime, rule.EndTime, suffix)
}

// formatConfirmation собирает сообщение о подтверждённой встрече
// Слот показывается в часовом поясе гостя, если он известен
func formatConfirmation(notice *BookingNotice, guestTimezone string, ownerLoc *time.Location) string {
	slotText := notice.Slot.FormatInLocation(ownerLoc)
	if guestTimezone != "" {
		if loc, err := time.LoadLocation(guestTimezone); err == nil {
			slotText = notice.Slot.FormatInLocation(loc)
		}
	}

	var sb strings.Builder
	sb.WriteString("Meeting confirmed!\n")
	fmt.Fprintf(&sb, "  %s\n", slotText)
	if notice.MeetLink != "" {
		fmt.Fprintf(&sb, "  Join: %s\n", notice.MeetLink)
	}
	fmt.Fprintf(&sb, "  Booking ID: %s", notice.BookingID)
	if notice.GuestEmail != "" {
		fmt.Fprintf(&sb, "\n  Calendar invite sent to %s. Please check for the correct time in your timezone.", notice.GuestEmail)
	}

	return sb.String()
}
