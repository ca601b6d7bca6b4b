package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/pkg/backoff"
)

// GoogleConfig конфигурация подключения к Google Calendar
type GoogleConfig struct {
	// CalendarID идентификатор календаря ("primary" для основного)
	CalendarID string
	// DisplayName имя календаря для логов
	DisplayName string
	// CredentialsFile путь к файлу OAuth2 client credentials
	CredentialsFile string
	// TokenFile путь к файлу с сохранённым OAuth2 токеном
	TokenFile string
}

// Google провайдер календаря поверх Google Calendar API
type Google struct {
	svc        *gcal.Service
	calendarID string
	name       string
	retry      backoff.Config
}

// NewGoogle создает провайдер Google Calendar
// Токен читается из файла: интерактивный OAuth2 обмен выполняется отдельно
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("calendar: read credentials file: %w", err)
	}

	oauthConfig, err := googleoauth.ConfigFromJSON(credentials, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse credentials: %w", err)
	}

	token, err := readToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	name := cfg.DisplayName
	if name == "" {
		name = calendarID
	}

	return &Google{
		svc:        svc,
		calendarID: calendarID,
		name:       name,
		retry:      backoff.DefaultConfig,
	}, nil
}

// Name возвращает имя календаря
func (g *Google) Name() string {
	return g.name
}

// BusyIntervals возвращает занятые интервалы через FreeBusy API
func (g *Google) BusyIntervals(ctx context.Context, from, to time.Time) ([]domain.TimeSlot, error) {
	var resp *gcal.FreeBusyResponse

	err := backoff.Retry(ctx, g.retry, func() error {
		var callErr error
		resp, callErr = g.svc.Freebusy.Query(&gcal.FreeBusyRequest{
			TimeMin: from.Format(time.RFC3339),
			TimeMax: to.Format(time.RFC3339),
			Items:   []*gcal.FreeBusyRequestItem{{Id: g.calendarID}},
		}).Context(ctx).Do()
		return wrapGoogleErr(callErr)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy query for %q: %v", ErrProviderUnavailable, g.name, err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return []domain.TimeSlot{}, nil
	}

	busy := make([]domain.TimeSlot, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		busy = append(busy, domain.TimeSlot{Start: start, End: end})
	}

	return busy, nil
}

// CreateEvent создает событие, при необходимости с Google Meet ссылкой
func (g *Google) CreateEvent(ctx context.Context, req *EventRequest) (*Event, error) {
	event := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Slot.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: req.Slot.End.Format(time.RFC3339)},
	}

	for _, email := range req.AttendeeEmails {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	call := g.svc.Events.Insert(g.calendarID, event).Context(ctx)
	if req.WithMeetLink {
		event.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId: fmt.Sprintf("meet-%d", time.Now().UnixNano()),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	var created *gcal.Event
	err := backoff.Retry(ctx, g.retry, func() error {
		var callErr error
		created, callErr = call.Do()
		return wrapGoogleErr(callErr)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: insert event into %q: %v", ErrProviderUnavailable, g.name, err)
	}

	return &Event{
		ID:       created.Id,
		MeetLink: created.HangoutLink,
	}, nil
}

// DeleteEvent удаляет событие по идентификатору
func (g *Google) DeleteEvent(ctx context.Context, eventID string) error {
	err := backoff.Retry(ctx, g.retry, func() error {
		return wrapGoogleErr(g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do())
	})
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == 404 || apiErr.Code == 410) {
			return ErrEventNotFound
		}
		return fmt.Errorf("%w: delete event %q from %q: %v", ErrProviderUnavailable, eventID, g.name, err)
	}
	return nil
}

// wrapGoogleErr помечает повторяемые ошибки API как транзиентные
func wrapGoogleErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503:
			return backoff.MarkTransient(err)
		}
		return err
	}
	// Сетевые ошибки без кода считаем транзиентными
	return backoff.MarkTransient(err)
}

func readToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calendar: read token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("calendar: parse token file: %w", err)
	}
	return &token, nil
}
