package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/internal/guard"
	rulesRepo "github.com/vberezn/schedulebot/internal/infra/storage/rules"
	"github.com/vberezn/schedulebot/internal/llm"
	"github.com/vberezn/schedulebot/internal/usecase/create_booking"
	"github.com/vberezn/schedulebot/internal/usecase/get_available_slots"
	"github.com/vberezn/schedulebot/pkg/types"
)

var testNow = time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)

func testSlots() []domain.TimeSlot {
	base := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)
	return []domain.TimeSlot{
		{Start: base, End: base.Add(30 * time.Minute)},
		{Start: base.Add(45 * time.Minute), End: base.Add(75 * time.Minute)},
	}
}

// ---- fakes ----

type fixedTime struct{ now time.Time }

func (f *fixedTime) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type countMetrics struct {
	mu        sync.Mutex
	messages  int
	rejected  map[string]int
	tools     map[string]int
	bookings  int
	lostRaces int
}

func newCountMetrics() *countMetrics {
	return &countMetrics{rejected: map[string]int{}, tools: map[string]int{}}
}

func (m *countMetrics) IncMessage(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages++
}

func (m *countMetrics) IncRejection(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *countMetrics) IncToolExecution(tool string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[tool]++
}

func (m *countMetrics) IncBooking() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings++
}

func (m *countMetrics) IncLostRace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lostRaces++
}

type memConvRepo struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation
}

func newMemConvRepo() *memConvRepo {
	return &memConvRepo{convs: map[string]*domain.Conversation{}}
}

func (r *memConvRepo) Get(_ context.Context, senderID string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[senderID]
	if !ok {
		return nil, errors.New("not found")
	}
	clone := *conv
	return &clone, nil
}

func (r *memConvRepo) Upsert(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *conv
	r.convs[conv.SenderID] = &clone
	return nil
}

func (r *memConvRepo) Delete(_ context.Context, senderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, senderID)
	return nil
}

type memRuleRepo struct {
	mu     sync.Mutex
	nextID int64
	rules  []*domain.AvailabilityRule
}

func (r *memRuleRepo) Create(_ context.Context, rule *domain.AvailabilityRule) (*domain.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	clone := *rule
	clone.ID = r.nextID
	r.rules = append(r.rules, &clone)
	return &clone, nil
}

func (r *memRuleRepo) List(_ context.Context) ([]*domain.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.AvailabilityRule(nil), r.rules...), nil
}

func (r *memRuleRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return rulesRepo.ErrRuleNotFound
}

func (r *memRuleRepo) Clear(_ context.Context, dayOfWeek, specificDate string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.AvailabilityRule
	var removed int64
	for _, rule := range r.rules {
		match := (dayOfWeek == "" && specificDate == "") ||
			(dayOfWeek != "" && rule.DayOfWeek == dayOfWeek) ||
			(specificDate != "" && rule.SpecificDate == specificDate)
		if match {
			removed++
			continue
		}
		kept = append(kept, rule)
	}
	r.rules = kept
	return removed, nil
}

type fakeSlotsUC struct {
	slots       []domain.TimeSlot
	strictSlots []domain.TimeSlot // overrides slots for strict requests when set
	strictErr   error
}

func (u *fakeSlotsUC) Execute(_ context.Context, req *get_available_slots.Request) (*get_available_slots.Response, error) {
	if req.Strict {
		if u.strictErr != nil {
			return nil, u.strictErr
		}
		if u.strictSlots != nil {
			return &get_available_slots.Response{Slots: u.strictSlots}, nil
		}
	}
	return &get_available_slots.Response{Slots: u.slots}, nil
}

type fakeBookingUC struct {
	mu       sync.Mutex
	err      error
	requests []*create_booking.Request
	booked   map[string]*create_booking.Response
}

func (u *fakeBookingUC) Execute(_ context.Context, req *create_booking.Request) (*create_booking.Response, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.requests = append(u.requests, req)

	if req.BookingID != "" {
		if resp, ok := u.booked[req.BookingID]; ok {
			return resp, nil
		}
		return nil, create_booking.ErrInternal
	}
	if u.err != nil {
		return nil, u.err
	}

	resp := &create_booking.Response{
		BookingID:   "bk-1",
		MeetLink:    "https://meet.google.com/abc-defg-hij",
		CancelToken: "tok-1",
		Slot:        req.Slot,
	}
	if u.booked == nil {
		u.booked = map[string]*create_booking.Response{}
	}
	u.booked[resp.BookingID] = resp
	return resp, nil
}

type stubGuard struct{ err error }

func (g *stubGuard) Check(string, string, time.Time) error { return g.err }

// scriptedToolConverser replays a fixed sequence of tool responses.
type scriptedToolConverser struct {
	mu      sync.Mutex
	script  []*llm.ToolResponse
	calls   int
	lastMsg []llm.Message
}

func (c *scriptedToolConverser) Chat(_ context.Context, _ string, _ []llm.Message) (string, error) {
	return "", errors.New("plain chat not scripted")
}

func (c *scriptedToolConverser) ChatWithTools(
	_ context.Context, _ string, messages []llm.Message, _ []llm.Tool,
) (*llm.ToolResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMsg = messages
	if c.calls >= len(c.script) {
		return &llm.ToolResponse{Text: "out of script"}, nil
	}
	resp := c.script[c.calls]
	c.calls++
	return resp, nil
}

// textConverser implements only the plain chat interface.
type textConverser struct {
	responses []string
	calls     int
}

func (c *textConverser) Chat(_ context.Context, _ string, _ []llm.Message) (string, error) {
	if c.calls >= len(c.responses) {
		return "out of script", nil
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func toolCall(id, name string, input map[string]interface{}) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Input: input}
}

type testEnv struct {
	engine    *Engine
	convRepo  *memConvRepo
	ruleRepo  *memRuleRepo
	slotsUC   *fakeSlotsUC
	bookingUC *fakeBookingUC
	metrics   *countMetrics
}

func newTestEnv(t *testing.T, converser llm.Converser, guardErr error) *testEnv {
	t.Helper()

	env := &testEnv{
		convRepo:  newMemConvRepo(),
		ruleRepo:  &memRuleRepo{},
		slotsUC:   &fakeSlotsUC{slots: testSlots()},
		bookingUC: &fakeBookingUC{},
		metrics:   newCountMetrics(),
	}

	cfg := Config{
		OwnerName:     "Alex",
		OwnerIDs:      map[string]string{"telegram": "owner-1"},
		BookingLinks:  map[string]string{"telegram": "https://t.me/alexbot"},
		OwnerLocation: time.UTC,
	}

	env.engine = New(cfg, env.convRepo, env.ruleRepo, env.slotsUC, env.bookingUC,
		&stubGuard{err: guardErr}, converser, env.metrics, nopLogger{})
	env.engine.timeProvider = &fixedTime{now: testNow}
	return env
}

func guestMsg(text string) *domain.IncomingMessage {
	return &domain.IncomingMessage{Channel: "telegram", SenderID: "guest-1", Text: text}
}

func ownerMsg(text string) *domain.IncomingMessage {
	return &domain.IncomingMessage{Channel: "telegram", SenderID: "owner-1", Text: text}
}

// ---- driver selection ----

func TestNew_SelectsToolDriverForToolCapableModel(t *testing.T) {
	env := newTestEnv(t, &scriptedToolConverser{}, nil)

	_, ok := env.engine.guestDriver.(*guestToolDriver)
	assert.True(t, ok)
	_, ok = env.engine.ownerDriver.(*ownerToolDriver)
	assert.True(t, ok)
}

func TestNew_SelectsTextDriverForPlainModel(t *testing.T) {
	env := newTestEnv(t, &textConverser{}, nil)

	_, ok := env.engine.guestDriver.(*guestTextDriver)
	assert.True(t, ok)
	_, ok = env.engine.ownerDriver.(*ownerTextDriver)
	assert.True(t, ok)
}

// ---- guard ----

func TestHandleMessage_GuardRejectsLongMessage(t *testing.T) {
	conv := &scriptedToolConverser{}
	env := newTestEnv(t, conv, guard.ErrMessageTooLong)

	out, err := env.engine.HandleMessage(context.Background(), guestMsg("hello"))

	require.NoError(t, err)
	assert.Equal(t, msgTooLong, out.Text)
	assert.Equal(t, 0, conv.calls)
	assert.Equal(t, 1, env.metrics.rejected["too_long"])
}

func TestHandleMessage_GuardRejectionTexts(t *testing.T) {
	cases := []struct {
		guardErr error
		reply    string
		reason   string
	}{
		{guard.ErrMessageTooLong, msgTooLong, "too_long"},
		{guard.ErrRateLimited, msgRateLimited, "rate_limited"},
		{guard.ErrSuspiciousInput, msgSuspicious, "suspicious"},
	}

	for _, tc := range cases {
		env := newTestEnv(t, &scriptedToolConverser{}, tc.guardErr)

		out, err := env.engine.HandleMessage(context.Background(), guestMsg("hi"))

		require.NoError(t, err)
		assert.Equal(t, tc.reply, out.Text)
		assert.Equal(t, 1, env.metrics.rejected[tc.reason])
	}
}

func TestHandleMessage_CommandsSkipGuard(t *testing.T) {
	env := newTestEnv(t, &scriptedToolConverser{}, guard.ErrRateLimited)

	out, err := env.engine.HandleMessage(context.Background(), guestMsg("/cancel"))

	require.NoError(t, err)
	assert.Equal(t, msgGuestCancelled, out.Text)
	assert.Empty(t, env.metrics.rejected)
}

// ---- owner mode ----

func TestHandleMessage_OwnerScheduleCommand(t *testing.T) {
	env := newTestEnv(t, &scriptedToolConverser{}, nil)
	_, err := env.ruleRepo.Create(context.Background(), &domain.AvailabilityRule{
		DayOfWeek: "monday",
		StartTime: mustTimeString(t, "09:00"),
		EndTime:   mustTimeString(t, "17:00"),
	})
	require.NoError(t, err)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("/schedule"))

	require.NoError(t, err)
	assert.Contains(t, out.Text, "monday 09:00-17:00")
}

func TestHandleMessage_OwnerScheduleEmpty(t *testing.T) {
	env := newTestEnv(t, &scriptedToolConverser{}, nil)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("/rules"))

	require.NoError(t, err)
	assert.Contains(t, out.Text, "No availability rules configured")
}

func TestHandleMessage_OwnerClearCommand(t *testing.T) {
	env := newTestEnv(t, &scriptedToolConverser{}, nil)
	_, err := env.ruleRepo.Create(context.Background(), &domain.AvailabilityRule{
		DayOfWeek: "monday",
		StartTime: mustTimeString(t, "09:00"),
		EndTime:   mustTimeString(t, "17:00"),
	})
	require.NoError(t, err)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("/clear"))

	require.NoError(t, err)
	assert.Contains(t, out.Text, "Cleared 1")
	rules, _ := env.ruleRepo.List(context.Background())
	assert.Empty(t, rules)
}

func TestOwner_ToolAddsRule(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolAddRule, map[string]interface{}{
			"day":   "monday",
			"start": "09:00",
			"end":   "17:00",
		})}},
		{Text: "Added Mondays 9 to 5 for you."},
	}}
	env := newTestEnv(t, conv, nil)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("I'm free Mondays 9-5"))

	require.NoError(t, err)
	assert.Equal(t, "Added Mondays 9 to 5 for you.", out.Text)

	rules, _ := env.ruleRepo.List(context.Background())
	require.Len(t, rules, 1)
	assert.Equal(t, "monday", rules[0].DayOfWeek)
	assert.False(t, rules[0].IsBlocked)
	assert.Equal(t, 1, env.metrics.tools[llm.ToolAddRule])
}

func TestOwner_ToolBlocksTime(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolBlockTime, map[string]interface{}{
			"date":  "2025-06-10",
			"start": "12:00",
			"end":   "13:00",
		})}},
		{Text: "Blocked lunch on June 10."},
	}}
	env := newTestEnv(t, conv, nil)

	_, err := env.engine.HandleMessage(context.Background(), ownerMsg("block lunch on the 10th"))

	require.NoError(t, err)
	rules, _ := env.ruleRepo.List(context.Background())
	require.Len(t, rules, 1)
	assert.True(t, rules[0].IsBlocked)
	assert.Equal(t, "2025-06-10", rules[0].SpecificDate)
}

func TestOwner_ToolRemovesRuleByID(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolRemoveRule, map[string]interface{}{
			"rule_id": float64(1),
		})}},
		{Text: "Removed the Monday rule."},
	}}
	env := newTestEnv(t, conv, nil)
	_, err := env.ruleRepo.Create(context.Background(), &domain.AvailabilityRule{
		DayOfWeek: "monday",
		StartTime: mustTimeString(t, "09:00"),
		EndTime:   mustTimeString(t, "17:00"),
	})
	require.NoError(t, err)
	_, err = env.ruleRepo.Create(context.Background(), &domain.AvailabilityRule{
		DayOfWeek: "tuesday",
		StartTime: mustTimeString(t, "10:00"),
		EndTime:   mustTimeString(t, "16:00"),
	})
	require.NoError(t, err)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("remove rule 1"))

	require.NoError(t, err)
	assert.Equal(t, "Removed the Monday rule.", out.Text)
	rules, _ := env.ruleRepo.List(context.Background())
	require.Len(t, rules, 1)
	assert.Equal(t, "tuesday", rules[0].DayOfWeek)
	assert.Equal(t, 1, env.metrics.tools[llm.ToolRemoveRule])
}

func TestOwner_ToolRemoveUnknownRuleReportedToModel(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolRemoveRule, map[string]interface{}{
			"rule_id": float64(99),
		})}},
		{Text: "There's no rule #99."},
	}}
	env := newTestEnv(t, conv, nil)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("remove rule 99"))

	require.NoError(t, err)
	assert.Equal(t, "There's no rule #99.", out.Text)
}

func TestOwner_ToolInvalidTimeReportedToModel(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolAddRule, map[string]interface{}{
			"day":   "monday",
			"start": "9am",
			"end":   "17:00",
		})}},
		{Text: "That time format didn't work."},
	}}
	env := newTestEnv(t, conv, nil)

	_, err := env.engine.HandleMessage(context.Background(), ownerMsg("mondays from 9am"))

	require.NoError(t, err)
	rules, _ := env.ruleRepo.List(context.Background())
	assert.Empty(t, rules)
}

func TestOwner_ToolLoopCapped(t *testing.T) {
	showRules := &llm.ToolResponse{
		ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolShowRules, nil)},
	}
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		showRules, showRules, showRules, showRules, showRules, showRules, showRules,
	}}
	env := newTestEnv(t, conv, nil)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("show me everything"))

	require.NoError(t, err)
	assert.Equal(t, domain.MaxToolIterations, conv.calls)
	assert.NotEmpty(t, out.Text)
}

func TestOwnerTextDriver_ExecutesTags(t *testing.T) {
	conv := &textConverser{responses: []string{
		"Got it! [ADD_RULE:day=monday,start=09:00,end=17:00] Mondays are open now.",
	}}
	env := newTestEnv(t, conv, nil)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("mondays 9-5"))

	require.NoError(t, err)
	assert.NotContains(t, out.Text, "[ADD_RULE")
	rules, _ := env.ruleRepo.List(context.Background())
	require.Len(t, rules, 1)
	assert.Equal(t, "monday", rules[0].DayOfWeek)
}

func TestOwnerTextDriver_RemoveRuleTag(t *testing.T) {
	conv := &textConverser{responses: []string{
		"Done! [REMOVE_RULE:id=1] The Monday rule is gone.",
	}}
	env := newTestEnv(t, conv, nil)
	_, err := env.ruleRepo.Create(context.Background(), &domain.AvailabilityRule{
		DayOfWeek: "monday",
		StartTime: mustTimeString(t, "09:00"),
		EndTime:   mustTimeString(t, "17:00"),
	})
	require.NoError(t, err)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("drop rule 1"))

	require.NoError(t, err)
	assert.NotContains(t, out.Text, "[REMOVE_RULE")
	rules, _ := env.ruleRepo.List(context.Background())
	assert.Empty(t, rules)
}

func TestOwnerTextDriver_ShowRulesTagReplaced(t *testing.T) {
	conv := &textConverser{responses: []string{"Here you go: [SHOW_RULES]"}}
	env := newTestEnv(t, conv, nil)

	out, err := env.engine.HandleMessage(context.Background(), ownerMsg("what's my schedule"))

	require.NoError(t, err)
	assert.Contains(t, out.Text, "No availability rules configured")
}

func TestParseTagParams(t *testing.T) {
	params := parseTagParams("day=monday, start=09:00 ,end=17:00")
	assert.Equal(t, "monday", params["day"])
	assert.Equal(t, "09:00", params["start"])
	assert.Equal(t, "17:00", params["end"])
}

// ---- guest mode ----

func TestGuest_PlainReplyWithoutTools(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{Text: "Hi! I can help you book a meeting with Alex. What's your name?"},
	}}
	env := newTestEnv(t, conv, nil)

	out, err := env.engine.HandleMessage(context.Background(), guestMsg("hello"))

	require.NoError(t, err)
	assert.Contains(t, out.Text, "What's your name?")

	saved, err := env.convRepo.Get(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Len(t, saved.Messages, 2)
	assert.Equal(t, domain.ModeGuest, saved.Mode)
}

func TestGuest_CollectInfoAdvancesState(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolCollectGuestInfo, map[string]interface{}{
			"name":  "Dana",
			"email": "dana@example.com",
			"topic": "contract review",
			"city":  "berlin",
		})}},
		{Text: "Thanks Dana! Here are the available slots."},
	}}
	env := newTestEnv(t, conv, nil)

	_, err := env.engine.HandleMessage(context.Background(),
		guestMsg("I'm Dana, dana@example.com, about the contract, based in Berlin"))

	require.NoError(t, err)
	saved, err := env.convRepo.Get(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateCollectingInfo, saved.State)
	assert.Equal(t, "Dana", saved.GuestName)
	assert.Equal(t, "dana@example.com", saved.GuestEmail)
	assert.Equal(t, "contract review", saved.GuestTopic)
	assert.Equal(t, "Europe/Berlin", saved.GuestTimezone)
}

func TestGuest_InvalidEmailDoesNotAdvance(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolCollectGuestInfo, map[string]interface{}{
			"name":  "Dana",
			"email": "not-an-email",
		})}},
		{Text: "Could you double-check that email address?"},
	}}
	env := newTestEnv(t, conv, nil)

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("dana, not-an-email"))

	require.NoError(t, err)
	saved, err := env.convRepo.Get(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateGreeting, saved.State)
	assert.Empty(t, saved.GuestEmail)
}

func TestGuest_ConfirmBeforeCollectRejected(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number": float64(1),
		})}},
		{Text: "I need your name and email first."},
	}}
	env := newTestEnv(t, conv, nil)

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("book slot 1"))

	require.NoError(t, err)
	assert.Empty(t, env.bookingUC.requests)
	saved, err := env.convRepo.Get(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateGreeting, saved.State)
}

func TestGuest_InvalidSlotNumberRejected(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number": float64(9),
		})}},
		{Text: "That slot number isn't on the list."},
	}}
	env := newTestEnv(t, conv, nil)
	seedCollectedGuest(t, env)

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("slot 9 please"))

	require.NoError(t, err)
	assert.Empty(t, env.bookingUC.requests)
}

func TestGuest_FullBookingFlow(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number": float64(1),
		})}},
		{Text: "You're all set, Dana. See you Monday!"},
	}}
	env := newTestEnv(t, conv, nil)
	seedCollectedGuest(t, env)

	out, err := env.engine.HandleMessage(context.Background(), guestMsg("the first one works"))

	require.NoError(t, err)
	assert.Equal(t, "You're all set, Dana. See you Monday!", out.Text)
	assert.Equal(t, "bk-1", out.Metadata.BookingID)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", out.Metadata.MeetLink)

	require.Len(t, env.bookingUC.requests, 1)
	req := env.bookingUC.requests[0]
	assert.Equal(t, "Dana", req.GuestName)
	assert.Equal(t, "dana@example.com", req.GuestEmail)
	assert.Equal(t, testSlots()[0], req.Slot)

	saved, err := env.convRepo.Get(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateBooked, saved.State)
	assert.Equal(t, "bk-1", saved.BookingID)
	assert.Equal(t, 1, env.metrics.bookings)
}

func TestGuest_SlotTakenClearsSelection(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number": float64(1),
		})}},
		{Text: "That one just went. Want to pick another?"},
	}}
	env := newTestEnv(t, conv, nil)
	env.bookingUC.err = create_booking.ErrSlotTaken
	seedCollectedGuest(t, env)

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("slot 1"))

	require.NoError(t, err)
	assert.Equal(t, 1, env.metrics.lostRaces)
	saved, err := env.convRepo.Get(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Nil(t, saved.SelectedSlot)
	assert.NotEqual(t, domain.StateBooked, saved.State)
}

func TestGuest_SlotGoneFromFreshListTreatedAsLostRace(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number": float64(1),
		})}},
		{Text: "That one just went."},
	}}
	env := newTestEnv(t, conv, nil)
	seedCollectedGuest(t, env)
	env.slotsUC.strictSlots = testSlots()[1:] // selected slot gone from the fresh list

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("slot 1"))

	require.NoError(t, err)
	assert.Equal(t, 1, env.metrics.lostRaces)
	assert.Empty(t, env.bookingUC.requests)
}

func TestGuest_CalendarFailureKeepsConversationUsable(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number": float64(1),
		})}},
		{Text: "The calendar is down, try again shortly."},
	}}
	env := newTestEnv(t, conv, nil)
	env.bookingUC.err = create_booking.ErrCalendarFailed
	seedCollectedGuest(t, env)

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("slot 1"))

	require.NoError(t, err)
	saved, err := env.convRepo.Get(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Nil(t, saved.SelectedSlot)
	assert.Equal(t, 0, env.metrics.bookings)
}

func TestGuest_TooManyAttendeesRejected(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number":     float64(1),
			"attendee_emails": []interface{}{"a@x.com", "b@x.com", "c@x.com"},
		})}},
		{Text: "I can only add up to two extra attendees."},
	}}
	env := newTestEnv(t, conv, nil)
	seedCollectedGuest(t, env)

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("invite everyone"))

	require.NoError(t, err)
	assert.Empty(t, env.bookingUC.requests)
}

func TestGuest_CancelDeletesConversation(t *testing.T) {
	env := newTestEnv(t, &scriptedToolConverser{}, nil)
	seedCollectedGuest(t, env)

	out, err := env.engine.HandleMessage(context.Background(), guestMsg("/cancel"))

	require.NoError(t, err)
	assert.Equal(t, msgGuestCancelled, out.Text)
	_, err = env.convRepo.Get(context.Background(), "guest-1")
	assert.Error(t, err)
}

func TestGuestTextDriver_BookTagConfirms(t *testing.T) {
	conv := &textConverser{responses: []string{"Booking slot 1 for you now. [BOOK:1]"}}
	env := newTestEnv(t, conv, nil)
	seedCollectedGuest(t, env)

	out, err := env.engine.HandleMessage(context.Background(), guestMsg("slot 1 please"))

	require.NoError(t, err)
	assert.Contains(t, out.Text, "Meeting confirmed!")
	assert.Equal(t, "bk-1", out.Metadata.BookingID)
	require.Len(t, env.bookingUC.requests, 1)
}

func TestGuestTextDriver_StripsTagFromReply(t *testing.T) {
	conv := &textConverser{responses: []string{"Let me book that. [BOOK:99]"}}
	env := newTestEnv(t, conv, nil)
	seedCollectedGuest(t, env)

	out, err := env.engine.HandleMessage(context.Background(), guestMsg("slot 99"))

	require.NoError(t, err)
	assert.NotContains(t, out.Text, "[BOOK")
	assert.Empty(t, env.bookingUC.requests)
}

func TestGuest_OwnerNotifiedOnBooking(t *testing.T) {
	conv := &scriptedToolConverser{script: []*llm.ToolResponse{
		{ToolCalls: []llm.ToolCall{toolCall("t1", llm.ToolConfirmBooking, map[string]interface{}{
			"slot_number": float64(1),
		})}},
		{Text: "Done!"},
	}}
	env := newTestEnv(t, conv, nil)
	seedCollectedGuest(t, env)

	var notified []*BookingNotice
	env.engine.SetNotifier(notifierFunc(func(_ context.Context, n *BookingNotice) error {
		notified = append(notified, n)
		return nil
	}))

	_, err := env.engine.HandleMessage(context.Background(), guestMsg("slot 1"))

	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Equal(t, "bk-1", notified[0].BookingID)
	assert.Equal(t, "Dana", notified[0].GuestName)
}

type notifierFunc func(ctx context.Context, notice *BookingNotice) error

func (f notifierFunc) NotifyNewBooking(ctx context.Context, notice *BookingNotice) error {
	return f(ctx, notice)
}

// seedCollectedGuest stores a conversation that already holds guest contact info.
func seedCollectedGuest(t *testing.T, env *testEnv) {
	t.Helper()
	conv := domain.NewConversation("guest-1", "telegram", domain.ModeGuest, testNow)
	conv.State = domain.StateCollectingInfo
	conv.GuestName = "Dana"
	conv.GuestEmail = "dana@example.com"
	require.NoError(t, env.convRepo.Upsert(context.Background(), conv))
}

func mustTimeString(t *testing.T, s string) types.TimeString {
	t.Helper()
	ts, err := types.NewTimeStringFromString(s)
	require.NoError(t, err)
	return ts
}
