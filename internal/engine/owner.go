package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/internal/infra/storage/rules"
	"github.com/vberezn/schedulebot/internal/llm"
	"github.com/vberezn/schedulebot/pkg/types"
)

const msgOwnerLLMError = "Sorry, LLM error. Use /schedule to view rules or /clear to reset."

// handleOwnerMessage владельческий режим: управление расписанием
func (e *Engine) handleOwnerMessage(ctx context.Context, msg *domain.IncomingMessage) (*domain.OutgoingMessage, error) {
	text := strings.ToLower(strings.TrimSpace(msg.Text))

	// Быстрые команды без модели
	switch text {
	case "/schedule", "/rules", "/show":
		summary, err := e.rulesSummary(ctx)
		if err != nil {
			return nil, err
		}
		return &domain.OutgoingMessage{Text: summary}, nil
	case "/clear":
		count, err := e.ruleRepo.Clear(ctx, "", "")
		if err != nil {
			e.logger.Error("Engine: failed to clear rules: %v", err)
			return nil, err
		}
		return &domain.OutgoingMessage{Text: fmt.Sprintf("Cleared %d availability rules.", count)}, nil
	}

	conv := e.loadConversation(ctx, msg, domain.ModeOwner)

	if text == "/start" || text == "/cancel" {
		if err := e.convRepo.Delete(ctx, msg.SenderID); err != nil {
			e.logger.Warn("Engine: failed to delete owner conversation: %v", err)
		}
		conv = domain.NewConversation(msg.SenderID, msg.Channel, domain.ModeOwner, e.timeProvider.Now())
	}

	conv.AddMessage(llm.RoleUser, msg.Text, e.timeProvider.Now())

	responseText, err := e.ownerDriver.handle(ctx, conv)
	if err != nil {
		e.logger.Error("Engine: owner driver failed: %v", err)
		responseText = msgOwnerLLMError
	}

	conv.AddMessage(llm.RoleAssistant, responseText, e.timeProvider.Now())
	e.saveConversation(ctx, conv)

	return &domain.OutgoingMessage{Text: responseText}, nil
}

func (e *Engine) rulesSummary(ctx context.Context) (string, error) {
	rules, err := e.ruleRepo.List(ctx)
	if err != nil {
		e.logger.Error("Engine: failed to list rules: %v", err)
		return "", err
	}
	return formatRulesSummary(rules), nil
}

// executeOwnerTool выполняет один инструмент владельца, возвращает текст результата
func (e *Engine) executeOwnerTool(ctx context.Context, name string, call llm.ToolCall) string {
	e.metrics.IncToolExecution(name)

	switch name {
	case llm.ToolAddRule:
		return e.applyRule(ctx, call.StringArg("day"), call.StringArg("date"),
			call.StringArg("start"), call.StringArg("end"), false)

	case llm.ToolBlockTime:
		return e.applyRule(ctx, call.StringArg("day"), call.StringArg("date"),
			call.StringArg("start"), call.StringArg("end"), true)

	case llm.ToolRemoveRule:
		return e.removeRule(ctx, call.IntArg("rule_id"))

	case llm.ToolClearRules:
		day, date := call.StringArg("day"), call.StringArg("date")
		count, err := e.ruleRepo.Clear(ctx, day, date)
		if err != nil {
			e.logger.Error("Engine: clear_rules failed: %v", err)
			return fmt.Sprintf("Error: failed to clear rules: %v", err)
		}
		target := day
		if target == "" {
			target = date
		}
		return fmt.Sprintf("Cleared %d rules for %s", count, target)

	case llm.ToolClearAll:
		count, err := e.ruleRepo.Clear(ctx, "", "")
		if err != nil {
			e.logger.Error("Engine: clear_all failed: %v", err)
			return fmt.Sprintf("Error: failed to clear rules: %v", err)
		}
		return fmt.Sprintf("Cleared all %d rules", count)

	case llm.ToolShowRules:
		summary, err := e.rulesSummary(ctx)
		if err != nil {
			return fmt.Sprintf("Error: failed to load rules: %v", err)
		}
		return summary
	}

	return fmt.Sprintf("Unknown tool: %s", name)
}

func (e *Engine) applyRule(ctx context.Context, day, date, start, end string, blocked bool) string {
	startTime, err := types.NewTimeStringFromString(start)
	if err != nil {
		return fmt.Sprintf("Error: invalid start time %q, expected HH:MM", start)
	}
	endTime, err := types.NewTimeStringFromString(end)
	if err != nil {
		return fmt.Sprintf("Error: invalid end time %q, expected HH:MM", end)
	}

	rule := &domain.AvailabilityRule{
		DayOfWeek:    strings.ToLower(strings.TrimSpace(day)),
		SpecificDate: strings.TrimSpace(date),
		StartTime:    startTime,
		EndTime:      endTime,
		IsBlocked:    blocked,
	}
	if err := rule.Validate(); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	created, err := e.ruleRepo.Create(ctx, rule)
	if err != nil {
		e.logger.Error("Engine: failed to create rule: %v", err)
		return fmt.Sprintf("Error: failed to save rule: %v", err)
	}

	target := created.DayOfWeek
	if target == "" {
		target = created.SpecificDate
	}
	verb := "Added availability rule"
	if blocked {
		verb = "Blocked"
	}
	return fmt.Sprintf("%s #%d: %s %s-%s", verb, created.ID, target, created.StartTime, created.EndTime)
}

func (e *Engine) removeRule(ctx context.Context, id int) string {
	if id <= 0 {
		return fmt.Sprintf("Error: invalid rule id %d, expected the #N id from the rules summary", id)
	}

	if err := e.ruleRepo.Delete(ctx, int64(id)); err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			return fmt.Sprintf("Error: no rule with id #%d", id)
		}
		e.logger.Error("Engine: failed to remove rule #%d: %v", id, err)
		return fmt.Sprintf("Error: failed to remove rule #%d: %v", id, err)
	}

	return fmt.Sprintf("Removed rule #%d", id)
}

// ownerToolDriver владельческий диалог через инструментные вызовы
type ownerToolDriver struct {
	engine *Engine
	llm    llm.ToolConverser
}

func (d *ownerToolDriver) handle(ctx context.Context, conv *domain.Conversation) (string, error) {
	e := d.engine

	summary, err := e.rulesSummary(ctx)
	if err != nil {
		return "", err
	}

	systemPrompt := llm.BuildOwnerPrompt(llm.OwnerPromptParams{
		OwnerName:    e.cfg.OwnerName,
		RulesSummary: summary,
		BookingLinks: e.cfg.BookingLinks,
	})

	apiMessages := historyToMessages(conv.Messages)
	tools := llm.OwnerTools()

	var result *llm.ToolResponse
	for i := 0; i < domain.MaxToolIterations; i++ {
		result, err = d.llm.ChatWithTools(ctx, systemPrompt, apiMessages, tools)
		if err != nil {
			return "", fmt.Errorf("owner tool chat: %w", err)
		}

		if len(result.ToolCalls) == 0 {
			return result.Text, nil
		}

		apiMessages = append(apiMessages, assistantTurn(result))

		toolResults := make([]llm.ContentBlock, 0, len(result.ToolCalls))
		for _, call := range result.ToolCalls {
			output := e.executeOwnerTool(ctx, call.Name, call)
			e.logger.Info("Engine: owner tool %s -> %.80s", call.Name, output)
			toolResults = append(toolResults, llm.ToolResultBlock(call.ID, output, false))
		}
		apiMessages = append(apiMessages, llm.Message{Role: llm.RoleUser, Content: toolResults})
	}

	// Лимит итераций исчерпан
	if result.Text != "" {
		return result.Text, nil
	}
	return "Done. Use /schedule to see your current rules.", nil
}

// ownerTextDriver владельческий диалог через текстовые теги действий
type ownerTextDriver struct {
	engine *Engine
	llm    llm.Converser
}

var (
	addRuleTagRe    = regexp.MustCompile(`\[ADD_RULE:([^\]]+)\]`)
	blockRuleTagRe  = regexp.MustCompile(`\[BLOCK_RULE:([^\]]+)\]`)
	removeRuleTagRe = regexp.MustCompile(`\[REMOVE_RULE:([^\]]+)\]`)
	clearRulesTagRe = regexp.MustCompile(`\[CLEAR_RULES:([^\]]+)\]`)
	ownerTagRe      = regexp.MustCompile(`\[(?:ADD_RULE|BLOCK_RULE|REMOVE_RULE|CLEAR_RULES|CLEAR_ALL|SHOW_RULES)[^\]]*\]`)
)

func (d *ownerTextDriver) handle(ctx context.Context, conv *domain.Conversation) (string, error) {
	e := d.engine

	summary, err := e.rulesSummary(ctx)
	if err != nil {
		return "", err
	}

	systemPrompt := llm.BuildOwnerPrompt(llm.OwnerPromptParams{
		OwnerName:    e.cfg.OwnerName,
		RulesSummary: summary,
		BookingLinks: e.cfg.BookingLinks,
		UseTags:      true,
	})

	response, err := d.llm.Chat(ctx, systemPrompt, historyToMessages(conv.Messages))
	if err != nil {
		return "", fmt.Errorf("owner text chat: %w", err)
	}

	response = d.executeActions(ctx, response)

	return strings.TrimSpace(ownerTagRe.ReplaceAllString(response, "")), nil
}

// executeActions разбирает и выполняет теги действий из ответа модели
func (d *ownerTextDriver) executeActions(ctx context.Context, response string) string {
	e := d.engine

	for _, match := range addRuleTagRe.FindAllStringSubmatch(response, -1) {
		params := parseTagParams(match[1])
		if params["start"] == "" || params["end"] == "" {
			continue
		}
		e.metrics.IncToolExecution(llm.ToolAddRule)
		output := e.applyRule(ctx, params["day"], params["date"], params["start"], params["end"], false)
		e.logger.Info("Engine: owner tag ADD_RULE -> %s", output)
	}

	for _, match := range blockRuleTagRe.FindAllStringSubmatch(response, -1) {
		params := parseTagParams(match[1])
		if params["start"] == "" || params["end"] == "" {
			continue
		}
		e.metrics.IncToolExecution(llm.ToolBlockTime)
		output := e.applyRule(ctx, params["day"], params["date"], params["start"], params["end"], true)
		e.logger.Info("Engine: owner tag BLOCK_RULE -> %s", output)
	}

	for _, match := range removeRuleTagRe.FindAllStringSubmatch(response, -1) {
		params := parseTagParams(match[1])
		id, err := strconv.Atoi(params["id"])
		if err != nil {
			continue
		}
		e.metrics.IncToolExecution(llm.ToolRemoveRule)
		output := e.removeRule(ctx, id)
		e.logger.Info("Engine: owner tag REMOVE_RULE -> %s", output)
	}

	for _, match := range clearRulesTagRe.FindAllStringSubmatch(response, -1) {
		params := parseTagParams(match[1])
		e.metrics.IncToolExecution(llm.ToolClearRules)
		if _, err := e.ruleRepo.Clear(ctx, params["day"], params["date"]); err != nil {
			e.logger.Error("Engine: CLEAR_RULES tag failed: %v", err)
		}
	}

	if strings.Contains(response, "[CLEAR_ALL]") {
		e.metrics.IncToolExecution(llm.ToolClearAll)
		if _, err := e.ruleRepo.Clear(ctx, "", ""); err != nil {
			e.logger.Error("Engine: CLEAR_ALL tag failed: %v", err)
		}
	}

	if strings.Contains(response, "[SHOW_RULES]") {
		e.metrics.IncToolExecution(llm.ToolShowRules)
		summary, err := e.rulesSummary(ctx)
		if err == nil {
			response = strings.ReplaceAll(response, "[SHOW_RULES]", "\n"+summary)
		}
	}

	return response
}

// parseTagParams разбирает "key=value,key=value" в словарь
func parseTagParams(s string) map[string]string {
	result := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return result
}

// historyToMessages переводит историю диалога в сообщения API
func historyToMessages(history []domain.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, llm.Message{
			Role:    m.Role,
			Content: []llm.ContentBlock{llm.TextBlock(m.Content)},
		})
	}
	return messages
}

// assistantTurn собирает сообщение ассистента с текстом и вызовами инструментов
func assistantTurn(result *llm.ToolResponse) llm.Message {
	content := make([]llm.ContentBlock, 0, len(result.ToolCalls)+1)
	if result.Text != "" {
		content = append(content, llm.TextBlock(result.Text))
	}
	for _, call := range result.ToolCalls {
		input, _ := marshalInput(call.Input)
		content = append(content, llm.ContentBlock{
			Type:  llm.BlockToolUse,
			ID:    call.ID,
			Name:  call.Name,
			Input: input,
		})
	}
	return llm.Message{Role: llm.RoleAssistant, Content: content}
}

func marshalInput(input map[string]interface{}) (json.RawMessage, error) {
	if input == nil {
		return nil, nil
	}
	return json.Marshal(input)
}
