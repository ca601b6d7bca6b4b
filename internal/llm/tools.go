package llm

// Имена инструментов гостевого и владельческого режимов
const (
	ToolCollectGuestInfo = "collect_guest_info"
	ToolConfirmBooking   = "confirm_booking"

	ToolAddRule    = "add_rule"
	ToolBlockTime  = "block_time"
	ToolRemoveRule = "remove_rule"
	ToolClearRules = "clear_rules"
	ToolClearAll   = "clear_all"
	ToolShowRules  = "show_rules"
)

// GuestTools инструменты гостевого диалога
func GuestTools() []Tool {
	return []Tool{
		{
			Name: ToolCollectGuestInfo,
			Description: "Save the guest's contact info and meeting topic. " +
				"Call this as soon as you know the guest's name and email. " +
				"You MUST call this before confirm_booking.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Guest's name.",
					},
					"email": map[string]interface{}{
						"type":        "string",
						"description": "Guest's email for the calendar invite.",
					},
					"topic": map[string]interface{}{
						"type":        "string",
						"description": "What the meeting is about (short summary).",
					},
					"city": map[string]interface{}{
						"type":        "string",
						"description": "Guest's city or timezone, if mentioned.",
					},
				},
				"required": []string{"name", "email"},
			},
		},
		{
			Name: ToolConfirmBooking,
			Description: "Confirm and book a meeting slot. Call this ONLY after collect_guest_info has been called. " +
				"Use the 1-based slot number from the AVAILABLE SLOTS list.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"slot_number": map[string]interface{}{
						"type":        "integer",
						"description": "The 1-based slot number from the AVAILABLE SLOTS list.",
					},
					"attendee_emails": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Additional attendee emails (max 2). Optional.",
					},
				},
				"required": []string{"slot_number"},
			},
		},
	}
}

// OwnerTools инструменты владельческого диалога
func OwnerTools() []Tool {
	dayProp := map[string]interface{}{
		"type": "string",
		"description": "Day of week, lowercase English: monday, tuesday, wednesday, " +
			"thursday, friday, saturday, sunday. Mutually exclusive with 'date'.",
	}
	dateProp := map[string]interface{}{
		"type":        "string",
		"description": "Specific date in YYYY-MM-DD format. Mutually exclusive with 'day'.",
	}

	return []Tool{
		{
			Name: ToolAddRule,
			Description: "Add a recurring or specific-date availability rule. " +
				"Use 'day' for recurring weekly rules (e.g. 'monday') or 'date' for a specific date. " +
				"Each slot needs its own add_rule call.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"day":  dayProp,
					"date": dateProp,
					"start": map[string]interface{}{
						"type":        "string",
						"description": "Start time in HH:MM format (24h).",
					},
					"end": map[string]interface{}{
						"type":        "string",
						"description": "End time in HH:MM format (24h).",
					},
				},
				"required": []string{"start", "end"},
			},
		},
		{
			Name: ToolBlockTime,
			Description: "Block a recurring or specific-date time range (mark as unavailable). " +
				"Guests cannot book during blocked times.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"day":  dayProp,
					"date": dateProp,
					"start": map[string]interface{}{
						"type":        "string",
						"description": "Start time HH:MM (24h).",
					},
					"end": map[string]interface{}{
						"type":        "string",
						"description": "End time HH:MM (24h).",
					},
				},
				"required": []string{"start", "end"},
			},
		},
		{
			Name: ToolRemoveRule,
			Description: "Remove a single availability rule by its id. " +
				"Rule ids are the #N numbers in the current rules summary.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"rule_id": map[string]interface{}{
						"type":        "integer",
						"description": "The rule id (#N) from the rules summary.",
					},
				},
				"required": []string{"rule_id"},
			},
		},
		{
			Name:        ToolClearRules,
			Description: "Clear all availability rules for a specific day of week or specific date.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"day":  dayProp,
					"date": dateProp,
				},
			},
		},
		{
			Name:        ToolClearAll,
			Description: "Clear ALL availability rules. Use when the owner wants to start completely fresh.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        ToolShowRules,
			Description: "Show the current availability rules summary to the owner.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}
