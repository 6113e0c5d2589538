package service

import (
	"context"
	"encoding/json"
	"fmt"

	"core/internal/model"
	"core/internal/utils"
)

// Extractor is the capability the dialogue machine calls to infer slot
// values from conversation text. Implementations must return an error for
// anything the machine cannot act on; the machine owns the fallback policy.
type Extractor interface {
	Extract(ctx context.Context, turns []model.Turn, current model.SlotSet, utterance string) (*ExtractResult, error)
}

// ExtractResult is a validated extraction: updated slot values, whether
// enough has been gathered to conclude, and the follow-up question to ask
// if not.
type ExtractResult struct {
	Slots        model.SlotSet
	Done         bool
	NextQuestion *string
}

// extractEnvelope mirrors the JSON the model is asked to produce. Slots and
// Done are pointers so a reply that omits either key is detectably
// malformed rather than silently zero-valued.
type extractEnvelope struct {
	Slots        *model.SlotSet `json:"slots"`
	Done         *bool          `json:"done"`
	NextQuestion *string        `json:"next_question"`
}

const extractorSystemPrompt = `You are a housing assistant on a phone call with a student looking for a rental.
Across the conversation you gather these preferences (the "slots"):
- city: city they want to live in (string)
- min_budget: minimum monthly budget (number)
- max_budget: maximum monthly budget (number)
- move_in_date: when they want to move in (string, free-form)
- bedrooms: number of bedrooms they need (integer >= 0)
- roommates: number of roommates they will live with (integer >= 0)

Respond ONLY with a JSON object of this exact shape:
{"slots": {...}, "done": true|false, "next_question": "..." or null}

Rules:
- In "slots", include only the slots the caller's latest utterance establishes or corrects. Omit everything else. Never set a slot to null.
- Set "done" to true once city and a budget are known, or when the caller asks to finish.
- When "done" is false, "next_question" must be one short spoken question asking for the most useful missing slot. When "done" is true, set it to null.
- Budgets are monthly amounts: "1.2k" = 1200, "about a thousand" = 1000.

Examples:
Utterance: "Somewhere in Toronto, up to 1500 a month"
Response: {"slots": {"city": "Toronto", "max_budget": 1500}, "done": false, "next_question": "How many bedrooms are you looking for?"}

Utterance: "Two bedrooms, me and one roommate, moving in September"
Response: {"slots": {"bedrooms": 2, "roommates": 1, "move_in_date": "September"}, "done": false, "next_question": "What is your monthly budget?"}

Utterance: "That's everything, thanks"
Response: {"slots": {}, "done": true, "next_question": null}`

// PreferenceExtractor implements Extractor on top of the OpenAI-compatible
// chat API.
type PreferenceExtractor struct {
	aiClient *OpenAIClient
}

// NewPreferenceExtractor creates an extractor backed by aiClient. A nil or
// disabled client makes every extraction fail, which the dialogue machine
// absorbs via its fallback policy.
func NewPreferenceExtractor(aiClient *OpenAIClient) *PreferenceExtractor {
	return &PreferenceExtractor{aiClient: aiClient}
}

// Extract replays the conversation to the model and parses its reply into a
// validated ExtractResult.
func (e *PreferenceExtractor) Extract(ctx context.Context, turns []model.Turn, current model.SlotSet, utterance string) (*ExtractResult, error) {
	if !e.aiClient.IsEnabled() {
		return nil, fmt.Errorf("OpenAI API is not enabled")
	}

	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal current slots: %w", err)
	}

	messages := make([]ChatMessage, 0, len(turns)+2)
	messages = append(messages, ChatMessage{Role: model.RoleSystem, Content: extractorSystemPrompt})
	messages = append(messages, ChatMessage{
		Role:    model.RoleSystem,
		Content: fmt.Sprintf("Slots gathered so far: %s", currentJSON),
	})
	for _, turn := range turns {
		role := turn.Role
		if role == model.RoleSystem {
			role = model.RoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, ChatMessage{
		Role:    model.RoleSystem,
		Content: fmt.Sprintf("Extract from the caller's latest utterance: %q", utterance),
	})

	req := ChatCompletionRequest{
		Messages:       messages,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	resp, err := e.aiClient.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	var envelope extractEnvelope
	if err := utils.ParseAIJSON(content, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if envelope.Slots == nil || envelope.Done == nil {
		return nil, fmt.Errorf("AI response missing slots or done key")
	}

	result := &ExtractResult{
		Slots:        *envelope.Slots,
		Done:         *envelope.Done,
		NextQuestion: envelope.NextQuestion,
	}
	if err := validateExtractResult(result); err != nil {
		return nil, fmt.Errorf("AI response validation failed: %w", err)
	}
	return result, nil
}

// validateExtractResult applies business rules to the parsed extraction.
func validateExtractResult(result *ExtractResult) error {
	slots := result.Slots
	if slots.MinBudget != nil && *slots.MinBudget < 0 {
		return fmt.Errorf("min_budget cannot be negative")
	}
	if slots.MaxBudget != nil && *slots.MaxBudget < 0 {
		return fmt.Errorf("max_budget cannot be negative")
	}
	if slots.MinBudget != nil && slots.MaxBudget != nil && *slots.MinBudget > *slots.MaxBudget {
		return fmt.Errorf("min_budget (%f) cannot be greater than max_budget (%f)", *slots.MinBudget, *slots.MaxBudget)
	}
	if slots.Bedrooms != nil && (*slots.Bedrooms < 0 || *slots.Bedrooms > 10) {
		return fmt.Errorf("bedrooms must be between 0 and 10")
	}
	if slots.Roommates != nil && (*slots.Roommates < 0 || *slots.Roommates > 10) {
		return fmt.Errorf("roommates must be between 0 and 10")
	}
	return nil
}

// Ensure PreferenceExtractor implements Extractor
var _ Extractor = (*PreferenceExtractor)(nil)
