package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"core/internal/model"
	"core/internal/notify"
	"core/internal/session"
)

// scriptedExtractor returns its step results in order, repeating the last
// step once the script runs out.
type scriptedExtractor struct {
	steps []extractStep
	calls int
}

type extractStep struct {
	result *ExtractResult
	err    error
}

func (e *scriptedExtractor) Extract(_ context.Context, _ []model.Turn, _ model.SlotSet, _ string) (*ExtractResult, error) {
	step := e.steps[len(e.steps)-1]
	if e.calls < len(e.steps) {
		step = e.steps[e.calls]
	}
	e.calls++
	return step.result, step.err
}

// failingExtractor simulates an unreachable extraction service.
type failingExtractor struct{}

func (failingExtractor) Extract(_ context.Context, _ []model.Turn, _ model.SlotSet, _ string) (*ExtractResult, error) {
	return nil, fmt.Errorf("extraction service unavailable")
}

// recordingNotifier captures sends and signals delivery on a channel so
// tests can wait for the fire-and-forget goroutine.
type recordingNotifier struct {
	mu        sync.Mutex
	delivered chan string
	lastTo    string
	err       error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{delivered: make(chan string, 1)}
}

func (n *recordingNotifier) Send(_ context.Context, to, body string) error {
	n.mu.Lock()
	n.lastTo = to
	n.mu.Unlock()
	n.delivered <- body
	return n.err
}

func newTestMachine(extractor Extractor, notifier notify.Notifier, maxTurns int) (*DialogueMachine, *session.Store) {
	store := session.NewStore(Greeting)
	machine := NewDialogueMachine(store, extractor, NewRanker(), notifier, nil, testListings(), maxTurns, 3)
	return machine, store
}

func TestDialogue_ContinueEmitsQuestion(t *testing.T) {
	extractor := &scriptedExtractor{steps: []extractStep{
		{result: &ExtractResult{
			Slots:        model.SlotSet{City: stringPtr("Toronto")},
			Done:         false,
			NextQuestion: stringPtr("What is your monthly budget?"),
		}},
	}}
	machine, store := newTestMachine(extractor, nil, 8)

	result := machine.ProcessTurn(context.Background(), "CA1", "somewhere in Toronto", "")
	if result.Done {
		t.Fatal("Expected conversation to continue")
	}
	if result.Question != "What is your monthly budget?" {
		t.Errorf("Question = %q, want extractor's question", result.Question)
	}

	sess := store.Get("CA1")
	if sess == nil {
		t.Fatal("Session must persist while collecting")
	}
	if sess.Slots.City == nil || *sess.Slots.City != "Toronto" {
		t.Error("City slot not merged")
	}
	// greeting + user + assistant question
	if len(sess.Turns) != 3 {
		t.Errorf("Expected 3 turns recorded, got %d", len(sess.Turns))
	}
}

func TestDialogue_FallbackQuestionWhenNoneSupplied(t *testing.T) {
	extractor := &scriptedExtractor{steps: []extractStep{
		{result: &ExtractResult{Slots: model.SlotSet{}, Done: false}},
	}}
	machine, _ := newTestMachine(extractor, nil, 8)

	result := machine.ProcessTurn(context.Background(), "CA1", "hmm", "")
	if result.Done {
		t.Fatal("Expected conversation to continue")
	}
	if result.Question != fallbackQuestion {
		t.Errorf("Question = %q, want fixed fallback question", result.Question)
	}
}

func TestDialogue_MonotonicMerge(t *testing.T) {
	extractor := &scriptedExtractor{steps: []extractStep{
		{result: &ExtractResult{
			Slots: model.SlotSet{City: stringPtr("Ottawa"), Bedrooms: intPtr(2)},
			Done:  false, NextQuestion: stringPtr("Budget?"),
		}},
		// Later turn omits city: it must not regress.
		{result: &ExtractResult{
			Slots: model.SlotSet{MaxBudget: float64Ptr(900)},
			Done:  false, NextQuestion: stringPtr("Move-in date?"),
		}},
		// A new non-nil value does overwrite.
		{result: &ExtractResult{
			Slots: model.SlotSet{Bedrooms: intPtr(1)},
			Done:  false, NextQuestion: stringPtr("Anything else?"),
		}},
	}}
	machine, store := newTestMachine(extractor, nil, 8)

	machine.ProcessTurn(context.Background(), "CA1", "two bedrooms in Ottawa", "")
	machine.ProcessTurn(context.Background(), "CA1", "up to 900", "")
	machine.ProcessTurn(context.Background(), "CA1", "actually one bedroom is fine", "")

	slots := store.Get("CA1").Slots
	if slots.City == nil || *slots.City != "Ottawa" {
		t.Error("City regressed after a turn that omitted it")
	}
	if slots.MaxBudget == nil || *slots.MaxBudget != 900 {
		t.Error("MaxBudget not merged")
	}
	if slots.Bedrooms == nil || *slots.Bedrooms != 1 {
		t.Error("Bedrooms not overwritten by new non-nil value")
	}
}

func TestDialogue_FallbackTermination(t *testing.T) {
	notifier := newRecordingNotifier()
	machine, store := newTestMachine(failingExtractor{}, notifier, 8)

	result := machine.ProcessTurn(context.Background(), "CA1", "hello?", "+15550001111")
	if !result.Done {
		t.Fatal("Extraction failure must force conclusion")
	}

	// Defaults: Toronto, 600..2500. All Toronto test listings qualify; the
	// cheapest three are offered.
	if len(result.Matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(result.Matches))
	}
	for _, listing := range result.Matches {
		if listing.City != "Toronto" {
			t.Errorf("Fallback city not applied, matched %s", listing.City)
		}
		if listing.Price < 600 || listing.Price > 2500 {
			t.Errorf("Fallback budget not applied, matched $%d", listing.Price)
		}
	}

	if store.Get("CA1") != nil {
		t.Error("Session must be destroyed after conclusion")
	}

	select {
	case body := <-notifier.delivered:
		if !strings.Contains(body, "city: Toronto") || !strings.Contains(body, "$600-$2500") {
			t.Errorf("Message header missing fallback criteria: %q", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Notifier was never invoked")
	}
}

func TestDialogue_FallbackPreservesSuppliedSlots(t *testing.T) {
	extractor := &scriptedExtractor{steps: []extractStep{
		{result: &ExtractResult{
			Slots: model.SlotSet{City: stringPtr("Ottawa"), MaxBudget: float64Ptr(900)},
			Done:  false, NextQuestion: stringPtr("Bedrooms?"),
		}},
		{err: fmt.Errorf("timeout")},
	}}
	machine, _ := newTestMachine(extractor, nil, 8)

	machine.ProcessTurn(context.Background(), "CA1", "Ottawa, max 900", "")
	result := machine.ProcessTurn(context.Background(), "CA1", "...", "")

	if !result.Done {
		t.Fatal("Second turn must conclude via fallback")
	}
	// Caller-supplied city and max survive; only min_budget was defaulted,
	// so both Ottawa listings under $900 match.
	if len(result.Matches) != 2 {
		t.Fatalf("Expected 2 Ottawa matches, got %d", len(result.Matches))
	}
	for _, listing := range result.Matches {
		if listing.City != "Ottawa" {
			t.Errorf("Supplied city was overwritten by fallback: matched %s", listing.City)
		}
	}
	if result.Matches[0].Price != 650 || result.Matches[1].Price != 850 {
		t.Errorf("Expected [$650, $850], got [$%d, $%d]", result.Matches[0].Price, result.Matches[1].Price)
	}
}

func TestDialogue_TurnLimitForcesConclusion(t *testing.T) {
	extractor := &scriptedExtractor{steps: []extractStep{
		{result: &ExtractResult{Slots: model.SlotSet{}, Done: false, NextQuestion: stringPtr("More?")}},
	}}
	machine, store := newTestMachine(extractor, nil, 5)

	for i := 0; i < 5; i++ {
		result := machine.ProcessTurn(context.Background(), "CA1", "still thinking", "")
		if result.Done {
			t.Fatalf("Turn %d concluded early", i+1)
		}
	}

	result := machine.ProcessTurn(context.Background(), "CA1", "still thinking", "")
	if !result.Done {
		t.Fatal("6th turn must conclude with max turns = 5")
	}
	if store.Get("CA1") != nil {
		t.Error("Session must be destroyed after forced conclusion")
	}
}

func TestDialogue_SessionDestructionYieldsFreshSession(t *testing.T) {
	machine, store := newTestMachine(failingExtractor{}, nil, 8)

	machine.ProcessTurn(context.Background(), "CA1", "hello", "")

	sess, created := store.GetOrCreate("CA1")
	if !created {
		t.Fatal("Expected a brand-new session after conclusion")
	}
	if sess.UserTurns != 0 {
		t.Errorf("Fresh session has UserTurns = %d, want 0", sess.UserTurns)
	}
	if sess.Slots.City != nil || sess.Slots.MinBudget != nil {
		t.Error("Fresh session must start with empty slots")
	}
}

func TestDialogue_NotifierSkippedWithoutContact(t *testing.T) {
	notifier := newRecordingNotifier()
	machine, _ := newTestMachine(failingExtractor{}, notifier, 8)

	result := machine.ProcessTurn(context.Background(), "CA1", "hello", "")
	if !result.Done {
		t.Fatal("Expected conclusion")
	}

	select {
	case <-notifier.delivered:
		t.Fatal("Notifier must not be invoked without a contact address")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDialogue_NotifierFailureDoesNotAlterResponse(t *testing.T) {
	notifier := newRecordingNotifier()
	notifier.err = fmt.Errorf("delivery failed")
	machine, _ := newTestMachine(failingExtractor{}, notifier, 8)

	result := machine.ProcessTurn(context.Background(), "CA1", "hello", "+15550001111")
	if !result.Done || result.Summary == "" || result.Closing == "" {
		t.Error("Voice response must be complete regardless of notifier failure")
	}

	select {
	case <-notifier.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("Notifier was never invoked")
	}
}

func TestDialogue_MessageBodyFormat(t *testing.T) {
	criteria := model.SearchCriteria{City: "Ottawa", MinBudget: 0, MaxBudget: float64Ptr(900)}
	top := []model.Listing{
		{ID: 5, Title: "Sandy Hill Shared House - Room", City: "Ottawa", Price: 650,
			DistanceToCampusMinutes: 10, Bedrooms: 1,
			Description: "Private room in a shared student house, utilities included.",
			URL:         "https://example.com/sandy-hill-room"},
	}

	body := messageBody(criteria, top)
	lines := strings.Split(body, "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 listing line, got %d lines", len(lines))
	}
	wantLine := "1) Sandy Hill Shared House - Room - Ottawa - 1BR - $650/mo - 10 mins to campus. Private room in a shared student house, utilities included. https://example.com/sandy-hill-room"
	if lines[1] != wantLine {
		t.Errorf("Listing line = %q, want %q", lines[1], wantLine)
	}

	if messageBody(criteria, nil) != "" {
		t.Error("Empty match list must yield empty body")
	}
}

func TestDialogue_SpokenSummary(t *testing.T) {
	top := []model.Listing{
		{Title: "Downtown Loft - 1BR", City: "Toronto", Price: 1300, Bedrooms: 1},
		{Title: "Maple 2BR", City: "Toronto", Price: 1450, Bedrooms: 2},
	}
	got := spokenSummary(top)
	want := "I found 2 options. The first is Downtown Loft - 1BR in Toronto for 1300 dollars per month with 1 bedrooms."
	if got != want {
		t.Errorf("spokenSummary() = %q, want %q", got, want)
	}

	if spokenSummary(nil) != noMatchSummary {
		t.Error("Empty result must use the no-match summary")
	}
}

func TestBuildCriteria(t *testing.T) {
	tests := []struct {
		name  string
		slots model.SlotSet
		check func(t *testing.T, c model.SearchCriteria)
	}{
		{
			name:  "Empty slots use defaults",
			slots: model.SlotSet{},
			check: func(t *testing.T, c model.SearchCriteria) {
				if c.City != "Toronto" {
					t.Errorf("City = %q, want default Toronto", c.City)
				}
				if c.MinBudget != 0 {
					t.Errorf("MinBudget = %f, want 0", c.MinBudget)
				}
				if c.MaxBudget != nil {
					t.Error("MaxBudget must be unbounded when unset")
				}
				if c.Bedrooms != nil {
					t.Error("Bedrooms must be unset when slot is nil")
				}
			},
		},
		{
			name: "Zero values are legitimate, not absent",
			slots: model.SlotSet{
				MinBudget: float64Ptr(0),
				Bedrooms:  intPtr(0),
			},
			check: func(t *testing.T, c model.SearchCriteria) {
				if c.Bedrooms == nil || *c.Bedrooms != 0 {
					t.Error("Bedrooms = 0 must survive as an explicit constraint")
				}
			},
		},
		{
			name: "Filled slots carry through",
			slots: model.SlotSet{
				City:      stringPtr("Ottawa"),
				MinBudget: float64Ptr(500),
				MaxBudget: float64Ptr(900),
				Bedrooms:  intPtr(1),
			},
			check: func(t *testing.T, c model.SearchCriteria) {
				if c.City != "Ottawa" || c.MinBudget != 500 {
					t.Error("Slot values not carried into criteria")
				}
				if c.MaxBudget == nil || *c.MaxBudget != 900 {
					t.Error("MaxBudget not carried into criteria")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, buildCriteria(tt.slots))
		})
	}
}
