package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"core/internal/model"
	"core/internal/notify"
	"core/internal/repository"
	"core/internal/session"
)

// Spoken lines used across the call flow.
const (
	Greeting = "Welcome to the student housing helper. Please describe your preferred city, budget, and number of bedrooms."

	// DisconnectNotice is spoken when a gather times out without speech.
	DisconnectNotice = "If you are disconnected, we will text you the best options."

	fallbackQuestion = "Could you tell me a bit more about the city, budget, or number of bedrooms you are looking for?"
	closingStatement = "Thank you for calling. Goodbye."
	noMatchSummary   = "I could not find a good match, but we will text you options soon."
)

// Fallback slot defaults, applied only to slots the caller never supplied
// when the extraction service is unavailable. The defaulting is explicit:
// a caller-supplied value, including 0, is never replaced.
const (
	fallbackCity      = "Toronto"
	fallbackMinBudget = float64(600)
	fallbackMaxBudget = float64(2500)
)

// defaultCriteriaCity fills the city criterion when a dialogue concludes
// without one.
const defaultCriteriaCity = "Toronto"

// TurnResult is the outcome of processing one caller utterance: either a
// follow-up question (conversation continues) or a spoken summary plus
// closing statement (conversation concluded, session destroyed).
type TurnResult struct {
	Done     bool
	Question string          // follow-up to speak when !Done
	Summary  string          // spoken summary when Done
	Closing  string          // closing statement when Done
	Matches  []model.Listing // top matches when Done
}

// DialogueMachine orchestrates one conversation turn: it ingests the
// caller's utterance, consults the extractor, merges slots, decides whether
// to continue or conclude, and on conclusion ranks the catalog, notifies
// the caller, and destroys the session.
type DialogueMachine struct {
	store      *session.Store
	extractor  Extractor
	ranker     *Ranker
	notifier   notify.Notifier
	callLog    *repository.CallLogRepository
	listings   []model.Listing
	maxTurns   int
	topMatches int
}

// NewDialogueMachine wires the machine's collaborators. notifier and
// callLog may be nil; both are best-effort side channels.
func NewDialogueMachine(
	store *session.Store,
	extractor Extractor,
	ranker *Ranker,
	notifier notify.Notifier,
	callLog *repository.CallLogRepository,
	listings []model.Listing,
	maxTurns, topMatches int,
) *DialogueMachine {
	return &DialogueMachine{
		store:      store,
		extractor:  extractor,
		ranker:     ranker,
		notifier:   notifier,
		callLog:    callLog,
		listings:   listings,
		maxTurns:   maxTurns,
		topMatches: topMatches,
	}
}

// ProcessTurn runs one turn of the dialogue for callID. The utterance may
// be empty if no speech was captured; contact, when non-empty, is an
// address the result summary can be texted to. ProcessTurn always produces
// a well-formed result: extraction failures fall back to defaults and force
// conclusion rather than surfacing an error to the caller.
func (m *DialogueMachine) ProcessTurn(ctx context.Context, callID, utterance, contact string) *TurnResult {
	sess, _ := m.store.GetOrCreate(callID)
	sess.AddTurn(model.RoleUser, utterance)

	result, err := m.extractor.Extract(ctx, sess.Turns, sess.Slots, utterance)
	if err != nil {
		log.Printf("Extraction failed for call %s: %v, using fallback", callID, err)
		result = m.fallbackResult(sess.Slots)
	}

	sess.MergeSlots(&result.Slots)

	done := result.Done
	if sess.UserTurns > m.maxTurns {
		done = true
	}

	if !done {
		question := fallbackQuestion
		if result.NextQuestion != nil && *result.NextQuestion != "" {
			question = *result.NextQuestion
		}
		sess.AddTurn(model.RoleAssistant, question)
		return &TurnResult{Question: question}
	}

	return m.conclude(sess, contact)
}

// fallbackResult substitutes for the extractor when it fails or returns an
// unusable reply: still-nil city and budget slots are defaulted and the
// dialogue is forced to conclude, so the conversation always terminates
// even with the extraction service down.
func (m *DialogueMachine) fallbackResult(current model.SlotSet) *ExtractResult {
	slots := current
	if slots.City == nil {
		city := fallbackCity
		slots.City = &city
	}
	if slots.MinBudget == nil {
		budget := fallbackMinBudget
		slots.MinBudget = &budget
	}
	if slots.MaxBudget == nil {
		budget := fallbackMaxBudget
		slots.MaxBudget = &budget
	}
	return &ExtractResult{Slots: slots, Done: true}
}

// conclude ranks the catalog against the session's final slots, kicks off
// the best-effort SMS and call-log side effects, destroys the session, and
// returns the closing voice response.
func (m *DialogueMachine) conclude(sess *session.Session, contact string) *TurnResult {
	criteria := buildCriteria(sess.Slots)
	ranked := m.ranker.Rank(m.listings, criteria)
	top := ranked
	if len(top) > m.topMatches {
		top = top[:m.topMatches]
	}

	summary := spokenSummary(top)
	body := messageBody(criteria, top)

	if m.notifier != nil && contact != "" && body != "" {
		go func() {
			if err := m.notifier.Send(context.Background(), contact, body); err != nil {
				log.Printf("Failed to send SMS for call %s: %v", sess.CallID, err)
			}
		}()
	}

	if m.callLog != nil {
		callID := sess.CallID
		turns := sess.UserTurns
		listingIDs := make([]int64, len(top))
		for i, listing := range top {
			listingIDs[i] = int64(listing.ID)
		}
		go func() {
			if err := m.callLog.LogCall(context.Background(), callID, criteria, listingIDs, turns); err != nil {
				log.Printf("Failed to log call %s: %v", callID, err)
			}
		}()
	}

	m.store.Remove(sess.CallID)

	return &TurnResult{
		Done:    true,
		Summary: summary,
		Closing: closingStatement,
		Matches: top,
	}
}

// buildCriteria derives search criteria from the final slot set. Checks are
// explicit nil tests so a legitimate value of 0 is preserved.
func buildCriteria(slots model.SlotSet) model.SearchCriteria {
	criteria := model.SearchCriteria{City: defaultCriteriaCity}
	if slots.City != nil {
		criteria.City = *slots.City
	}
	if slots.MinBudget != nil {
		criteria.MinBudget = *slots.MinBudget
	}
	if slots.MaxBudget != nil {
		criteria.MaxBudget = slots.MaxBudget
	}
	if slots.Bedrooms != nil && *slots.Bedrooms >= 0 {
		criteria.Bedrooms = slots.Bedrooms
	}
	return criteria
}

// spokenSummary builds the sentence read to the caller at conclusion.
func spokenSummary(top []model.Listing) string {
	if len(top) == 0 {
		return noMatchSummary
	}
	best := top[0]
	return fmt.Sprintf("I found %d options. The first is %s in %s for %d dollars per month with %d bedrooms.",
		len(top), best.Title, best.City, best.Price, best.Bedrooms)
}

// messageBody builds the itemized text sent to the caller: a header with
// the criteria, then one line per matched listing.
func messageBody(criteria model.SearchCriteria, top []model.Listing) string {
	if len(top) == 0 {
		return ""
	}

	budget := fmt.Sprintf("$%.0f+", criteria.MinBudget)
	if criteria.MaxBudget != nil {
		budget = fmt.Sprintf("$%.0f-$%.0f", criteria.MinBudget, *criteria.MaxBudget)
	}
	bedrooms := "any"
	if criteria.Bedrooms != nil {
		bedrooms = fmt.Sprintf("%d", *criteria.Bedrooms)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for calling! Here are your matches based on city: %s, budget: %s, bedrooms: %s.",
		criteria.City, budget, bedrooms)
	for i, listing := range top {
		fmt.Fprintf(&b, "\n%d) %s - %s - %dBR - $%d/mo - %d mins to campus. %s %s",
			i+1, listing.Title, listing.City, listing.Bedrooms, listing.Price,
			listing.DistanceToCampusMinutes, listing.Description, listing.URL)
	}
	return b.String()
}
