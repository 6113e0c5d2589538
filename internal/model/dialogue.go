package model

// Turn roles. Every conversation turn carries exactly one of these.
const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Turn is one utterance in a call: who said it and what was said.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// SlotSet holds the recognized caller preferences. Every field is
// independently nullable until the extractor fills it; a non-nil value is
// only ever replaced by another non-nil value (see Merge).
type SlotSet struct {
	City       *string  `json:"city,omitempty"`
	MinBudget  *float64 `json:"min_budget,omitempty"`
	MaxBudget  *float64 `json:"max_budget,omitempty"`
	MoveInDate *string  `json:"move_in_date,omitempty"`
	Bedrooms   *int     `json:"bedrooms,omitempty"`
	Roommates  *int     `json:"roommates,omitempty"`
}

// Merge overlays non-nil fields of update onto s. Nil fields in update
// never clear a value that was captured on an earlier turn, so slots only
// ever become more specified.
func (s *SlotSet) Merge(update *SlotSet) {
	if update == nil {
		return
	}
	if update.City != nil {
		s.City = update.City
	}
	if update.MinBudget != nil {
		s.MinBudget = update.MinBudget
	}
	if update.MaxBudget != nil {
		s.MaxBudget = update.MaxBudget
	}
	if update.MoveInDate != nil {
		s.MoveInDate = update.MoveInDate
	}
	if update.Bedrooms != nil {
		s.Bedrooms = update.Bedrooms
	}
	if update.Roommates != nil {
		s.Roommates = update.Roommates
	}
}
