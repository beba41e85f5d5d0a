package deck

import (
	"fmt"
	"strings"

	"github.com/codyseavey/deckistry/internal/models"
)

// MaxQuantity is the most copies of one printing a deck entry holds
const MaxQuantity = 9999

// Check decides whether delta more copies of card may be added to s. It
// returns nil to admit, or the *RuleViolation that refuses the add.
//
// Color identity is only checked once a commander is set, so a deck can be
// built up before its commander is chosen. Copy limits of constructed
// formats never refuse an add; Validate reports them as warnings.
// Singleton counts every printing of a card, and the commander, by name.
func Check(s *State, card *models.Card, delta int) error {
	if delta < 1 {
		return violation(ConstraintQuantity, card.ID, card.Name, "quantity to add must be at least 1, got %d", delta)
	}
	if delta > MaxQuantity-s.Quantity(card.ID) {
		return violation(ConstraintQuantity, card.ID, card.Name, "a deck holds at most %d copies of a card", MaxQuantity)
	}
	if cmd := s.commander; cmd != nil && cmd.ID == card.ID {
		return violation(ConstraintCommanderDuplicate, card.ID, card.Name, "card is already the commander")
	}

	rules, ok := RulesFor(s.format)
	if !ok {
		return nil
	}

	if rules.Singleton && !card.IsBasicLand() {
		have := s.Copies(card.Name)
		if cmd := s.commander; cmd != nil && strings.EqualFold(cmd.Name, card.Name) {
			have++
		}
		if delta > 1-have {
			return violation(ConstraintSingleton, card.ID, card.Name,
				"%s decks allow one copy of each card except basic lands", rules.Format)
		}
	}

	if rules.ColorIdentity && s.commander != nil {
		if outside := card.ColorIdentity.Outside(s.commander.ColorIdentity); len(outside) > 0 {
			return violation(ConstraintColorIdentity, card.ID, card.Name,
				"color identity %s is outside the commander's %s (%s)",
				card.ColorIdentity, s.commander.ColorIdentity, s.commander.Name)
		}
	}

	return nil
}

// CheckCommander decides whether card may take the commander slot of s.
// Commander eligibility (legendary creature or vehicle) is advisory and is
// reported by Validate, never enforced here. Existing entries are not
// rechecked against the new commander's color identity.
func CheckCommander(s *State, card *models.Card) error {
	if !s.format.AllowsCommander() {
		return violation(ConstraintCommanderSlot, card.ID, card.Name, "%s decks have no commander", s.format)
	}
	if _, ok := s.entries[card.ID]; ok {
		return violation(ConstraintCommanderDuplicate, card.ID, card.Name,
			"card is already in the deck; remove it before making it the commander")
	}
	return nil
}

// Issue is one finding of a full deck validation
type Issue struct {
	Constraint Constraint `json:"constraint"`
	CardID     string     `json:"card_id,omitempty"`
	CardName   string     `json:"card_name,omitempty"`
	Message    string     `json:"message"`
}

// Report is the result of Validate. Errors make a deck illegal for its
// format, warnings are surfaced but do not.
type Report struct {
	Format      Format  `json:"format"`
	KnownFormat bool    `json:"known_format"`
	Valid       bool    `json:"valid"`
	TotalCards  int     `json:"total_cards"`
	UniqueCards int     `json:"unique_cards"`
	Errors      []Issue `json:"errors"`
	Warnings    []Issue `json:"warnings"`
}

func (r *Report) fail(c Constraint, card *models.Card, format string, args ...any) {
	r.Errors = append(r.Errors, issue(c, card, format, args...))
}

func (r *Report) warn(c Constraint, card *models.Card, format string, args ...any) {
	r.Warnings = append(r.Warnings, issue(c, card, format, args...))
}

func issue(c Constraint, card *models.Card, format string, args ...any) Issue {
	i := Issue{Constraint: c, Message: fmt.Sprintf(format, args...)}
	if card != nil {
		i.CardID = card.ID
		i.CardName = card.Name
	}
	return i
}

// Validate checks a complete deck against its format. It never mutates s.
func Validate(s *State) Report {
	report := Report{
		Format:      s.format,
		TotalCards:  s.TotalCards(),
		UniqueCards: s.UniqueCards(),
		Errors:      []Issue{},
		Warnings:    []Issue{},
	}

	rules, ok := RulesFor(s.format)
	report.KnownFormat = ok
	if !ok {
		report.Valid = true
		return report
	}

	cmd := s.commander
	switch {
	case cmd == nil && rules.RequiresCommander:
		report.fail(ConstraintCommanderMissing, nil, "%s decks need a commander", rules.Format)
	case cmd != nil && !rules.CommanderSlot:
		report.fail(ConstraintCommanderSlot, cmd, "%s decks have no commander", rules.Format)
	case cmd != nil && !cmd.IsCommanderCandidate():
		report.warn(ConstraintCommanderEligibility, cmd, "commander should be a legendary creature or vehicle")
	}

	if rules.ExactSize > 0 && report.TotalCards != rules.ExactSize {
		report.fail(ConstraintDeckSize, nil, "deck must have exactly %d cards besides the commander, has %d",
			rules.ExactSize, report.TotalCards)
	}
	if rules.MinSize > 0 && report.TotalCards < rules.MinSize {
		report.fail(ConstraintDeckSize, nil, "deck must have at least %d cards, has %d",
			rules.MinSize, report.TotalCards)
	}

	// copies per card name, summed over printings, in first-seen order
	copies := make(map[string]int)
	firstSeen := make(map[string]*models.Card)
	var names []string
	for _, e := range s.Entries() {
		card := e.Card
		if rules.ColorIdentity && cmd != nil {
			if outside := card.ColorIdentity.Outside(cmd.ColorIdentity); len(outside) > 0 {
				report.fail(ConstraintColorIdentity, card, "color identity %s is outside the commander's %s",
					card.ColorIdentity, cmd.ColorIdentity)
			}
		}
		if card.IsBasicLand() {
			continue
		}
		key := strings.ToLower(card.Name)
		if _, ok := copies[key]; !ok {
			names = append(names, key)
			firstSeen[key] = card
		}
		copies[key] += e.Quantity
	}
	if cmd != nil {
		if key := strings.ToLower(cmd.Name); copies[key] > 0 {
			copies[key]++
		}
	}

	for _, key := range names {
		card, n := firstSeen[key], copies[key]
		if rules.Singleton && n > 1 {
			report.fail(ConstraintSingleton, card, "%d copies, only one allowed", n)
		}
		if rules.CopyLimit > 0 && n > rules.CopyLimit {
			report.warn(ConstraintCopyLimit, card, "%d copies, more than the limit of %d", n, rules.CopyLimit)
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}
