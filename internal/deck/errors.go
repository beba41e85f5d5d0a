package deck

import "fmt"

// Constraint names the rule a mutation or a deck failed
type Constraint string

const (
	ConstraintQuantity             Constraint = "quantity"
	ConstraintSingleton            Constraint = "singleton"
	ConstraintColorIdentity        Constraint = "color_identity"
	ConstraintCommanderDuplicate   Constraint = "commander_duplicate"
	ConstraintCommanderSlot        Constraint = "commander_slot"
	ConstraintCommanderMissing     Constraint = "commander_missing"
	ConstraintCommanderEligibility Constraint = "commander_eligibility"
	ConstraintDeckSize             Constraint = "deck_size"
	ConstraintCopyLimit            Constraint = "copy_limit"
	ConstraintPrintingMismatch     Constraint = "printing_mismatch"
	ConstraintDuplicatePrinting    Constraint = "duplicate_printing"
	ConstraintEntryMissing         Constraint = "entry_missing"
)

// RuleViolation is returned when a mutation is refused. The deck is left
// exactly as it was before the call.
type RuleViolation struct {
	Constraint Constraint `json:"constraint"`
	CardID     string     `json:"card_id,omitempty"`
	CardName   string     `json:"card_name,omitempty"`
	Message    string     `json:"message"`
}

func (v *RuleViolation) Error() string {
	if v.CardName != "" {
		return fmt.Sprintf("%s: %s (%s)", v.Constraint, v.Message, v.CardName)
	}
	return fmt.Sprintf("%s: %s", v.Constraint, v.Message)
}

func violation(c Constraint, id, name, format string, args ...any) *RuleViolation {
	return &RuleViolation{
		Constraint: c,
		CardID:     id,
		CardName:   name,
		Message:    fmt.Sprintf(format, args...),
	}
}
