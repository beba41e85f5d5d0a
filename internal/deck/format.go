// Package deck is the deck construction and validation engine: the
// composition of a deck, the format rule table, the mutation API that keeps a
// composition within those rules, and the analytics derived from it.
package deck

import "strings"

type Format string

const (
	FormatCommander Format = "commander"
	FormatStandard  Format = "standard"
	FormatModern    Format = "modern"
	FormatPioneer   Format = "pioneer"
	FormatLegacy    Format = "legacy"
	FormatVintage   Format = "vintage"
	FormatPauper    Format = "pauper"
)

// ParseFormat normalizes a user supplied format name. Unknown names are kept
// as given (lower-cased); they simply have no rules.
func ParseFormat(s string) Format {
	return Format(strings.ToLower(strings.TrimSpace(s)))
}

// Rules are the deck-building constraints of one format.
type Rules struct {
	Format Format `json:"format"`

	// Singleton limits every non-basic-land card to one copy.
	Singleton bool `json:"singleton"`
	// CommanderSlot means the format has a commander slot at all;
	// RequiresCommander makes an empty slot a validation error.
	CommanderSlot     bool `json:"commander_slot"`
	RequiresCommander bool `json:"requires_commander"`
	// ColorIdentity restricts cards to the commander's color identity.
	ColorIdentity bool `json:"color_identity"`

	// ExactSize, when non-zero, is the required count of non-commander cards.
	ExactSize int `json:"exact_size,omitempty"`
	// MinSize, when non-zero, is the minimum count of cards.
	MinSize int `json:"min_size,omitempty"`
	// CopyLimit, when non-zero, is the per card copy limit for non-basic
	// lands. Exceeding it is only a warning.
	CopyLimit int `json:"copy_limit,omitempty"`
}

func constructed(f Format) Rules {
	return Rules{Format: f, MinSize: 60, CopyLimit: 4}
}

var ruleTable = map[Format]Rules{
	FormatCommander: {
		Format:            FormatCommander,
		Singleton:         true,
		CommanderSlot:     true,
		RequiresCommander: true,
		ColorIdentity:     true,
		ExactSize:         99,
	},
	FormatStandard: constructed(FormatStandard),
	FormatModern:   constructed(FormatModern),
	FormatPioneer:  constructed(FormatPioneer),
	FormatLegacy:   constructed(FormatLegacy),
	FormatVintage:  constructed(FormatVintage),
	FormatPauper:   constructed(FormatPauper),
}

// RulesFor looks up the rule table. The second result is false for formats
// the table does not know; those decks are only held to quantity >= 1.
func RulesFor(f Format) (Rules, bool) {
	r, ok := ruleTable[f]
	return r, ok
}

// Known reports whether f has an entry in the rule table
func (f Format) Known() bool {
	_, ok := ruleTable[f]
	return ok
}

// AllowsCommander reports whether a deck of this format may hold a
// commander. Unknown formats place no restriction on the slot.
func (f Format) AllowsCommander() bool {
	r, ok := ruleTable[f]
	return !ok || r.CommanderSlot
}

// KnownFormats lists the formats of the rule table in a stable order
func KnownFormats() []Format {
	return []Format{
		FormatCommander,
		FormatStandard,
		FormatModern,
		FormatPioneer,
		FormatLegacy,
		FormatVintage,
		FormatPauper,
	}
}
