package deck

import (
	"fmt"
	"strings"

	"github.com/codyseavey/deckistry/internal/models"
)

// Entry is one composition entry: a card printing and how many copies of it
// the deck holds. Quantity is always at least 1.
type Entry struct {
	Card     *models.Card `json:"card"`
	Quantity int          `json:"quantity"`
	Foil     bool         `json:"foil"`
}

// CardID is the key of the entry
func (e Entry) CardID() string {
	return e.Card.ID
}

// State is the composition of one deck: a format, an optional commander and
// the entries keyed by card id, kept in insertion order.
//
// A State has a single writer. It is mutated only through an Editor and
// holds no locks of its own.
type State struct {
	format    Format
	commander *models.Card
	entries   map[string]*Entry
	order     []string
}

// NewState returns an empty deck of the given format
func NewState(format Format) *State {
	return &State{
		format:  format,
		entries: make(map[string]*Entry),
	}
}

// Restore rebuilds a State from persisted parts. Entries keep the given
// order. It fails on entries the engine could never have produced: a
// quantity below 1, a repeated card id, or a copy of the commander.
func Restore(format Format, commander *models.Card, entries []Entry) (*State, error) {
	s := NewState(format)
	s.commander = commander
	for _, e := range entries {
		if e.Card == nil || e.Card.ID == "" {
			return nil, fmt.Errorf("entry without card")
		}
		id := e.Card.ID
		if e.Quantity < 1 {
			return nil, fmt.Errorf("entry %s has quantity %d", id, e.Quantity)
		}
		if _, dup := s.entries[id]; dup {
			return nil, fmt.Errorf("entry %s appears twice", id)
		}
		if commander != nil && commander.ID == id {
			return nil, fmt.Errorf("entry %s duplicates the commander", id)
		}
		entry := e
		s.entries[id] = &entry
		s.order = append(s.order, id)
	}
	return s, nil
}

func (s *State) Format() Format {
	return s.format
}

// Commander returns the commander card, or nil when the slot is empty
func (s *State) Commander() *models.Card {
	return s.commander
}

// Entries returns a copy of the entries in insertion order
func (s *State) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// Entry returns the entry for a card id
func (s *State) Entry(id string) (Entry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Quantity returns the copies of a card id in the deck, 0 if absent
func (s *State) Quantity(id string) int {
	if e, ok := s.entries[id]; ok {
		return e.Quantity
	}
	return 0
}

// Copies returns the copies of a card across all of its printings in the
// deck, matched by name. The commander is not counted.
func (s *State) Copies(name string) int {
	n := 0
	for _, e := range s.entries {
		if strings.EqualFold(e.Card.Name, name) {
			n += e.Quantity
		}
	}
	return n
}

// Position returns the index of the entry in insertion order, or -1
func (s *State) Position(id string) int {
	for i, x := range s.order {
		if x == id {
			return i
		}
	}
	return -1
}

// TotalCards is the sum of entry quantities. The commander is not counted.
func (s *State) TotalCards() int {
	total := 0
	for _, e := range s.entries {
		total += e.Quantity
	}
	return total
}

// UniqueCards is the number of entries
func (s *State) UniqueCards() int {
	return len(s.entries)
}

// Clone returns a deep copy of the composition. Card records are shared,
// they are immutable.
func (s *State) Clone() *State {
	c := &State{
		format:    s.format,
		commander: s.commander,
		entries:   make(map[string]*Entry, len(s.entries)),
		order:     append([]string(nil), s.order...),
	}
	for id, e := range s.entries {
		entry := *e
		c.entries[id] = &entry
	}
	return c
}

func (s *State) put(card *models.Card, quantity int, foil bool) {
	if e, ok := s.entries[card.ID]; ok {
		e.Quantity = quantity
		e.Foil = foil
		return
	}
	s.entries[card.ID] = &Entry{Card: card, Quantity: quantity, Foil: foil}
	s.order = append(s.order, card.ID)
}

func (s *State) delete(id string) bool {
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	for i, x := range s.order {
		if x == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// swap replaces the card of an entry in place, keeping position, quantity and foil
func (s *State) swap(oldID string, card *models.Card) {
	e := s.entries[oldID]
	delete(s.entries, oldID)
	e.Card = card
	s.entries[card.ID] = e
	for i, x := range s.order {
		if x == oldID {
			s.order[i] = card.ID
			break
		}
	}
}
