package deck

import (
	"context"
	"errors"
	"strings"

	"github.com/codyseavey/deckistry/internal/models"
)

// NamedQuery asks the card source for a card by name, optionally pinned to
// a set and collector number.
type NamedQuery struct {
	Name            string
	SetCode         string
	CollectorNumber string
}

// CardSource resolves card records. Both methods may block on remote I/O
// and return errors wrapping models.ErrCardNotFound or models.ErrLookupFailed.
type CardSource interface {
	Resolve(ctx context.Context, id string) (*models.Card, error)
	ResolveNamed(ctx context.Context, q NamedQuery) (*models.Card, error)
}

type Op string

const (
	OpSetCommander    Op = "set_commander"
	OpRemoveCommander Op = "remove_commander"
	OpAdd             Op = "add"
	OpIncrement       Op = "increment"
	OpDecrement       Op = "decrement"
	OpSetQuantity     Op = "set_quantity"
	OpRemove          Op = "remove"
	OpSetFoil         Op = "set_foil"
	OpReplacePrinting Op = "replace_printing"
	OpSetFormat       Op = "set_format"
)

type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeNoop     Outcome = "noop"
	OutcomeRejected Outcome = "rejected"

	// OutcomeCommanderOffered means nothing changed: the card could be the
	// commander and the caller has to decide. Repeat the add with
	// CommanderAccept or CommanderDecline.
	OutcomeCommanderOffered Outcome = "commander_offered"
)

// CommanderChoice answers the "offer as commander?" decision point of an add
type CommanderChoice string

const (
	CommanderAsk     CommanderChoice = "ask"
	CommanderAccept  CommanderChoice = "accept"
	CommanderDecline CommanderChoice = "decline"
)

// Result describes what one mutation did
type Result struct {
	Op        Op             `json:"op"`
	Outcome   Outcome        `json:"outcome"`
	CardID    string         `json:"card_id,omitempty"`
	CardName  string         `json:"card_name,omitempty"`
	Quantity  int            `json:"quantity"`
	Foil      bool           `json:"foil"`
	PrevID    string         `json:"prev_card_id,omitempty"`
	Format    Format         `json:"format,omitempty"`
	Violation *RuleViolation `json:"violation,omitempty"`
}

// Observer receives the Result of every applied mutation
type Observer func(Result)

// Editor is the mutation API over one State. Every operation is atomic: it
// either applies completely or leaves the State untouched.
//
// An Editor is owned by a single editing session and is not safe for
// concurrent use.
type Editor struct {
	state     *State
	source    CardSource
	observers []Observer
}

// NewEditor wraps s. source is used by the operations that take card ids.
func NewEditor(s *State, source CardSource) *Editor {
	if s == nil {
		s = NewState("")
	}
	return &Editor{state: s, source: source}
}

// Subscribe registers an observer for applied mutations
func (e *Editor) Subscribe(o Observer) {
	e.observers = append(e.observers, o)
}

// State returns a copy of the current composition
func (e *Editor) State() *State {
	return e.state.Clone()
}

func (e *Editor) Format() Format {
	return e.state.format
}

func (e *Editor) Validate() Report {
	return Validate(e.state)
}

func (e *Editor) Analyze() Analysis {
	return Analyze(e.state)
}

func (e *Editor) emit(r Result) Result {
	if r.Outcome == OutcomeApplied {
		for _, o := range e.observers {
			o(r)
		}
	}
	return r
}

func rejected(op Op, card *models.Card, err error) (Result, error) {
	r := Result{Op: op, Outcome: OutcomeRejected}
	if card != nil {
		r.CardID = card.ID
		r.CardName = card.Name
	}
	var v *RuleViolation
	if errors.As(err, &v) {
		r.Violation = v
	}
	return r, err
}

func (e *Editor) entryResult(op Op, id string) Result {
	en := e.state.entries[id]
	return Result{Op: op, Outcome: OutcomeApplied, CardID: id, CardName: en.Card.Name, Quantity: en.Quantity, Foil: en.Foil}
}

func (e *Editor) missing(op Op, id string) (Result, error) {
	return rejected(op, &models.Card{ID: id}, violation(ConstraintEntryMissing, id, "", "card %s is not in the deck", id))
}

// SetFormat changes the format. Nothing is purged: a commander the new
// format has no slot for moves into the main entries as a single copy.
func (e *Editor) SetFormat(f Format) Result {
	if f == e.state.format {
		return Result{Op: OpSetFormat, Outcome: OutcomeNoop, Format: f}
	}
	e.state.format = f
	if cmd := e.state.commander; cmd != nil && !f.AllowsCommander() {
		e.state.commander = nil
		e.state.put(cmd, 1, false)
	}
	return e.emit(Result{Op: OpSetFormat, Outcome: OutcomeApplied, Format: f})
}

// SetCommander puts card in the commander slot, replacing any previous
// commander. Existing entries are not rechecked against the new color
// identity; violations show up in Validate.
func (e *Editor) SetCommander(card *models.Card) (Result, error) {
	if err := CheckCommander(e.state, card); err != nil {
		return rejected(OpSetCommander, card, err)
	}
	prev := ""
	if e.state.commander != nil {
		if e.state.commander.ID == card.ID {
			return Result{Op: OpSetCommander, Outcome: OutcomeNoop, CardID: card.ID, CardName: card.Name, Quantity: 1}, nil
		}
		prev = e.state.commander.ID
	}
	e.state.commander = card
	return e.emit(Result{Op: OpSetCommander, Outcome: OutcomeApplied, CardID: card.ID, CardName: card.Name, Quantity: 1, PrevID: prev}), nil
}

// SetCommanderByID resolves id and sets it as commander
func (e *Editor) SetCommanderByID(ctx context.Context, id string) (Result, error) {
	card, err := e.source.Resolve(ctx, id)
	if err != nil {
		return Result{Op: OpSetCommander, Outcome: OutcomeRejected, CardID: id}, err
	}
	return e.SetCommander(card)
}

// RemoveCommander clears the commander slot unconditionally
func (e *Editor) RemoveCommander() Result {
	cmd := e.state.commander
	if cmd == nil {
		return Result{Op: OpRemoveCommander, Outcome: OutcomeNoop}
	}
	e.state.commander = nil
	return e.emit(Result{Op: OpRemoveCommander, Outcome: OutcomeApplied, CardID: cmd.ID, CardName: cmd.Name})
}

// AddCard resolves id and adds delta copies of it
func (e *Editor) AddCard(ctx context.Context, id string, delta int, choice CommanderChoice) (Result, error) {
	card, err := e.source.Resolve(ctx, id)
	if err != nil {
		return Result{Op: OpAdd, Outcome: OutcomeRejected, CardID: id}, err
	}
	return e.AddResolved(card, delta, choice)
}

// shouldOffer is the commander decision point: a legendary creature or
// vehicle added to a deck that requires a commander and has none yet.
func (e *Editor) shouldOffer(card *models.Card) bool {
	rules, ok := RulesFor(e.state.format)
	if !ok || !rules.RequiresCommander || e.state.commander != nil {
		return false
	}
	if _, in := e.state.entries[card.ID]; in {
		return false
	}
	return card.IsCommanderCandidate()
}

// AddResolved adds delta copies of an already resolved card. With
// CommanderAsk a commander candidate is not added but offered through
// OutcomeCommanderOffered; CommanderAccept sets it as commander instead.
func (e *Editor) AddResolved(card *models.Card, delta int, choice CommanderChoice) (Result, error) {
	switch choice {
	case CommanderAccept:
		return e.SetCommander(card)
	case CommanderDecline:
	default:
		if e.shouldOffer(card) {
			return Result{Op: OpAdd, Outcome: OutcomeCommanderOffered, CardID: card.ID, CardName: card.Name}, nil
		}
	}
	return e.add(OpAdd, card, delta, false)
}

func (e *Editor) add(op Op, card *models.Card, delta int, foil bool) (Result, error) {
	if err := Check(e.state, card, delta); err != nil {
		return rejected(op, card, err)
	}
	have, ok := e.state.entries[card.ID]
	if ok {
		e.state.put(have.Card, have.Quantity+delta, have.Foil || foil)
	} else {
		e.state.put(card, delta, foil)
	}
	return e.emit(e.entryResult(op, card.ID)), nil
}

// Increment adds one copy of a card already in the deck
func (e *Editor) Increment(id string) (Result, error) {
	en, ok := e.state.entries[id]
	if !ok {
		return e.missing(OpIncrement, id)
	}
	return e.add(OpIncrement, en.Card, 1, false)
}

// Decrement removes one copy. At quantity 1 it is a no-op; use RemoveCard
// to take the card out.
func (e *Editor) Decrement(id string) (Result, error) {
	en, ok := e.state.entries[id]
	if !ok {
		return e.missing(OpDecrement, id)
	}
	if en.Quantity <= 1 {
		r := e.entryResult(OpDecrement, id)
		r.Outcome = OutcomeNoop
		return r, nil
	}
	en.Quantity--
	return e.emit(e.entryResult(OpDecrement, id)), nil
}

// SetQuantity sets an absolute quantity between 1 and MaxQuantity. Raising
// the quantity goes through the same admit check as an add.
func (e *Editor) SetQuantity(id string, n int) (Result, error) {
	en, ok := e.state.entries[id]
	if !ok {
		return e.missing(OpSetQuantity, id)
	}
	if n < 1 {
		return rejected(OpSetQuantity, en.Card, violation(ConstraintQuantity, id, en.Card.Name,
			"quantity must be at least 1, got %d; remove the card instead", n))
	}
	if n > MaxQuantity {
		return rejected(OpSetQuantity, en.Card, violation(ConstraintQuantity, id, en.Card.Name,
			"a deck holds at most %d copies of a card", MaxQuantity))
	}
	if n == en.Quantity {
		r := e.entryResult(OpSetQuantity, id)
		r.Outcome = OutcomeNoop
		return r, nil
	}
	if n > en.Quantity {
		if err := Check(e.state, en.Card, n-en.Quantity); err != nil {
			return rejected(OpSetQuantity, en.Card, err)
		}
	}
	en.Quantity = n
	return e.emit(e.entryResult(OpSetQuantity, id)), nil
}

// RemoveCard deletes an entry regardless of rules. Removing a card that is
// not in the deck is a no-op.
func (e *Editor) RemoveCard(id string) Result {
	en, ok := e.state.entries[id]
	if !ok {
		return Result{Op: OpRemove, Outcome: OutcomeNoop, CardID: id}
	}
	r := Result{Op: OpRemove, Outcome: OutcomeApplied, CardID: id, CardName: en.Card.Name, Foil: en.Foil}
	e.state.delete(id)
	return e.emit(r)
}

func (e *Editor) SetFoil(id string, foil bool) (Result, error) {
	en, ok := e.state.entries[id]
	if !ok {
		return e.missing(OpSetFoil, id)
	}
	if en.Foil == foil {
		r := e.entryResult(OpSetFoil, id)
		r.Outcome = OutcomeNoop
		return r, nil
	}
	en.Foil = foil
	return e.emit(e.entryResult(OpSetFoil, id)), nil
}

// ReplacePrinting swaps the printing an entry (or the commander) points
// at, keeping its position, quantity and foil flag. The new printing must be
// the same named card and must not already be in the deck. If newID cannot
// be resolved the deck is left untouched.
func (e *Editor) ReplacePrinting(ctx context.Context, oldID, newID string) (Result, error) {
	isCommander := e.state.commander != nil && e.state.commander.ID == oldID
	en, inDeck := e.state.entries[oldID]
	if !inDeck && !isCommander {
		return e.missing(OpReplacePrinting, oldID)
	}
	if oldID == newID {
		r := Result{Op: OpReplacePrinting, Outcome: OutcomeNoop, CardID: oldID, PrevID: oldID}
		if inDeck {
			r.Quantity, r.Foil, r.CardName = en.Quantity, en.Foil, en.Card.Name
		}
		return r, nil
	}

	card, err := e.source.Resolve(ctx, newID)
	if err != nil {
		return Result{Op: OpReplacePrinting, Outcome: OutcomeRejected, CardID: newID, PrevID: oldID}, err
	}

	old := e.state.commander
	if inDeck {
		old = en.Card
	}
	if !strings.EqualFold(old.Name, card.Name) {
		return rejected(OpReplacePrinting, card, violation(ConstraintPrintingMismatch, card.ID, card.Name,
			"%s is not a printing of %s", card.Name, old.Name))
	}
	if _, dup := e.state.entries[card.ID]; dup || (e.state.commander != nil && e.state.commander.ID == card.ID) {
		return rejected(OpReplacePrinting, card, violation(ConstraintDuplicatePrinting, card.ID, card.Name,
			"this printing is already in the deck"))
	}

	if isCommander {
		e.state.commander = card
		return e.emit(Result{Op: OpReplacePrinting, Outcome: OutcomeApplied, CardID: card.ID, CardName: card.Name, Quantity: 1, PrevID: oldID}), nil
	}
	e.state.swap(oldID, card)
	r := e.entryResult(OpReplacePrinting, card.ID)
	r.PrevID = oldID
	return e.emit(r), nil
}
