package deck

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/deckistry/internal/mana"
)

func TestRulesFor(t *testing.T) {
	r, ok := RulesFor(FormatCommander)
	require.True(t, ok)
	assert.True(t, r.Singleton)
	assert.True(t, r.RequiresCommander)
	assert.Equal(t, 99, r.ExactSize)

	for _, f := range []Format{FormatStandard, FormatModern, FormatPauper} {
		r, ok := RulesFor(f)
		require.True(t, ok, f)
		assert.Equal(t, 60, r.MinSize)
		assert.Equal(t, 4, r.CopyLimit)
		assert.False(t, r.CommanderSlot)
	}

	_, ok = RulesFor("kitchen-table")
	assert.False(t, ok)
	assert.Equal(t, FormatModern, ParseFormat("  Modern "))
	assert.True(t, Format("kitchen-table").AllowsCommander())
	assert.False(t, FormatStandard.AllowsCommander())
}

func TestCheck_ColorIdentityRejected(t *testing.T) {
	cmd := newCard("cmd", "Lord of Tides", "Legendary Creature — Merfolk", 4, mana.Blue, mana.Black)
	s := commanderDeck(cmd, 3)
	before := s.Entries()

	grixis := newCard("gx", "Grixis Charm", "Instant", 3, mana.Blue, mana.Black, mana.Red)
	err := Check(s, grixis, 1)

	var v *RuleViolation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, ConstraintColorIdentity, v.Constraint)
	assert.Equal(t, "gx", v.CardID)
	assert.Contains(t, v.Message, "UBR")
	assert.Equal(t, before, s.Entries())
}

func TestCheck_ColorIdentitySkippedWithoutCommander(t *testing.T) {
	s := NewState(FormatCommander)
	card := newCard("gx", "Grixis Charm", "Instant", 3, mana.Blue, mana.Black, mana.Red)
	assert.NoError(t, Check(s, card, 1))
}

func TestCheck_Singleton(t *testing.T) {
	s := NewState(FormatCommander)
	ring := newCard("ring", "Sol Ring", "Artifact", 1)
	require.NoError(t, Check(s, ring, 1))
	s.put(ring, 1, false)

	err := Check(s, ring, 1)
	var v *RuleViolation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, ConstraintSingleton, v.Constraint)

	assert.Error(t, Check(NewState(FormatCommander), ring, 2), "a single add of two copies is refused too")

	forest := basic("forest", "Forest")
	s.put(forest, 30, false)
	assert.NoError(t, Check(s, forest, 5))
}

func TestCheck_ConstructedAllowsOverLimit(t *testing.T) {
	s := NewState(FormatStandard)
	bolt := newCard("bolt", "Lightning Bolt", "Instant", 1, mana.Red)
	s.put(bolt, 4, false)
	assert.NoError(t, Check(s, bolt, 1))
}

func TestCheck_QuantityAndCommander(t *testing.T) {
	cmd := newCard("cmd", "Kenrith", "Legendary Creature — Human Noble", 5)
	s := NewState(FormatCommander)
	s.commander = cmd

	var v *RuleViolation
	require.True(t, errors.As(Check(s, cmd, 1), &v))
	assert.Equal(t, ConstraintCommanderDuplicate, v.Constraint)

	require.True(t, errors.As(Check(NewState("casual"), newCard("x", "X", "Instant", 1), 0), &v))
	assert.Equal(t, ConstraintQuantity, v.Constraint)
}

func TestCheck_QuantityCap(t *testing.T) {
	var v *RuleViolation

	s := NewState(FormatStandard)
	bolt := newCard("bolt", "Lightning Bolt", "Instant", 1, mana.Red)
	s.put(bolt, 3, false)
	require.True(t, errors.As(Check(s, bolt, math.MaxInt), &v))
	assert.Equal(t, ConstraintQuantity, v.Constraint)
	require.True(t, errors.As(Check(s, bolt, MaxQuantity-2), &v))
	assert.Equal(t, ConstraintQuantity, v.Constraint)
	assert.NoError(t, Check(s, bolt, MaxQuantity-3))

	c := NewState(FormatCommander)
	ring := newCard("ring", "Sol Ring", "Artifact", 1)
	c.put(ring, 1, false)
	assert.Error(t, Check(c, ring, math.MaxInt), "a huge add must not wrap past the singleton check")
	assert.Equal(t, 1, c.Quantity("ring"))
}

func TestCheck_SingletonAcrossPrintings(t *testing.T) {
	s := NewState(FormatCommander)
	ring := newCard("ring-c21", "Sol Ring", "Artifact", 1)
	s.put(ring, 1, false)

	var v *RuleViolation
	reprint := newCard("ring-ltc", "sol ring", "Artifact", 1)
	require.True(t, errors.As(Check(s, reprint, 1), &v))
	assert.Equal(t, ConstraintSingleton, v.Constraint)
	assert.Equal(t, "ring-ltc", v.CardID)

	cmd := newCard("ken-1", "Kenrith", "Legendary Creature — Human Noble", 5)
	s.commander = cmd
	require.True(t, errors.As(Check(s, newCard("ken-2", "Kenrith", "Legendary Creature — Human Noble", 5), 1), &v))
	assert.Equal(t, ConstraintSingleton, v.Constraint)

	forest := basic("forest-1", "Forest")
	s.put(forest, 10, false)
	assert.NoError(t, Check(s, basic("forest-2", "Forest"), 10))

	m := NewState(FormatModern)
	m.put(newCard("bolt-a", "Lightning Bolt", "Instant", 1, mana.Red), 4, false)
	assert.NoError(t, Check(m, newCard("bolt-b", "Lightning Bolt", "Instant", 1, mana.Red), 1))
}

func TestCheckCommander(t *testing.T) {
	cmd := newCard("cmd", "Kenrith", "Legendary Creature — Human Noble", 5)

	var v *RuleViolation
	require.True(t, errors.As(CheckCommander(NewState(FormatModern), cmd), &v))
	assert.Equal(t, ConstraintCommanderSlot, v.Constraint)

	s := NewState(FormatCommander)
	s.put(cmd, 1, false)
	require.True(t, errors.As(CheckCommander(s, cmd), &v))
	assert.Equal(t, ConstraintCommanderDuplicate, v.Constraint)

	assert.NoError(t, CheckCommander(NewState("casual"), cmd))
	assert.NoError(t, CheckCommander(NewState(FormatCommander), newCard("e", "Enchantress", "Enchantment", 2)),
		"eligibility is advisory")
}

func TestValidate_CommanderValidWithBasics(t *testing.T) {
	cmd := newCard("cmd", "Omnath", "Legendary Creature — Elemental", 4, mana.Green)
	s := commanderDeck(cmd, 97)
	s.put(basic("forest", "Forest"), 2, false)
	require.Equal(t, 99, s.TotalCards())

	report := Validate(s)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 99, report.TotalCards)
}

func TestValidate_CommanderErrors(t *testing.T) {
	s := NewState(FormatCommander)
	s.put(newCard("ring", "Sol Ring", "Artifact", 1), 2, false)

	report := Validate(s)
	assert.False(t, report.Valid)
	constraints := make(map[Constraint]bool)
	for _, i := range report.Errors {
		constraints[i.Constraint] = true
	}
	assert.True(t, constraints[ConstraintCommanderMissing])
	assert.True(t, constraints[ConstraintDeckSize])
	assert.True(t, constraints[ConstraintSingleton])
}

func TestValidate_IdentityAfterCommanderSwap(t *testing.T) {
	cmd := newCard("cmd", "Niv-Mizzet", "Legendary Creature — Dragon", 6, mana.Blue, mana.Red)
	s := commanderDeck(cmd, 99)
	require.True(t, Validate(s).Valid)

	s.commander = newCard("mono", "Talrand", "Legendary Creature — Merfolk Wizard", 4, mana.Blue)
	report := Validate(s)
	assert.False(t, report.Valid)
	assert.Len(t, report.Errors, 99)
	for _, i := range report.Errors {
		assert.Equal(t, ConstraintColorIdentity, i.Constraint)
	}
}

func TestValidate_CommanderEligibilityWarning(t *testing.T) {
	cmd := newCard("cmd", "Enchantress", "Enchantment", 2, mana.Green)
	s := commanderDeck(cmd, 99)

	report := Validate(s)
	assert.True(t, report.Valid)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, ConstraintCommanderEligibility, report.Warnings[0].Constraint)
}

func TestValidate_StandardBelowMinimum(t *testing.T) {
	s := NewState(FormatStandard)
	for i := 0; i < 14; i++ {
		s.put(newCard(string(rune('a'+i)), string(rune('A'+i)), "Instant", 2, mana.Red), 4, false)
	}
	s.put(basic("mountain", "Mountain"), 2, false)
	require.Equal(t, 58, s.TotalCards())

	report := Validate(s)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, ConstraintDeckSize, report.Errors[0].Constraint)
	assert.Contains(t, report.Errors[0].Message, "60")
}

func TestValidate_CopyLimitIsWarning(t *testing.T) {
	s := NewState(FormatModern)
	s.put(newCard("bolt", "Lightning Bolt", "Instant", 1, mana.Red), 6, false)
	s.put(basic("mountain", "Mountain"), 54, false)

	report := Validate(s)
	assert.True(t, report.Valid)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, ConstraintCopyLimit, report.Warnings[0].Constraint)
	assert.Equal(t, "bolt", report.Warnings[0].CardID)
}

func TestValidate_CountsPrintingsTogether(t *testing.T) {
	cmd := newCard("cmd", "Kenrith", "Legendary Creature — Human Noble", 5)
	s := commanderDeck(cmd, 97)
	s.put(newCard("ring-a", "Sol Ring", "Artifact", 1), 1, false)
	s.put(newCard("ring-b", "Sol Ring", "Artifact", 1), 1, false)

	report := Validate(s)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, ConstraintSingleton, report.Errors[0].Constraint)
	assert.Equal(t, "ring-a", report.Errors[0].CardID)
	assert.Contains(t, report.Errors[0].Message, "2 copies")

	m := NewState(FormatModern)
	m.put(newCard("bolt-a", "Lightning Bolt", "Instant", 1, mana.Red), 3, false)
	m.put(newCard("bolt-b", "Lightning Bolt", "Instant", 1, mana.Red), 2, false)
	report = Validate(m)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, ConstraintCopyLimit, report.Warnings[0].Constraint)
	assert.Contains(t, report.Warnings[0].Message, "5 copies")
}

func TestValidate_UnknownFormat(t *testing.T) {
	s := NewState("kitchen-table")
	s.put(newCard("ring", "Sol Ring", "Artifact", 1), 9, false)

	report := Validate(s)
	assert.True(t, report.Valid)
	assert.False(t, report.KnownFormat)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestRestore(t *testing.T) {
	cmd := newCard("cmd", "Kenrith", "Legendary Creature — Human Noble", 5)
	ring := newCard("ring", "Sol Ring", "Artifact", 1)
	forest := basic("forest", "Forest")

	s, err := Restore(FormatCommander, cmd, []Entry{{Card: ring, Quantity: 1}, {Card: forest, Quantity: 10, Foil: true}})
	require.NoError(t, err)
	assert.Equal(t, 11, s.TotalCards())
	assert.Equal(t, []string{"ring", "forest"}, []string{s.Entries()[0].CardID(), s.Entries()[1].CardID()})

	_, err = Restore(FormatCommander, nil, []Entry{{Card: ring, Quantity: 0}})
	assert.Error(t, err)
	_, err = Restore(FormatCommander, nil, []Entry{{Card: ring, Quantity: 1}, {Card: ring, Quantity: 1}})
	assert.Error(t, err)
	_, err = Restore(FormatCommander, cmd, []Entry{{Card: cmd, Quantity: 1}})
	assert.Error(t, err)
}
