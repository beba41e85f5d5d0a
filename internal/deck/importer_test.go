package deck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/deckistry/internal/mana"
)

func TestImport_AppliesInOrderAndSkipsMaybeboard(t *testing.T) {
	bolt := newCard("bolt-2xm", "Lightning Bolt", "Instant", 1, mana.Red)
	bolt.SetCode = "2xm"
	ring := newCard("ring", "Sol Ring", "Artifact", 1)
	other := newCard("some", "Some Card", "Instant", 1)
	source := newFakeSource(bolt, ring, other)
	ed := NewEditor(NewState(FormatModern), source)

	var ops []string
	ed.Subscribe(func(r Result) { ops = append(ops, r.CardID) })

	text := "4x Lightning Bolt (2xm) 123\n1x Sol Ring [Ramp]\n2 Some Card {Maybeboard}\n"
	summary, err := ed.Import(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 5, summary.Cards)
	assert.Equal(t, 1, summary.Maybeboard)
	assert.Empty(t, summary.Failed)
	assert.Empty(t, summary.Malformed)
	assert.Equal(t, []string{"bolt-2xm", "ring"}, ops)
	assert.Equal(t, []string{"Lightning Bolt", "Sol Ring"}, source.calls)

	s := ed.State()
	assert.Equal(t, 4, s.Quantity("bolt-2xm"))
	assert.Equal(t, 1, s.Quantity("ring"))
	assert.Equal(t, 0, s.Quantity("some"))
}

func TestImport_FailuresDoNotAbort(t *testing.T) {
	ring := newCard("ring", "Sol Ring", "Artifact", 1)
	opt := newCard("opt", "Opt", "Instant", 1, mana.Blue)
	source := newFakeSource(ring, opt)
	source.failing["flaky card"] = true
	ed := NewEditor(NewState(FormatCommander), source)

	text := "1 Missing Card\n1 Flaky Card\n1 Sol Ring\n1 Sol Ring\nnot a line\n1 Opt\n"
	summary, err := ed.Import(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	require.Len(t, summary.Failed, 2)
	assert.True(t, summary.Failed[0].NotFound)
	assert.Equal(t, "Missing Card", summary.Failed[0].Name)
	assert.False(t, summary.Failed[1].NotFound, "lookup failures are not reported as missing cards")

	require.Len(t, summary.Rejected, 1)
	assert.Equal(t, ConstraintSingleton, summary.Rejected[0].Constraint)
	assert.Equal(t, 4, summary.Rejected[0].Line)

	require.Len(t, summary.Malformed, 1)
	assert.Equal(t, 5, summary.Malformed[0].Number)

	assert.Equal(t, 1, ed.State().Quantity("ring"))
	assert.Equal(t, 1, ed.State().Quantity("opt"))
}

func TestImport_OversizedLineRejected(t *testing.T) {
	bolt := newCard("bolt", "Lightning Bolt", "Instant", 1, mana.Red)
	ed := NewEditor(NewState(FormatModern), newFakeSource(bolt))

	summary, err := ed.Import(context.Background(), "99999 Lightning Bolt\n4 Lightning Bolt\n")
	require.NoError(t, err)

	require.Len(t, summary.Rejected, 1)
	assert.Equal(t, 1, summary.Rejected[0].Line)
	assert.Equal(t, ConstraintQuantity, summary.Rejected[0].Constraint)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 4, ed.State().Quantity("bolt"))
}

func TestImport_CommanderAndFoil(t *testing.T) {
	ken := newCard("ken", "Kenrith", "Legendary Creature — Human Noble", 5,
		mana.White, mana.Blue, mana.Black, mana.Red, mana.Green)
	ring := newCard("ring", "Sol Ring", "Artifact", 1)
	ed := NewEditor(NewState(FormatCommander), newFakeSource(ken, ring))

	summary, err := ed.Import(context.Background(), "1x Kenrith [Commander{top}]\n1x Sol Ring (tst) ring *F*\n")
	require.NoError(t, err)
	assert.Equal(t, "Kenrith", summary.Commander)
	assert.Equal(t, 1, summary.Cards)

	s := ed.State()
	require.NotNil(t, s.Commander())
	assert.Equal(t, "ken", s.Commander().ID)
	en, ok := s.Entry("ring")
	require.True(t, ok)
	assert.True(t, en.Foil)
}

func TestImport_Cancel(t *testing.T) {
	a := newCard("a", "Alpha", "Instant", 1)
	b := newCard("b", "Beta", "Instant", 1)
	c := newCard("c", "Gamma", "Instant", 1)
	source := newFakeSource(a, b, c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source.onResolve = func(name string) {
		if name == "Beta" {
			cancel()
		}
	}
	ed := NewEditor(NewState(FormatModern), source)

	summary, err := ed.Import(ctx, "1 Alpha\n1 Beta\n1 Gamma\n")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, summary.Canceled)
	assert.Equal(t, 1, summary.Imported)
	assert.Empty(t, summary.Failed)

	s := ed.State()
	assert.Equal(t, 1, s.Quantity("a"))
	assert.Equal(t, 0, s.Quantity("b"))
	assert.Equal(t, 0, s.Quantity("c"))
}

func TestExport_ReimportsToSameComposition(t *testing.T) {
	ken := newCard("ken", "Kenrith", "Legendary Creature — Human Noble", 5,
		mana.White, mana.Blue, mana.Black, mana.Red, mana.Green)
	ring := newCard("ring", "Sol Ring", "Artifact", 1)
	forest := basic("forest", "Forest")
	source := newFakeSource(ken, ring, forest)

	ed := NewEditor(NewState(FormatCommander), source)
	_, err := ed.SetCommander(ken)
	require.NoError(t, err)
	_, err = ed.AddResolved(ring, 1, CommanderDecline)
	require.NoError(t, err)
	_, err = ed.SetFoil("ring", true)
	require.NoError(t, err)
	_, err = ed.AddResolved(forest, 12, CommanderDecline)
	require.NoError(t, err)

	text := ed.Export()

	copyEd := NewEditor(NewState(FormatCommander), source)
	summary, err := copyEd.Import(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Imported)
	assert.Equal(t, ed.State().Entries(), copyEd.State().Entries())
	assert.Equal(t, ed.State().Commander(), copyEd.State().Commander())
}
