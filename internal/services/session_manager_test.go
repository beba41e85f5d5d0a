package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/deckistry/internal/deck"
	"github.com/codyseavey/deckistry/internal/mana"
	"github.com/codyseavey/deckistry/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []deck.Result
}

func (p *recordingPublisher) Publish(deckID uint, eventType string, data any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := data.(deck.Result); ok && eventType == EventDeckMutation {
		p.events = append(p.events, r)
	}
	return true
}

func (p *recordingPublisher) ops() []deck.Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]deck.Op, len(p.events))
	for i, e := range p.events {
		out[i] = e.Op
	}
	return out
}

type sessionFixture struct {
	store     *DeckStore
	cache     *CardCache
	publisher *recordingPublisher
	manager   *SessionManager
	deckID    uint
}

func newSessionFixture(t *testing.T, format string) *sessionFixture {
	t.Helper()
	db := newTestDB(t)
	remote := newFakeFetcher(
		mtgCard("ken", "Kenrith", "Legendary Creature — Human Noble", mana.White, mana.Blue, mana.Black, mana.Red, mana.Green),
		mtgCard("zur", "Zur the Enchanter", "Legendary Creature — Human Wizard", mana.White, mana.Blue, mana.Black),
		mtgCard("ring", "Sol Ring", "Artifact"),
		mtgCard("bolt", "Lightning Bolt", "Instant", mana.Red),
		mtgCard("forest", "Forest", "Basic Land — Forest"),
	)
	cache, err := NewCardCache(remote, db, 100)
	require.NoError(t, err)
	store := NewDeckStore(db)
	d, err := store.Create("alice", models.CreateDeckRequest{Name: "Test", Format: format})
	require.NoError(t, err)
	publisher := &recordingPublisher{}
	return &sessionFixture{
		store:     store,
		cache:     cache,
		publisher: publisher,
		manager:   NewSessionManager(store, cache, publisher, 10, time.Minute),
		deckID:    d.ID,
	}
}

func addCard(id string) func(ed *deck.Editor) (deck.Result, error) {
	return func(ed *deck.Editor) (deck.Result, error) {
		return ed.AddCard(context.Background(), id, 1, deck.CommanderDecline)
	}
}

func TestSessionManager_MutateSavesAndPublishes(t *testing.T) {
	f := newSessionFixture(t, "commander")
	ctx := context.Background()

	r, err := f.manager.Mutate(ctx, f.deckID, func(ed *deck.Editor) (deck.Result, error) {
		return ed.SetCommanderByID(ctx, "zur")
	})
	require.NoError(t, err)
	assert.Equal(t, deck.OutcomeApplied, r.Outcome)

	_, err = f.manager.Mutate(ctx, f.deckID, addCard("ring"))
	require.NoError(t, err)

	// rejected: singleton
	_, err = f.manager.Mutate(ctx, f.deckID, addCard("ring"))
	var v *deck.RuleViolation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, deck.ConstraintSingleton, v.Constraint)

	// rejected: outside Zur's identity
	_, err = f.manager.Mutate(ctx, f.deckID, addCard("bolt"))
	require.True(t, errors.As(err, &v))
	assert.Equal(t, deck.ConstraintColorIdentity, v.Constraint)

	assert.Equal(t, []deck.Op{deck.OpSetCommander, deck.OpAdd}, f.publisher.ops())

	// a second manager reads what the first saved
	other := NewSessionManager(f.store, f.cache, nil, 10, time.Minute)
	state, err := other.Snapshot(ctx, f.deckID)
	require.NoError(t, err)
	require.NotNil(t, state.Commander())
	assert.Equal(t, "zur", state.Commander().ID)
	assert.Equal(t, 1, state.Quantity("ring"))
	assert.Equal(t, 0, state.Quantity("bolt"))
}

func TestSessionManager_NoopIsNotSaved(t *testing.T) {
	f := newSessionFixture(t, "modern")
	ctx := context.Background()

	_, err := f.manager.Mutate(ctx, f.deckID, addCard("forest"))
	require.NoError(t, err)

	r, err := f.manager.Mutate(ctx, f.deckID, func(ed *deck.Editor) (deck.Result, error) {
		return ed.Decrement("forest")
	})
	require.NoError(t, err)
	assert.Equal(t, deck.OutcomeNoop, r.Outcome)
	assert.Len(t, f.publisher.ops(), 1)
}

func TestSessionManager_ImportKeepsLinesBeforeCancel(t *testing.T) {
	f := newSessionFixture(t, "modern")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.manager.Import(ctx, f.deckID, "4 Lightning Bolt\n1 Sol Ring\n")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, summary.Canceled)
	assert.Equal(t, 0, summary.Imported)

	summary, err = f.manager.Import(context.Background(), f.deckID, "4 Lightning Bolt\n1 Sol Ring\n1 Nope\n")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	require.Len(t, summary.Failed, 1)

	_, state, err := f.store.Load(f.deckID)
	require.NoError(t, err)
	assert.Equal(t, 5, state.TotalCards())

	text, err := f.manager.Export(context.Background(), f.deckID)
	require.NoError(t, err)
	assert.Contains(t, text, "4x Lightning Bolt (tst) bolt")
}

func TestSessionManager_ConcurrentAddsKeepSingleton(t *testing.T) {
	f := newSessionFixture(t, "commander")
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.manager.Mutate(ctx, f.deckID, addCard("ring"))
			if err == nil && r.Outcome == deck.OutcomeApplied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	state, err := f.manager.Snapshot(ctx, f.deckID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Quantity("ring"))
}

func TestSessionManager_ValidateAndClose(t *testing.T) {
	f := newSessionFixture(t, "standard")
	ctx := context.Background()

	report, err := f.manager.Validate(ctx, f.deckID)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, f.manager.Len())

	f.manager.Close(f.deckID)
	assert.Equal(t, 0, f.manager.Len())

	_, err = f.manager.Validate(ctx, 424242)
	assert.True(t, errors.Is(err, models.ErrDeckNotFound))
}

func TestSessionManager_EvictionDuringEditKeepsOneWriter(t *testing.T) {
	f := newSessionFixture(t, "modern")
	ctx := context.Background()
	manager := NewSessionManager(f.store, f.cache, nil, 1, time.Minute)
	other, err := f.store.Create("alice", models.CreateDeckRequest{Name: "Other", Format: "modern"})
	require.NoError(t, err)

	entered := make(chan struct{})
	proceed := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- manager.Edit(ctx, f.deckID, func(ed *deck.Editor) error {
			_, err := ed.AddCard(ctx, "ring", 1, deck.CommanderDecline)
			close(entered)
			<-proceed
			return err
		})
	}()
	<-entered

	// the only slot goes to the other deck while the first edit is running
	_, err = manager.Mutate(ctx, other.ID, addCard("forest"))
	require.NoError(t, err)
	require.False(t, manager.sessions.Contains(f.deckID))

	secondDone := make(chan error, 1)
	go func() {
		_, err := manager.Mutate(ctx, f.deckID, addCard("bolt"))
		secondDone <- err
	}()
	assert.Eventually(t, func() bool {
		manager.openMu.Lock()
		defer manager.openMu.Unlock()
		s, ok := manager.active[f.deckID]
		return ok && s.refs == 2
	}, time.Second, 5*time.Millisecond)

	close(proceed)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	_, state, err := f.store.Load(f.deckID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Quantity("ring"))
	assert.Equal(t, 1, state.Quantity("bolt"))

	manager.openMu.Lock()
	assert.Empty(t, manager.active)
	manager.openMu.Unlock()
	assert.Equal(t, 1, manager.Len())
}

func TestSessionManager_CloseRetiresHeldSession(t *testing.T) {
	f := newSessionFixture(t, "modern")
	ctx := context.Background()

	_, err := f.manager.Mutate(ctx, f.deckID, addCard("bolt"))
	require.NoError(t, err)
	s, err := f.manager.acquire(f.deckID)
	require.NoError(t, err)

	f.manager.Close(f.deckID)
	assert.True(t, s.stale.Load())
	s.mu.Unlock()
	f.manager.release(s)

	state, err := f.manager.Snapshot(ctx, f.deckID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Quantity("bolt"))
	assert.Equal(t, 1, f.manager.Len())
}
