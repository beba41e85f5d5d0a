package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codyseavey/deckistry/internal/deck"
	"github.com/codyseavey/deckistry/internal/metrics"
)

const (
	defaultMaxSessions = 256
	defaultSessionTTL  = 30 * time.Minute

	// EventDeckMutation is published for every applied mutation
	EventDeckMutation = "deck:mutation"
)

// EventPublisher delivers deck events to subscribers. realtime.Hub implements it.
type EventPublisher interface {
	Publish(deckID uint, eventType string, data any) bool
}

// session is the single writer of one deck. mu serializes every caller.
type session struct {
	mu      sync.Mutex
	deckID  uint
	editor  *deck.Editor
	pending []deck.Result

	// callers holding the session, guarded by SessionManager.openMu
	refs int
	// set once the session must not be used again; waiters reload
	stale atomic.Bool
}

// SessionManager keeps an editor per open deck. Decks not touched for the
// TTL are dropped and reloaded from the store on next use. A session that
// is evicted while callers still hold it stays the deck's only writer
// until the last of them is done.
type SessionManager struct {
	store     *DeckStore
	source    deck.CardSource
	publisher EventPublisher

	openMu   sync.Mutex
	sessions *expirable.LRU[uint, *session]
	active   map[uint]*session
}

// NewSessionManager creates a manager. publisher may be nil.
func NewSessionManager(store *DeckStore, source deck.CardSource, publisher EventPublisher, maxOpen int, ttl time.Duration) *SessionManager {
	if maxOpen <= 0 {
		maxOpen = defaultMaxSessions
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	onEvict := func(deckID uint, _ *session) {
		metrics.OpenSessions.Dec()
	}
	return &SessionManager{
		store:     store,
		source:    source,
		publisher: publisher,
		sessions:  expirable.NewLRU[uint, *session](maxOpen, onEvict, ttl),
		active:    make(map[uint]*session),
	}
}

// acquire returns the deck's session locked. Callers must unlock it and
// then release it.
func (m *SessionManager) acquire(deckID uint) (*session, error) {
	for {
		s, err := m.open(deckID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if !s.stale.Load() {
			return s, nil
		}
		s.mu.Unlock()
		m.release(s)
	}
}

func (m *SessionManager) open(deckID uint) (*session, error) {
	m.openMu.Lock()
	defer m.openMu.Unlock()

	s, ok := m.sessions.Get(deckID)
	if !ok {
		s, ok = m.active[deckID]
	}
	if !ok {
		_, state, err := m.store.Load(deckID)
		if err != nil {
			return nil, err
		}
		s = &session{deckID: deckID, editor: deck.NewEditor(state, m.source)}
		s.editor.Subscribe(func(r deck.Result) {
			s.pending = append(s.pending, r)
		})
	}
	// re-adding refreshes the expiry
	m.track(deckID, s)
	s.refs++
	m.active[deckID] = s
	return s, nil
}

func (m *SessionManager) track(deckID uint, s *session) {
	if !m.sessions.Contains(deckID) {
		metrics.OpenSessions.Inc()
	}
	m.sessions.Add(deckID, s)
}

func (m *SessionManager) release(s *session) {
	m.openMu.Lock()
	defer m.openMu.Unlock()

	s.refs--
	if s.refs == 0 && m.active[s.deckID] == s {
		delete(m.active, s.deckID)
	}
}

// discard retires s so that waiters and later callers reload the deck.
// The caller still holds s.
func (m *SessionManager) discard(s *session) {
	s.stale.Store(true)

	m.openMu.Lock()
	defer m.openMu.Unlock()
	if m.active[s.deckID] == s {
		delete(m.active, s.deckID)
	}
	m.sessions.Remove(s.deckID)
}

// Edit runs fn as the only writer of the deck. When fn applied at least one
// mutation the deck is saved, then every applied result is published in
// order. fn's error is returned after saving, so a canceled import keeps
// the lines it already applied.
func (m *SessionManager) Edit(ctx context.Context, deckID uint, fn func(ed *deck.Editor) error) error {
	s, err := m.acquire(deckID)
	if err != nil {
		return err
	}
	defer m.release(s)
	defer s.mu.Unlock()

	s.pending = s.pending[:0]
	fnErr := fn(s.editor)
	applied := s.pending
	s.pending = nil

	if len(applied) > 0 {
		if err := m.store.Save(deckID, s.editor.State()); err != nil {
			// The editor is now ahead of the store; reload on next use
			m.discard(s)
			return fmt.Errorf("failed to save deck %d: %w", deckID, err)
		}
		m.publish(deckID, applied)
	}
	return fnErr
}

func (m *SessionManager) publish(deckID uint, results []deck.Result) {
	if m.publisher == nil {
		return
	}
	for _, r := range results {
		if !m.publisher.Publish(deckID, EventDeckMutation, r) {
			log.Printf("Warning: failed to publish %s on deck %d", r.Op, deckID)
			return
		}
	}
}

// Mutate runs one Mutation API call and records its outcome
func (m *SessionManager) Mutate(ctx context.Context, deckID uint, fn func(ed *deck.Editor) (deck.Result, error)) (deck.Result, error) {
	var result deck.Result
	err := m.Edit(ctx, deckID, func(ed *deck.Editor) error {
		var err error
		result, err = fn(ed)
		return err
	})
	if result.Op != "" {
		metrics.DeckMutationsTotal.WithLabelValues(string(result.Op), string(result.Outcome)).Inc()
	}
	return result, err
}

// Import applies a decklist to the deck line by line
func (m *SessionManager) Import(ctx context.Context, deckID uint, text string) (deck.ImportSummary, error) {
	var summary deck.ImportSummary
	err := m.Edit(ctx, deckID, func(ed *deck.Editor) error {
		var err error
		summary, err = ed.Import(ctx, text)
		return err
	})

	metrics.ImportLinesTotal.WithLabelValues("imported").Add(float64(summary.Imported))
	metrics.ImportLinesTotal.WithLabelValues("failed").Add(float64(len(summary.Failed)))
	metrics.ImportLinesTotal.WithLabelValues("rejected").Add(float64(len(summary.Rejected)))
	metrics.ImportLinesTotal.WithLabelValues("malformed").Add(float64(len(summary.Malformed)))
	metrics.ImportLinesTotal.WithLabelValues("maybeboard").Add(float64(summary.Maybeboard))
	return summary, err
}

// View runs fn under the deck's lock without saving
func (m *SessionManager) View(ctx context.Context, deckID uint, fn func(ed *deck.Editor)) error {
	s, err := m.acquire(deckID)
	if err != nil {
		return err
	}
	defer m.release(s)
	defer s.mu.Unlock()
	fn(s.editor)
	return nil
}

// Validate runs the full-deck check
func (m *SessionManager) Validate(ctx context.Context, deckID uint) (deck.Report, error) {
	var report deck.Report
	err := m.View(ctx, deckID, func(ed *deck.Editor) {
		report = ed.Validate()
	})
	if err != nil {
		return report, err
	}
	result := "invalid"
	if report.Valid {
		result = "valid"
	}
	metrics.DeckValidationsTotal.WithLabelValues(string(report.Format), result).Inc()
	return report, nil
}

func (m *SessionManager) Analyze(ctx context.Context, deckID uint) (deck.Analysis, error) {
	var analysis deck.Analysis
	err := m.View(ctx, deckID, func(ed *deck.Editor) {
		analysis = ed.Analyze()
	})
	return analysis, err
}

func (m *SessionManager) Export(ctx context.Context, deckID uint) (string, error) {
	var text string
	err := m.View(ctx, deckID, func(ed *deck.Editor) {
		text = ed.Export()
	})
	return text, err
}

// Snapshot returns a copy of the current composition
func (m *SessionManager) Snapshot(ctx context.Context, deckID uint) (*deck.State, error) {
	var state *deck.State
	err := m.View(ctx, deckID, func(ed *deck.Editor) {
		state = ed.State()
	})
	return state, err
}

// Close drops the session of a deck, e.g. after it was deleted
func (m *SessionManager) Close(deckID uint) {
	m.openMu.Lock()
	defer m.openMu.Unlock()

	if s, ok := m.active[deckID]; ok {
		s.stale.Store(true)
		delete(m.active, deckID)
	}
	if s, ok := m.sessions.Peek(deckID); ok {
		s.stale.Store(true)
	}
	m.sessions.Remove(deckID)
}

// CloseAll drops every session. Compositions are saved after each
// mutation, so nothing is lost.
func (m *SessionManager) CloseAll() {
	m.openMu.Lock()
	defer m.openMu.Unlock()

	for id, s := range m.active {
		s.stale.Store(true)
		delete(m.active, id)
	}
	m.sessions.Purge()
}

func (m *SessionManager) Len() int {
	return m.sessions.Len()
}
