package deck

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/codyseavey/deckistry/internal/mana"
	"github.com/codyseavey/deckistry/internal/models"
)

func newCard(id, name, typeLine string, cmc float64, colors ...mana.Color) *models.Card {
	return &models.Card{
		ID:            id,
		Name:          name,
		TypeLine:      typeLine,
		CMC:           cmc,
		Colors:        mana.Colors(colors),
		ColorIdentity: mana.Colors(colors),
		SetCode:       "tst",
		CardNumber:    id,
	}
}

func basic(id, name string) *models.Card {
	return newCard(id, name, "Basic Land — "+name, 0)
}

// fakeSource serves cards from memory. Names resolve case-insensitively;
// failing names return a lookup failure instead of not found.
type fakeSource struct {
	mu      sync.Mutex
	byID    map[string]*models.Card
	failing map[string]bool
	calls   []string
	// onResolve runs before each named lookup
	onResolve func(name string)
}

func newFakeSource(cards ...*models.Card) *fakeSource {
	s := &fakeSource{byID: make(map[string]*models.Card), failing: make(map[string]bool)}
	for _, c := range cards {
		s.byID[c.ID] = c
	}
	return s
}

func (s *fakeSource) Resolve(_ context.Context, id string) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	c, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, models.ErrCardNotFound)
	}
	return c, nil
}

func (s *fakeSource) ResolveNamed(ctx context.Context, q NamedQuery) (*models.Card, error) {
	if s.onResolve != nil {
		s.onResolve(q.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, q.Name)
	if s.failing[strings.ToLower(q.Name)] {
		return nil, fmt.Errorf("named %s: %w", q.Name, models.ErrLookupFailed)
	}
	for _, c := range s.byID {
		if !strings.EqualFold(c.Name, q.Name) {
			continue
		}
		if q.SetCode != "" && !strings.EqualFold(c.SetCode, q.SetCode) {
			continue
		}
		return c, nil
	}
	return nil, fmt.Errorf("named %s: %w", q.Name, models.ErrCardNotFound)
}

// commanderDeck builds a commander deck with `size` singleton fillers in
// the commander's colors
func commanderDeck(cmd *models.Card, size int) *State {
	s := NewState(FormatCommander)
	s.commander = cmd
	for i := 0; i < size; i++ {
		c := newCard(fmt.Sprintf("fill-%d", i), fmt.Sprintf("Filler %d", i), "Creature — Test", float64(i%5), cmd.ColorIdentity...)
		s.put(c, 1, false)
	}
	return s
}
