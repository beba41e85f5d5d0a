package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/deckistry/internal/deck"
	"github.com/codyseavey/deckistry/internal/models"
)

// DeckStore persists deck headers and compositions. Saving never validates:
// an illegal deck is stored as is.
type DeckStore struct {
	db *gorm.DB
}

func NewDeckStore(db *gorm.DB) *DeckStore {
	return &DeckStore{db: db}
}

func notFound(err error, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("deck %v: %w", id, models.ErrDeckNotFound)
	}
	return err
}

// Create stores an empty deck with a fresh share token
func (s *DeckStore) Create(owner string, req models.CreateDeckRequest) (*models.Deck, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("deck name is required")
	}
	d := models.Deck{
		Owner:       owner,
		Name:        name,
		Description: req.Description,
		Format:      string(deck.ParseFormat(req.Format)),
		IsPrivate:   req.IsPrivate,
		ShareToken:  uuid.NewString(),
	}
	if err := s.db.Omit(clause.Associations).Create(&d).Error; err != nil {
		return nil, fmt.Errorf("failed to create deck: %w", err)
	}
	return &d, nil
}

// Get returns the deck header with its commander
func (s *DeckStore) Get(id uint) (*models.Deck, error) {
	var d models.Deck
	if err := s.db.Preload("Commander").First(&d, id).Error; err != nil {
		return nil, notFound(err, id)
	}
	return &d, nil
}

// GetByShareToken looks a deck up by its public share token
func (s *DeckStore) GetByShareToken(token string) (*models.Deck, error) {
	var d models.Deck
	if err := s.db.Preload("Commander").Where("share_token = ?", token).First(&d).Error; err != nil {
		return nil, notFound(err, token)
	}
	return &d, nil
}

// List returns the decks of one owner, most recently updated first
func (s *DeckStore) List(owner string) ([]models.DeckSummary, error) {
	var decks []models.Deck
	err := s.db.Preload("Commander").
		Where("owner = ?", owner).
		Order("updated_at DESC").
		Find(&decks).Error
	if err != nil {
		return nil, err
	}
	return s.summarize(decks)
}

// ListPublic returns up to limit non-private decks, most recently updated first
func (s *DeckStore) ListPublic(limit int) ([]models.DeckSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var decks []models.Deck
	err := s.db.Preload("Commander").
		Where("is_private = ?", false).
		Order("updated_at DESC").
		Limit(limit).
		Find(&decks).Error
	if err != nil {
		return nil, err
	}
	return s.summarize(decks)
}

// summarize attaches card counts and rating aggregates. CardCount includes
// the commander.
func (s *DeckStore) summarize(decks []models.Deck) ([]models.DeckSummary, error) {
	summaries := make([]models.DeckSummary, len(decks))
	if len(decks) == 0 {
		return summaries, nil
	}

	ids := make([]uint, len(decks))
	for i, d := range decks {
		ids[i] = d.ID
	}

	var counts []struct {
		DeckID uint
		Total  int
	}
	err := s.db.Model(&models.DeckCard{}).
		Select("deck_id, COALESCE(SUM(quantity), 0) AS total").
		Where("deck_id IN ?", ids).
		Group("deck_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	countByDeck := make(map[uint]int, len(counts))
	for _, c := range counts {
		countByDeck[c.DeckID] = c.Total
	}

	var ratings []struct {
		DeckID  uint
		Average float64
		Total   int
	}
	err = s.db.Model(&models.Rating{}).
		Select("deck_id, AVG(score) AS average, COUNT(*) AS total").
		Where("deck_id IN ?", ids).
		Group("deck_id").
		Scan(&ratings).Error
	if err != nil {
		return nil, err
	}

	for i, d := range decks {
		summaries[i] = models.DeckSummary{Deck: d, CardCount: countByDeck[d.ID]}
		if d.CommanderID != nil {
			summaries[i].CardCount++
		}
	}
	for _, r := range ratings {
		for i := range summaries {
			if summaries[i].ID == r.DeckID {
				summaries[i].AverageRating = r.Average
				summaries[i].RatingCount = r.Total
			}
		}
	}
	return summaries, nil
}

// UpdateMeta changes name, description or visibility
func (s *DeckStore) UpdateMeta(id uint, req models.UpdateDeckRequest) (*models.Deck, error) {
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.New("deck name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsPrivate != nil {
		updates["is_private"] = *req.IsPrivate
	}

	if len(updates) > 0 {
		result := s.db.Model(&models.Deck{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("deck %d: %w", id, models.ErrDeckNotFound)
		}
	}
	return s.Get(id)
}

// Delete removes a deck with its composition, comments and ratings
func (s *DeckStore) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Deck{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("deck %d: %w", id, models.ErrDeckNotFound)
		}
		for _, model := range []any{&models.DeckCard{}, &models.Comment{}, &models.Rating{}} {
			if err := tx.Where("deck_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Load hydrates the composition of a deck. Entries keep their saved order.
func (s *DeckStore) Load(id uint) (*models.Deck, *deck.State, error) {
	var d models.Deck
	err := s.db.Preload("Commander").
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Cards.Card").
		First(&d, id).Error
	if err != nil {
		return nil, nil, notFound(err, id)
	}

	entries := make([]deck.Entry, 0, len(d.Cards))
	for i := range d.Cards {
		dc := d.Cards[i]
		if dc.Card.ID == "" {
			log.Printf("Warning: deck %d references unknown card %s, skipping", id, dc.CardID)
			continue
		}
		card := dc.Card
		entries = append(entries, deck.Entry{Card: &card, Quantity: dc.Quantity, Foil: dc.IsFoil})
	}

	state, err := deck.Restore(deck.ParseFormat(d.Format), d.Commander, entries)
	if err != nil {
		return nil, nil, fmt.Errorf("deck %d is corrupt: %w", id, err)
	}
	d.Cards = nil
	return &d, state, nil
}

// Save replaces the stored composition of a deck with state. Card records
// the database has not seen yet are inserted; existing ones are left alone.
func (s *DeckStore) Save(id uint, state *deck.State) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var d models.Deck
		if err := tx.Select("id").First(&d, id).Error; err != nil {
			return notFound(err, id)
		}

		entries := state.Entries()
		cards := make([]models.Card, 0, len(entries)+1)
		var commanderID *string
		if cmd := state.Commander(); cmd != nil {
			cards = append(cards, *cmd)
			cid := cmd.ID
			commanderID = &cid
		}
		for _, e := range entries {
			cards = append(cards, *e.Card)
		}
		if len(cards) > 0 {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(cards, 100).Error
			if err != nil {
				return fmt.Errorf("failed to store cards: %w", err)
			}
		}

		if err := tx.Where("deck_id = ?", id).Delete(&models.DeckCard{}).Error; err != nil {
			return err
		}
		if len(entries) > 0 {
			rows := make([]models.DeckCard, len(entries))
			for i, e := range entries {
				rows[i] = models.DeckCard{
					DeckID:   id,
					CardID:   e.CardID(),
					Quantity: e.Quantity,
					IsFoil:   e.Foil,
					Position: i,
				}
			}
			if err := tx.Omit(clause.Associations).CreateInBatches(rows, 100).Error; err != nil {
				return fmt.Errorf("failed to store entries: %w", err)
			}
		}

		return tx.Model(&models.Deck{}).Where("id = ?", id).Updates(map[string]any{
			"format":       string(state.Format()),
			"commander_id": commanderID,
		}).Error
	})
}
