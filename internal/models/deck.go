package models

import (
	"time"
)

// Deck is the persisted deck header. Its composition lives in deck_cards.
type Deck struct {
	ID          uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Owner       string     `json:"owner" gorm:"not null;index"`
	Name        string     `json:"name" gorm:"not null"`
	Description string     `json:"description"`
	Format      string     `json:"format" gorm:"index"`
	IsPrivate   bool       `json:"is_private" gorm:"default:false"`
	CommanderID *string    `json:"commander_id"`
	Commander   *Card      `json:"commander,omitempty" gorm:"foreignKey:CommanderID"`
	ShareToken  string     `json:"share_token" gorm:"uniqueIndex"`
	Cards       []DeckCard `json:"cards,omitempty" gorm:"foreignKey:DeckID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DeckCard is one composition entry of a deck
type DeckCard struct {
	DeckID   uint   `json:"deck_id" gorm:"primaryKey"`
	CardID   string `json:"card_id" gorm:"primaryKey"`
	Card     Card   `json:"card" gorm:"foreignKey:CardID"`
	Quantity int    `json:"quantity" gorm:"not null;default:1"`
	IsFoil   bool   `json:"is_foil" gorm:"default:false"`
	Position int    `json:"position"`
}

type CreateDeckRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Format      string `json:"format"`
	IsPrivate   bool   `json:"is_private"`
}

type UpdateDeckRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"is_private"`
}

// DeckSummary is the list view of a deck
type DeckSummary struct {
	Deck
	CardCount     int     `json:"card_count"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// VisibleTo reports whether owner may read the deck. Private decks are
// visible to their owner only.
func (d *Deck) VisibleTo(owner string) bool {
	return !d.IsPrivate || d.Owner == owner
}
