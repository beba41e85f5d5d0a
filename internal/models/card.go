package models

import (
	"strings"
	"time"

	"github.com/codyseavey/deckistry/internal/mana"
)

// Card is one unique printing of a card, normalized from the card data
// source. Printings never change once resolved, except for image backfill.
type Card struct {
	ID                string        `json:"id" gorm:"primaryKey"`
	OracleID          string        `json:"oracle_id" gorm:"index"`
	Name              string        `json:"name" gorm:"not null;index"`
	TypeLine          string        `json:"type_line"`
	ManaCost          string        `json:"mana_cost"`
	ManaSymbols       []mana.Symbol `json:"mana_symbols" gorm:"serializer:json"`
	CMC               float64       `json:"cmc"`
	Colors            mana.Colors   `json:"colors" gorm:"serializer:json"`
	ColorIdentity     mana.Colors   `json:"color_identity" gorm:"serializer:json"`
	Keywords          []string      `json:"keywords" gorm:"serializer:json"`
	OracleText        string        `json:"oracle_text"`
	Power             string        `json:"power,omitempty"`
	Toughness         string        `json:"toughness,omitempty"`
	Loyalty           string        `json:"loyalty,omitempty"`
	Rarity            string        `json:"rarity"`
	SetCode           string        `json:"set_code" gorm:"index"`
	SetName           string        `json:"set_name"`
	CardNumber        string        `json:"card_number"`
	Lang              string        `json:"lang"`
	ReleasedAt        string        `json:"released_at"`
	Finishes          []string      `json:"finishes" gorm:"serializer:json"`
	ImageURL          string        `json:"image_url"`
	ImageURLLarge     string        `json:"image_url_large"`
	ImageURLSmall     string        `json:"image_url_small"`
	BackImageURL      string        `json:"back_image_url,omitempty"`
	BackImageURLLarge string        `json:"back_image_url_large,omitempty"`
	IsDoubleFaced     bool          `json:"is_double_faced"`
	PriceUSD          float64       `json:"price_usd"`
	PriceEUR          float64       `json:"price_eur"`
	ScryfallURI       string        `json:"scryfall_uri"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// HasType reports whether the type line contains word, ignoring case
func (c *Card) HasType(word string) bool {
	return strings.Contains(strings.ToLower(c.TypeLine), strings.ToLower(word))
}

// IsBasicLand is true for cards whose type line carries both "Basic" and "Land".
// Basic lands are exempt from copy limits.
func (c *Card) IsBasicLand() bool {
	return c.HasType("basic") && c.HasType("land")
}

// IsLand reports whether the card is any kind of land
func (c *Card) IsLand() bool {
	return c.HasType("land")
}

// IsCommanderCandidate is the suggestion heuristic for the commander slot:
// legendary creatures and legendary vehicles.
func (c *Card) IsCommanderCandidate() bool {
	return c.HasType("legendary") && (c.HasType("creature") || c.HasType("vehicle"))
}

// BestImageURL returns the best available front image: normal, then large, then small
func (c *Card) BestImageURL() string {
	switch {
	case c.ImageURL != "":
		return c.ImageURL
	case c.ImageURLLarge != "":
		return c.ImageURLLarge
	default:
		return c.ImageURLSmall
	}
}

// BestBackImageURL returns the back face image for double-faced cards
func (c *Card) BestBackImageURL() string {
	if c.BackImageURL != "" {
		return c.BackImageURL
	}
	return c.BackImageURLLarge
}

// HasImage reports whether any front image is known
func (c *Card) HasImage() bool {
	return c.BestImageURL() != ""
}

// DisplayName is the name with set and collector number, e.g. "Sol Ring (C21 263)"
func (c *Card) DisplayName() string {
	if c.SetCode == "" {
		return c.Name
	}
	label := strings.ToUpper(c.SetCode)
	if c.CardNumber != "" {
		label += " " + c.CardNumber
	}
	return c.Name + " (" + label + ")"
}

// Stats renders power/toughness or loyalty, or "" when the card has neither
func (c *Card) Stats() string {
	if c.Power != "" || c.Toughness != "" {
		return c.Power + "/" + c.Toughness
	}
	return c.Loyalty
}

type CardSearchResult struct {
	Cards      []Card `json:"cards"`
	TotalCount int    `json:"total_count"`
	HasMore    bool   `json:"has_more"`
}

// MTGSetGroup is every printing of a card within one set
type MTGSetGroup struct {
	SetCode     string `json:"set_code"`
	SetName     string `json:"set_name"`
	ReleasedAt  string `json:"released_at"`
	IsBestMatch bool   `json:"is_best_match"`
	Variants    []Card `json:"variants"`
}

// MTGGroupedResult backs the change-edition picker
type MTGGroupedResult struct {
	CardName  string        `json:"card_name"`
	SetGroups []MTGSetGroup `json:"set_groups"`
	TotalSets int           `json:"total_sets"`
}

// CardSet is a Scryfall set summary
type CardSet struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	SetType    string `json:"set_type"`
	ReleasedAt string `json:"released_at"`
	CardCount  int    `json:"card_count"`
	IconSVGURI string `json:"icon_svg_uri"`
}
