package models

import (
	"time"
)

// CollectionItem is a card owned by a user. Items are unique per
// owner, card and foil flag; adding the same combination merges quantities.
type CollectionItem struct {
	ID       uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Owner    string    `json:"owner" gorm:"not null;uniqueIndex:idx_collection_owner_card"`
	CardID   string    `json:"card_id" gorm:"not null;uniqueIndex:idx_collection_owner_card"`
	Card     Card      `json:"card" gorm:"foreignKey:CardID"`
	IsFoil   bool      `json:"is_foil" gorm:"default:false;uniqueIndex:idx_collection_owner_card"`
	Quantity int       `json:"quantity" gorm:"default:1"`
	Notes    string    `json:"notes"`
	AddedAt  time.Time `json:"added_at"`
}

type CollectionStats struct {
	TotalCards  int     `json:"total_cards"`
	UniqueCards int     `json:"unique_cards"`
	FoilCards   int     `json:"foil_cards"`
	TotalValue  float64 `json:"total_value"`
}

type AddToCollectionRequest struct {
	CardID   string `json:"card_id" binding:"required"`
	Quantity int    `json:"quantity"`
	IsFoil   bool   `json:"is_foil"`
	Notes    string `json:"notes"`
}

type UpdateCollectionRequest struct {
	Quantity *int    `json:"quantity"`
	IsFoil   *bool   `json:"is_foil"`
	Notes    *string `json:"notes"`
}

// CollectionUpdateResponse includes the updated item plus operation info
type CollectionUpdateResponse struct {
	Item      CollectionItem `json:"item"`
	Operation string         `json:"operation"` // "updated", "merged", "deleted"
	Message   string         `json:"message,omitempty"`
}
