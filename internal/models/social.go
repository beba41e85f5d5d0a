package models

import (
	"time"
)

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	DeckID    uint      `json:"deck_id" gorm:"not null;index"`
	Owner     string    `json:"owner" gorm:"not null"`
	Body      string    `json:"body" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating is one user's score of a deck, 1 to 5
type Rating struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	DeckID    uint      `json:"deck_id" gorm:"not null;uniqueIndex:idx_rating_owner_deck"`
	Owner     string    `json:"owner" gorm:"not null;uniqueIndex:idx_rating_owner_deck"`
	Score     int       `json:"score" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

type CreateCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

type RateDeckRequest struct {
	Score int `json:"score" binding:"required"`
}

// RatingSummary aggregates all ratings of a deck. Distribution is indexed by
// score, so Distribution[4] counts the 5 star ratings.
type RatingSummary struct {
	DeckID       uint    `json:"deck_id"`
	Average      float64 `json:"average"`
	Count        int     `json:"count"`
	Distribution [5]int  `json:"distribution"`
}

// SummarizeRatings computes the average and distribution of a set of ratings.
// Out-of-range scores are ignored.
func SummarizeRatings(deckID uint, ratings []Rating) RatingSummary {
	summary := RatingSummary{DeckID: deckID}
	total := 0
	for _, r := range ratings {
		if r.Score < MinRating || r.Score > MaxRating {
			continue
		}
		summary.Distribution[r.Score-1]++
		summary.Count++
		total += r.Score
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary
}
