package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/deckistry/internal/database"
	"github.com/codyseavey/deckistry/internal/models"
	"github.com/codyseavey/deckistry/internal/services"
)

const maxCommentLength = 2000

// SocialHandler serves comments and ratings on decks
type SocialHandler struct {
	store *services.DeckStore
}

func NewSocialHandler(store *services.DeckStore) *SocialHandler {
	return &SocialHandler{store: store}
}

func (h *SocialHandler) visibleDeck(c *gin.Context) (*models.Deck, bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return nil, false
	}
	d, err := h.store.Get(id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !d.VisibleTo(owner(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "deck not found"})
		return nil, false
	}
	return d, true
}

func (h *SocialHandler) ListComments(c *gin.Context) {
	d, ok := h.visibleDeck(c)
	if !ok {
		return
	}
	var comments []models.Comment
	if err := database.GetDB().Where("deck_id = ?", d.ID).Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *SocialHandler) AddComment(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" || len(body) > maxCommentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment must be between 1 and 2000 characters"})
		return
	}
	d, ok := h.visibleDeck(c)
	if !ok {
		return
	}

	comment := models.Comment{DeckID: d.ID, Owner: o, Body: body}
	if err := database.GetDB().Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment lets the author or the deck's owner remove a comment
func (h *SocialHandler) DeleteComment(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	db := database.GetDB()

	var comment models.Comment
	if err := db.First(&comment, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	if comment.Owner != o {
		d, err := h.store.Get(comment.DeckID)
		if err != nil || d.Owner != o {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the author or the deck owner can delete this comment"})
			return
		}
	}

	if err := db.Delete(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// RateDeck sets the caller's rating, replacing any earlier one
func (h *SocialHandler) RateDeck(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	var req models.RateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Score < models.MinRating || req.Score > models.MaxRating {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be between 1 and 5"})
		return
	}
	d, ok := h.visibleDeck(c)
	if !ok {
		return
	}

	db := database.GetDB()
	rating := models.Rating{DeckID: d.ID, Owner: o, Score: req.Score}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "deck_id"}, {Name: "owner"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(&rating).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.respondRatings(c, d.ID)
}

func (h *SocialHandler) GetRatings(c *gin.Context) {
	d, ok := h.visibleDeck(c)
	if !ok {
		return
	}
	h.respondRatings(c, d.ID)
}

func (h *SocialHandler) respondRatings(c *gin.Context, deckID uint) {
	var ratings []models.Rating
	if err := database.GetDB().Where("deck_id = ?", deckID).Find(&ratings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.SummarizeRatings(deckID, ratings))
}
