package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codyseavey/deckistry/internal/database"
	"github.com/codyseavey/deckistry/internal/models"
	"github.com/codyseavey/deckistry/internal/services"
)

type CollectionHandler struct {
	cache *services.CardCache
}

func NewCollectionHandler(cache *services.CardCache) *CollectionHandler {
	return &CollectionHandler{cache: cache}
}

// Maximum quantity allowed per collection item
const maxQuantity = 9999

func (h *CollectionHandler) GetCollection(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	db := database.GetDB()

	var items []models.CollectionItem
	query := db.Preload("Card").Where("owner = ?", o).Order("added_at DESC")
	if set := c.Query("set"); set != "" {
		query = query.Joins("JOIN cards ON cards.id = collection_items.card_id").
			Where("cards.set_code = ?", set)
	}

	if err := query.Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, items)
}

func validQuantity(c *gin.Context, quantity int) bool {
	if quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return false
	}
	if quantity > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity exceeds maximum allowed (9999)"})
		return false
	}
	return true
}

// AddToCollection adds copies of a card. An existing item with the same card
// and foil flag absorbs the quantity instead of a new row being created.
func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	var req models.AddToCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if !validQuantity(c, quantity) {
		return
	}

	// Resolving stores the card row the item references
	if _, err := h.cache.Resolve(c.Request.Context(), req.CardID); err != nil {
		respondError(c, err)
		return
	}

	db := database.GetDB()

	var existing models.CollectionItem
	err := db.Where("owner = ? AND card_id = ? AND is_foil = ?", o, req.CardID, req.IsFoil).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Quantity = min(existing.Quantity+quantity, maxQuantity)
		if req.Notes != "" {
			existing.Notes = req.Notes
		}
		if err := db.Omit("Card").Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		db.Preload("Card").First(&existing, existing.ID)
		c.JSON(http.StatusOK, existing)
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	item := models.CollectionItem{
		Owner:    o,
		CardID:   req.CardID,
		IsFoil:   req.IsFoil,
		Quantity: quantity,
		Notes:    req.Notes,
		AddedAt:  time.Now(),
	}
	if err := db.Omit("Card").Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	db.Preload("Card").First(&item, item.ID)
	c.JSON(http.StatusCreated, item)
}

func (h *CollectionHandler) ownedItem(c *gin.Context) (*gorm.DB, *models.CollectionItem, bool) {
	o, ok := requireOwner(c)
	if !ok {
		return nil, nil, false
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return nil, nil, false
	}
	db := database.GetDB()
	var item models.CollectionItem
	if err := db.Where("owner = ?", o).First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return nil, nil, false
	}
	return db, &item, true
}

// UpdateCollectionItem changes quantity, foil flag or notes. Switching the
// foil flag onto a combination that already exists merges the two items.
func (h *CollectionHandler) UpdateCollectionItem(c *gin.Context) {
	var req models.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity != nil && !validQuantity(c, *req.Quantity) {
		return
	}

	db, item, ok := h.ownedItem(c)
	if !ok {
		return
	}

	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}

	if req.IsFoil != nil && *req.IsFoil != item.IsFoil {
		var target models.CollectionItem
		err := db.Where("owner = ? AND card_id = ? AND is_foil = ? AND id != ?",
			item.Owner, item.CardID, *req.IsFoil, item.ID).
			First(&target).Error
		if err == nil {
			err = db.Transaction(func(tx *gorm.DB) error {
				target.Quantity = min(target.Quantity+item.Quantity, maxQuantity)
				if err := tx.Omit("Card").Save(&target).Error; err != nil {
					return err
				}
				return tx.Delete(&models.CollectionItem{}, item.ID).Error
			})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			db.Preload("Card").First(&target, target.ID)
			c.JSON(http.StatusOK, models.CollectionUpdateResponse{
				Item:      target,
				Operation: "merged",
				Message:   "Merged into existing stack",
			})
			return
		}
		item.IsFoil = *req.IsFoil
	}

	if item.Quantity == 0 {
		if err := db.Delete(&models.CollectionItem{}, item.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, models.CollectionUpdateResponse{
			Item:      *item,
			Operation: "deleted",
			Message:   "Quantity reached zero",
		})
		return
	}

	if err := db.Omit("Card").Save(item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	db.Preload("Card").First(item, item.ID)
	c.JSON(http.StatusOK, models.CollectionUpdateResponse{
		Item:      *item,
		Operation: "updated",
	})
}

func (h *CollectionHandler) DeleteCollectionItem(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	result := database.GetDB().Where("owner = ?", o).Delete(&models.CollectionItem{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}

	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *CollectionHandler) GetStats(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	db := database.GetDB()

	var stats models.CollectionStats
	owned := func() *gorm.DB {
		return db.Model(&models.CollectionItem{}).Where("owner = ?", o)
	}

	if err := owned().Select("COALESCE(SUM(quantity), 0)").Scan(&stats.TotalCards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var uniqueCount int64
	owned().Distinct("card_id").Count(&uniqueCount)
	stats.UniqueCards = int(uniqueCount)
	owned().Where("is_foil = ?", true).Select("COALESCE(SUM(quantity), 0)").Scan(&stats.FoilCards)

	db.Table("collection_items").
		Select("COALESCE(SUM(collection_items.quantity * cards.price_usd), 0)").
		Joins("JOIN cards ON cards.id = collection_items.card_id").
		Where("collection_items.owner = ?", o).
		Scan(&stats.TotalValue)

	c.JSON(http.StatusOK, stats)
}
