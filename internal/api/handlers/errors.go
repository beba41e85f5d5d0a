package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/deckistry/internal/deck"
	"github.com/codyseavey/deckistry/internal/models"
)

// OwnerHeader carries the caller's identity. Requests are trusted as given.
const OwnerHeader = "X-Owner"

// respondError maps engine and lookup errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	var v *deck.RuleViolation
	switch {
	case errors.As(err, &v):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      v.Message,
			"constraint": v.Constraint,
			"card_id":    v.CardID,
		})
	case errors.Is(err, models.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
	case errors.Is(err, models.ErrDeckNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "deck not found"})
	case errors.Is(err, models.ErrLookupFailed):
		log.Printf("Warning: card lookup failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "card data source unavailable, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func owner(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(OwnerHeader))
}

// requireOwner aborts with 401 when the request carries no owner
func requireOwner(c *gin.Context) (string, bool) {
	o := owner(c)
	if o == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": OwnerHeader + " header is required"})
		return "", false
	}
	return o, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
