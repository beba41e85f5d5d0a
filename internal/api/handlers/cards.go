package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/deckistry/internal/services"
)

type CardHandler struct {
	cache           *services.CardCache
	scryfallService *services.ScryfallService
}

func NewCardHandler(cache *services.CardCache, scryfall *services.ScryfallService) *CardHandler {
	return &CardHandler{
		cache:           cache,
		scryfallService: scryfall,
	}
}

func (h *CardHandler) SearchCards(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	page := 1
	if p := c.Query("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		page = n
	}

	result, err := h.cache.SearchPage(c.Request.Context(), query, c.DefaultQuery("lang", "en"), page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CardHandler) Autocomplete(c *gin.Context) {
	names, err := h.cache.Autocomplete(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"names": names})
}

func (h *CardHandler) RandomCard(c *gin.Context) {
	card, err := h.cache.Random(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.cache.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// GetPrintings returns every printing of a card grouped by set, for the
// change-edition picker. ?set= marks the printing the deck currently uses.
func (h *CardHandler) GetPrintings(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card name is required"})
		return
	}

	cards, err := h.cache.Printings(c.Request.Context(), name, c.DefaultQuery("lang", "any"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, services.GroupPrintingsBySet(cards, c.Query("set")))
}

func (h *CardHandler) GetSets(c *gin.Context) {
	sets, err := h.scryfallService.GetSets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sets)
}
