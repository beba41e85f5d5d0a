package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/deckistry/internal/charts"
	"github.com/codyseavey/deckistry/internal/deck"
	"github.com/codyseavey/deckistry/internal/models"
	"github.com/codyseavey/deckistry/internal/realtime"
	"github.com/codyseavey/deckistry/internal/services"
)

type DeckHandler struct {
	store    *services.DeckStore
	sessions *services.SessionManager
	hub      *realtime.Hub
}

func NewDeckHandler(store *services.DeckStore, sessions *services.SessionManager, hub *realtime.Hub) *DeckHandler {
	return &DeckHandler{store: store, sessions: sessions, hub: hub}
}

// DeckView is a deck header with its current composition
type DeckView struct {
	models.Deck
	Entries     []deck.Entry `json:"entries"`
	TotalCards  int          `json:"total_cards"`
	UniqueCards int          `json:"unique_cards"`
}

type addCardRequest struct {
	CardID          string `json:"card_id" binding:"required"`
	Quantity        int    `json:"quantity"`
	CommanderChoice string `json:"commander_choice"`
}

type updateEntryRequest struct {
	Quantity *int  `json:"quantity"`
	IsFoil   *bool `json:"is_foil"`
}

type cardRefRequest struct {
	CardID string `json:"card_id" binding:"required"`
}

type formatRequest struct {
	Format string `json:"format" binding:"required"`
}

type importRequest struct {
	Text string `json:"text" binding:"required"`
}

// readable loads the deck header and checks the caller may see it
func (h *DeckHandler) readable(c *gin.Context) (*models.Deck, bool) {
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

// writable loads the deck header and checks the caller owns it
func (h *DeckHandler) writable(c *gin.Context) (*models.Deck, bool) {
	o, ok := requireOwner(c)
	if !ok {
		return nil, false
	}
	d, ok := h.readable(c)
	if !ok {
		return nil, false
	}
	if d.Owner != o {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can change this deck"})
		return nil, false
	}
	return d, true
}

func (h *DeckHandler) view(ctx context.Context, d *models.Deck) (*DeckView, error) {
	state, err := h.sessions.Snapshot(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	v := &DeckView{
		Deck:        *d,
		Entries:     state.Entries(),
		TotalCards:  state.TotalCards(),
		UniqueCards: state.UniqueCards(),
	}
	v.Format = string(state.Format())
	v.Commander = state.Commander()
	if v.Commander != nil {
		v.CommanderID = &v.Commander.ID
	} else {
		v.CommanderID = nil
	}
	return v, nil
}

func (h *DeckHandler) ListDecks(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	decks, err := h.store.List(o)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decks)
}

func (h *DeckHandler) ListPublicDecks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	decks, err := h.store.ListPublic(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decks)
}

func (h *DeckHandler) CreateDeck(c *gin.Context) {
	o, ok := requireOwner(c)
	if !ok {
		return
	}
	var req models.CreateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.store.Create(o, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *DeckHandler) GetDeck(c *gin.Context) {
	d, ok := h.readable(c)
	if !ok {
		return
	}
	v, err := h.view(c.Request.Context(), d)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GetSharedDeck serves a deck by share token, private or not
func (h *DeckHandler) GetSharedDeck(c *gin.Context) {
	d, err := h.store.GetByShareToken(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	v, err := h.view(c.Request.Context(), d)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *DeckHandler) UpdateDeck(c *gin.Context) {
	d, ok := h.writable(c)
	if !ok {
		return
	}
	var req models.UpdateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.store.UpdateMeta(d.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *DeckHandler) DeleteDeck(c *gin.Context) {
	d, ok := h.writable(c)
	if !ok {
		return
	}
	if err := h.store.Delete(d.ID); err != nil {
		respondError(c, err)
		return
	}
	h.sessions.Close(d.ID)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// mutate runs one editor operation on the deck named by :id and writes its result
func (h *DeckHandler) mutate(c *gin.Context, fn func(ctx context.Context, ed *deck.Editor) (deck.Result, error)) {
	d, ok := h.writable(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	result, err := h.sessions.Mutate(ctx, d.ID, func(ed *deck.Editor) (deck.Result, error) {
		return fn(ctx, ed)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DeckHandler) SetCommander(c *gin.Context) {
	var req cardRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.SetCommanderByID(ctx, req.CardID)
	})
}

func (h *DeckHandler) RemoveCommander(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.RemoveCommander(), nil
	})
}

// AddCard adds copies of a card. The default choice is "ask": a card that
// could be the commander comes back with outcome commander_offered and
// nothing applied.
func (h *DeckHandler) AddCard(c *gin.Context) {
	var req addCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > deck.MaxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be between 1 and " + strconv.Itoa(deck.MaxQuantity)})
		return
	}
	choice := deck.CommanderChoice(req.CommanderChoice)
	switch choice {
	case "":
		choice = deck.CommanderAsk
	case deck.CommanderAsk, deck.CommanderAccept, deck.CommanderDecline:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "commander_choice must be ask, accept or decline"})
		return
	}
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.AddCard(ctx, req.CardID, req.Quantity, choice)
	})
}

// UpdateEntry sets the quantity and/or foil flag of an entry
func (h *DeckHandler) UpdateEntry(c *gin.Context) {
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity == nil && req.IsFoil == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity or is_foil is required"})
		return
	}
	cardID := c.Param("cardId")
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		var result deck.Result
		if req.Quantity != nil {
			r, err := ed.SetQuantity(cardID, *req.Quantity)
			if err != nil {
				return r, err
			}
			result = r
		}
		if req.IsFoil != nil {
			return ed.SetFoil(cardID, *req.IsFoil)
		}
		return result, nil
	})
}

func (h *DeckHandler) IncrementCard(c *gin.Context) {
	cardID := c.Param("cardId")
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.Increment(cardID)
	})
}

func (h *DeckHandler) DecrementCard(c *gin.Context) {
	cardID := c.Param("cardId")
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.Decrement(cardID)
	})
}

func (h *DeckHandler) RemoveCard(c *gin.Context) {
	cardID := c.Param("cardId")
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.RemoveCard(cardID), nil
	})
}

func (h *DeckHandler) ReplacePrinting(c *gin.Context) {
	var req cardRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	oldID := c.Param("cardId")
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.ReplacePrinting(ctx, oldID, req.CardID)
	})
}

func (h *DeckHandler) SetFormat(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.mutate(c, func(ctx context.Context, ed *deck.Editor) (deck.Result, error) {
		return ed.SetFormat(deck.ParseFormat(req.Format)), nil
	})
}

func (h *DeckHandler) ValidateDeck(c *gin.Context) {
	d, ok := h.readable(c)
	if !ok {
		return
	}
	report, err := h.sessions.Validate(c.Request.Context(), d.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *DeckHandler) GetAnalytics(c *gin.Context) {
	d, ok := h.readable(c)
	if !ok {
		return
	}
	analysis, err := h.sessions.Analyze(c.Request.Context(), d.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *DeckHandler) renderChart(c *gin.Context, render func(w io.Writer, a deck.Analysis, cfg charts.ChartConfig) error) {
	d, ok := h.readable(c)
	if !ok {
		return
	}
	analysis, err := h.sessions.Analyze(c.Request.Context(), d.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	cfg := charts.DefaultChartConfig()
	cfg.Subtitle = d.Name

	var buf bytes.Buffer
	if err := render(&buf, analysis, cfg); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *DeckHandler) GetCurveChart(c *gin.Context) {
	h.renderChart(c, func(w io.Writer, a deck.Analysis, cfg charts.ChartConfig) error {
		return charts.RenderManaCurve(w, a.ManaCurve, cfg)
	})
}

func (h *DeckHandler) GetColorChart(c *gin.Context) {
	h.renderChart(c, func(w io.Writer, a deck.Analysis, cfg charts.ChartConfig) error {
		return charts.RenderColorPie(w, a.Colors, cfg)
	})
}

// ImportDecklist applies a pasted decklist line by line. The summary is
// returned even when the client goes away mid-import.
func (h *DeckHandler) ImportDecklist(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, ok := h.writable(c)
	if !ok {
		return
	}
	summary, err := h.sessions.Import(c.Request.Context(), d.ID, req.Text)
	if err != nil && !summary.Canceled {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *DeckHandler) ExportDecklist(c *gin.Context) {
	d, ok := h.readable(c)
	if !ok {
		return
	}
	text, err := h.sessions.Export(c.Request.Context(), d.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

// DeckEvents upgrades to a websocket that receives every applied mutation
func (h *DeckHandler) DeckEvents(c *gin.Context) {
	d, ok := h.readable(c)
	if !ok {
		return
	}
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime events are disabled"})
		return
	}
	h.hub.ServeWs(c.Writer, c.Request, d.ID)
}
