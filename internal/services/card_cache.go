package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/deckistry/internal/deck"
	"github.com/codyseavey/deckistry/internal/metrics"
	"github.com/codyseavey/deckistry/internal/models"
)

const defaultCardCacheSize = 5000

// CardFetcher is the remote card data source. ScryfallService implements it.
type CardFetcher interface {
	GetCard(ctx context.Context, id string) (*models.Card, error)
	GetCardByName(ctx context.Context, name, setCode string) (*models.Card, error)
	GetCardBySetAndNumber(ctx context.Context, setCode, number string) (*models.Card, error)
	SearchCards(ctx context.Context, query, lang string, page int) (*models.CardSearchResult, error)
	SearchCardPrintings(ctx context.Context, cardName, lang string) ([]models.Card, error)
	Autocomplete(ctx context.Context, prefix string) ([]string, error)
	RandomCard(ctx context.Context, query string) (*models.Card, error)
}

// CardCache resolves card records through three layers: an in-memory LRU,
// the cards table, then the remote source. It is safe for concurrent use.
// Concurrent misses for the same id may each reach the remote source; the
// last write wins, which is fine since printings do not change.
type CardCache struct {
	remote CardFetcher
	db     *gorm.DB
	cards  *lru.Cache[string, *models.Card]
	// named maps a normalized name/set/number request to a card id
	named *lru.Cache[string, string]
}

// NewCardCache creates a cache holding up to size records in memory.
// db may be nil, in which case only the memory layer is used.
func NewCardCache(remote CardFetcher, db *gorm.DB, size int) (*CardCache, error) {
	if size <= 0 {
		size = defaultCardCacheSize
	}
	cards, err := lru.New[string, *models.Card](size)
	if err != nil {
		return nil, fmt.Errorf("card cache: %w", err)
	}
	named, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("card cache: %w", err)
	}
	return &CardCache{remote: remote, db: db, cards: cards, named: named}, nil
}

var _ deck.CardSource = (*CardCache)(nil)

// Resolve returns the printing with the given id
func (c *CardCache) Resolve(ctx context.Context, id string) (*models.Card, error) {
	if card, ok := c.cards.Get(id); ok {
		metrics.CardCacheRequestsTotal.WithLabelValues("memory").Inc()
		return card, nil
	}

	if card := c.fromDB("id = ?", id); card != nil {
		metrics.CardCacheRequestsTotal.WithLabelValues("database").Inc()
		c.cards.Add(card.ID, card)
		return card, nil
	}

	card, err := c.remote.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.CardCacheRequestsTotal.WithLabelValues("remote").Inc()
	c.store(card)
	return card, nil
}

func namedKey(q deck.NamedQuery) string {
	return strings.ToLower(strings.TrimSpace(q.Name)) + "|" +
		strings.ToLower(q.SetCode) + "|" + strings.ToLower(q.CollectorNumber)
}

// ResolveNamed resolves a decklist request. The exact printing is tried
// first (set and collector number), then the name within the set, then the
// name alone. Only a not-found answer falls through to the next step.
func (c *CardCache) ResolveNamed(ctx context.Context, q deck.NamedQuery) (*models.Card, error) {
	if strings.TrimSpace(q.Name) == "" {
		return nil, fmt.Errorf("empty card name: %w", models.ErrCardNotFound)
	}
	key := namedKey(q)
	if id, ok := c.named.Get(key); ok {
		if card, ok := c.cards.Get(id); ok {
			metrics.CardCacheRequestsTotal.WithLabelValues("memory").Inc()
			return card, nil
		}
	}

	if q.SetCode != "" && q.CollectorNumber != "" {
		card := c.fromDB("LOWER(set_code) = ? AND card_number = ?", strings.ToLower(q.SetCode), q.CollectorNumber)
		if card != nil && strings.EqualFold(card.Name, q.Name) {
			metrics.CardCacheRequestsTotal.WithLabelValues("database").Inc()
			c.cards.Add(card.ID, card)
			c.named.Add(key, card.ID)
			return card, nil
		}
	}

	card, err := c.resolveNamedRemote(ctx, q)
	if err != nil {
		return nil, err
	}
	metrics.CardCacheRequestsTotal.WithLabelValues("remote").Inc()
	c.store(card)
	c.named.Add(key, card.ID)
	return card, nil
}

func (c *CardCache) resolveNamedRemote(ctx context.Context, q deck.NamedQuery) (*models.Card, error) {
	if q.SetCode != "" && q.CollectorNumber != "" {
		card, err := c.remote.GetCardBySetAndNumber(ctx, q.SetCode, q.CollectorNumber)
		if err == nil && strings.EqualFold(card.Name, q.Name) {
			return card, nil
		}
		if err != nil && !errors.Is(err, models.ErrCardNotFound) {
			return nil, err
		}
	}
	if q.SetCode != "" {
		card, err := c.remote.GetCardByName(ctx, q.Name, q.SetCode)
		if err == nil {
			return card, nil
		}
		if !errors.Is(err, models.ErrCardNotFound) {
			return nil, err
		}
	}
	return c.remote.GetCardByName(ctx, q.Name, "")
}

func (c *CardCache) fromDB(query string, args ...any) *models.Card {
	if c.db == nil {
		return nil
	}
	var card models.Card
	err := c.db.Where(query, args...).First(&card).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Warning: card cache database lookup failed: %v", err)
		}
		return nil
	}
	return &card
}

// store writes one record to both layers. Database failures are logged and
// never fail the resolution.
func (c *CardCache) store(card *models.Card) {
	c.cards.Add(card.ID, card)
	if c.db == nil {
		return
	}
	if err := c.db.Save(card).Error; err != nil {
		log.Printf("Warning: failed to cache card %s: %v", card.ID, err)
	}
}

// storeAll caches a batch of records, e.g. one search page
func (c *CardCache) storeAll(cards []models.Card) {
	if len(cards) == 0 {
		return
	}
	for i := range cards {
		card := cards[i]
		c.cards.Add(card.ID, &card)
	}
	if c.db == nil {
		return
	}
	err := c.db.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(cards, 100).Error
	if err != nil {
		log.Printf("Warning: failed to cache %d cards: %v", len(cards), err)
	}
}

// SearchPage runs one page of a remote search and caches the results
func (c *CardCache) SearchPage(ctx context.Context, query, lang string, page int) (*models.CardSearchResult, error) {
	result, err := c.remote.SearchCards(ctx, query, lang, page)
	if err != nil {
		return nil, err
	}
	c.storeAll(result.Cards)
	return result, nil
}

// Search returns a lazy iterator over every card matching query. Pages are
// fetched on demand as the iterator advances.
func (c *CardCache) Search(ctx context.Context, query, lang string) *CardIterator {
	return &CardIterator{ctx: ctx, cache: c, query: query, lang: lang, more: true}
}

// CardIterator walks remote search results. It reflects the results at the
// time each page is fetched and cannot be restarted; once Next returns
// false it keeps returning false.
//
//	it := cache.Search(ctx, "t:goblin", "en")
//	for it.Next() {
//		card := it.Card()
//	}
//	if err := it.Err(); err != nil { ... }
type CardIterator struct {
	ctx   context.Context
	cache *CardCache
	query string
	lang  string

	page    int
	buf     []models.Card
	current *models.Card
	more    bool
	total   int
	err     error
	done    bool
}

// Next advances to the next card, fetching the next page when needed
func (it *CardIterator) Next() bool {
	if it.done {
		return false
	}
	for len(it.buf) == 0 {
		if !it.more {
			it.finish()
			return false
		}
		if err := it.ctx.Err(); err != nil {
			it.err = err
			it.finish()
			return false
		}
		it.page++
		result, err := it.cache.SearchPage(it.ctx, it.query, it.lang, it.page)
		if err != nil {
			it.err = err
			it.finish()
			return false
		}
		it.buf = result.Cards
		it.more = result.HasMore && len(result.Cards) > 0
		if it.page == 1 {
			it.total = result.TotalCount
		}
	}
	card := it.buf[0]
	it.buf = it.buf[1:]
	it.current = &card
	return true
}

func (it *CardIterator) finish() {
	it.done = true
	it.current = nil
	it.buf = nil
}

// Card returns the card Next advanced to
func (it *CardIterator) Card() *models.Card {
	return it.current
}

// Total is the match count reported by the first page
func (it *CardIterator) Total() int {
	return it.total
}

func (it *CardIterator) Err() error {
	return it.err
}

// Printings returns every printing of a card by exact name and caches them
func (c *CardCache) Printings(ctx context.Context, name, lang string) ([]models.Card, error) {
	cards, err := c.remote.SearchCardPrintings(ctx, name, lang)
	if err != nil {
		return nil, err
	}
	c.storeAll(cards)
	return cards, nil
}

func (c *CardCache) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return []string{}, nil
	}
	return c.remote.Autocomplete(ctx, prefix)
}

// Random returns a random card matching query and caches it
func (c *CardCache) Random(ctx context.Context, query string) (*models.Card, error) {
	card, err := c.remote.RandomCard(ctx, query)
	if err != nil {
		return nil, err
	}
	c.store(card)
	return card, nil
}

// BackfillImages re-fetches a card and writes back only its image fields.
// It reports whether the refreshed record has an image.
func (c *CardCache) BackfillImages(ctx context.Context, id string) (bool, error) {
	fresh, err := c.remote.GetCard(ctx, id)
	if err != nil {
		return false, err
	}

	updates := map[string]any{
		"image_url":            fresh.ImageURL,
		"image_url_large":      fresh.ImageURLLarge,
		"image_url_small":      fresh.ImageURLSmall,
		"back_image_url":       fresh.BackImageURL,
		"back_image_url_large": fresh.BackImageURLLarge,
		"is_double_faced":      fresh.IsDoubleFaced,
	}
	if c.db != nil {
		if err := c.db.Model(&models.Card{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return false, fmt.Errorf("failed to update images of card %s: %w", id, err)
		}
	}

	// Cached records are shared by open decks, so replace rather than mutate
	if cached, ok := c.cards.Peek(id); ok {
		updated := *cached
		updated.ImageURL = fresh.ImageURL
		updated.ImageURLLarge = fresh.ImageURLLarge
		updated.ImageURLSmall = fresh.ImageURLSmall
		updated.BackImageURL = fresh.BackImageURL
		updated.BackImageURLLarge = fresh.BackImageURLLarge
		updated.IsDoubleFaced = fresh.IsDoubleFaced
		c.cards.Add(id, &updated)
	}
	return fresh.HasImage(), nil
}

// MissingImages lists up to limit cached card ids without any front image
func (c *CardCache) MissingImages(limit int) ([]string, error) {
	if c.db == nil {
		return nil, nil
	}
	var ids []string
	err := c.db.Model(&models.Card{}).
		Where("(image_url IS NULL OR image_url = '') AND (image_url_large IS NULL OR image_url_large = '') AND (image_url_small IS NULL OR image_url_small = '')").
		Order("updated_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// Count is the number of printings stored in the database
func (c *CardCache) Count() int64 {
	if c.db == nil {
		return int64(c.cards.Len())
	}
	var n int64
	c.db.Model(&models.Card{}).Count(&n)
	return n
}
