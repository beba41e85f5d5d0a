package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/deckistry/internal/mana"
	"github.com/codyseavey/deckistry/internal/metrics"
	"github.com/codyseavey/deckistry/internal/models"
)

const (
	scryfallBaseURL        = "https://api.scryfall.com"
	scryfallRequestDelay   = 100 * time.Millisecond
	scryfallRequestTimeout = 10 * time.Second
	scryfallUserAgent      = "Deckistry/1.0"
	// maxPrintingPages bounds SearchCardPrintings; 175 printings per page
	maxPrintingPages = 10
)

// ScryfallOptions tunes the client. Zero values take the defaults above.
type ScryfallOptions struct {
	BaseURL         string
	UserAgent       string
	RequestInterval time.Duration
	Timeout         time.Duration
}

// ScryfallService is the card data source. Every request waits on one shared
// limiter so bulk lookups stay at one request per RequestInterval.
type ScryfallService struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
	timeout   time.Duration
}

func NewScryfallService(opts ScryfallOptions) *ScryfallService {
	if opts.BaseURL == "" {
		opts.BaseURL = scryfallBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = scryfallUserAgent
	}
	if opts.RequestInterval <= 0 {
		opts.RequestInterval = scryfallRequestDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = scryfallRequestTimeout
	}
	return &ScryfallService{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(rate.Every(opts.RequestInterval), 1),
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
	}
}

type scryfallList struct {
	Object     string          `json:"object"`
	Data       json.RawMessage `json:"data"`
	TotalCards int             `json:"total_cards"`
	HasMore    bool            `json:"has_more"`
	NextPage   string          `json:"next_page"`
}

type scryfallError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

type scryfallCard struct {
	ID            string          `json:"id"`
	OracleID      string          `json:"oracle_id"`
	Name          string          `json:"name"`
	Lang          string          `json:"lang"`
	TypeLine      string          `json:"type_line"`
	ManaCost      *string         `json:"mana_cost"`
	CMC           float64         `json:"cmc"`
	Colors        []string        `json:"colors"`
	ColorIdentity []string        `json:"color_identity"`
	Keywords      []string        `json:"keywords"`
	OracleText    *string         `json:"oracle_text"`
	Power         *string         `json:"power"`
	Toughness     *string         `json:"toughness"`
	Loyalty       *string         `json:"loyalty"`
	Rarity        string          `json:"rarity"`
	Set           string          `json:"set"`
	SetName       string          `json:"set_name"`
	CollectorNum  string          `json:"collector_number"`
	ReleasedAt    string          `json:"released_at"`
	Finishes      []string        `json:"finishes"`
	ImageURIs     *scryfallImages `json:"image_uris"`
	CardFaces     []scryfallFace  `json:"card_faces"`
	Prices        scryfallPrices  `json:"prices"`
	ScryfallURI   string          `json:"scryfall_uri"`
}

type scryfallImages struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
}

type scryfallFace struct {
	Name       string          `json:"name"`
	TypeLine   string          `json:"type_line"`
	ManaCost   string          `json:"mana_cost"`
	OracleText string          `json:"oracle_text"`
	Colors     []string        `json:"colors"`
	Power      string          `json:"power"`
	Toughness  string          `json:"toughness"`
	Loyalty    string          `json:"loyalty"`
	ImageURIs  *scryfallImages `json:"image_uris"`
}

type scryfallPrices struct {
	USD     string `json:"usd"`
	USDFoil string `json:"usd_foil"`
	EUR     string `json:"eur"`
}

type scryfallSet struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	SetType    string `json:"set_type"`
	ReleasedAt string `json:"released_at"`
	CardCount  int    `json:"card_count"`
	IconSVGURI string `json:"icon_svg_uri"`
}

// doRequest performs a rate limited GET and decodes the JSON body into out.
// 404 maps to models.ErrCardNotFound, every other failure to
// models.ErrLookupFailed.
func (s *ScryfallService) doRequest(ctx context.Context, endpoint, reqURL string, out any) error {
	start := time.Now()
	result := "ok"
	defer func() {
		metrics.ScryfallRequestsTotal.WithLabelValues(endpoint, result).Inc()
		metrics.ScryfallRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	if err := s.limiter.Wait(ctx); err != nil {
		result = "canceled"
		return fmt.Errorf("%w: rate limiter: %w", models.ErrLookupFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		result = "error"
		return fmt.Errorf("%w: failed to create request: %w", models.ErrLookupFailed, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		result = "error"
		return fmt.Errorf("%w: failed to reach scryfall: %w", models.ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		result = "not_found"
		return models.ErrCardNotFound
	}
	if resp.StatusCode != http.StatusOK {
		result = "error"
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr scryfallError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Details != "" {
			return fmt.Errorf("%w: scryfall API returned status %d: %s", models.ErrLookupFailed, resp.StatusCode, apiErr.Details)
		}
		return fmt.Errorf("%w: scryfall API returned status %d", models.ErrLookupFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		result = "error"
		return fmt.Errorf("%w: failed to decode scryfall response: %w", models.ErrLookupFailed, err)
	}
	return nil
}

func (s *ScryfallService) getCard(ctx context.Context, endpoint, reqURL string) (*models.Card, error) {
	var sc scryfallCard
	if err := s.doRequest(ctx, endpoint, reqURL, &sc); err != nil {
		return nil, err
	}
	card := convertToCard(sc)
	return &card, nil
}

func (s *ScryfallService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	reqURL := fmt.Sprintf("%s/cards/%s", s.baseURL, url.PathEscape(id))
	card, err := s.getCard(ctx, "card", reqURL)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", id, err)
	}
	return card, nil
}

// GetCardByName looks a card up by exact name, optionally within a set
func (s *ScryfallService) GetCardByName(ctx context.Context, name, setCode string) (*models.Card, error) {
	params := url.Values{}
	params.Set("exact", name)
	if setCode != "" {
		params.Set("set", strings.ToLower(setCode))
	}
	reqURL := fmt.Sprintf("%s/cards/named?%s", s.baseURL, params.Encode())
	card, err := s.getCard(ctx, "named", reqURL)
	if err != nil {
		return nil, fmt.Errorf("card named %q: %w", name, err)
	}
	return card, nil
}

// GetCardBySetAndNumber retrieves a specific printing by set code and collector number
// Uses Scryfall's exact lookup: GET /cards/:set/:number
func (s *ScryfallService) GetCardBySetAndNumber(ctx context.Context, setCode, number string) (*models.Card, error) {
	// Scryfall expects path params, so we must PathEscape.
	setEscaped := url.PathEscape(strings.ToLower(setCode))
	numberEscaped := url.PathEscape(number)
	reqURL := fmt.Sprintf("%s/cards/%s/%s", s.baseURL, setEscaped, numberEscaped)
	card, err := s.getCard(ctx, "set_number", reqURL)
	if err != nil {
		return nil, fmt.Errorf("card %s/%s: %w", setCode, number, err)
	}
	return card, nil
}

func (s *ScryfallService) RandomCard(ctx context.Context, query string) (*models.Card, error) {
	reqURL := fmt.Sprintf("%s/cards/random", s.baseURL)
	if query != "" {
		reqURL += "?q=" + url.QueryEscape(query)
	}
	card, err := s.getCard(ctx, "random", reqURL)
	if err != nil {
		return nil, fmt.Errorf("random card: %w", err)
	}
	return card, nil
}

func withLang(query, lang string) string {
	if lang == "" || lang == "any" {
		return query
	}
	return fmt.Sprintf("%s lang:%s", query, lang)
}

// SearchCards runs a Scryfall full-text search. Pages start at 1. A
// search without matches is an empty result, not an error.
func (s *ScryfallService) SearchCards(ctx context.Context, query, lang string, page int) (*models.CardSearchResult, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("q", withLang(query, lang))
	params.Set("page", strconv.Itoa(page))
	reqURL := fmt.Sprintf("%s/cards/search?%s", s.baseURL, params.Encode())

	cards, list, err := s.searchPage(ctx, "search", reqURL)
	if errors.Is(err, models.ErrCardNotFound) {
		return &models.CardSearchResult{Cards: []models.Card{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return &models.CardSearchResult{
		Cards:      cards,
		TotalCount: list.TotalCards,
		HasMore:    list.HasMore,
	}, nil
}

func (s *ScryfallService) searchPage(ctx context.Context, endpoint, reqURL string) ([]models.Card, *scryfallList, error) {
	var list scryfallList
	if err := s.doRequest(ctx, endpoint, reqURL, &list); err != nil {
		return nil, nil, err
	}
	var raw []scryfallCard
	if len(list.Data) > 0 {
		if err := json.Unmarshal(list.Data, &raw); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to decode search results: %w", models.ErrLookupFailed, err)
		}
	}
	cards := make([]models.Card, len(raw))
	for i, sc := range raw {
		cards[i] = convertToCard(sc)
	}
	return cards, &list, nil
}

// SearchCardPrintings returns every printing of a card by exact name,
// following result pages. Uses Scryfall's unique:prints.
func (s *ScryfallService) SearchCardPrintings(ctx context.Context, cardName, lang string) ([]models.Card, error) {
	// Escape quotes for Scryfall query syntax.
	safeName := strings.ReplaceAll(cardName, "\"", "\\\"")
	query := withLang(fmt.Sprintf(`!"%s" unique:prints`, safeName), lang)
	params := url.Values{}
	params.Set("q", query)
	params.Set("order", "released")
	reqURL := fmt.Sprintf("%s/cards/search?%s", s.baseURL, params.Encode())

	var all []models.Card
	for page := 0; reqURL != "" && page < maxPrintingPages; page++ {
		cards, list, err := s.searchPage(ctx, "printings", reqURL)
		if errors.Is(err, models.ErrCardNotFound) && page == 0 {
			return []models.Card{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("printings of %q: %w", cardName, err)
		}
		all = append(all, cards...)
		reqURL = ""
		if list.HasMore {
			reqURL = list.NextPage
		}
	}
	return all, nil
}

// Autocomplete returns up to 20 card names starting with prefix
func (s *ScryfallService) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	reqURL := fmt.Sprintf("%s/cards/autocomplete?q=%s", s.baseURL, url.QueryEscape(prefix))
	var list struct {
		Data []string `json:"data"`
	}
	if err := s.doRequest(ctx, "autocomplete", reqURL, &list); err != nil {
		return nil, fmt.Errorf("autocomplete %q: %w", prefix, err)
	}
	if list.Data == nil {
		list.Data = []string{}
	}
	return list.Data, nil
}

func (s *ScryfallService) GetSets(ctx context.Context) ([]models.CardSet, error) {
	var list struct {
		Data []scryfallSet `json:"data"`
	}
	if err := s.doRequest(ctx, "sets", s.baseURL+"/sets", &list); err != nil {
		return nil, fmt.Errorf("sets: %w", err)
	}
	sets := make([]models.CardSet, len(list.Data))
	for i, ss := range list.Data {
		sets[i] = models.CardSet(ss)
	}
	return sets, nil
}

func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(root *string, face string) string {
	if root != nil && *root != "" {
		return *root
	}
	return face
}

// convertToCard normalizes a Scryfall payload into a Card. Root fields win;
// double-faced layouts keep images, cost, text and stats on the faces, so
// those fall back to the first face. The back image comes from the second.
func convertToCard(sc scryfallCard) models.Card {
	var front, back scryfallFace
	if len(sc.CardFaces) > 0 {
		front = sc.CardFaces[0]
	}
	if len(sc.CardFaces) > 1 {
		back = sc.CardFaces[1]
	}

	images := sc.ImageURIs
	if images == nil {
		images = front.ImageURIs
	}
	if images == nil {
		images = &scryfallImages{}
	}

	card := models.Card{
		ID:            sc.ID,
		OracleID:      sc.OracleID,
		Name:          sc.Name,
		TypeLine:      sc.TypeLine,
		ManaCost:      firstNonEmpty(sc.ManaCost, front.ManaCost),
		CMC:           sc.CMC,
		ColorIdentity: mana.ParseColors(sc.ColorIdentity),
		Keywords:      sc.Keywords,
		OracleText:    firstNonEmpty(sc.OracleText, front.OracleText),
		Power:         firstNonEmpty(sc.Power, front.Power),
		Toughness:     firstNonEmpty(sc.Toughness, front.Toughness),
		Loyalty:       firstNonEmpty(sc.Loyalty, front.Loyalty),
		Rarity:        sc.Rarity,
		SetCode:       sc.Set,
		SetName:       sc.SetName,
		CardNumber:    sc.CollectorNum,
		Lang:          sc.Lang,
		ReleasedAt:    sc.ReleasedAt,
		Finishes:      sc.Finishes,
		ImageURL:      images.Normal,
		ImageURLLarge: images.Large,
		ImageURLSmall: images.Small,
		PriceUSD:      parsePrice(sc.Prices.USD),
		PriceEUR:      parsePrice(sc.Prices.EUR),
		ScryfallURI:   sc.ScryfallURI,
	}
	if card.TypeLine == "" {
		card.TypeLine = front.TypeLine
	}

	if sc.Colors != nil {
		card.Colors = mana.ParseColors(sc.Colors)
	} else {
		var faceColors []string
		for _, f := range sc.CardFaces {
			faceColors = append(faceColors, f.Colors...)
		}
		card.Colors = mana.ParseColors(faceColors)
	}
	if card.ColorIdentity == nil {
		card.ColorIdentity = mana.Colors{}
	}

	if back.ImageURIs != nil {
		card.IsDoubleFaced = true
		card.BackImageURL = back.ImageURIs.Normal
		card.BackImageURLLarge = back.ImageURIs.Large
		if card.BackImageURL == "" {
			card.BackImageURL = back.ImageURIs.Small
		}
	}

	if card.ManaCost != "" {
		symbols, err := mana.Parse(card.ManaCost)
		if err != nil {
			log.Printf("Warning: card %s (%s): %v", card.Name, card.ID, err)
		} else {
			card.ManaSymbols = symbols
		}
	}

	return card
}

// GroupPrintingsBySet groups the printings of one card by set for the
// change-edition picker. The preferred set sorts first, then newest release.
func GroupPrintingsBySet(cards []models.Card, preferredSet string) *models.MTGGroupedResult {
	if len(cards) == 0 {
		return &models.MTGGroupedResult{
			CardName:  "",
			SetGroups: []models.MTGSetGroup{},
			TotalSets: 0,
		}
	}

	setMap := make(map[string]*models.MTGSetGroup)
	for _, card := range cards {
		group, exists := setMap[card.SetCode]
		if !exists {
			group = &models.MTGSetGroup{
				SetCode:     card.SetCode,
				SetName:     card.SetName,
				ReleasedAt:  card.ReleasedAt,
				IsBestMatch: preferredSet != "" && strings.EqualFold(card.SetCode, preferredSet),
				Variants:    []models.Card{},
			}
			setMap[card.SetCode] = group
		}
		group.Variants = append(group.Variants, card)
	}

	groups := make([]models.MTGSetGroup, 0, len(setMap))
	for _, g := range setMap {
		groups = append(groups, *g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].IsBestMatch != groups[j].IsBestMatch {
			return groups[i].IsBestMatch
		}
		// "2022-02-18" compares correctly as a string
		if groups[i].ReleasedAt != groups[j].ReleasedAt {
			return groups[i].ReleasedAt > groups[j].ReleasedAt
		}
		return groups[i].SetCode < groups[j].SetCode
	})

	return &models.MTGGroupedResult{
		CardName:  cards[0].Name,
		SetGroups: groups,
		TotalSets: len(groups),
	}
}
