package deck

import (
	"math"
	"sort"
	"strings"

	"github.com/codyseavey/deckistry/internal/mana"
	"github.com/codyseavey/deckistry/internal/models"
)

type Category string

const (
	CategoryCreature     Category = "Creature"
	CategoryInstant      Category = "Instant"
	CategorySorcery      Category = "Sorcery"
	CategoryEnchantment  Category = "Enchantment"
	CategoryArtifact     Category = "Artifact"
	CategoryPlaneswalker Category = "Planeswalker"
	CategoryLand         Category = "Land"
	CategoryOther        Category = "Other"
)

// categoryOrder is also the matching priority: an "Artifact Creature" is a
// Creature because Creature is tested first.
var categoryOrder = []Category{
	CategoryCreature,
	CategoryInstant,
	CategorySorcery,
	CategoryEnchantment,
	CategoryArtifact,
	CategoryPlaneswalker,
	CategoryLand,
}

// Categories lists every category in display order
func Categories() []Category {
	out := make([]Category, 0, len(categoryOrder)+1)
	out = append(out, categoryOrder...)
	return append(out, CategoryOther)
}

// Categorize returns the first category whose keyword appears in the type line
func Categorize(card *models.Card) Category {
	typeLine := strings.ToLower(card.TypeLine)
	for _, c := range categoryOrder {
		if strings.Contains(typeLine, strings.ToLower(string(c))) {
			return c
		}
	}
	return CategoryOther
}

// CategoryGroup is the entries of one category, sorted for display
type CategoryGroup struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Entries  []Entry  `json:"entries"`
}

// CurveBuckets is the number of mana curve buckets: 0 through 6, then 7+
const CurveBuckets = 8

// ManaCurve counts non-land card quantities by converted mana value
type ManaCurve [CurveBuckets]int

// CurveLabels are the display labels of the ManaCurve buckets
func CurveLabels() []string {
	return []string{"0", "1", "2", "3", "4", "5", "6", "7+"}
}

// Total is the sum of all buckets
func (m ManaCurve) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

func curveBucket(cmc float64) int {
	b := int(math.Floor(cmc))
	if b < 0 {
		return 0
	}
	if b >= CurveBuckets-1 {
		return CurveBuckets - 1
	}
	return b
}

// ColorShare is one slice of the color distribution. Color is a WUBRG
// letter or "C" for colorless.
type ColorShare struct {
	Color   string  `json:"color"`
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Analysis is the derived statistics of a composition. The commander is
// not part of it.
type Analysis struct {
	TotalCards  int             `json:"total_cards"`
	UniqueCards int             `json:"unique_cards"`
	Categories  []CategoryGroup `json:"categories"`
	ManaCurve   ManaCurve       `json:"mana_curve"`
	AverageCMC  float64         `json:"average_cmc"`
	Colors      []ColorShare    `json:"colors"`
}

const colorless = "C"

// Analyze recomputes every statistic from s
func Analyze(s *State) Analysis {
	entries := s.Entries()
	a := Analysis{
		TotalCards:  s.TotalCards(),
		UniqueCards: len(entries),
	}

	grouped := make(map[Category][]Entry)
	colorCounts := make(map[string]int)
	var cmcSum float64
	nonLand := 0

	for _, e := range entries {
		cat := Categorize(e.Card)
		grouped[cat] = append(grouped[cat], e)

		if !e.Card.IsLand() {
			a.ManaCurve[curveBucket(e.Card.CMC)] += e.Quantity
			cmcSum += e.Card.CMC * float64(e.Quantity)
			nonLand += e.Quantity
		}

		if len(e.Card.Colors) == 0 {
			colorCounts[colorless] += e.Quantity
		}
		for _, c := range e.Card.Colors {
			colorCounts[string(c)] += e.Quantity
		}
	}

	if nonLand > 0 {
		a.AverageCMC = cmcSum / float64(nonLand)
	}

	for _, cat := range Categories() {
		list, ok := grouped[cat]
		if !ok {
			continue
		}
		sortEntries(cat, list)
		group := CategoryGroup{Category: cat, Entries: list}
		for _, e := range list {
			group.Count += e.Quantity
		}
		a.Categories = append(a.Categories, group)
	}

	a.Colors = colorShares(colorCounts)
	return a
}

func sortEntries(cat Category, list []Entry) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Card, list[j].Card
		if cat != CategoryLand && a.CMC != b.CMC {
			return a.CMC < b.CMC
		}
		return a.Name < b.Name
	})
}

func colorShares(counts map[string]int) []ColorShare {
	total := 0
	for _, n := range counts {
		total += n
	}
	shares := make([]ColorShare, 0, 6)
	for _, c := range mana.AllColors() {
		shares = append(shares, ColorShare{Color: string(c), Name: c.Name(), Count: counts[string(c)]})
	}
	shares = append(shares, ColorShare{Color: colorless, Name: "Colorless", Count: counts[colorless]})
	if total > 0 {
		for i := range shares {
			shares[i].Percent = float64(shares[i].Count) * 100 / float64(total)
		}
	}
	return shares
}
