// Package mana parses Magic mana costs into ordered symbol sequences.
package mana

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is one of the five Magic colors, in WUBRG letter form.
type Color string

const (
	White Color = "W"
	Blue  Color = "U"
	Black Color = "B"
	Red   Color = "R"
	Green Color = "G"
)

// AllColors returns the five colors in WUBRG order
func AllColors() []Color {
	return []Color{White, Blue, Black, Red, Green}
}

// IsValid reports whether c is one of the five colors
func (c Color) IsValid() bool {
	switch c {
	case White, Blue, Black, Red, Green:
		return true
	}
	return false
}

// Name returns the English name of the color
func (c Color) Name() string {
	switch c {
	case White:
		return "White"
	case Blue:
		return "Blue"
	case Black:
		return "Black"
	case Red:
		return "Red"
	case Green:
		return "Green"
	}
	return string(c)
}

// Colors is a set of colors. Order is not significant for set operations.
type Colors []Color

// ParseColors converts raw color letters (as returned by Scryfall) into Colors,
// dropping anything that is not W, U, B, R or G.
func ParseColors(raw []string) Colors {
	out := make(Colors, 0, len(raw))
	for _, r := range raw {
		c := Color(strings.ToUpper(strings.TrimSpace(r)))
		if c.IsValid() && !out.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether c is in the set
func (cs Colors) Contains(c Color) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

// SubsetOf reports whether every color of cs is also in other.
// The empty set is a subset of everything.
func (cs Colors) SubsetOf(other Colors) bool {
	for _, c := range cs {
		if !other.Contains(c) {
			return false
		}
	}
	return true
}

// Outside returns the colors of cs that are not in other, in WUBRG order
func (cs Colors) Outside(other Colors) Colors {
	var out Colors
	for _, c := range AllColors() {
		if cs.Contains(c) && !other.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// String renders the set in WUBRG order, e.g. "UB". Empty sets render as "C".
func (cs Colors) String() string {
	var sb strings.Builder
	for _, c := range AllColors() {
		if cs.Contains(c) {
			sb.WriteString(string(c))
		}
	}
	if sb.Len() == 0 {
		return "C"
	}
	return sb.String()
}

// Kind classifies a mana symbol
type Kind string

const (
	KindGeneric       Kind = "generic"        // {0}, {1}, {15}
	KindColored       Kind = "colored"        // {W}
	KindColorless     Kind = "colorless"      // {C}
	KindHybrid        Kind = "hybrid"         // {W/U}
	KindGenericHybrid Kind = "generic_hybrid" // {2/W}
	KindPhyrexian     Kind = "phyrexian"      // {W/P}, {W/U/P}
	KindVariable      Kind = "variable"       // {X}, {Y}, {Z}
	KindSnow          Kind = "snow"           // {S}
	KindHalf          Kind = "half"           // {H/W}, {½}
)

// Symbol is one braced mana symbol of a cost
type Symbol struct {
	Raw     string  `json:"raw"`
	Kind    Kind    `json:"kind"`
	Colors  Colors  `json:"colors,omitempty"`
	Generic int     `json:"generic,omitempty"`
	Value   float64 `json:"value"`
}

// Parse splits a mana cost such as "{2}{W/U}{B/P}" into its symbols in order.
// Text outside braces (the " // " separating split card halves) is ignored.
func Parse(cost string) ([]Symbol, error) {
	var symbols []Symbol
	rest := cost
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return symbols, nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("unterminated mana symbol in %q", cost)
		}
		body := rest[open+1 : open+end]
		sym, err := parseSymbol(body)
		if err != nil {
			return nil, fmt.Errorf("invalid mana cost %q: %w", cost, err)
		}
		symbols = append(symbols, sym)
		rest = rest[open+end+1:]
	}
}

func parseSymbol(body string) (Symbol, error) {
	raw := "{" + body + "}"
	upper := strings.ToUpper(strings.TrimSpace(body))
	if upper == "" {
		return Symbol{}, fmt.Errorf("empty symbol")
	}

	if n, err := strconv.Atoi(upper); err == nil && n >= 0 {
		return Symbol{Raw: raw, Kind: KindGeneric, Generic: n, Value: float64(n)}, nil
	}

	switch upper {
	case "X", "Y", "Z":
		return Symbol{Raw: raw, Kind: KindVariable}, nil
	case "C":
		return Symbol{Raw: raw, Kind: KindColorless, Value: 1}, nil
	case "S":
		return Symbol{Raw: raw, Kind: KindSnow, Value: 1}, nil
	case "½":
		return Symbol{Raw: raw, Kind: KindHalf, Value: 0.5}, nil
	}

	if c := Color(upper); c.IsValid() {
		return Symbol{Raw: raw, Kind: KindColored, Colors: Colors{c}, Value: 1}, nil
	}

	parts := strings.Split(upper, "/")
	switch len(parts) {
	case 2:
		a, b := parts[0], parts[1]
		if b == "P" {
			if c := Color(a); c.IsValid() {
				return Symbol{Raw: raw, Kind: KindPhyrexian, Colors: Colors{c}, Value: 1}, nil
			}
			if a == "C" {
				return Symbol{Raw: raw, Kind: KindPhyrexian, Value: 1}, nil
			}
		}
		if a == "H" {
			if c := Color(b); c.IsValid() {
				return Symbol{Raw: raw, Kind: KindHalf, Colors: Colors{c}, Value: 0.5}, nil
			}
		}
		if n, err := strconv.Atoi(a); err == nil && n >= 0 {
			if c := Color(b); c.IsValid() {
				return Symbol{Raw: raw, Kind: KindGenericHybrid, Colors: Colors{c}, Generic: n, Value: float64(n)}, nil
			}
		}
		ca, cb := Color(a), Color(b)
		if (ca.IsValid() || a == "C") && cb.IsValid() {
			colors := Colors{cb}
			if ca.IsValid() {
				colors = Colors{ca, cb}
			}
			return Symbol{Raw: raw, Kind: KindHybrid, Colors: colors, Value: 1}, nil
		}
	case 3:
		ca, cb := Color(parts[0]), Color(parts[1])
		if parts[2] == "P" && ca.IsValid() && cb.IsValid() {
			return Symbol{Raw: raw, Kind: KindPhyrexian, Colors: Colors{ca, cb}, Value: 1}, nil
		}
	}

	return Symbol{}, fmt.Errorf("unknown symbol %s", raw)
}

// Value returns the converted mana value of a symbol sequence. Variable
// symbols count as zero.
func Value(symbols []Symbol) float64 {
	var total float64
	for _, s := range symbols {
		total += s.Value
	}
	return total
}

// ColorsOf returns the colors referenced by a symbol sequence, in WUBRG order
func ColorsOf(symbols []Symbol) Colors {
	var seen Colors
	for _, s := range symbols {
		for _, c := range s.Colors {
			if !seen.Contains(c) {
				seen = append(seen, c)
			}
		}
	}
	var out Colors
	for _, c := range AllColors() {
		if seen.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}
