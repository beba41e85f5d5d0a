// Package decklist reads and writes the plain-text decklist format:
//
//	<quantity>[x] <name> [(<set>) [<collector number>]] [*F*] [[<tags>]] [{<options>}]
//
// for example
//
//	4x Lightning Bolt (2xm) 123
//	1x Sol Ring [Ramp]
//	1x Atraxa, Praetors' Voice (cm2) 10 [Commander{top}]
//	2 Some Card {Maybeboard}
package decklist

import (
	"regexp"
	"strconv"
	"strings"
)

// Line is one card request parsed from a decklist
type Line struct {
	Number          int      `json:"line"`
	Raw             string   `json:"raw"`
	Quantity        int      `json:"quantity"`
	Name            string   `json:"name"`
	SetCode         string   `json:"set_code,omitempty"`
	CollectorNumber string   `json:"collector_number,omitempty"`
	Foil            bool     `json:"foil,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Options         []string `json:"options,omitempty"`
	Commander       bool     `json:"commander,omitempty"`
}

// Skipped is a line that did not match the grammar
type Skipped struct {
	Number int    `json:"line"`
	Text   string `json:"text"`
}

// Result of Parse. Requests are in the order they appear in the text.
type Result struct {
	Requests   []Line    `json:"requests"`
	Maybeboard []Line    `json:"maybeboard"`
	Malformed  []Skipped `json:"malformed"`
}

var (
	// Group 1: quantity, 2: name, 3: set code, 4: collector number,
	// 5: foil marker, 6: tags, 7: options
	fullLine = regexp.MustCompile(`^(\d+)[xX]?\s+([^(\[{*]+?)(?:\s*\(([^)]+)\)(?:\s+([^\s\[{*]+))?)?(\s*\*[Ff]\*)?(?:\s*\[([^\]]*)\])?(?:\s*\{([^}]*)\})?$`)
	// "4 Card Name" or "4x Card Name"
	simpleLine = regexp.MustCompile(`^(\d+)[xX]?\s+(.+)$`)
	// "Card Name x4"
	trailingQuantity = regexp.MustCompile(`^(.+?)\s+[xX](\d+)$`)
	sectionHeader    = regexp.MustCompile(`(?i)^(deck|main|mainboard|commander|commanders|maybeboard|considering|sideboard|companion)\s*(?:\(\d+\))?:?$`)
)

type section int

const (
	sectionMain section = iota
	sectionCommander
	sectionMaybe
)

func sectionFor(header string) section {
	switch strings.ToLower(header) {
	case "commander", "commanders":
		return sectionCommander
	case "maybeboard", "considering", "sideboard", "companion":
		return sectionMaybe
	default:
		return sectionMain
	}
}

// Parse reads a decklist. It never fails: lines it cannot read are
// collected in Malformed, blank lines and // or # comments are ignored.
func Parse(text string) Result {
	result := Result{
		Requests:   []Line{},
		Maybeboard: []Line{},
		Malformed:  []Skipped{},
	}
	current := sectionMain

	for i, raw := range strings.Split(text, "\n") {
		number := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			current = sectionFor(m[1])
			continue
		}

		parsed, ok := parseLine(line)
		if !ok {
			result.Malformed = append(result.Malformed, Skipped{Number: number, Text: line})
			continue
		}
		parsed.Number = number
		parsed.Raw = line

		if current == sectionCommander {
			parsed.Commander = true
		}
		if current == sectionMaybe || isMaybeboard(parsed) {
			result.Maybeboard = append(result.Maybeboard, parsed)
			continue
		}
		if isCommander(parsed) {
			parsed.Commander = true
		}
		result.Requests = append(result.Requests, parsed)
	}

	return result
}

func parseLine(line string) (Line, bool) {
	if m := fullLine.FindStringSubmatch(line); m != nil {
		qty, ok := quantity(m[1])
		if !ok {
			return Line{}, false
		}
		return Line{
			Quantity:        qty,
			Name:            strings.TrimSpace(m[2]),
			SetCode:         strings.ToLower(strings.TrimSpace(m[3])),
			CollectorNumber: strings.TrimSpace(m[4]),
			Foil:            m[5] != "",
			Tags:            splitList(m[6]),
			Options:         splitList(m[7]),
		}, true
	}

	if m := simpleLine.FindStringSubmatch(line); m != nil {
		qty, ok := quantity(m[1])
		if !ok {
			return Line{}, false
		}
		return Line{Quantity: qty, Name: strings.TrimSpace(m[2])}, true
	}

	if m := trailingQuantity.FindStringSubmatch(line); m != nil {
		qty, ok := quantity(m[2])
		if !ok {
			return Line{}, false
		}
		return Line{Quantity: qty, Name: strings.TrimSpace(m[1])}, true
	}

	return Line{}, false
}

func quantity(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func anyContains(list []string, words ...string) bool {
	for _, item := range list {
		lower := strings.ToLower(item)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return false
}

// Lines that fall back to the loose grammars keep their markers in Name
func isMaybeboard(l Line) bool {
	return anyContains(l.Tags, "maybeboard") ||
		anyContains(l.Options, "nodeck", "maybeboard") ||
		anyContains([]string{l.Name}, "nodeck", "maybeboard")
}

func isCommander(l Line) bool {
	return anyContains(l.Tags, "commander", "top") || anyContains(l.Options, "top")
}
