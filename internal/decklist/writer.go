package decklist

import (
	"strconv"
	"strings"
)

// commanderTag marks the commander line so the list reads back the same way
const commanderTag = "[Commander{top}]"

// Format renders lines in the decklist format, one per line, commander lines
// first. Parse(Format(lines)) yields the same requests.
func Format(lines []Line) string {
	var sb strings.Builder
	for _, commander := range []bool{true, false} {
		for _, l := range lines {
			if l.Commander != commander {
				continue
			}
			sb.WriteString(formatLine(l))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func formatLine(l Line) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(l.Quantity))
	sb.WriteString("x ")
	sb.WriteString(l.Name)
	if l.SetCode != "" {
		sb.WriteString(" (")
		sb.WriteString(l.SetCode)
		sb.WriteByte(')')
		if l.CollectorNumber != "" {
			sb.WriteByte(' ')
			sb.WriteString(l.CollectorNumber)
		}
	}
	if l.Foil {
		sb.WriteString(" *F*")
	}
	if l.Commander {
		sb.WriteByte(' ')
		sb.WriteString(commanderTag)
	}
	return sb.String()
}
