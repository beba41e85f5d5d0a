package deck

import (
	"context"
	"errors"

	"github.com/codyseavey/deckistry/internal/decklist"
	"github.com/codyseavey/deckistry/internal/models"
)

// FailedLine is a line whose card could not be resolved
type FailedLine struct {
	Line     int    `json:"line"`
	Name     string `json:"name"`
	NotFound bool   `json:"not_found"`
	Error    string `json:"error"`
}

// RejectedLine is a line whose card was resolved but refused by the rules
type RejectedLine struct {
	Line       int        `json:"line"`
	Name       string     `json:"name"`
	Constraint Constraint `json:"constraint"`
	Message    string     `json:"message"`
}

// ImportSummary reports what an import did, line by line
type ImportSummary struct {
	Imported   int                `json:"imported"`
	Cards      int                `json:"cards"`
	Commander  string             `json:"commander,omitempty"`
	Maybeboard int                `json:"maybeboard"`
	Malformed  []decklist.Skipped `json:"malformed"`
	Failed     []FailedLine       `json:"failed"`
	Rejected   []RejectedLine     `json:"rejected"`
	Canceled   bool               `json:"canceled"`
}

// Import parses a decklist and applies it line by line, in order, one
// resolve and one add per line. Lines that fail to resolve or are refused
// are recorded and the import moves on; nothing is retried.
//
// Cancelling ctx stops the import between lines: every line before the
// cancellation is applied, the interrupted line is not. The summary is
// returned together with ctx.Err().
func (e *Editor) Import(ctx context.Context, text string) (ImportSummary, error) {
	parsed := decklist.Parse(text)
	summary := ImportSummary{
		Maybeboard: len(parsed.Maybeboard),
		Malformed:  parsed.Malformed,
		Failed:     []FailedLine{},
		Rejected:   []RejectedLine{},
	}

	for _, line := range parsed.Requests {
		if err := ctx.Err(); err != nil {
			summary.Canceled = true
			return summary, err
		}

		card, err := e.source.ResolveNamed(ctx, NamedQuery{
			Name:            line.Name,
			SetCode:         line.SetCode,
			CollectorNumber: line.CollectorNumber,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				summary.Canceled = true
				return summary, ctxErr
			}
			summary.Failed = append(summary.Failed, FailedLine{
				Line:     line.Number,
				Name:     line.Name,
				NotFound: errors.Is(err, models.ErrCardNotFound),
				Error:    err.Error(),
			})
			continue
		}

		if line.Commander {
			_, err = e.SetCommander(card)
		} else {
			_, err = e.add(OpAdd, card, line.Quantity, line.Foil)
		}
		if err != nil {
			var v *RuleViolation
			if !errors.As(err, &v) {
				return summary, err
			}
			summary.Rejected = append(summary.Rejected, RejectedLine{
				Line:       line.Number,
				Name:       line.Name,
				Constraint: v.Constraint,
				Message:    v.Message,
			})
			continue
		}

		summary.Imported++
		if line.Commander {
			summary.Commander = card.Name
		} else {
			summary.Cards += line.Quantity
		}
	}

	return summary, nil
}

// Export renders the deck in the decklist format, commander first
func (e *Editor) Export() string {
	return decklist.Format(ExportLines(e.state))
}

// ExportLines converts a composition to decklist lines
func ExportLines(s *State) []decklist.Line {
	var lines []decklist.Line
	if cmd := s.commander; cmd != nil {
		lines = append(lines, decklist.Line{
			Quantity:        1,
			Name:            cmd.Name,
			SetCode:         cmd.SetCode,
			CollectorNumber: cmd.CardNumber,
			Commander:       true,
		})
	}
	for _, en := range s.Entries() {
		lines = append(lines, decklist.Line{
			Quantity:        en.Quantity,
			Name:            en.Card.Name,
			SetCode:         en.Card.SetCode,
			CollectorNumber: en.Card.CardNumber,
			Foil:            en.Foil,
		})
	}
	return lines
}
