package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/codyseavey/deckistry/internal/deck"
)

func TestRenderManaCurve(t *testing.T) {
	var buf bytes.Buffer
	curve := deck.ManaCurve{0, 4, 8, 6, 3, 2, 1, 1}

	if err := RenderManaCurve(&buf, curve, DefaultChartConfig()); err != nil {
		t.Fatalf("RenderManaCurve error: %v", err)
	}

	html := buf.String()
	if !strings.Contains(html, "<html") {
		t.Error("expected an HTML document")
	}
	if !strings.Contains(html, "Mana Curve") {
		t.Error("expected the default title")
	}
	if !strings.Contains(html, "7+") {
		t.Error("expected the 7+ bucket label")
	}
}

func TestRenderColorPie(t *testing.T) {
	var buf bytes.Buffer
	shares := []deck.ColorShare{
		{Color: "U", Name: "Blue", Count: 10},
		{Color: "R", Name: "Red", Count: 0},
		{Color: "C", Name: "Colorless", Count: 5},
	}
	config := DefaultChartConfig()
	config.Title = "Izzet"

	if err := RenderColorPie(&buf, shares, config); err != nil {
		t.Fatalf("RenderColorPie error: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Izzet") || !strings.Contains(html, "Blue") {
		t.Error("expected title and slice names in output")
	}
}

func TestColorPieData_SkipsEmpty(t *testing.T) {
	data := ColorPieData([]deck.ColorShare{
		{Color: "W", Name: "White", Count: 0},
		{Color: "G", Name: "Green", Count: 3},
	})

	if len(data) != 1 {
		t.Fatalf("got %d slices, want 1", len(data))
	}
	if data[0].Name != "Green" || data[0].ItemStyle.Color != manaColors["G"] {
		t.Errorf("slice = %+v", data[0])
	}
}
