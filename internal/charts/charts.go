// Package charts renders deck analytics as interactive HTML charts.
package charts

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/codyseavey/deckistry/internal/deck"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title      string // Chart title
	Subtitle   string // Chart subtitle
	Width      string // Chart width (e.g., "900px")
	Height     string // Chart height (e.g., "500px")
	Theme      string // Chart theme
	ShowLegend bool   // Show legend
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:      "900px",
		Height:     "500px",
		Theme:      "light",
		ShowLegend: true,
	}
}

// manaColors are the slice colors of the color pie, keyed by WUBRG letter
var manaColors = map[string]string{
	"W": "#F8E7B9",
	"U": "#0E68AB",
	"B": "#150B00",
	"R": "#D3202A",
	"G": "#00733E",
	"C": "#A69F9D",
}

const curveColor = "#5470C6"

func globalOptions(config ChartConfig) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(config.ShowLegend),
		}),
	}
}

// RenderManaCurve writes the mana curve as a bar chart, one bar per bucket
// from 0 to 7+.
func RenderManaCurve(w io.Writer, curve deck.ManaCurve, config ChartConfig) error {
	if config.Title == "" {
		config.Title = "Mana Curve"
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(globalOptions(config),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithColorsOpts(opts.Colors{curveColor}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Mana value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cards"}),
	)...)

	data := make([]opts.BarData, len(curve))
	for i, n := range curve {
		data[i] = opts.BarData{Value: n}
	}

	bar.SetXAxis(deck.CurveLabels()).
		AddSeries("Cards", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(true),
			}),
		)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render mana curve: %w", err)
	}
	return nil
}

// RenderColorPie writes the color distribution as a pie chart. Empty
// buckets are left out.
func RenderColorPie(w io.Writer, shares []deck.ColorShare, config ChartConfig) error {
	if config.Title == "" {
		config.Title = "Colors"
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(append(globalOptions(config),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "item",
		}),
	)...)

	pie.AddSeries("Colors", ColorPieData(shares)).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:      opts.Bool(true),
				Formatter: "{b}: {d}%",
			}),
			charts.WithPieChartOpts(opts.PieChart{
				Radius: []string{"40%", "70%"},
			}),
		)

	if err := pie.Render(w); err != nil {
		return fmt.Errorf("failed to render color pie: %w", err)
	}
	return nil
}

// ColorPieData converts color shares to pie slices, skipping empty ones
func ColorPieData(shares []deck.ColorShare) []opts.PieData {
	data := make([]opts.PieData, 0, len(shares))
	for _, s := range shares {
		if s.Count == 0 {
			continue
		}
		data = append(data, opts.PieData{
			Name:      s.Name,
			Value:     s.Count,
			ItemStyle: &opts.ItemStyle{Color: manaColors[s.Color]},
		})
	}
	return data
}
