package deck

import (
	"strconv"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"
)

// buildChart maps c onto a native chart shape on slide. Category and value
// data end up in the package's chart part, so the chart stays editable.
func buildChart(slide *ppt.Slide, c *ChartSpec, style StyleConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	cats := uniqueCategories(c.Categories)

	shape := slide.CreateChartShape()
	shape.BaseShape.SetOffsetX(int64(0.5 * emuPerInch)).SetOffsetY(bodyTop)
	shape.BaseShape.SetWidth(int64(9.0 * emuPerInch)).SetHeight(int64(4.2 * emuPerInch))
	// The slide header already carries the title.
	shape.GetTitle().SetVisible(false)

	legend := shape.GetLegend()
	legend.Visible = c.Kind == ChartPie || len(c.Series) > 1
	legend.Position = ppt.LegendBottom

	series := make([]*ppt.ChartSeries, len(c.Series))
	for i, s := range c.Series {
		cs := ppt.NewChartSeriesOrdered(s.Name, cats, s.Values)
		if c.Kind == ChartPie {
			// Slices take the theme's varied colors.
			cs.ShowPercentage = true
			cs.SetLabelPosition(ppt.LabelBestFit)
		} else {
			cs.SetFillColor(ppt.NewColor(paletteColor(style.Palette, i)))
			cs.ShowValue = len(cats) <= 12
		}
		cs.Font.SetSize(style.SmallSize)
		series[i] = cs
	}

	switch c.Kind {
	case ChartColumn, ChartBar:
		bar := ppt.NewBarChart()
		if c.Kind == ChartBar {
			bar.BarDirection = ppt.BarDirectionHorizontal
		}
		for _, s := range series {
			bar.AddSeries(s)
		}
		shape.GetPlotArea().SetType(bar)
	case ChartLine:
		line := ppt.NewLineChart()
		for _, s := range series {
			s.Marker = &ppt.SeriesMarker{Symbol: ppt.MarkerCircle, Size: 7}
			line.AddSeries(s)
		}
		shape.GetPlotArea().SetType(line)
	case ChartPie:
		pie := ppt.NewPieChart()
		pie.AddSeries(series[0])
		shape.GetPlotArea().SetType(pie)
	}
	return nil
}

// uniqueCategories suffixes repeated labels; the chart part keys values by
// category name.
func uniqueCategories(cats []string) []string {
	seen := make(map[string]int, len(cats))
	out := make([]string, len(cats))
	for i, c := range cats {
		seen[c]++
		if n := seen[c]; n > 1 {
			c = c + " (" + strconv.Itoa(n) + ")"
		}
		out[i] = c
	}
	return out
}

// paletteColor returns the ARGB color for series i, cycling the palette.
func paletteColor(palette []string, i int) string {
	if len(palette) == 0 {
		palette = DefaultStyle().Palette
	}
	h := strings.TrimPrefix(palette[i%len(palette)], "#")
	if len(h) == 6 {
		h = "FF" + h
	}
	return strings.ToUpper(h)
}
