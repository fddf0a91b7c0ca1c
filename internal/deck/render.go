package deck

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/docdeck/internal/metrics"
)

const (
	DeckTitle       = "Document Analysis Report"
	DefaultSubtitle = "AI-Powered Analysis"

	maxTitleRunes = 80
)

var (
	markerRe     = regexp.MustCompile(`^\s*(?:[-*+•]\s+|\d+[.)]\s+)`)
	metricLineRe = regexp.MustCompile(`^[^:]+:\s*[$€£]?\s*-?\d`)
	sectionKey   = []string{"analysis", "performance"}
)

type RenderOptions struct {
	// Subtitle replaces DefaultSubtitle on the title slide when set.
	Subtitle string
	Log      *slog.Logger
}

// Render lays out the deck in a fixed order: title, summary, metric charts,
// content sections, trend and segment charts, golf charts, recommendations.
// Slides with nothing to show are left out, and a chart that fails
// validation is logged and skipped.
func Render(analysis string, report metrics.Report, opts RenderOptions) Deck {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	subtitle := opts.Subtitle
	if subtitle == "" {
		subtitle = DefaultSubtitle
	}

	d := Deck{Title: DeckTitle}
	d.Slides = append(d.Slides, SlideSpec{Layout: LayoutTitle, Title: DeckTitle, Subtitle: subtitle})
	if strings.TrimSpace(analysis) == "" && report.Empty() {
		return d
	}

	if s := strings.TrimSpace(report.Summary); s != "" {
		d.Slides = append(d.Slides, SlideSpec{
			Layout: LayoutContent,
			Title:  "Executive Summary",
			Body:   nonEmptyLines(s),
		})
	}

	add := func(title string, kind ChartKind, records []metrics.Record) {
		if slide, ok := chartSlide(title, kind, records, log); ok {
			d.Slides = append(d.Slides, slide)
		}
	}
	add("Key Metrics Overview", ChartColumn, report.Metrics)
	add("Percentage Distribution", ChartPie, report.Percentages())

	if !isStructured(analysis) {
		d.Slides = append(d.Slides, contentSlides(analysis)...)
	}

	add("Trend Analysis", ChartLine, report.Trends)
	add("Segment Analysis", ChartBar, report.Segments)
	add("Hole-by-Hole Performance", ChartColumn, report.Holes)
	add("Performance by Time of Day", ChartLine, report.TimeOfDay)

	if len(report.Recommendations) > 0 {
		body := make([]string, len(report.Recommendations))
		for i, r := range report.Recommendations {
			body[i] = fmt.Sprintf("%s (Impact: %s%%)", r.Label, formatNumber(r.Impact))
		}
		d.Slides = append(d.Slides, SlideSpec{
			Layout: LayoutContent,
			Title:  "Recommendations & Impact Analysis",
			Body:   body,
		})
	}
	return d
}

func chartSlide(title string, kind ChartKind, records []metrics.Record, log *slog.Logger) (SlideSpec, bool) {
	if len(records) == 0 {
		return SlideSpec{}, false
	}
	cats := make([]string, len(records))
	vals := make([]float64, len(records))
	for i, r := range records {
		cats[i] = r.Label
		vals[i] = r.Value
	}
	chart, err := NewChart(kind, cats, Series{Name: "Values", Values: vals})
	if err != nil {
		log.Warn("skipping chart slide", "slide", title, "error", err)
		return SlideSpec{}, false
	}
	return SlideSpec{Layout: LayoutChart, Title: title, Chart: chart}, true
}

// contentSlides splits the analysis on blank lines, drops the summary block,
// and turns each remaining block into a slide when it has a heading line and
// a body, or names an analysis or performance section.
func contentSlides(analysis string) []SlideSpec {
	lines := strings.Split(metrics.Normalize(analysis), "\n")
	if start, end, ok := metrics.SummaryBlock(lines); ok {
		lines = append(lines[:start:start], lines[end:]...)
	}

	var slides []SlideSpec
	for _, block := range blocks(lines) {
		for i := range block {
			block[i] = stripMarker(block[i])
		}
		title, body := strings.TrimRight(block[0], ":"), block[1:]
		if isMetricLine(block[0]) {
			// No heading line: only named sections get a slide.
			if !mentionsSection(strings.Join(block, " ")) {
				continue
			}
			title, body = "Detailed Analysis", block
		}
		if len(body) == 0 && !mentionsSection(title) {
			continue
		}
		if r := []rune(title); len(r) > maxTitleRunes {
			title = string(r[:maxTitleRunes-3]) + "..."
		}

		var left, right []string
		for _, l := range body {
			if isMetricLine(l) {
				left = append(left, l)
			} else {
				right = append(right, l)
			}
		}
		if len(left) > 0 && len(right) > 0 {
			slides = append(slides, SlideSpec{
				Layout:     LayoutTwoContent,
				Title:      title,
				LeftTitle:  "Key Metrics",
				Left:       left,
				RightTitle: "Analysis",
				Right:      right,
			})
			continue
		}
		slides = append(slides, SlideSpec{Layout: LayoutContent, Title: title, Body: body})
	}
	return slides
}

func blocks(lines []string) [][]string {
	var out [][]string
	var cur []string
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			cur = append(cur, t)
			continue
		}
		if len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func stripMarker(s string) string {
	return strings.TrimSpace(markerRe.ReplaceAllString(s, ""))
}

func mentionsSection(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range sectionKey {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// isMetricLine matches "Label: N" style lines.
func isMetricLine(s string) bool {
	return metricLineRe.MatchString(s)
}

// isStructured reports whether the analysis is a JSON payload rather than
// prose.
func isStructured(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "```json")
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
