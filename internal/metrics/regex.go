package metrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	keyValueRe = regexp.MustCompile(`([A-Za-z][A-Za-z0-9 &/\-]*?)\s*:\s*[$€£]?\s*(-?\d[\d,]*(?:\.\d+)?)(\s*%)?`)
	percentRe  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*%(?:\s*(?:of|in|for)\b)?[ \t]*([^,.;:()\n]*)`)
	impactRe   = regexp.MustCompile(`(?i)\(\s*(?:impact\s*:?\s*)?([-+]?\d+(?:\.\d+)?)\s*%?\s*\)`)
	markerRe   = regexp.MustCompile(`^\s*(?:[-*+•]\s+|\d+[.)]\s+)`)
	recPrefix  = regexp.MustCompile(`(?i)^recommendation(?:\s*#?\d+)?\s*[:\-–]\s*`)
	holeRe     = regexp.MustCompile(`(?i)^hole\s*#?\s*(\d+)$`)
	headingRe  = regexp.MustCompile(`^\d+[.)]\s+[A-Z]`)
	leadRe     = regexp.MustCompile(`(?i)^\s*(?:[-*+•]\s+|\d+[.)]\s+)?(trend|segment)s?\s*:`)
)

var timeOfDayWords = []string{"morning", "midday", "noon", "afternoon", "evening", "twilight", "night"}

const maxLabelWords = 8

// RegexPolicy reads metrics from loosely formatted analysis text with a fixed
// set of line patterns.
type RegexPolicy struct{}

type span struct{ start, end int }

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

// Extract runs every pass over the normalized text. The percentage pass
// comes first in Metrics, then the key-value pass.
func (RegexPolicy) Extract(text string) Report {
	lines := strings.Split(Normalize(text), "\n")

	var pct, kv []Record
	var rep Report
	for _, line := range lines {
		impacts := matchSpans(impactRe, line)

		var lead string
		if m := leadRe.FindStringSubmatch(line); m != nil {
			lead = strings.ToLower(m[1])
		}

		pairs := keyValues(line, impacts)
		var valueSpans []span
		for _, p := range pairs {
			valueSpans = append(valueSpans, p.value)
			kv = append(kv, p.rec)
			classify(&rep, p.rec, lead)
		}

		for _, m := range percentRe.FindAllStringSubmatchIndex(line, -1) {
			sp := span{m[0], m[3] + 1}
			if overlapsAny(sp, valueSpans) || overlapsAny(sp, impacts) {
				continue
			}
			v, ok := parseNumber(line[m[2]:m[3]])
			if !ok {
				continue
			}
			label := cleanLabel(line[m[4]:m[5]])
			if label == "" {
				label = fmt.Sprintf("Metric %d", len(pct)+1)
			}
			pct = append(pct, Record{Label: label, Value: v, IsPercentage: true})
		}
	}

	rep.Metrics = append(pct, kv...)
	rep.Recommendations = recommendations(lines)
	rep.Summary = summary(lines)
	return rep
}

type pair struct {
	rec   Record
	value span
}

func keyValues(line string, impacts []span) []pair {
	var out []pair
	for _, m := range keyValueRe.FindAllStringSubmatchIndex(line, -1) {
		// Times, dates and ratios are not values.
		if end := m[5]; end < len(line) && strings.ContainsRune(":/", rune(line[end])) {
			continue
		}
		if end := m[5]; end+1 < len(line) && line[end] == '-' && isDigit(line[end+1]) {
			continue
		}
		label := cleanLabel(line[m[2]:m[3]])
		if label == "" {
			continue
		}
		valueEnd := m[5]
		if m[6] >= 0 {
			valueEnd = m[7]
		}
		if overlapsAny(span{m[2], valueEnd}, impacts) {
			continue
		}
		v, ok := parseNumber(line[m[4]:m[5]])
		if !ok {
			continue
		}
		out = append(out, pair{
			rec:   Record{Label: label, Value: v, IsPercentage: m[6] >= 0},
			value: span{m[4], valueEnd},
		})
	}
	return out
}

// classify files a key-value record into the specialized buckets its label
// names, or that the line's leading "Trend:" or "Segment:" keyword names.
func classify(rep *Report, rec Record, lead string) {
	lower := strings.ToLower(rec.Label)
	if strings.Contains(lower, "trend") || lead == "trend" {
		rep.Trends = append(rep.Trends, rec)
	}
	if strings.Contains(lower, "segment") || lead == "segment" {
		rep.Segments = append(rep.Segments, rec)
	}
	if m := holeRe.FindStringSubmatch(rec.Label); m != nil {
		n, _ := strconv.Atoi(m[1])
		h := rec
		h.Label = fmt.Sprintf("Hole %d", n)
		rep.Holes = append(rep.Holes, h)
	}
	for _, w := range strings.Fields(lower) {
		if containsString(timeOfDayWords, w) {
			rep.TimeOfDay = append(rep.TimeOfDay, rec)
			break
		}
	}
}

// recommendations reads lines carrying an impact estimate that either
// mention recommending or sit inside a Recommendations section.
func recommendations(lines []string) []Recommendation {
	var out []Recommendation
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		m := impactRe.FindStringSubmatchIndex(trimmed)
		if m == nil {
			switch {
			case strings.Contains(lower, "recommend"):
				inSection = true
			case isHeading(trimmed):
				inSection = false
			}
			continue
		}
		if !inSection && !strings.Contains(lower, "recommend") {
			continue
		}
		impact, ok := parseNumber(trimmed[m[2]:m[3]])
		if !ok {
			continue
		}
		label := markerRe.ReplaceAllString(trimmed[:m[0]], "")
		if rest := recPrefix.ReplaceAllString(label, ""); strings.TrimSpace(rest) != "" {
			label = rest
		}
		label = strings.TrimRight(strings.TrimSpace(label), ":-–")
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		out = append(out, Recommendation{Label: label, Impact: impact})
	}
	return out
}

// summary returns the text after the first line mentioning a summary or
// overview, up to a blank line or the next numbered heading.
func summary(lines []string) string {
	text, _, _, _ := findSummary(lines)
	return text
}

// SummaryBlock reports the line range [start, end) that Extract read the
// summary from, so callers can drop it from body text. ok is false when no
// line mentions a summary.
func SummaryBlock(lines []string) (start, end int, ok bool) {
	_, start, end, ok = findSummary(lines)
	return start, end, ok
}

func findSummary(lines []string) (text string, start, end int, ok bool) {
	for i, line := range lines {
		lower := strings.ToLower(line)
		idx, kw := strings.Index(lower, "summary"), len("summary")
		if idx < 0 {
			idx, kw = strings.Index(lower, "overview"), len("overview")
		}
		if idx < 0 {
			continue
		}
		var parts []string
		rest := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line[idx+kw:]), ":-–"))
		if rest != "" {
			parts = append(parts, rest)
		}
		end = i + 1
		for ; end < len(lines); end++ {
			next := strings.TrimSpace(lines[end])
			if next == "" {
				if len(parts) > 0 {
					break
				}
				continue
			}
			if headingRe.MatchString(next) {
				break
			}
			parts = append(parts, next)
		}
		return strings.Join(parts, "\n"), i, end, true
	}
	return "", 0, 0, false
}

// isHeading guesses whether a normalized line starts a new section.
func isHeading(line string) bool {
	if headingRe.MatchString(line) {
		return true
	}
	if markerRe.MatchString(line) {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	return len(strings.Fields(line)) <= 4 && !strings.ContainsAny(line, ".,:")
}

func matchSpans(re *regexp.Regexp, s string) []span {
	var out []span
	for _, m := range re.FindAllStringIndex(s, -1) {
		out = append(out, span{m[0], m[1]})
	}
	return out
}

func overlapsAny(s span, spans []span) bool {
	for _, o := range spans {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}

// cleanLabel collapses whitespace, drops list markers and keeps the last
// few words of long labels.
func cleanLabel(s string) string {
	s = markerRe.ReplaceAllString(s, "")
	words := strings.Fields(s)
	if len(words) > maxLabelWords {
		words = words[len(words)-maxLabelWords:]
	}
	return strings.Trim(strings.Join(words, " "), " -&/")
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v, err == nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
