package metrics

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Bounds for labels read from structured model output.
const (
	maxLabelRunes          = 80
	maxRecommendationRunes = 300
	maxImpact              = 1000
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

// ValidateRecord checks a model-supplied record and trims its label.
// Returns true if valid.
func ValidateRecord(r *Record) bool {
	if r == nil {
		return false
	}
	r.Label = strings.TrimSpace(r.Label)
	if r.Label == "" || utf8.RuneCountInString(r.Label) > maxLabelRunes {
		return false
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return false
	}
	return !injectionPattern.MatchString(r.Label)
}

// ValidateRecommendation checks a model-supplied recommendation, trimming
// its label and clamping the impact to ±maxImpact percent.
func ValidateRecommendation(r *Recommendation) bool {
	if r == nil {
		return false
	}
	r.Label = strings.TrimSpace(r.Label)
	n := utf8.RuneCountInString(r.Label)
	if n < 3 || n > maxRecommendationRunes {
		return false
	}
	if injectionPattern.MatchString(r.Label) {
		return false
	}
	if math.IsNaN(r.Impact) {
		return false
	}
	r.Impact = math.Max(-maxImpact, math.Min(maxImpact, r.Impact))
	return true
}

func keepValid(in []Record) []Record {
	out := in[:0]
	for i := range in {
		if ValidateRecord(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}
