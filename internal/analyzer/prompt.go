package analyzer

import (
	"fmt"
	"strings"
)

// Variant selects the instruction prompt used for chunk analysis.
type Variant string

const (
	VariantBusiness Variant = "business"
	VariantGolf     Variant = "golf"
)

// ParseVariant maps a name to a Variant. Empty means business.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantBusiness:
		return VariantBusiness, nil
	case VariantGolf:
		return VariantGolf, nil
	default:
		return "", fmt.Errorf("unknown analysis variant %q", s)
	}
}

const BusinessPrompt = `You are a professional business analyst. Provide a comprehensive analysis with the following structure, ensuring all numerical data is clearly formatted:

1. Executive Summary
2. Key Metrics (each on new line, strictly in format "MetricName: Number" or "Category: XX%"):
   - Revenue: 1234567
   - Growth Rate: 25%
   - Market Share: 45%
   - Customer Count: 5000
3. Trend Analysis (each on new line, in format "Trend: Number"):
   - Q1 Growth Trend: 15
   - Q2 Growth Trend: 25
   - Q3 Growth Trend: 35
4. Segment Analysis (each on new line, in format "Segment: Number"):
   - Enterprise Segment: 45
   - SMB Segment: 30
   - Consumer Segment: 25
5. Performance Metrics (each on new line, in format "Metric: Number"):
   - Sales Performance: 85
   - Customer Satisfaction: 92
   - Market Penetration: 78
6. Recommendations (each with impact percentage):
   - Recommendation: Expand enterprise sales team (Impact: 30%)
   - Recommendation: Reduce onboarding time (Impact: 25%)

Ensure EVERY numerical value is presented in the exact format specified above for proper chart generation.`

const GolfPrompt = `You are a golf performance analyst. Analyze the round and practice statistics provided and structure your answer as follows, keeping every number in the exact format shown:

1. Executive Summary
2. Key Metrics (each on new line, "MetricName: Number" or "Category: XX%"):
   - Average Score: 84
   - Fairways Hit: 57%
   - Greens in Regulation: 44%
   - Putts per Round: 31
3. Hole-by-Hole Performance (each on new line, "Hole N: average strokes"):
   - Hole 1: 4.6
   - Hole 2: 3.4
4. Performance by Time of Day (each on new line, "Period: average score"):
   - Morning: 82
   - Afternoon: 85
   - Evening: 87
5. Trend Analysis (each on new line, "Trend: Number"):
   - Scoring Trend Month 1: 88
   - Scoring Trend Month 2: 85
6. Recommendations (each with impact percentage):
   - Recommendation: Practice lag putting (Impact: 20%)

Ensure EVERY numerical value is presented in the exact format specified above for proper chart generation.`

// SynthesisPrompt asks for one summary over several chunk analyses.
const SynthesisPrompt = "Summarize the following analyses into a concise, coherent summary:"

// SystemPrompt returns the instruction prompt for the variant.
func (v Variant) SystemPrompt() string {
	if v == VariantGolf {
		return GolfPrompt
	}
	return BusinessPrompt
}

// BuildSystemPrompt appends an optional structure addendum, such as one
// learned from a reference template, to the variant prompt.
func BuildSystemPrompt(v Variant, addendum string) string {
	addendum = strings.TrimSpace(addendum)
	if addendum == "" {
		return v.SystemPrompt()
	}
	return v.SystemPrompt() + "\n\n" + addendum
}

// CombineSections joins per-chunk analyses with section markers.
func CombineSections(texts []string) string {
	var sb strings.Builder
	sb.WriteString("\n\n=== Combined Analysis ===\n\n")
	for i, t := range texts {
		fmt.Fprintf(&sb, "\nSection %d:\n%s\n", i+1, t)
	}
	return sb.String()
}
