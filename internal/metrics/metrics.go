// Package metrics scrapes numeric facts out of free-text model analyses.
package metrics

// Record is one parsed numeric fact.
type Record struct {
	Label        string  `json:"label"`
	Value        float64 `json:"value"`
	IsPercentage bool    `json:"is_percentage"`
}

// Recommendation is an action item with its estimated impact in percent.
type Recommendation struct {
	Label  string  `json:"label"`
	Impact float64 `json:"impact"`
}

// Report is everything extracted from one analysis. Slices keep text order
// and may hold duplicate labels.
type Report struct {
	Metrics         []Record         `json:"metrics"`
	Trends          []Record         `json:"trends"`
	Segments        []Record         `json:"segments"`
	Holes           []Record         `json:"holes"`
	TimeOfDay       []Record         `json:"time_of_day"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary"`
}

// Percentages returns the metrics flagged as percentages.
func (r Report) Percentages() []Record {
	var out []Record
	for _, m := range r.Metrics {
		if m.IsPercentage {
			out = append(out, m)
		}
	}
	return out
}

// Empty reports whether nothing was extracted.
func (r Report) Empty() bool {
	return len(r.Metrics) == 0 && len(r.Trends) == 0 && len(r.Segments) == 0 &&
		len(r.Holes) == 0 && len(r.TimeOfDay) == 0 && len(r.Recommendations) == 0 &&
		r.Summary == ""
}

// Policy turns analysis text into a Report. Implementations never fail;
// text they cannot read is skipped.
type Policy interface {
	Extract(text string) Report
}

// ForName returns the policy registered under name: "regex" (default) or
// "json", which reads structured output and falls back to regex.
func ForName(name string) Policy {
	if name == "json" {
		return JSONPolicy{Fallback: RegexPolicy{}}
	}
	return RegexPolicy{}
}
