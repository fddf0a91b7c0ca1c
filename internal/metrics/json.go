package metrics

import (
	"encoding/json"
	"strings"

	"github.com/dgallion1/docdeck/internal/llm"
)

// JSONInstruction asks the model for output JSONPolicy can read directly.
const JSONInstruction = `Return the analysis as a single JSON object with these keys:
"summary" (string), "metrics", "trends", "segments", "holes", "time_of_day"
(arrays of {"label": string, "value": number, "is_percentage": bool}) and
"recommendations" (array of {"label": string, "impact": number}).
Return only the JSON object.`

// JSONPolicy reads a structured Report from model output and defers to
// Fallback when the output is not a JSON object.
type JSONPolicy struct {
	Fallback Policy
}

func (p JSONPolicy) Extract(text string) Report {
	if rep, ok := parseReport(text); ok {
		return rep
	}
	if p.Fallback == nil {
		return Report{}
	}
	return p.Fallback.Extract(text)
}

func parseReport(text string) (Report, bool) {
	s := llm.StripCodeBlock(text)
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Report{}, false
	}
	var rep Report
	if err := json.Unmarshal([]byte(s[start:end+1]), &rep); err != nil {
		return Report{}, false
	}
	rep.Summary = strings.TrimSpace(rep.Summary)
	rep.Metrics = keepValid(rep.Metrics)
	rep.Trends = keepValid(rep.Trends)
	rep.Segments = keepValid(rep.Segments)
	rep.Holes = keepValid(rep.Holes)
	rep.TimeOfDay = keepValid(rep.TimeOfDay)

	recs := rep.Recommendations[:0]
	for i := range rep.Recommendations {
		if ValidateRecommendation(&rep.Recommendations[i]) {
			recs = append(recs, rep.Recommendations[i])
		}
	}
	rep.Recommendations = recs
	return rep, true
}
