// Package template inspects a reference .pptx and learns the layout, style
// and structure it uses, so generated decks and prompts can follow it.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dgallion1/docdeck/internal/apperr"
	"github.com/dgallion1/docdeck/internal/deck"
)

// Slide kinds.
const (
	KindBlank      = "blank"
	KindTitle      = "title"
	KindDashboard  = "dashboard"
	KindChart      = "chart"
	KindTwoContent = "two_content"
	KindContent    = "content"
)

// Sequence roles.
const (
	RoleBlank      = "blank"
	RoleChart      = "chart"
	RoleSummary    = "summary"
	RoleConclusion = "conclusion"
	RoleContent    = "content"
)

const maxPromptBullets = 2

// Layout describes one template slide.
type Layout struct {
	Kind         string `json:"kind"`
	Name         string `json:"name,omitempty"`
	Placeholders int    `json:"placeholders"`
	Charts       int    `json:"charts"`
	Shapes       int    `json:"shapes"`
}

// Profile is what a template teaches. It is read-only once built.
type Profile struct {
	SlideCount     int            `json:"slide_count"`
	Layouts        []Layout       `json:"layouts"`
	ChartKinds     []string       `json:"chart_kinds"`
	Fonts          map[string]int `json:"fonts"`
	TitleSize      int            `json:"title_size,omitempty"`
	BodySize       int            `json:"body_size,omitempty"`
	TitleBold      *bool          `json:"title_bold,omitempty"`
	Colors         []string       `json:"colors"`
	Headings       []string       `json:"headings"`
	BulletPatterns []string       `json:"bullet_patterns"`
	Sequence       []string       `json:"sequence"`
	IndentLevels   []int          `json:"indent_levels"`
}

// AnalyzeFile opens path and analyzes it.
func AnalyzeFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Analyze(bytes.NewReader(data), int64(len(data)))
}

// Analyze reads the slides of a .pptx package. Anything that is not a zip
// holding ppt/presentation.xml is an Extraction error.
func Analyze(r io.ReaderAt, size int64) (*Profile, error) {
	p, err := openPackage(r, size)
	if err != nil {
		return nil, apperr.Extraction("open template", err)
	}

	prof := &Profile{Fonts: map[string]int{}}
	colors := map[string]int{}
	levels := map[int]bool{}
	titleSizes := map[int]int{}
	bodySizes := map[int]int{}

	for _, part := range p.slides() {
		var s xSlide
		if err := p.decode(part, &s); err != nil {
			return nil, apperr.Extraction("read template slide", err)
		}
		shapes, frames, others := s.CSld.SpTree.flatten()
		rels := p.rels(part)

		layout := Layout{Name: s.CSld.Name, Shapes: len(shapes) + len(frames) + others}
		hasTitle := false
		var texts []string

		for i := range shapes {
			sh := &shapes[i]
			ph := sh.NvSpPr.NvPr.Ph
			if ph != nil {
				layout.Placeholders++
			}
			if ph.isTitle() {
				hasTitle = true
			}
			if f := sh.SpPr.SolidFill; f != nil && f.SrgbClr != nil {
				colors[strings.ToUpper(f.SrgbClr.Val)]++
			}
			if sh.TxBody == nil {
				continue
			}
			text := sh.TxBody.text()
			if text != "" {
				texts = append(texts, text)
				if ph.isTitle() {
					prof.Headings = append(prof.Headings, text)
				}
				if len(sh.TxBody.Paras) > 0 && sh.TxBody.Paras[0].level() > 0 {
					prof.BulletPatterns = append(prof.BulletPatterns, bulletPattern(sh.TxBody))
				}
			}
			for j := range sh.TxBody.Paras {
				para := &sh.TxBody.Paras[j]
				levels[para.level()] = true
				for _, run := range para.Runs {
					if run.RPr == nil {
						continue
					}
					if run.RPr.Latin != nil && run.RPr.Latin.Typeface != "" {
						prof.Fonts[run.RPr.Latin.Typeface]++
					}
					if f := run.RPr.SolidFill; f != nil && f.SrgbClr != nil {
						colors[strings.ToUpper(f.SrgbClr.Val)]++
					}
					if run.RPr.Sz > 0 {
						pt := run.RPr.Sz / 100
						if ph.isTitle() {
							titleSizes[pt]++
						} else {
							bodySizes[pt]++
						}
					}
					if ph.isTitle() && prof.TitleBold == nil && run.RPr.B != "" {
						b := run.RPr.B == "1" || run.RPr.B == "true"
						prof.TitleBold = &b
					}
				}
			}
		}

		for i := range frames {
			fr := &frames[i]
			if fr.NvGraphicFramePr.NvPr.Ph != nil {
				layout.Placeholders++
			}
			c := fr.Graphic.GraphicData.Chart
			if c == nil {
				continue
			}
			layout.Charts++
			kind := "unknown"
			if target, ok := rels[c.ID]; ok {
				kind = p.chartKind(target)
			}
			if !containsString(prof.ChartKinds, kind) {
				prof.ChartKinds = append(prof.ChartKinds, kind)
			}
		}

		layout.Kind = slideKind(layout, hasTitle)
		prof.Layouts = append(prof.Layouts, layout)
		prof.Sequence = append(prof.Sequence, slideRole(layout, texts))
	}

	prof.SlideCount = len(prof.Layouts)
	prof.TitleSize = mostCommon(titleSizes)
	prof.BodySize = mostCommon(bodySizes)
	prof.Colors = byFrequency(colors)
	for lvl := range levels {
		prof.IndentLevels = append(prof.IndentLevels, lvl)
	}
	sort.Ints(prof.IndentLevels)
	return prof, nil
}

func slideKind(l Layout, hasTitle bool) string {
	switch {
	case l.Shapes == 0:
		return KindBlank
	case l.Shapes <= 2 && hasTitle:
		return KindTitle
	case l.Charts > 1:
		return KindDashboard
	case l.Charts == 1:
		return KindChart
	case l.Placeholders > 1:
		return KindTwoContent
	}
	return KindContent
}

func slideRole(l Layout, texts []string) string {
	if l.Shapes == 0 {
		return RoleBlank
	}
	if l.Charts > 0 {
		return RoleChart
	}
	lower := strings.ToLower(strings.Join(texts, " "))
	switch {
	case strings.Contains(lower, "summary"), strings.Contains(lower, "overview"):
		return RoleSummary
	case strings.Contains(lower, "conclusion"), strings.Contains(lower, "next steps"):
		return RoleConclusion
	}
	return RoleContent
}

// bulletPattern sketches paragraph nesting: "•" for top level, "   -" for
// the first indent. Deeper levels are not recorded.
func bulletPattern(t *xTxBody) string {
	var parts []string
	for i := range t.Paras {
		switch t.Paras[i].level() {
		case 0:
			parts = append(parts, "•")
		case 1:
			parts = append(parts, "   -")
		}
	}
	return strings.Join(parts, " ")
}

// Style overlays the template's sizes, boldness and colors onto base.
func (p *Profile) Style(base deck.StyleConfig) deck.StyleConfig {
	if p == nil {
		return base
	}
	if p.TitleSize > 0 {
		base.TitleSize = p.TitleSize
		base.HeadingSize = p.TitleSize * 3 / 4
	}
	if p.BodySize > 0 {
		base.BodySize = p.BodySize
		base.SmallSize = max(p.BodySize-2, 8)
	}
	if p.TitleBold != nil {
		base.PlainTitles = !*p.TitleBold
	}
	if len(p.Colors) > 0 {
		base.Palette = append([]string(nil), p.Colors...)
		base.Primary = "FF" + p.Colors[0]
		if len(p.Colors) > 1 {
			base.Accent = "FF" + p.Colors[1]
		}
	}
	return base
}

// Prompt renders the template structure as instructions for the analyst
// model. A nil Profile yields "".
func (p *Profile) Prompt() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Analyze the content and structure it exactly as follows:\n\n")
	for _, h := range p.Headings {
		if h = strings.TrimSpace(h); h != "" {
			fmt.Fprintf(&b, "# %s\n", h)
		}
	}
	if len(p.BulletPatterns) > 0 {
		b.WriteString("\nUse similar bullet point structure as:\n")
		for _, pat := range p.BulletPatterns[:min(len(p.BulletPatterns), maxPromptBullets)] {
			fmt.Fprintf(&b, "- %s\n", pat)
		}
	}
	b.WriteString("\nEnsure numerical data is presented in a format matching the template charts.\n")
	return b.String()
}

// Save writes the profile as indented JSON.
func (p *Profile) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// Load reads a profile written by Save.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func mostCommon(counts map[int]int) int {
	best, bestN := 0, 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v > best) {
			best, bestN = v, n
		}
	}
	return best
}

func byFrequency(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
