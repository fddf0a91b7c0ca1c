package template

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docdeck/internal/apperr"
	"github.com/dgallion1/docdeck/internal/deck"
)

const nsDecl = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

func slideXML(shapes string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:sld ` + nsDecl + `><p:cSld><p:spTree>` + shapes + `</p:spTree></p:cSld></p:sld>`
}

func placeholder(name, phType string, paras string) string {
	ph := `<p:ph/>`
	if phType != "" {
		ph = `<p:ph type="` + phType + `"/>`
	}
	return `<p:sp><p:nvSpPr><p:cNvPr id="2" name="` + name + `"/><p:cNvSpPr/><p:nvPr>` + ph + `</p:nvPr></p:nvSpPr>` +
		`<p:spPr/><p:txBody><a:bodyPr/>` + paras + `</p:txBody></p:sp>`
}

func textBox(fill, paras string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="3" name="TextBox"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:solidFill><a:srgbClr val="` + fill + `"/></a:solidFill></p:spPr>` +
		`<p:txBody><a:bodyPr/>` + paras + `</p:txBody></p:sp>`
}

func para(lvl, text string, sz int, bold bool, font, color string) string {
	ppr := ""
	if lvl != "" {
		ppr = `<a:pPr lvl="` + lvl + `"/>`
	}
	b := "0"
	if bold {
		b = "1"
	}
	rpr := `<a:rPr lang="en-US" sz="` + strconv.Itoa(sz*100) + `" b="` + b + `">`
	if color != "" {
		rpr += `<a:solidFill><a:srgbClr val="` + color + `"/></a:solidFill>`
	}
	if font != "" {
		rpr += `<a:latin typeface="` + font + `"/>`
	}
	rpr += `</a:rPr>`
	return `<a:p>` + ppr + `<a:r>` + rpr + `<a:t>` + text + `</a:t></a:r></a:p>`
}

const chartFrame = `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="4" name="Chart 1"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>` +
	`<p:xfrm/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/chart">` +
	`<c:chart xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart" r:id="rId2"/>` +
	`</a:graphicData></a:graphic></p:graphicFrame>`

const chartRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart" Target="../charts/chart1.xml"/>` +
	`</Relationships>`

const chartPart = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<c:chartSpace xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart"><c:chart><c:plotArea><c:layout/>` +
	`<c:barChart><c:barDir val="col"/><c:grouping val="clustered"/></c:barChart>` +
	`</c:plotArea></c:chart></c:chartSpace>`

func buildPPTX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sampleTemplate(t *testing.T) []byte {
	return buildPPTX(t, map[string]string{
		"ppt/presentation.xml": `<p:presentation ` + nsDecl + `/>`,
		"ppt/slides/slide1.xml": slideXML(
			placeholder("Title 1", "ctrTitle", para("", "Quarterly Review", 40, true, "Georgia", "1F4E79")) +
				placeholder("Subtitle 2", "subTitle", para("", "Finance team", 20, false, "Arial", "")),
		),
		"ppt/slides/slide2.xml": slideXML(
			placeholder("Title 1", "title", para("", "Revenue by Region", 40, true, "Georgia", "1F4E79")) +
				chartFrame +
				textBox("ED7D31", para("", "Overview of regional results", 14, false, "Arial", "")),
		),
		"ppt/slides/_rels/slide2.xml.rels": chartRels,
		"ppt/charts/chart1.xml":            chartPart,
		"ppt/slides/slide10.xml": slideXML(
			placeholder("Title 1", "title", para("", "Next Steps", 40, true, "Georgia", "")) +
				placeholder("Content 2", "", para("1", "Hire", 14, false, "Arial", "")+para("0", "Expand", 14, false, "Arial", "")) +
				placeholder("Content 3", "", para("", "Plain text", 14, false, "Arial", "")),
		),
		"ppt/slides/slide3.xml": slideXML(""),
	})
}

func analyzeSample(t *testing.T) *Profile {
	t.Helper()
	data := sampleTemplate(t)
	p, err := Analyze(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return p
}

func TestAnalyze_Layouts(t *testing.T) {
	p := analyzeSample(t)

	require.Equal(t, 4, p.SlideCount)
	kinds := make([]string, len(p.Layouts))
	for i, l := range p.Layouts {
		kinds[i] = l.Kind
	}
	// slide10 sorts after slide3.
	require.Equal(t, []string{KindTitle, KindChart, KindBlank, KindTwoContent}, kinds)
	require.Equal(t, 1, p.Layouts[1].Charts)
	require.Equal(t, 3, p.Layouts[3].Placeholders)

	require.Equal(t, []string{RoleContent, RoleChart, RoleBlank, RoleConclusion}, p.Sequence)
	require.Equal(t, []string{"column"}, p.ChartKinds)
}

func TestAnalyze_Structure(t *testing.T) {
	p := analyzeSample(t)

	require.Equal(t, []string{"Quarterly Review", "Revenue by Region", "Next Steps"}, p.Headings)
	require.Equal(t, []string{"   - •"}, p.BulletPatterns)
	require.Equal(t, []int{0, 1}, p.IndentLevels)
}

func TestAnalyze_Style(t *testing.T) {
	p := analyzeSample(t)

	require.Equal(t, 40, p.TitleSize)
	require.Equal(t, 14, p.BodySize)
	require.NotNil(t, p.TitleBold)
	require.True(t, *p.TitleBold)
	require.Equal(t, 3, p.Fonts["Georgia"])
	require.Equal(t, []string{"1F4E79", "ED7D31"}, p.Colors)

	s := p.Style(deck.DefaultStyle())
	require.Equal(t, 40, s.TitleSize)
	require.Equal(t, 30, s.HeadingSize)
	require.Equal(t, 14, s.BodySize)
	require.Equal(t, "FF1F4E79", s.Primary)
	require.Equal(t, "FFED7D31", s.Accent)
	require.Equal(t, []string{"1F4E79", "ED7D31"}, s.Palette)
	require.False(t, s.PlainTitles)

	plain := false
	p.TitleBold = &plain
	require.True(t, p.Style(deck.DefaultStyle()).PlainTitles)
}

func TestProfile_Prompt(t *testing.T) {
	p := analyzeSample(t)
	prompt := p.Prompt()

	require.True(t, strings.HasPrefix(prompt, "Analyze the content and structure it exactly as follows:"))
	require.Contains(t, prompt, "# Quarterly Review\n# Revenue by Region\n# Next Steps\n")
	require.Contains(t, prompt, "Use similar bullet point structure as:\n-    - •\n")
	require.Contains(t, prompt, "matching the template charts")

	var nilProfile *Profile
	require.Empty(t, nilProfile.Prompt())
	require.Equal(t, deck.DefaultStyle(), nilProfile.Style(deck.DefaultStyle()))
}

func TestProfile_PromptLimitsBullets(t *testing.T) {
	p := &Profile{BulletPatterns: []string{"a", "b", "c"}}
	prompt := p.Prompt()
	require.Contains(t, prompt, "- a\n- b\n")
	require.NotContains(t, prompt, "- c\n")
}

func TestProfile_SaveLoad(t *testing.T) {
	p := analyzeSample(t)
	path := filepath.Join(t.TempDir(), "patterns.json")

	require.NoError(t, p.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestAnalyze_Rejects(t *testing.T) {
	junk := []byte("not a zip at all")
	_, err := Analyze(bytes.NewReader(junk), int64(len(junk)))
	require.ErrorIs(t, err, apperr.ErrExtraction)

	noPres := buildPPTX(t, map[string]string{"word/document.xml": "<w:document/>"})
	_, err = Analyze(bytes.NewReader(noPres), int64(len(noPres)))
	require.ErrorIs(t, err, apperr.ErrExtraction)
}

func TestAnalyzeFile_Missing(t *testing.T) {
	_, err := AnalyzeFile(filepath.Join(t.TempDir(), "missing.pptx"))
	require.Error(t, err)
}
