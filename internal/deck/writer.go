package deck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/dgallion1/docdeck/internal/apperr"
)

// Slide geometry, 16:9 at 10 x 5.625 in.
const (
	emuPerInch = 914400

	marginLeft    = int64(0.4 * emuPerInch)
	contentWidth  = int64(9.2 * emuPerInch)
	slideWidth    = int64(10.0 * emuPerInch)
	columnWidth   = int64(4.5 * emuPerInch)
	columnGap     = int64(0.2 * emuPerInch)
	bodyTop       = int64(1.0 * emuPerInch)
	bodyHeight    = int64(4.3 * emuPerInch)
	maxBodyLines  = 16
	wrapFull      = 85
	wrapColumn    = 40
	footerCreator = "docdeck"
)

// Writer serializes a Deck as .pptx. Long bodies continue on extra slides,
// so the file may hold more slides than the Deck.
type Writer struct {
	style StyleConfig
	log   *slog.Logger
}

func NewWriter(style StyleConfig, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{style: style.withDefaults(), log: log}
}

// Write renders every slide and writes the package to out. Charts that fail
// validation are replaced with their values as text.
func (w *Writer) Write(ctx context.Context, d Deck, out io.Writer) error {
	p := ppt.New()
	p.GetDocumentProperties().Title = d.Title
	p.GetDocumentProperties().Creator = footerCreator

	first := true
	next := func() *ppt.Slide {
		if first {
			first = false
			return p.GetActiveSlide()
		}
		return p.CreateSlide()
	}

	for _, s := range d.Slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch s.Layout {
		case LayoutTitle:
			w.titleSlide(next(), s)
		case LayoutTwoContent:
			w.twoContentSlide(next(), s)
		case LayoutChart:
			w.chartSlide(next, s)
		default:
			w.contentSlides(next, s.Title, s.Body)
		}
	}

	pw, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return apperr.Extraction("create pptx writer", err)
	}
	var buf bytes.Buffer
	if err := pw.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return apperr.Extraction("write pptx", err)
	}
	if _, err := buf.WriteTo(out); err != nil {
		return apperr.Extraction("write pptx", err)
	}
	return nil
}

func (w *Writer) titleSlide(slide *ppt.Slide, s SlideSpec) {
	w.bar(slide, 0, int64(0.15*emuPerInch))

	title := slide.CreateRichTextShape()
	title.SetOffsetX(marginLeft).SetOffsetY(int64(1.6 * emuPerInch))
	title.SetWidth(contentWidth).SetHeight(int64(1.0 * emuPerInch))
	tr := title.CreateTextRun(s.Title)
	tr.GetFont().SetSize(w.style.TitleSize).SetBold(!w.style.PlainTitles).SetColor(ppt.NewColor(w.style.Primary))
	alignCenter(title.GetActiveParagraph())

	if s.Subtitle != "" {
		sub := slide.CreateRichTextShape()
		sub.SetOffsetX(int64(1.0 * emuPerInch)).SetOffsetY(int64(2.8 * emuPerInch))
		sub.SetWidth(int64(8.0 * emuPerInch)).SetHeight(int64(0.8 * emuPerInch))
		sub.SetFill(solidFill(w.style.Background))
		sr := sub.CreateTextRun(s.Subtitle)
		sr.GetFont().SetSize(w.style.SubtitleSize).SetColor(ppt.NewColor(w.style.Text))
		alignCenter(sub.GetActiveParagraph())
	}

	w.bar(slide, int64(5.5*emuPerInch), int64(0.125*emuPerInch))
}

func (w *Writer) header(slide *ppt.Slide, title string) {
	w.bar(slide, 0, int64(0.08*emuPerInch))

	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(marginLeft).SetOffsetY(int64(0.3 * emuPerInch))
	shape.SetWidth(contentWidth).SetHeight(int64(0.6 * emuPerInch))
	tr := shape.CreateTextRun(title)
	tr.GetFont().SetSize(w.style.HeadingSize).SetBold(!w.style.PlainTitles).SetColor(ppt.NewColor(w.style.Primary))
}

func (w *Writer) bar(slide *ppt.Slide, y, height int64) {
	bar := slide.CreateRichTextShape()
	bar.SetOffsetX(0).SetOffsetY(y)
	bar.SetWidth(slideWidth).SetHeight(height)
	bar.SetFill(solidFill(w.style.Accent))
}

// contentSlides writes a bulleted body, continuing on further slides when it
// does not fit.
func (w *Writer) contentSlides(next func() *ppt.Slide, title string, body []string) {
	var lines []string
	for _, l := range body {
		lines = append(lines, wrapText("• "+l, wrapFull)...)
	}
	pages := paginate(lines, maxBodyLines)
	for i, page := range pages {
		slide := next()
		t := title
		if i > 0 {
			t = fmt.Sprintf("%s (cont. %d)", title, i+1)
		}
		w.header(slide, t)
		if len(page) == 0 {
			continue
		}
		shape := slide.CreateRichTextShape()
		shape.SetOffsetX(marginLeft).SetOffsetY(bodyTop)
		shape.SetWidth(contentWidth).SetHeight(bodyHeight)
		w.paragraphs(shape, page)
	}
}

func (w *Writer) twoContentSlide(slide *ppt.Slide, s SlideSpec) {
	w.header(slide, s.Title)
	w.column(slide, marginLeft, s.LeftTitle, s.Left)
	w.column(slide, marginLeft+columnWidth+columnGap, s.RightTitle, s.Right)
}

func (w *Writer) column(slide *ppt.Slide, x int64, heading string, items []string) {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(x).SetOffsetY(bodyTop)
	shape.SetWidth(columnWidth).SetHeight(bodyHeight)
	shape.SetFill(solidFill(w.style.Background))

	hr := shape.CreateTextRun(heading)
	hr.GetFont().SetSize(w.style.BodySize + 2).SetBold(true).SetColor(ppt.NewColor(w.style.Accent))

	var lines []string
	for _, it := range items {
		lines = append(lines, wrapText("• "+it, wrapColumn)...)
	}
	if len(lines) > maxBodyLines-1 {
		lines = append(lines[:maxBodyLines-2], "…")
	}
	for _, l := range lines {
		shape.CreateParagraph()
		tr := shape.CreateTextRun(l)
		tr.GetFont().SetSize(w.style.BodySize).SetColor(ppt.NewColor(w.style.Text))
	}
}

func (w *Writer) chartSlide(next func() *ppt.Slide, s SlideSpec) {
	if s.Chart == nil || s.Chart.Validate() != nil {
		w.log.Warn("chart rejected, writing values as text", "slide", s.Title)
		w.contentSlides(next, s.Title, chartValues(s.Chart))
		return
	}
	slide := next()
	w.header(slide, s.Title)
	if err := buildChart(slide, s.Chart, w.style); err != nil {
		w.log.Warn("chart build failed", "slide", s.Title, "error", err)
	}
}

func (w *Writer) paragraphs(shape *ppt.RichTextShape, lines []string) {
	for i, l := range lines {
		if i > 0 {
			shape.CreateParagraph()
		}
		tr := shape.CreateTextRun(l)
		tr.GetFont().SetSize(w.style.BodySize).SetColor(ppt.NewColor(w.style.Text))
	}
}

// chartValues lists a chart's data as "category: value" lines.
func chartValues(c *ChartSpec) []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, s := range c.Series {
		for i, cat := range c.Categories {
			if i < len(s.Values) {
				out = append(out, fmt.Sprintf("%s: %s", cat, formatNumber(s.Values[i])))
			}
		}
	}
	return out
}

func solidFill(argb string) *ppt.Fill {
	return ppt.NewFill().SetSolid(ppt.NewColor(argb))
}

func alignCenter(p *ppt.Paragraph) {
	p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
}

// paginate splits lines into pages of at most n. Empty input yields one
// empty page so the slide still appears.
func paginate(lines []string, n int) [][]string {
	if len(lines) == 0 {
		return [][]string{nil}
	}
	var pages [][]string
	for len(lines) > n {
		pages = append(pages, lines[:n])
		lines = lines[n:]
	}
	return append(pages, lines)
}

// wrapText breaks text into lines of at most maxLen runes, preferring spaces.
func wrapText(text string, maxLen int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	var lines []string
	for len(runes) > maxLen {
		cut := maxLen
		for i := maxLen; i > maxLen/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		lines = append(lines, strings.TrimSpace(string(runes[:cut])))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " "))
	}
	return append(lines, string(runes))
}
