package metrics

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	md        = goldmark.New()
	orderedRe = regexp.MustCompile(`^\d{1,9}[.)]$`)
)

// Normalize renders markdown from model output as plain lines. Emphasis and
// heading markers are dropped, list items keep a "- " or "N. " marker, inline
// HTML is stripped, and blank lines between blocks survive where the source
// had them.
func Normalize(s string) string {
	src := []byte(s)
	doc := md.Parser().Parse(text.NewReader(src))

	var out strings.Builder
	prevStop := -1
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		block := strings.TrimRight(blockText(n, src, ""), " \t\n")
		if block == "" {
			continue
		}
		start, stop := blockSpan(n)
		if out.Len() > 0 {
			if blankBetween(src, prevStop, start) {
				out.WriteString("\n\n")
			} else {
				out.WriteString("\n")
			}
		}
		out.WriteString(block)
		if stop >= 0 {
			prevStop = stop
		}
	}
	return out.String()
}

// blankBetween reports whether a blank line separates two source offsets.
// Segment stops may or may not include the line's newline.
func blankBetween(src []byte, stop, start int) bool {
	if stop < 0 || start < stop {
		return false
	}
	n := bytes.Count(src[stop:start], []byte("\n"))
	if stop > 0 && src[stop-1] == '\n' {
		n++
	}
	return n >= 2
}

// blockText renders one block node. indent prefixes nested list items.
func blockText(n ast.Node, src []byte, indent string) string {
	switch node := n.(type) {
	case *ast.ThematicBreak:
		return ""
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return rawLines(n, src)
	case *ast.HTMLBlock:
		var buf bytes.Buffer
		buf.WriteString(rawLines(n, src))
		if node.HasClosure() {
			buf.Write(node.ClosureLine.Value(src))
		}
		return htmlText(buf.String())
	case *ast.List:
		var buf strings.Builder
		num := node.Start
		prevStop := -1
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			start, stop := blockSpan(item)
			if buf.Len() > 0 {
				if blankBetween(src, prevStop, start) {
					buf.WriteString("\n")
				}
				buf.WriteString("\n")
			}
			marker := "- "
			if node.IsOrdered() {
				marker = orderedMarker(src, start, num)
				num++
			}
			buf.WriteString(indent + marker + listItemText(item, src, indent+"  "))
			prevStop = stop
		}
		return buf.String()
	case *ast.Blockquote:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t := blockText(c, src, indent); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")
	}
	if n.HasChildren() {
		return strings.TrimSpace(inlineText(n, src))
	}
	return strings.TrimSpace(rawLines(n, src))
}

// orderedMarker returns the item's own "N." marker from the source, or a
// counted one when the item's first line is not available.
func orderedMarker(src []byte, start, num int) string {
	if start > 0 {
		lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
		if m := strings.TrimSpace(string(src[lineStart:start])); orderedRe.MatchString(m) {
			return m + " "
		}
	}
	return fmt.Sprintf("%d. ", num)
}

func listItemText(item ast.Node, src []byte, indent string) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		t := blockText(c, src, indent)
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n")
}

// inlineText flattens inline children. Soft and hard breaks become newlines.
func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		case *ast.RawHTML:
			var raw bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				raw.Write(seg.Value(src))
			}
			if isBreakTag(raw.String()) {
				buf.WriteByte('\n')
			}
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// blockSpan returns the source offsets covered by a block, or -1 when the
// block carries no line segments.
func blockSpan(n ast.Node) (int, int) {
	start, stop := -1, -1
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if n.Type() != ast.TypeBlock {
			return
		}
		if lines := n.Lines(); lines.Len() > 0 {
			first, last := lines.At(0), lines.At(lines.Len()-1)
			if start < 0 || first.Start < start {
				start = first.Start
			}
			if last.Stop > stop {
				stop = last.Stop
			}
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return start, stop
}

func isBreakTag(raw string) bool {
	z := html.NewTokenizer(strings.NewReader(raw))
	switch z.Next() {
	case html.StartTagToken, html.SelfClosingTagToken:
		name, _ := z.TagName()
		return string(name) == "br"
	}
	return false
}

// htmlText extracts visible text from an HTML fragment, one line per block
// element.
func htmlText(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return ""
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "br":
				buf.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlockElement(n.Data) {
			buf.WriteByte('\n')
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "section", "ul", "ol", "table":
		return true
	}
	return false
}
