package template

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Slide part shapes. Tags carry local names only so they match whatever
// namespace prefix the producing application used.

type xSlide struct {
	CSld struct {
		Name   string  `xml:"name,attr"`
		SpTree xSpTree `xml:"spTree"`
	} `xml:"cSld"`
}

type xSpTree struct {
	Shapes []xShape  `xml:"sp"`
	Frames []xFrame  `xml:"graphicFrame"`
	Pics   []xAny    `xml:"pic"`
	Conns  []xAny    `xml:"cxnSp"`
	Groups []xSpTree `xml:"grpSp"`
}

type xAny struct{}

type xShape struct {
	NvSpPr struct {
		CNvPr struct {
			Name string `xml:"name,attr"`
		} `xml:"cNvPr"`
		NvPr xNvPr `xml:"nvPr"`
	} `xml:"nvSpPr"`
	SpPr struct {
		SolidFill *xSolidFill `xml:"solidFill"`
	} `xml:"spPr"`
	TxBody *xTxBody `xml:"txBody"`
}

type xNvPr struct {
	Ph *xPh `xml:"ph"`
}

type xPh struct {
	Type string `xml:"type,attr"`
	Idx  string `xml:"idx,attr"`
}

type xSolidFill struct {
	SrgbClr *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
}

type xTxBody struct {
	Paras []xPara `xml:"p"`
}

type xPara struct {
	PPr *struct {
		Lvl    int    `xml:"lvl,attr"`
		Algn   string `xml:"algn,attr"`
		BuChar *struct {
			Char string `xml:"char,attr"`
		} `xml:"buChar"`
	} `xml:"pPr"`
	Runs []xRun `xml:"r"`
}

type xRun struct {
	RPr *struct {
		Sz    int    `xml:"sz,attr"`
		B     string `xml:"b,attr"`
		Latin *struct {
			Typeface string `xml:"typeface,attr"`
		} `xml:"latin"`
		SolidFill *xSolidFill `xml:"solidFill"`
	} `xml:"rPr"`
	T string `xml:"t"`
}

type xFrame struct {
	NvGraphicFramePr struct {
		NvPr xNvPr `xml:"nvPr"`
	} `xml:"nvGraphicFramePr"`
	Graphic struct {
		GraphicData struct {
			URI   string `xml:"uri,attr"`
			Chart *struct {
				ID string `xml:"id,attr"`
			} `xml:"chart"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

type xRels struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func (p *xPara) level() int {
	if p.PPr == nil {
		return 0
	}
	return p.PPr.Lvl
}

func (p *xPara) text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

func (t *xTxBody) text() string {
	parts := make([]string, 0, len(t.Paras))
	for i := range t.Paras {
		parts = append(parts, t.Paras[i].text())
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func (ph *xPh) isTitle() bool {
	return ph != nil && (ph.Type == "title" || ph.Type == "ctrTitle")
}

// flatten returns every shape and frame in the tree, groups included.
func (t *xSpTree) flatten() (shapes []xShape, frames []xFrame, others int) {
	shapes = append(shapes, t.Shapes...)
	frames = append(frames, t.Frames...)
	others = len(t.Pics) + len(t.Conns)
	for i := range t.Groups {
		s, f, o := t.Groups[i].flatten()
		shapes = append(shapes, s...)
		frames = append(frames, f...)
		others += o
	}
	return shapes, frames, others
}

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type pkg struct {
	files map[string]*zip.File
}

func openPackage(r io.ReaderAt, size int64) (*pkg, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	p := &pkg{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.files[f.Name] = f
	}
	if _, ok := p.files["ppt/presentation.xml"]; !ok {
		return nil, fmt.Errorf("not a presentation: ppt/presentation.xml missing")
	}
	return p, nil
}

// slides returns slide part names in slide-number order.
func (p *pkg) slides() []string {
	type numbered struct {
		n    int
		name string
	}
	var list []numbered
	for name := range p.files {
		if m := slidePartRe.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			list = append(list, numbered{n, name})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].n < list[j].n })
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.name
	}
	return out
}

func (p *pkg) decode(name string, v any) error {
	f, ok := p.files[name]
	if !ok {
		return fmt.Errorf("%s: not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// rels maps relationship ids to package paths for a part.
func (p *pkg) rels(part string) map[string]string {
	relsName := path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	var x xRels
	if err := p.decode(relsName, &x); err != nil {
		return nil
	}
	out := make(map[string]string, len(x.Rels))
	for _, r := range x.Rels {
		out[r.ID] = path.Clean(path.Join(path.Dir(part), r.Target))
	}
	return out
}

// chartKind reads a chart part and names its first plot: column, bar, line,
// pie, area, scatter, doughnut, radar or the raw element name.
func (p *pkg) chartKind(name string) string {
	f, ok := p.files[name]
	if !ok {
		return "unknown"
	}
	rc, err := f.Open()
	if err != nil {
		return "unknown"
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	inPlot := false
	kind := ""
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		local := se.Name.Local
		switch {
		case local == "plotArea":
			inPlot = true
		case inPlot && kind == "" && strings.HasSuffix(local, "Chart"):
			kind = strings.TrimSuffix(strings.TrimSuffix(local, "Chart"), "3D")
			if kind != "bar" {
				return kind
			}
		case kind == "bar" && local == "barDir":
			for _, a := range se.Attr {
				if a.Name.Local == "val" && a.Value == "col" {
					return "column"
				}
			}
			return "bar"
		}
	}
	if kind == "" {
		return "unknown"
	}
	return kind
}
