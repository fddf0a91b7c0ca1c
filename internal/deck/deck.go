// Package deck turns an analysis and its metrics into slide specs and writes
// them as a .pptx file.
package deck

import (
	"errors"
	"fmt"
	"math"
)

type ChartKind string

const (
	ChartColumn ChartKind = "column"
	ChartBar    ChartKind = "bar"
	ChartLine   ChartKind = "line"
	ChartPie    ChartKind = "pie"
)

type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

type ChartSpec struct {
	Kind       ChartKind `json:"kind"`
	Categories []string  `json:"categories"`
	Series     []Series  `json:"series"`
}

var ErrInvalidChart = errors.New("invalid chart")

// NewChart builds a validated chart.
func NewChart(kind ChartKind, categories []string, series ...Series) (*ChartSpec, error) {
	c := &ChartSpec{Kind: kind, Categories: categories, Series: series}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every series lines up with the categories and holds
// finite values. Pie charts take one series of non-negative values with a
// positive total.
func (c *ChartSpec) Validate() error {
	switch c.Kind {
	case ChartColumn, ChartBar, ChartLine, ChartPie:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidChart, c.Kind)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidChart)
	}
	if len(c.Series) == 0 {
		return fmt.Errorf("%w: no series", ErrInvalidChart)
	}
	for _, s := range c.Series {
		if len(s.Values) != len(c.Categories) {
			return fmt.Errorf("%w: series %q has %d values for %d categories",
				ErrInvalidChart, s.Name, len(s.Values), len(c.Categories))
		}
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: series %q has a non-finite value", ErrInvalidChart, s.Name)
			}
		}
	}
	if c.Kind == ChartPie {
		if len(c.Series) != 1 {
			return fmt.Errorf("%w: pie takes one series", ErrInvalidChart)
		}
		var total float64
		for _, v := range c.Series[0].Values {
			if v < 0 {
				return fmt.Errorf("%w: negative pie value", ErrInvalidChart)
			}
			total += v
		}
		if total <= 0 {
			return fmt.Errorf("%w: pie total is zero", ErrInvalidChart)
		}
	}
	return nil
}

type Layout string

const (
	LayoutTitle      Layout = "title"
	LayoutContent    Layout = "content"
	LayoutTwoContent Layout = "two_content"
	LayoutChart      Layout = "chart"
)

// SlideSpec describes one slide independent of the file format.
type SlideSpec struct {
	Layout     Layout     `json:"layout"`
	Title      string     `json:"title"`
	Subtitle   string     `json:"subtitle,omitempty"`
	Body       []string   `json:"body,omitempty"`
	LeftTitle  string     `json:"left_title,omitempty"`
	Left       []string   `json:"left,omitempty"`
	RightTitle string     `json:"right_title,omitempty"`
	Right      []string   `json:"right,omitempty"`
	Chart      *ChartSpec `json:"chart,omitempty"`
}

type Deck struct {
	Title  string      `json:"title"`
	Slides []SlideSpec `json:"slides"`
}

// Titles lists slide titles in order.
func (d Deck) Titles() []string {
	out := make([]string, len(d.Slides))
	for i, s := range d.Slides {
		out[i] = s.Title
	}
	return out
}
