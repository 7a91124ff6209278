// Package layout turns character sheets and talent sets into renderer-independent card plans.
package layout

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is a CSS hex colour, #rrggbb or #rrggbbaa.
type Color string

// RGBA decodes c. Malformed colours decode to transparent black.
func (c Color) RGBA() color.RGBA {
	rgba, err := ParseHex(string(c))
	if err != nil {
		return color.RGBA{}
	}
	return rgba
}

// ParseHex decodes #rrggbb and #rrggbbaa.
func ParseHex(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Font selects a card typeface.
type Font struct {
	Size float64
	Bold bool
}

// Node is a positioned primitive. Nodes paint in slice order.
type Node interface {
	node()
}

// Rect is a rectangle with optional rounded corners. An empty Fill or Stroke is not painted.
type Rect struct {
	X, Y, W, H  float64
	Radius      float64
	Fill        Color
	Stroke      Color
	StrokeWidth float64
}

// Image draws the picture at URL scaled into the box and clipped to a rounded square.
type Image struct {
	X, Y, W, H float64
	Radius     float64
	URL        string
}

// Text is a left-aligned run; Y is the baseline.
type Text struct {
	X, Y  float64
	Text  string
	Font  Font
	Color Color
}

// Group names a set of nodes, such as one gear slot or one talent tile.
type Group struct {
	Name     string
	Children []Node
}

func (Rect) node()  {}
func (Image) node() {}
func (Text) node()  {}
func (Group) node() {}

// Gradient is a top-to-bottom linear fill.
type Gradient struct {
	Top, Bottom Color
}

// Plan is a complete card.
type Plan struct {
	Name       string
	Width      int
	Height     int
	Background Gradient
	Nodes      []Node
}

func (p *Plan) add(nodes ...Node) {
	p.Nodes = append(p.Nodes, nodes...)
}

// Walk visits every leaf node in paint order.
func (p *Plan) Walk(fn func(Node)) {
	walk(p.Nodes, fn)
}

func walk(nodes []Node, fn func(Node)) {
	for _, n := range nodes {
		if g, ok := n.(Group); ok {
			walk(g.Children, fn)
			continue
		}
		fn(n)
	}
}

// Find returns the top-level group called name.
func (p *Plan) Find(name string) (Group, bool) {
	for _, n := range p.Nodes {
		if g, ok := n.(Group); ok && g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// ImageURLs lists the distinct image URLs in paint order.
func (p *Plan) ImageURLs() []string {
	seen := make(map[string]bool)
	var out []string
	p.Walk(func(n Node) {
		if img, ok := n.(Image); ok && !seen[img.URL] {
			seen[img.URL] = true
			out = append(out, img.URL)
		}
	})
	return out
}
