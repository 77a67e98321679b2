package render

import (
	"fmt"
	"strings"
)

// US Letter geometry, in points.
const (
	PageWidth    = 612.0
	PageHeight   = 792.0
	Margin       = 50.0
	ContentWidth = PageWidth - 2*Margin
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R, G, B float64
}

var (
	Black = Color{0, 0, 0}
	Gray  = Color{0.4, 0.4, 0.4}
	Light = Color{0.8, 0.8, 0.8}
)

// HexColor parses "#RRGGBB". Invalid input yields black.
func HexColor(hex string) Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return Black
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return Black
	}
	return Color{float64(r) / 255, float64(g) / 255, float64(b) / 255}
}

func (c Color) String() string {
	return fmt.Sprintf("%.3f %.3f %.3f", c.R, c.G, c.B)
}

type OpKind int

const (
	OpText OpKind = iota
	OpImage
	OpRule
)

// Op is one drawing operation. Coordinates use the PDF origin (bottom left);
// for text, Y is the baseline.
type Op struct {
	Kind  OpKind
	X, Y  float64
	W, H  float64
	Text  string
	Font  Font
	Size  float64
	Color Color
	Image *Image
}

// Page is a single Letter-sized canvas holding its operations in draw order.
type Page struct {
	Ops []Op
}

func (p *Page) Text(s string, x, y float64, font Font, size float64, c Color) {
	p.Ops = append(p.Ops, Op{Kind: OpText, X: x, Y: y, Text: s, Font: font, Size: size, Color: c})
}

func (p *Page) Image(img *Image, x, y, w, h float64) {
	p.Ops = append(p.Ops, Op{Kind: OpImage, X: x, Y: y, W: w, H: h, Image: img})
}

// Rule draws a horizontal line of length w starting at (x, y).
func (p *Page) Rule(x, y, w float64, c Color) {
	p.Ops = append(p.Ops, Op{Kind: OpRule, X: x, Y: y, W: w, Color: c})
}

// Lines returns the text of every text operation on the page, in order.
func (p *Page) Lines() []string {
	var out []string
	for _, op := range p.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}
