package render

import (
	"golang.org/x/text/encoding/charmap"
)

// Font is one of the two base fonts every report uses.
type Font int

const (
	Regular Font = iota
	Bold
)

func (f Font) resourceName() string {
	if f == Bold {
		return "F2"
	}
	return "F1"
}

func (f Font) baseFont() string {
	if f == Bold {
		return "Helvetica-Bold"
	}
	return "Helvetica"
}

// Glyph advance widths in 1/1000 em for WinAnsi codes 32..126, taken from
// the Adobe core font metrics.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556,
	278, 278, 584, 584, 584, 556, 1015,
	667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833,
	722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611,
	278, 278, 278, 469, 556, 333,
	556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833,
	556, 556, 556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500,
	334, 260, 334, 584,
}

var helveticaBoldWidths = [95]int{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556,
	333, 333, 584, 584, 584, 611, 975,
	722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833,
	722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611,
	333, 278, 333, 584, 556, 333,
	556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889,
	611, 611, 611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500,
	389, 280, 389, 584,
}

// Widths for the WinAnsi punctuation the composer emits; anything else in
// the upper half falls back to a digit width.
var winAnsiUpper = map[byte]int{
	0x95: 350,  // bullet
	0x96: 556,  // en dash
	0x97: 1000, // em dash
	0x85: 1000, // ellipsis
	0x91: 222,
	0x92: 222,
	0x93: 333,
	0x94: 333,
	0xA0: 278,
	0xB0: 400, // degree
}

const fallbackWidth = 556

func (f Font) glyphWidth(c byte) int {
	if c >= 32 && c <= 126 {
		if f == Bold {
			return helveticaBoldWidths[c-32]
		}
		return helveticaWidths[c-32]
	}
	if w, ok := winAnsiUpper[c]; ok {
		return w
	}
	return fallbackWidth
}

// Width returns the rendered width of s in points at the given size.
func (f Font) Width(s string, size float64) float64 {
	total := 0
	for _, c := range encodeWinAnsi(s) {
		total += f.glyphWidth(c)
	}
	return float64(total) * size / 1000
}

// encodeWinAnsi maps s onto the base fonts' encoding. Runes outside
// Windows-1252 become '?'.
func encodeWinAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return out
}
