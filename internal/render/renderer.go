package render

import (
	"strings"
)

const (
	// Leading is the fixed gap added below every line.
	Leading = 4.0
	// HeaderHeight is the band reserved for the running header on each page.
	HeaderHeight = 40.0
	// ContentTop is where the cursor sits on a fresh page.
	ContentTop = PageHeight - Margin - HeaderHeight - 10
)

// Style describes how a text block is drawn. Zero values fall back to
// 11pt regular black text spanning the content width.
type Style struct {
	Font     Font
	Size     float64
	Color    Color
	MaxWidth float64
	Indent   float64
}

func (s Style) withDefaults() Style {
	if s.Size <= 0 {
		s.Size = 11
	}
	if s.MaxWidth <= 0 || s.MaxWidth > ContentWidth-s.Indent {
		s.MaxWidth = ContentWidth - s.Indent
	}
	return s
}

// PageAllocator hands out new blank pages at the end of the output.
type PageAllocator interface {
	AddPage() *Page
}

// Header is drawn onto every page the renderer allocates.
type Header interface {
	Draw(p *Page)
}

// Renderer flows text top to bottom over a sequence of pages. It owns the
// cursor: the current page and the vertical offset on it.
type Renderer struct {
	alloc  PageAllocator
	header Header
	page   *Page
	y      float64
	pages  int
}

func NewRenderer(alloc PageAllocator, header Header) *Renderer {
	return &Renderer{alloc: alloc, header: header}
}

// NewPage allocates a page, draws the running header and resets the cursor.
func (r *Renderer) NewPage() {
	r.page = r.alloc.AddPage()
	if r.header != nil {
		r.header.Draw(r.page)
	}
	r.y = ContentTop
	r.pages++
}

// Y is the cursor's current vertical offset.
func (r *Renderer) Y() float64 { return r.y }

// Page is the page the cursor is on, or nil before the first allocation.
func (r *Renderer) Page() *Page { return r.page }

// PageCount is the number of pages this renderer has allocated.
func (r *Renderer) PageCount() int { return r.pages }

// EnsureSpace moves to a new page unless h points still fit above the
// bottom margin.
func (r *Renderer) EnsureSpace(h float64) {
	if r.page == nil || r.y-h < Margin {
		r.NewPage()
	}
}

// AddVerticalSpace moves the cursor down. The page break, if any, happens
// at the next draw so trailing space never produces a blank page.
func (r *Renderer) AddVerticalSpace(h float64) {
	if r.page == nil {
		r.NewPage()
	}
	r.y -= h
}

// DrawText word-wraps text into st.MaxWidth and draws it line by line,
// breaking pages between lines, never inside one.
func (r *Renderer) DrawText(text string, st Style) {
	st = st.withDefaults()
	for _, line := range WrapText(text, st.Font, st.Size, st.MaxWidth) {
		r.EnsureSpace(st.Size)
		r.page.Text(line, Margin+st.Indent, r.y-st.Size, st.Font, st.Size, st.Color)
		r.y -= st.Size + Leading
	}
}

// DrawKeyValue draws a label at the left margin and its value starting
// valueX points to the right, wrapping the value in the remaining width.
func (r *Renderer) DrawKeyValue(key, value string, keySt, valSt Style, valueX float64) {
	keySt = keySt.withDefaults()
	valSt = valSt.withDefaults()
	lines := WrapText(value, valSt.Font, valSt.Size, ContentWidth-valueX)
	if len(lines) == 0 {
		lines = []string{"-"}
	}
	lineH := max(keySt.Size, valSt.Size)
	for i, line := range lines {
		r.EnsureSpace(lineH)
		if i == 0 {
			r.page.Text(key, Margin, r.y-keySt.Size, keySt.Font, keySt.Size, keySt.Color)
		}
		r.page.Text(line, Margin+valueX, r.y-valSt.Size, valSt.Font, valSt.Size, valSt.Color)
		r.y -= lineH + Leading
	}
}

// DrawImage places img at x points right of the margin, scaled to w by h.
func (r *Renderer) DrawImage(img *Image, x, w, h float64) {
	if img == nil {
		return
	}
	r.EnsureSpace(h)
	r.page.Image(img, Margin+x, r.y-h, w, h)
	r.y -= h + Leading
}

// Rule draws a divider across the content width.
func (r *Renderer) Rule(c Color) {
	r.EnsureSpace(8)
	r.page.Rule(Margin, r.y-4, ContentWidth, c)
	r.y -= 8 + Leading
}

// WrapText greedily packs the whitespace-separated words of text into lines
// no wider than maxWidth. A single word wider than maxWidth gets a line of
// its own; words are never split, dropped or reordered.
func WrapText(text string, font Font, size, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if font.Width(candidate, size) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

type imageHeader struct {
	img  *Image
	w, h float64
}

func (hd imageHeader) Draw(p *Page) {
	p.Image(hd.img, PageWidth-Margin-hd.w, PageHeight-Margin-hd.h, hd.w, hd.h)
}

type textHeader struct {
	text  string
	color Color
}

const headerFontSize = 16

func (hd textHeader) Draw(p *Page) {
	w := Bold.Width(hd.text, headerFontSize)
	p.Text(hd.text, PageWidth-Margin-w, PageHeight-Margin-headerFontSize, Bold, headerFontSize, hd.color)
}

const maxLogoWidth = 150.0

// NewHeader picks the running header once per report: the logo when one was
// fetched and decoded, otherwise the fallback text in bold brand colour.
func NewHeader(logo *Image, fallback string, c Color) Header {
	if logo != nil && logo.Width > 0 && logo.Height > 0 {
		h := HeaderHeight
		w := float64(logo.Width) * h / float64(logo.Height)
		if w > maxLogoWidth {
			w = maxLogoWidth
			h = float64(logo.Height) * w / float64(logo.Width)
		}
		return imageHeader{img: logo, w: w, h: h}
	}
	return textHeader{text: fallback, color: c}
}
