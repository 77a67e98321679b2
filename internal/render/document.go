package render

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strings"
	"time"
)

const pdfVersion = "1.4"

// Document is an in-memory sequence of pages that serializes to PDF.
type Document struct {
	Title     string
	Producer  string
	CreatedAt time.Time
	pages     []*Page
}

func NewDocument(title, producer string, createdAt time.Time) *Document {
	return &Document{Title: title, Producer: producer, CreatedAt: createdAt}
}

// AddPage appends a blank page.
func (d *Document) AddPage() *Page {
	p := &Page{}
	d.pages = append(d.pages, p)
	return p
}

func (d *Document) Pages() []*Page { return d.pages }

func (d *Document) PageCount() int { return len(d.pages) }

// WriteTo writes the serialized PDF to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Bytes())
	return int64(n), err
}

// Bytes serializes the document. Object layout: 1 catalog, 2 page tree,
// 3-4 fonts, then image XObjects, then a content stream and page object per
// page, then the info dictionary. Output is deterministic for equal input.
func (d *Document) Bytes() []byte {
	var images []*Image
	imageNum := make(map[*Image]int)
	const firstImage = 5
	for _, p := range d.pages {
		for _, op := range p.Ops {
			if op.Kind == OpImage && op.Image != nil {
				if _, ok := imageNum[op.Image]; !ok {
					imageNum[op.Image] = firstImage + len(images)
					images = append(images, op.Image)
				}
			}
		}
	}
	firstPage := firstImage + len(images)
	pageObj := func(i int) int { return firstPage + 2*i + 1 }

	objects := make([][]byte, 0, firstPage+2*len(d.pages))

	objects = append(objects, []byte("<< /Type /Catalog\n/Pages 2 0 R\n>>"))

	kids := make([]string, len(d.pages))
	for i := range d.pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}
	objects = append(objects, []byte(fmt.Sprintf("<< /Type /Pages\n/Kids [%s]\n/Count %d\n>>",
		strings.Join(kids, " "), len(d.pages))))

	for _, f := range []Font{Regular, Bold} {
		objects = append(objects, []byte(fmt.Sprintf(
			"<< /Type /Font\n/Subtype /Type1\n/BaseFont /%s\n/Encoding /WinAnsiEncoding\n>>", f.baseFont())))
	}

	for _, img := range images {
		head := fmt.Sprintf("<< /Type /XObject\n/Subtype /Image\n/Width %d\n/Height %d\n/ColorSpace /%s\n/BitsPerComponent %d\n/Filter /%s\n/Length %d\n>>",
			img.Width, img.Height, img.ColorSpace, img.BitsPerComponent, img.Filter, len(img.Data))
		objects = append(objects, streamObject(head, img.Data))
	}

	for _, p := range d.pages {
		content := compress(pageContent(p, imageNum))
		head := fmt.Sprintf("<< /Length %d\n/Filter /FlateDecode\n>>", len(content))
		contentNum := len(objects) + 1
		objects = append(objects, streamObject(head, content))

		var xobjects strings.Builder
		seen := make(map[*Image]bool)
		for _, op := range p.Ops {
			if op.Kind == OpImage && op.Image != nil && !seen[op.Image] {
				seen[op.Image] = true
				fmt.Fprintf(&xobjects, " /Im%d %d 0 R", imageNum[op.Image], imageNum[op.Image])
			}
		}
		resources := "/Font << /F1 3 0 R /F2 4 0 R >>"
		if xobjects.Len() > 0 {
			resources += " /XObject <<" + xobjects.String() + " >>"
		}
		objects = append(objects, []byte(fmt.Sprintf(
			"<< /Type /Page\n/Parent 2 0 R\n/MediaBox [0 0 %.0f %.0f]\n/Contents %d 0 R\n/Resources << %s >>\n>>",
			PageWidth, PageHeight, contentNum, resources)))
	}

	objects = append(objects, []byte(d.infoDict()))
	infoNum := len(objects)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", pdfVersion)
	buf.WriteString("%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		buf.Write(obj)
		buf.WriteString("\nendobj\n")
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d\n/Root 1 0 R\n/Info %d 0 R\n>>\n", len(objects)+1, infoNum)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes()
}

func (d *Document) infoDict() string {
	var sb strings.Builder
	sb.WriteString("<<\n")
	if d.Title != "" {
		fmt.Fprintf(&sb, "/Title (%s)\n", escapePDFString(d.Title))
	}
	if d.Producer != "" {
		fmt.Fprintf(&sb, "/Producer (%s)\n", escapePDFString(d.Producer))
	}
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "/CreationDate (%s)\n", d.CreatedAt.UTC().Format("D:20060102150405Z"))
	}
	sb.WriteString(">>")
	return sb.String()
}

func pageContent(p *Page, imageNum map[*Image]int) []byte {
	var sb strings.Builder
	for _, op := range p.Ops {
		switch op.Kind {
		case OpText:
			sb.WriteString("BT\n")
			fmt.Fprintf(&sb, "/%s %.2f Tf\n", op.Font.resourceName(), op.Size)
			fmt.Fprintf(&sb, "%s rg\n", op.Color)
			fmt.Fprintf(&sb, "%.2f %.2f Td\n", op.X, op.Y)
			fmt.Fprintf(&sb, "(%s) Tj\n", escapePDFString(op.Text))
			sb.WriteString("ET\n")
		case OpImage:
			if op.Image == nil {
				continue
			}
			fmt.Fprintf(&sb, "q\n%.2f 0 0 %.2f %.2f %.2f cm\n/Im%d Do\nQ\n", op.W, op.H, op.X, op.Y, imageNum[op.Image])
		case OpRule:
			fmt.Fprintf(&sb, "q\n%s RG\n0.75 w\n%.2f %.2f m\n%.2f %.2f l\nS\nQ\n", op.Color, op.X, op.Y, op.X+op.W, op.Y)
		}
	}
	return []byte(sb.String())
}

func streamObject(head string, data []byte) []byte {
	out := make([]byte, 0, len(head)+len(data)+32)
	out = append(out, head...)
	out = append(out, "\nstream\n"...)
	out = append(out, data...)
	out = append(out, "\nendstream"...)
	return out
}

func compress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// escapePDFString encodes s as WinAnsi and escapes it for a literal string.
// Bytes outside printable ASCII are written as octal escapes.
func escapePDFString(s string) string {
	var sb strings.Builder
	for _, c := range encodeWinAnsi(s) {
		switch {
		case c == '\\' || c == '(' || c == ')':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 32 || c > 126:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
