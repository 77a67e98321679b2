package render

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// maxPixels bounds decoded raster size so a hostile upload cannot exhaust
// memory.
const maxPixels = 40_000_000

var ErrImageTooLarge = errors.New("image exceeds pixel limit")

// Image is a raster ready to be embedded as a PDF image XObject.
type Image struct {
	Width, Height    int
	ColorSpace       string
	BitsPerComponent int
	Filter           string
	Data             []byte
}

// DecodeImage prepares raw PNG, JPEG or WebP bytes for embedding. RGB and
// grayscale JPEGs pass through untouched; everything else is decoded,
// flattened onto white and stored Flate-compressed.
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, ErrImageTooLarge
	}

	if format == "jpeg" {
		switch cfg.ColorModel {
		case color.YCbCrModel, color.RGBAModel:
			return &Image{Width: cfg.Width, Height: cfg.Height, ColorSpace: "DeviceRGB", BitsPerComponent: 8, Filter: "DCTDecode", Data: data}, nil
		case color.GrayModel:
			return &Image{Width: cfg.Width, Height: cfg.Height, ColorSpace: "DeviceGray", BitsPerComponent: 8, Filter: "DCTDecode", Data: data}, nil
		}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, err)
	}
	return flatten(src)
}

func flatten(src image.Image) (*Image, error) {
	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Over)

	raw := make([]byte, 0, b.Dx()*b.Dy()*3)
	for i := 0; i < len(canvas.Pix); i += 4 {
		raw = append(raw, canvas.Pix[i], canvas.Pix[i+1], canvas.Pix[i+2])
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress image: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress image: %w", err)
	}
	return &Image{
		Width:            b.Dx(),
		Height:           b.Dy(),
		ColorSpace:       "DeviceRGB",
		BitsPerComponent: 8,
		Filter:           "FlateDecode",
		Data:             buf.Bytes(),
	}, nil
}

// FitScale is the uniform factor that fits a w by h raster inside the page
// without ever enlarging it.
func FitScale(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	return min(PageWidth/float64(w), PageHeight/float64(h), 1)
}

// AddImagePage allocates a page from alloc and centres img on it at
// FitScale. No header is drawn: the page belongs to the attachment.
func AddImagePage(alloc PageAllocator, img *Image) {
	s := FitScale(img.Width, img.Height)
	w := float64(img.Width) * s
	h := float64(img.Height) * s
	p := alloc.AddPage()
	p.Image(img, (PageWidth-w)/2, (PageHeight-h)/2, w, h)
}
