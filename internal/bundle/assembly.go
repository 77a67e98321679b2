// Package bundle assembles the output PDF: natively rendered pages
// interleaved with pages copied from foreign PDFs and full-page images.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"homefolio/internal/render"
	"homefolio/pkg/logger"
)

var ErrEmptyPDF = errors.New("pdf has no pages")

var disableConfigDir sync.Once

// pdfConfig returns a fresh pdfcpu configuration. Uploaded documents come
// from arbitrary producers, so validation is relaxed.
func pdfConfig() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

type segment struct {
	native  *render.Document
	foreign []byte
	pages   int
}

func (s *segment) pageCount() int {
	if s.native != nil {
		return s.native.PageCount()
	}
	return s.pages
}

func (s *segment) bytes() []byte {
	if s.native != nil {
		return s.native.Bytes()
	}
	return s.foreign
}

// Assembly is the ordered output of one report. It implements
// render.PageAllocator so the renderer and image pages draw straight into
// it; pages allocated after a foreign PDF start a new native segment.
type Assembly struct {
	title     string
	producer  string
	createdAt time.Time

	segments []*segment
}

func NewAssembly(title, producer string, createdAt time.Time) *Assembly {
	return &Assembly{title: title, producer: producer, createdAt: createdAt}
}

func (a *Assembly) AddPage() *render.Page {
	var last *segment
	if n := len(a.segments); n > 0 {
		last = a.segments[n-1]
	}
	if last == nil || last.native == nil {
		last = &segment{native: render.NewDocument(a.title, a.producer, a.createdAt)}
		a.segments = append(a.segments, last)
	}
	return last.native.AddPage()
}

// AppendPDF validates data as a PDF and queues all of its pages, in order,
// after the pages allocated so far.
func (a *Assembly) AppendPDF(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if n == 0 {
		return 0, ErrEmptyPDF
	}
	a.segments = append(a.segments, &segment{foreign: data, pages: n})
	return n, nil
}

// Pages returns the natively rendered pages in output order. Pages of
// foreign PDFs are not included.
func (a *Assembly) Pages() []*render.Page {
	var out []*render.Page
	for _, s := range a.segments {
		if s.native != nil {
			out = append(out, s.native.Pages()...)
		}
	}
	return out
}

func (a *Assembly) PageCount() int {
	total := 0
	for _, s := range a.segments {
		total += s.pageCount()
	}
	return total
}

// Bytes materializes the whole report. A foreign document that pdfcpu can
// count but not merge is dropped rather than failing the report.
func (a *Assembly) Bytes() ([]byte, error) {
	switch len(a.segments) {
	case 0:
		return nil, errors.New("no pages to write")
	case 1:
		return a.segments[0].bytes(), nil
	}

	parts := make([][]byte, len(a.segments))
	for i, s := range a.segments {
		parts[i] = s.bytes()
	}

	out, err := merge(parts...)
	if err == nil {
		return out, nil
	}
	logger.Sugar.Warnw("Merging report in one pass failed, merging incrementally", "error", err)

	acc := parts[0]
	for i := 1; i < len(parts); i++ {
		next, err := merge(acc, parts[i])
		if err != nil {
			if a.segments[i].native != nil {
				return nil, fmt.Errorf("merge report pages: %w", err)
			}
			logger.Sugar.Warnw("Dropping attachment pages that could not be merged",
				"pages", a.segments[i].pages, "error", err)
			a.segments[i].pages = 0
			continue
		}
		acc = next
	}
	return acc, nil
}

func merge(parts ...[]byte) ([]byte, error) {
	rs := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		rs[i] = bytes.NewReader(p)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(rs, &buf, false, pdfConfig()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
