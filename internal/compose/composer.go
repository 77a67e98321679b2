// Package compose lays out property and session reports and hands the
// finished assembly to the bundler for attachments.
package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homefolio/config"
	"homefolio/internal/bundle"
	"homefolio/internal/fetch"
	"homefolio/internal/render"
	"homefolio/internal/storage"
	"homefolio/pkg/logger"
	"homefolio/store"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

type Bundler interface {
	Bundle(ctx context.Context, asm *bundle.Assembly, atts []store.AttachmentRecord) bundle.Summary
}

// PropertyData is everything a property report draws.
type PropertyData struct {
	Property    store.PropertyRecord
	Attachments []store.AttachmentRecord
	Agent       *store.AgentIdentity
}

// SessionData is a session with its properties in stored order.
type SessionData struct {
	Session    store.SessionRecord
	Agent      *store.AgentIdentity
	Properties []PropertyData
}

// Report is a finished PDF.
type Report struct {
	Data      []byte
	PageCount int
}

type Composer struct {
	settings config.Settings
	fetcher  Fetcher
	signer   storage.Signer
	bundler  Bundler
	now      func() time.Time
}

func NewComposer(settings config.Settings, fetcher Fetcher, signer storage.Signer, bundler Bundler) *Composer {
	return &Composer{
		settings: settings,
		fetcher:  fetcher,
		signer:   signer,
		bundler:  bundler,
		now:      time.Now,
	}
}

// WithClock replaces the generation-date clock.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

func (c *Composer) brand() render.Color { return render.HexColor(c.settings.Branding.Color) }

// Property renders a single-property report followed by its attachments.
func (c *Composer) Property(ctx context.Context, d PropertyData) (*Report, error) {
	now := c.now()
	asm := bundle.NewAssembly(d.Property.Title(), c.settings.Branding.ProductName, now)
	r := render.NewRenderer(asm, c.header(ctx))

	r.NewPage()
	c.propertyBody(r, d)
	c.footer(r, now)

	c.bundler.Bundle(ctx, asm, d.Attachments)
	return finish(asm)
}

// Session renders a cover page, then for each property its primary pages
// (with their own footer) immediately followed by its own attachments.
func (c *Composer) Session(ctx context.Context, d SessionData) (*Report, error) {
	now := c.now()
	asm := bundle.NewAssembly(sessionTitle(d.Session), c.settings.Branding.ProductName, now)
	r := render.NewRenderer(asm, c.header(ctx))

	r.NewPage()
	c.cover(ctx, r, d)
	c.footer(r, now)

	n := len(d.Properties)
	for i, pd := range d.Properties {
		r.NewPage()
		r.DrawText(fmt.Sprintf("PROPERTY %d OF %d", i+1, n), render.Style{Font: render.Bold, Size: 10, Color: render.Gray})
		if st := pd.Property.ShowingTime; st != nil {
			r.DrawText("Showing: "+showingTime(*st), render.Style{Size: 10, Color: c.brand()})
		}
		r.AddVerticalSpace(6)
		c.propertyBody(r, pd)
		c.footer(r, now)

		c.bundler.Bundle(ctx, asm, pd.Attachments)
	}
	return finish(asm)
}

func finish(asm *bundle.Assembly) (*Report, error) {
	data, err := asm.Bytes()
	if err != nil {
		return nil, err
	}
	return &Report{Data: data, PageCount: asm.PageCount()}, nil
}

func sessionTitle(s store.SessionRecord) string {
	if s.Title != "" {
		return s.Title
	}
	return "Showing Session"
}

// header fetches the brand logo once per report. Any failure falls back to
// the product name in bold brand colour.
func (c *Composer) header(ctx context.Context) render.Header {
	b := c.settings.Branding
	var logo *render.Image
	if b.LogoURL != "" {
		img, err := c.fetchImage(ctx, b.LogoURL)
		if err != nil {
			logger.FromContext(ctx).Warnw("Logo unavailable, using text header", "error", err)
		} else {
			logo = img
		}
	}
	return render.NewHeader(logo, b.ProductName, c.brand())
}

func (c *Composer) fetchImage(ctx context.Context, ref string) (*render.Image, error) {
	if ref == "" {
		return nil, errors.New("no image reference")
	}
	url, err := storage.Resolve(ctx, c.signer, ref, c.settings.SignedURLTTL)
	if err != nil {
		return nil, err
	}
	resp, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return render.DecodeImage(resp.Body)
}

func (c *Composer) footer(r *render.Renderer, now time.Time) {
	r.AddVerticalSpace(20)
	r.Rule(render.Light)
	r.DrawText(fmt.Sprintf("Generated on %s • Prepared with %s", longDate(now), c.settings.Branding.ProductName),
		render.Style{Size: 9, Color: render.Gray})
}
