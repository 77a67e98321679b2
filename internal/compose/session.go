package compose

import (
	"context"
	"fmt"

	"homefolio/internal/render"
	"homefolio/pkg/logger"
)

const avatarSize = 48

// avatarBox scales img to avatarSize high, shrinking it further when that
// would run past the content width.
func avatarBox(img *render.Image) (w, h float64) {
	if img.Width <= 0 || img.Height <= 0 {
		return 0, 0
	}
	h = avatarSize
	w = h * float64(img.Width) / float64(img.Height)
	if w > render.ContentWidth {
		w = render.ContentWidth
		h = w * float64(img.Height) / float64(img.Width)
	}
	return w, h
}

// cover draws the session cover: title, client, agent and a one-line
// summary of every property in the session.
func (c *Composer) cover(ctx context.Context, r *render.Renderer, d SessionData) {
	s := d.Session
	r.DrawText(sessionTitle(s), render.Style{Font: render.Bold, Size: 24})
	if s.ClientName != "" {
		r.DrawText("Prepared for "+s.ClientName, render.Style{Size: 14, Color: render.Gray})
	}
	if !s.SessionDate.IsZero() {
		r.DrawText(longDate(s.SessionDate), render.Style{Size: 12, Color: render.Gray})
	}

	if a := d.Agent; a != nil {
		r.AddVerticalSpace(16)
		if a.AvatarRef != "" {
			img, err := c.fetchImage(ctx, a.AvatarRef)
			if err != nil {
				logger.FromContext(ctx).Warnw("Agent avatar unavailable", "error", err)
			} else if w, h := avatarBox(img); w > 0 {
				r.DrawImage(img, 0, w, h)
			}
		}
		if a.DisplayName != "" {
			r.DrawText(a.DisplayName, render.Style{Font: render.Bold, Size: 13})
		}
		if a.CompanyName != "" {
			r.DrawText(a.CompanyName, render.Style{Size: 11, Color: render.Gray})
		}
	}

	c.section(r, fmt.Sprintf("Properties (%d)", len(d.Properties)))
	for i, pd := range d.Properties {
		p := pd.Property
		r.DrawText(fmt.Sprintf("%d. %s", i+1, p.FullAddress()), render.Style{Font: render.Bold, Size: 11})

		line := ""
		if p.Price > 0 {
			line = Dollars(p.Price)
		}
		if stats := StatsLine(p); stats != "" {
			if line != "" {
				line += " • "
			}
			line += stats
		}
		if n := len(pd.Attachments); n > 0 {
			if line != "" {
				line += " • "
			}
			line += fmt.Sprintf("%d %s", n, plural(float64(n), "document", "documents"))
		}
		if line != "" {
			r.DrawText(line, render.Style{Size: 10, Color: render.Gray, Indent: 14})
		}
		r.AddVerticalSpace(4)
	}
}
