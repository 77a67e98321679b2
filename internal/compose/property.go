package compose

import (
	"fmt"
	"strings"

	"homefolio/internal/render"
	"homefolio/store"
)

const detailValueX = 140

func (c *Composer) section(r *render.Renderer, title string) {
	r.AddVerticalSpace(14)
	r.DrawText(title, render.Style{Font: render.Bold, Size: 13, Color: c.brand()})
	r.AddVerticalSpace(2)
}

// propertyBody draws the property blocks in their fixed order, from the
// address down to the attached-document index.
func (c *Composer) propertyBody(r *render.Renderer, d PropertyData) {
	p := d.Property
	brand := c.brand()

	r.DrawText(p.Title(), render.Style{Font: render.Bold, Size: 20})
	if city := p.CityLine(); city != "" {
		r.DrawText(city, render.Style{Size: 12, Color: render.Gray})
	}

	r.AddVerticalSpace(8)
	if p.Price > 0 {
		r.DrawText(Dollars(p.Price), render.Style{Font: render.Bold, Size: 28, Color: brand})
	} else {
		r.DrawText("Price upon request", render.Style{Font: render.Bold, Size: 20, Color: brand})
	}

	if stats := StatsLine(p); stats != "" {
		r.DrawText(stats, render.Style{Size: 12})
	}

	if p.Price > 0 {
		m := c.settings.Mortgage
		pay := MonthlyPayment(p.Price, m)
		r.AddVerticalSpace(4)
		r.DrawText(fmt.Sprintf("Est. monthly payment: %s/mo", Dollars(pay.Total())),
			render.Style{Font: render.Bold, Size: 12})
		r.DrawText(fmt.Sprintf("%s%% down, %s%% for %d years, incl. taxes (%s/mo) and insurance (%s/mo)",
			percent(m.DownPayment), percent(m.AnnualRate), m.TermYears, Dollars(pay.Tax), Dollars(pay.Insurance)),
			render.Style{Size: 9, Color: render.Gray})
	}

	if note := strings.TrimSpace(p.AgentNotes); note != "" {
		title := "Agent's Note"
		if d.Agent != nil && d.Agent.DisplayName != "" {
			title = "A Note from " + d.Agent.DisplayName
		}
		c.section(r, title)
		for _, para := range paragraphs(note) {
			r.DrawText(para, render.Style{})
		}
	}

	if items := bullets(p.Summary); len(items) > 0 {
		c.section(r, "Summary")
		for _, item := range items {
			r.DrawText("• "+item, render.Style{Indent: 10})
		}
	}

	if len(p.Features) > 0 {
		c.section(r, "Features")
		r.DrawText(strings.Join(p.Features, " • "), render.Style{})
	}

	if paras := paragraphs(p.Description); len(paras) > 0 {
		c.section(r, "Description")
		for i, para := range paras {
			if i > 0 {
				r.AddVerticalSpace(4)
			}
			r.DrawText(para, render.Style{})
		}
	}

	c.section(r, "Property Details")
	key := render.Style{Font: render.Bold, Size: 10, Color: render.Gray}
	val := render.Style{Size: 10}
	for _, row := range detailRows(p) {
		r.DrawKeyValue(row[0], row[1], key, val, detailValueX)
	}

	if len(d.Attachments) > 0 {
		c.section(r, "Attached Documents")
		for _, att := range d.Attachments {
			r.DrawText(fmt.Sprintf("• %s (%s)", att.Name, att.Type.Label()), render.Style{Indent: 10})
		}
	}
}

func detailRows(p store.PropertyRecord) [][2]string {
	year := "N/A"
	if p.YearBuilt > 0 {
		year = fmt.Sprintf("%d", p.YearBuilt)
	}
	perSqft := "N/A"
	if p.Price > 0 && p.Sqft > 0 {
		perSqft = Dollars(p.Price / float64(p.Sqft))
	}
	return [][2]string{
		{"Year Built", year},
		{"Lot Size", orNA(p.LotSize)},
		{"Price/Sq Ft", perSqft},
		{"Parking", orNA(p.Garage)},
		{"Heating", orNA(p.Heating)},
		{"Cooling", orNA(p.Cooling)},
	}
}
