package compose

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"homefolio/store"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Dollars formats v rounded to whole dollars: 500000 → "$500,000".
func Dollars(v float64) string {
	return printer.Sprintf("$%d", int64(math.Round(v)))
}

func number(v int) string { return printer.Sprintf("%d", v) }

// count drops a trailing ".0" so 2 baths prints "2" and 2.5 prints "2.5".
func count(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// percent renders a rate as a percentage with at most two decimals.
func percent(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*10000)/100, 'f', -1, 64)
}

func plural(v float64, one, many string) string {
	if v == 1 {
		return one
	}
	return many
}

// StatsLine renders "3 beds • 2 baths • 1,800 sqft", omitting unknown
// figures.
func StatsLine(p store.PropertyRecord) string {
	var parts []string
	if p.Beds > 0 {
		parts = append(parts, count(p.Beds)+" "+plural(p.Beds, "bed", "beds"))
	}
	if p.Baths > 0 {
		parts = append(parts, count(p.Baths)+" "+plural(p.Baths, "bath", "baths"))
	}
	if p.Sqft > 0 {
		parts = append(parts, number(p.Sqft)+" sqft")
	}
	return strings.Join(parts, " • ")
}

// bullets splits free text into list items, dropping any bullet markers
// the author typed.
func bullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// paragraphs splits text on line breaks into non-empty paragraphs.
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func longDate(t time.Time) string { return t.Format("January 2, 2006") }

func showingTime(t time.Time) string { return t.Format("Mon, Jan 2 at 3:04 PM") }

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "N/A"
	}
	return s
}
