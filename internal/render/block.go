package render

import (
	"math"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"timelinecal/internal/model"
)

const (
	// TextLineHeight is the pixel height of one text line inside a block.
	TextLineHeight = 17
	// DefaultEventColor fills events that carry no color.
	DefaultEventColor = "#add8e6"
	// DefaultTitle replaces an empty event title.
	DefaultTitle = "Event"
)

// Block is the text content that fits inside one event rectangle.
type Block struct {
	Lines   int
	Title   string
	Summary []string
	Times   string
	Color   string
}

// BlockLines decides what text an event block shows. The block holds
// floor(height/17) lines: the title always, the summary from two lines,
// the start-end times from three. wrapWidth is in characters; zero
// disables wrapping.
func BlockLines(ev model.PackedEvent, format24h bool, wrapWidth int) Block {
	b := Block{
		Lines: int(math.Floor(ev.Height / TextLineHeight)),
		Title: ev.Title,
		Color: ev.Color,
	}
	if strings.TrimSpace(b.Title) == "" {
		b.Title = DefaultTitle
	}
	if b.Color == "" {
		b.Color = DefaultEventColor
	}

	if b.Lines > 2 {
		b.Times = FormatTime(ev.Start, format24h) + " - " + FormatTime(ev.End, format24h)
	}

	if b.Lines > 1 && strings.TrimSpace(ev.Summary) != "" {
		room := b.Lines - 1
		if b.Times != "" {
			room--
		}
		if room < 1 {
			room = 1
		}
		text := ev.Summary
		if wrapWidth > 0 {
			text = wordwrap.String(text, wrapWidth)
		}
		lines := strings.Split(text, "\n")
		if len(lines) > room {
			lines = lines[:room]
		}
		b.Summary = lines
	}
	return b
}

// FormatTime renders "15:04" or "03:04 PM".
func FormatTime(t time.Time, format24h bool) string {
	if format24h {
		return t.Format("15:04")
	}
	return t.Format("03:04 PM")
}

// charsFor estimates how many characters of fontSize fit in width pixels.
func charsFor(width, fontSize float64) int {
	// Average glyph is about 0.6em wide.
	n := int(width / (fontSize * 0.6))
	if n < 1 {
		return 1
	}
	return n
}
