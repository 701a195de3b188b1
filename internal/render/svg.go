package render

import (
	"fmt"
	"strconv"
	"strings"

	"timelinecal/internal/timeline"
)

// Options controls presentation only; geometry comes from the frame.
type Options struct {
	Background  string
	GridColor   string
	TextColor   string
	TimeColor   string
	NowColor    string
	BorderColor string
	FontFamily  string
	FontSize    float64
	// Padding inside event blocks.
	PaddingLeft float64
	PaddingTop  float64
}

func DefaultOptions() Options {
	return Options{
		Background:  "#ffffff",
		GridColor:   "#e0e0e0",
		TextColor:   "#000000",
		TimeColor:   "#ff0000",
		NowColor:    "#ff0000",
		BorderColor: "#dde5fd",
		FontFamily:  "sans-serif",
		FontSize:    12,
		PaddingLeft: 4,
		PaddingTop:  5,
	}
}

// SVG draws the frame as a standalone SVG document. The root element
// carries data-ready="true" so headless capture knows when to shoot.
func SVG(f timeline.Frame, opts Options) []byte {
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}
	width := f.Width
	height := f.ContentHeight

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%s" height="%s" viewBox="0 0 %s %s" xmlns="http://www.w3.org/2000/svg" data-ready="true">
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<style>
.hour-label { font-family: %s; font-size: %spx; fill: %s; }
.event-title { font-family: %s; font-size: %spx; font-weight: 600; fill: %s; }
.event-summary { font-family: %s; font-size: %spx; fill: %s; }
.event-times { font-family: %s; font-size: %spx; font-weight: bold; fill: %s; }
</style>
</defs>
`, px(width), px(height), px(width), px(height), escapeXML(opts.Background),
		opts.FontFamily, px(opts.FontSize-2), opts.TextColor,
		opts.FontFamily, px(opts.FontSize+1), opts.TextColor,
		opts.FontFamily, px(opts.FontSize), opts.TextColor,
		opts.FontFamily, px(opts.FontSize-2), opts.TimeColor))

	drawUnavailable(&svg, f)
	drawHours(&svg, f, opts)
	drawDividers(&svg, f, opts)
	drawEvents(&svg, f, opts)
	drawNow(&svg, f, opts)

	svg.WriteString("</svg>\n")
	return []byte(svg.String())
}

func drawUnavailable(svg *strings.Builder, f timeline.Frame) {
	if len(f.Unavailable) == 0 {
		return
	}
	color := f.Options.UnavailableHoursColor
	svg.WriteString(`<g class="unavailable">` + "\n")
	for _, d := range f.Days {
		for _, b := range f.Unavailable {
			svg.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`+"\n",
				px(d.Left), px(b.Top), px(d.Width), px(b.Height), escapeXML(color)))
		}
	}
	svg.WriteString("</g>\n")
}

func drawHours(svg *strings.Builder, f timeline.Frame, opts Options) {
	svg.WriteString(`<g class="hours">` + "\n")
	for _, m := range f.Hours {
		if m.ShowLine {
			svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
				px(f.LeftInset), px(m.Top), px(f.Width), px(m.Top), opts.GridColor))
		}
		if m.ShowHalf {
			svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1" stroke-dasharray="2,2"/>`+"\n",
				px(f.LeftInset), px(m.HalfTop), px(f.Width), px(m.HalfTop), opts.GridColor))
		}
		if m.Label != "" {
			svg.WriteString(fmt.Sprintf(`<text class="hour-label" x="%s" y="%s" text-anchor="end">%s</text>`+"\n",
				px(f.LeftInset-6), px(m.Top+4), escapeXML(m.Label)))
		}
	}
	svg.WriteString("</g>\n")
}

func drawDividers(svg *strings.Builder, f timeline.Frame, opts Options) {
	for _, x := range f.Dividers {
		svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="0" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
			px(x), px(x), px(f.ContentHeight), opts.GridColor))
	}
}

func drawEvents(svg *strings.Builder, f timeline.Frame, opts Options) {
	format24h := f.Options.Is24h()
	for _, d := range f.Days {
		svg.WriteString(fmt.Sprintf(`<g class="day" data-date="%s">`+"\n", escapeXML(d.Date)))
		for _, ev := range d.Events {
			if ev.Color == "" {
				ev.Color = f.Options.EventDefaultColor
			}
			b := BlockLines(ev, format24h, charsFor(ev.Width-opts.PaddingLeft, opts.FontSize))
			x := d.Left + ev.Left
			y := ev.Top

			svg.WriteString(fmt.Sprintf(`<g class="event" data-id="%s">`+"\n", escapeXML(ev.ID)))
			svg.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="%s" stroke-width="1"/>`+"\n",
				px(x), px(y), px(ev.Width), px(ev.Height), escapeXML(b.Color), opts.BorderColor))

			tx := x + opts.PaddingLeft
			ty := y + opts.PaddingTop + opts.FontSize
			svg.WriteString(fmt.Sprintf(`<text class="event-title" x="%s" y="%s">%s</text>`+"\n", px(tx), px(ty), escapeXML(b.Title)))
			for _, line := range b.Summary {
				ty += opts.FontSize + 2
				svg.WriteString(fmt.Sprintf(`<text class="event-summary" x="%s" y="%s">%s</text>`+"\n", px(tx), px(ty), escapeXML(line)))
			}
			if b.Times != "" {
				ty += opts.FontSize + 3
				svg.WriteString(fmt.Sprintf(`<text class="event-times" x="%s" y="%s">%s</text>`+"\n", px(tx), px(ty), escapeXML(b.Times)))
			}
			svg.WriteString("</g>\n")
		}
		svg.WriteString("</g>\n")
	}
}

func drawNow(svg *strings.Builder, f timeline.Frame, opts Options) {
	if f.Now == nil {
		return
	}
	n := f.Now
	svg.WriteString(fmt.Sprintf(`<g class="now"><line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/><circle cx="%s" cy="%s" r="4" fill="%s"/></g>`+"\n",
		px(n.Left), px(n.Top), px(n.Left+n.Width), px(n.Top), opts.NowColor,
		px(n.Left), px(n.Top), opts.NowColor))
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
