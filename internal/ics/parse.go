package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "timelinecal/internal/log"
	"timelinecal/internal/model"
)

// ParsedEvent is the normalized representation of a VEVENT before it is
// turned into a timeline event.
type ParsedEvent struct {
	Source Source

	UID         string
	Summary     string
	Description string
	Location    string
	Color       string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	IsOverride bool // RECURRENCE-ID present: a single moved instance
}

// ParseICS parses a single ICS payload into timeline events in loc.
//
//   - It relies on the underlying library's VTIMEZONE/TZID handling to
//     construct proper time.Time values (with Location set).
//   - All-day events and recurring masters (RRULE) are skipped with a
//     warning; only timed single events reach the timeline.
//   - VEVENTs without a UID get a random one.
func ParseICS(src Source, body []byte, loc *time.Location) ([]model.Event, error) {
	parsed, err := parseCalendar(src, body)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	events := make([]model.Event, 0, len(parsed))
	skipped := 0
	for _, pe := range parsed {
		switch {
		case pe.AllDay:
			skipped++
			appLog.Warn("ics all-day event skipped", "id", src.ID, "uid", pe.UID, "summary", pe.Summary)
			continue
		case pe.RawRRule != "":
			skipped++
			appLog.Warn("ics recurring event skipped", "id", src.ID, "uid", pe.UID, "summary", pe.Summary, "rrule", pe.RawRRule)
			continue
		}
		events = append(events, pe.toEvent(loc))
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events), "skipped", skipped)
	return events, nil
}

func (pe ParsedEvent) toEvent(loc *time.Location) model.Event {
	color := pe.Color
	if color == "" {
		color = pe.Source.Color
	}
	summary := pe.Location
	if summary == "" {
		summary = firstLine(pe.Description)
	}
	id := pe.UID
	if pe.IsOverride {
		// Moved instances share the master's UID.
		id = pe.UID + "@" + pe.Start.UTC().Format("20060102T150405Z")
	}
	return model.Event{
		ID:      id,
		Start:   pe.Start.In(loc),
		End:     pe.End.In(loc),
		Title:   pe.Summary,
		Summary: summary,
		Color:   color,
	}
}

func parseCalendar(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil && p.Value != "" {
		out.UID = p.Value
	} else {
		out.UID = uuid.NewString()
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyColor); p != nil {
		out.Color = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start

	// Missing DTEND reads as a zero-length event.
	end, err := ve.GetEndAt()
	if err != nil || end.IsZero() {
		end = start
	}
	out.End = end

	// VALUE=DATE or no 'T' in DTSTART -> all-day
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		out.IsOverride = true
	}

	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
