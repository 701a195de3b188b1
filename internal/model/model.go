package model

import "time"

// Event is a titled time interval to display. Start/End are already in
// the display timezone; only their wall-clock fields are used for layout.
// The layout packages never mutate an Event.
type Event struct {
	ID      string    `json:"id,omitempty" yaml:"id,omitempty"`
	Start   time.Time `json:"start" yaml:"start"`
	End     time.Time `json:"end" yaml:"end"`
	Title   string    `json:"title" yaml:"title"`
	Summary string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Color   string    `json:"color,omitempty" yaml:"color,omitempty"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// DateKey is the calendar date of Start in YYYY-MM-DD form, used to group
// events into day columns.
func (e Event) DateKey() string {
	return DateKey(e.Start)
}

// PackedEvent is an Event plus its pixel geometry inside one day column.
// Index is the position in that day's output slice.
type PackedEvent struct {
	Event

	Index  int     `json:"index"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DayRange is the visible hour span of the grid, e.g. {0, 24} or {8, 20}.
type DayRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Hours is the number of hour rows in the range.
func (r DayRange) Hours() int {
	return r.End - r.Start
}

// Validate reports an OutOfRangeConfig error unless 0 <= Start < End <= 24.
func (r DayRange) Validate() error {
	if r.Start < 0 || r.Start > 24 {
		return &ConfigError{Field: "day_start", Value: r.Start, Reason: "must be within [0,24]"}
	}
	if r.End < 0 || r.End > 24 {
		return &ConfigError{Field: "day_end", Value: r.End, Reason: "must be within [0,24]"}
	}
	if r.Start >= r.End {
		return &ConfigError{Field: "day_start", Value: r.Start, Reason: "must be before day_end"}
	}
	return nil
}

// HourRange is an unavailable-hours input, in decimal hours.
type HourRange struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// UnavailableBlock is the shaded rectangle for one HourRange.
type UnavailableBlock struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// TimeOfDay is an hour/minute reading on the grid. Hour may be 24 when a
// position sits on the bottom edge of a full-day grid.
type TimeOfDay struct {
	Hour    int `json:"hour" yaml:"hour"`
	Minutes int `json:"minutes" yaml:"minutes"`
}

// Decimal returns Hour + Minutes/60.
func (t TimeOfDay) Decimal() float64 {
	return float64(t.Hour) + float64(t.Minutes)/60
}

const dateLayout = "2006-01-02"

// DateKey formats t as YYYY-MM-DD using its own location.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD string into midnight of loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dateLayout, s, loc)
}

// StartOfDay truncates t to local midnight without changing its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
