// Package now positions the current-time marker on the grid.
//
// It is the only place in the layout code that reads a clock, and the
// clock is injected so callers can sample it once per render pass.
package now

import (
	"time"

	"timelinecal/internal/coord"
	"timelinecal/internal/model"
)

// Clock supplies the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

type reading struct {
	hour    *int
	minutes *int
}

// Option overrides part of the clock reading.
type Option func(*reading)

// WithHour replaces the clock's hour.
func WithHour(h int) Option {
	return func(r *reading) { r.hour = &h }
}

// WithMinutes replaces the clock's minutes.
func WithMinutes(m int) Option {
	return func(r *reading) { r.minutes = &m }
}

// WithTime replaces both hour and minutes, e.g. for "scroll to 09:00".
func WithTime(t model.TimeOfDay) Option {
	return func(r *reading) {
		h, m := t.Hour, t.Minutes
		r.hour, r.minutes = &h, &m
	}
}

// Reading resolves the hour and minutes to use: overrides first, the
// clock for whatever is left. A nil clock means SystemClock.
func Reading(clock Clock, opts ...Option) model.TimeOfDay {
	var r reading
	for _, o := range opts {
		o(&r)
	}
	if r.hour != nil && r.minutes != nil {
		return model.TimeOfDay{Hour: *r.hour, Minutes: *r.minutes}
	}

	if clock == nil {
		clock = SystemClock{}
	}
	t := clock.Now()
	out := model.TimeOfDay{Hour: t.Hour(), Minutes: t.Minute()}
	if r.hour != nil {
		out.Hour = *r.hour
	}
	if r.minutes != nil {
		out.Minutes = *r.minutes
	}
	return out
}

// Offset returns the y of the reading on v's grid.
func Offset(v coord.Vertical, clock Clock, opts ...Option) float64 {
	t := Reading(clock, opts...)
	return v.OffsetOf(t.Hour, t.Minutes)
}

// OffsetAt is Offset on a midnight-based grid: (hour + minutes/60) * H.
func OffsetAt(hourBlockHeight float64, clock Clock, opts ...Option) (float64, error) {
	v, err := coord.NewVertical(hourBlockHeight, model.DayRange{Start: 0, End: 24}, 0)
	if err != nil {
		return 0, err
	}
	return Offset(v, clock, opts...), nil
}

// Marker is the placed now-indicator in a multi-day view.
type Marker struct {
	DayIndex int     `json:"day_index"`
	Top      float64 `json:"top"`
	Left     float64 `json:"left"`
	Width    float64 `json:"width"`
}

// Indicator places the marker over today's column. ok is false when
// today is not among dates or the current time is outside the grid.
func Indicator(v coord.Vertical, h coord.Horizontal, dates []time.Time, clock Clock) (m Marker, ok bool) {
	if clock == nil {
		clock = SystemClock{}
	}
	t := clock.Now()

	idx := -1
	today := model.DateKey(t)
	for i, d := range dates {
		if model.DateKey(d) == today {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= h.NumberOfDays {
		return Marker{}, false
	}

	hd := coord.HourDecimal(t)
	if hd < float64(v.Range.Start) || hd > float64(v.Range.End) {
		return Marker{}, false
	}

	fixed := FixedClock{T: t}
	return Marker{
		DayIndex: idx,
		Top:      Offset(v, fixed),
		Left:     h.DayLeft(idx),
		Width:    h.DayWidth(),
	}, true
}
