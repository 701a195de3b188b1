// Package coord converts between pixel positions on the timeline and
// wall-clock time (vertical axis) or day columns (horizontal axis).
//
// Everything here is pure: no logging, no clock, no shared state.
package coord

import (
	"math"
	"time"

	"timelinecal/internal/model"
)

// DefaultSnapMinutes is the pointer granularity when none is configured.
const DefaultSnapMinutes = 1

// Vertical maps between a y offset (0 = top of the grid, i.e. Range.Start)
// and a time of day.
type Vertical struct {
	// HourBlockHeight is the pixel height of one hour row. Must be > 0.
	HourBlockHeight float64
	// Range is the visible hour span; TimeAt clamps to it.
	Range model.DayRange
	// SnapMinutes rounds TimeAt results to this granularity (1..60).
	// Zero means DefaultSnapMinutes.
	SnapMinutes int
}

// NewVertical validates the parameters and returns a ready mapper.
func NewVertical(hourBlockHeight float64, r model.DayRange, snapMinutes int) (Vertical, error) {
	v := Vertical{HourBlockHeight: hourBlockHeight, Range: r, SnapMinutes: snapMinutes}
	if err := v.Validate(); err != nil {
		return Vertical{}, err
	}
	return v, nil
}

// Validate reports an OutOfRangeConfig error for unusable parameters.
func (v Vertical) Validate() error {
	if !(v.HourBlockHeight > 0) || math.IsInf(v.HourBlockHeight, 0) {
		return &model.ConfigError{Field: "hour_block_height", Value: v.HourBlockHeight, Reason: "must be a positive number"}
	}
	if v.SnapMinutes < 0 || v.SnapMinutes > 60 {
		return &model.ConfigError{Field: "snap_minutes", Value: v.SnapMinutes, Reason: "must be within [1,60]"}
	}
	return v.Range.Validate()
}

func (v Vertical) snap() int {
	if v.SnapMinutes <= 0 {
		return DefaultSnapMinutes
	}
	return v.SnapMinutes
}

// Height is the pixel height of the whole grid.
func (v Vertical) Height() float64 {
	return float64(v.Range.Hours()) * v.HourBlockHeight
}

// TimeAt converts a y offset into the time of day under it.
//
// hour = floor(y/H), minutes = round(frac*60), snapped to SnapMinutes with
// a carry into the hour, then clamped to [Range.Start:00, Range.End:00].
func (v Vertical) TimeAt(y float64) model.TimeOfDay {
	lo := float64(v.Range.Start * 60)
	hi := float64(v.Range.End * 60)

	var total float64
	switch {
	case math.IsNaN(y):
		total = lo
	case math.IsInf(y, 1):
		total = hi
	case math.IsInf(y, -1):
		total = lo
	default:
		// round(rel*60) equals floor(rel)*60 + round(frac*60), carry included.
		total = lo + math.Round(y/v.HourBlockHeight*60)
		step := float64(v.snap())
		total = math.Round(total/step) * step
	}

	total = clamp(total, lo, hi)
	m := int(total)
	return model.TimeOfDay{Hour: m / 60, Minutes: m % 60}
}

// OffsetOf is the forward transform: (hour + minutes/60 - Range.Start) * H.
// It does not clamp; callers that need clipping use OffsetOfDecimal with
// a clamped value.
func (v Vertical) OffsetOf(hour, minutes int) float64 {
	return v.OffsetOfDecimal(float64(hour) + float64(minutes)/60)
}

// OffsetOfDecimal is OffsetOf for a decimal hour (9.5 == 09:30).
func (v Vertical) OffsetOfDecimal(hours float64) float64 {
	return (hours - float64(v.Range.Start)) * v.HourBlockHeight
}

// ClampDecimal limits a decimal hour to the visible range.
func (v Vertical) ClampDecimal(hours float64) float64 {
	return clamp(hours, float64(v.Range.Start), float64(v.Range.End))
}

// HourDecimal returns the wall-clock hour of t as hour + minute/60.
func HourDecimal(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// HoursSince returns the decimal hours from midnight of day to t, so an
// end on the following day reads as 24+.
func HoursSince(day, t time.Time) float64 {
	midnight := model.StartOfDay(day)
	d := model.StartOfDay(t)
	days := 0
	// Calendar-day difference, immune to DST-length days.
	for d.After(midnight) && days < 366 {
		midnight = midnight.AddDate(0, 0, 1)
		days++
	}
	return float64(days*24) + HourDecimal(t)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
