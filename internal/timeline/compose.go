// Package timeline assembles everything a renderer needs for one view:
// packed day columns, hour marks, unavailable shading, the now marker and
// the initial scroll position.
package timeline

import (
	"fmt"
	"math"
	"time"

	"timelinecal/internal/config"
	"timelinecal/internal/coord"
	"timelinecal/internal/grid"
	"timelinecal/internal/layout"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/model"
	"timelinecal/internal/now"
)

// Day is one displayed column. Event geometry is relative to Left.
type Day struct {
	Date     string                 `json:"date"`
	Left     float64                `json:"left"`
	Width    float64                `json:"width"`
	Events   []model.PackedEvent    `json:"events"`
	Rejected []*model.IntervalError `json:"rejected,omitempty"`

	date time.Time
}

// Frame is a fully laid out view.
type Frame struct {
	Options       config.TimelineConfig    `json:"-"`
	Width         float64                  `json:"width"`
	LeftInset     float64                  `json:"left_inset"`
	ContentHeight float64                  `json:"content_height"`
	InitialScroll float64                  `json:"initial_scroll"`
	Days          []Day                    `json:"days"`
	Hours         []grid.HourMark          `json:"hours"`
	Dividers      []float64                `json:"dividers"`
	Unavailable   []model.UnavailableBlock `json:"unavailable"`
	Now           *now.Marker              `json:"now,omitempty"`
}

// Dates returns the time.Time of each column.
func (f Frame) Dates() []time.Time {
	out := make([]time.Time, len(f.Days))
	for i, d := range f.Days {
		out[i] = d.date
	}
	return out
}

// EventCount is the number of placed events across all days.
func (f Frame) EventCount() int {
	n := 0
	for _, d := range f.Days {
		n += len(d.Events)
	}
	return n
}

// RejectedCount is the number of events dropped for invalid intervals.
func (f Frame) RejectedCount() int {
	n := 0
	for _, d := range f.Days {
		n += len(d.Rejected)
	}
	return n
}

// Compose lays out events for the given dates. Exactly opts.NumberOfDays
// columns are produced: missing dates continue day by day from dates[0],
// extra dates are ignored.
func Compose(events []model.Event, dates []time.Time, opts config.TimelineConfig, clock now.Clock) (Frame, error) {
	if err := opts.Validate(); err != nil {
		return Frame{}, fmt.Errorf("timeline: %w", err)
	}
	if len(dates) == 0 {
		return Frame{}, fmt.Errorf("timeline: %w", &model.ConfigError{Field: "dates", Value: 0, Reason: "at least one date is required"})
	}
	if clock == nil {
		clock = now.SystemClock{}
	}

	v, err := coord.NewVertical(opts.HourBlockHeight, opts.DayRange(), opts.SnapMinutes)
	if err != nil {
		return Frame{}, fmt.Errorf("timeline: %w", err)
	}
	h, err := coord.NewHorizontal(opts.ScreenWidth, opts.LeftInset, opts.NumberOfDays)
	if err != nil {
		return Frame{}, fmt.Errorf("timeline: %w", err)
	}

	cols := ColumnDates(dates, opts.NumberOfDays)

	results, err := layout.PackDays(events, cols, LayoutConfig(opts))
	if err != nil {
		return Frame{}, fmt.Errorf("timeline: %w", err)
	}

	unavailable, err := grid.BuildUnavailable(opts.Unavailable, opts.DayRange(), opts.HourBlockHeight)
	if err != nil {
		return Frame{}, fmt.Errorf("timeline: %w", err)
	}
	hours, err := grid.Hours(opts.DayRange(), opts.HourBlockHeight, opts.Is24h())
	if err != nil {
		return Frame{}, fmt.Errorf("timeline: %w", err)
	}

	f := Frame{
		Options:       opts,
		Width:         opts.ScreenWidth,
		LeftInset:     opts.LeftInset,
		ContentHeight: v.Height(),
		Days:          make([]Day, 0, len(results)),
		Hours:         hours,
		Dividers:      grid.DayDividers(h),
		Unavailable:   unavailable,
	}
	for i, r := range results {
		f.Days = append(f.Days, Day{
			Date:     model.DateKey(r.Date),
			Left:     h.DayLeft(i),
			Width:    h.DayWidth(),
			Events:   r.Events,
			Rejected: r.Rejected,
			date:     r.Date,
		})
	}

	if opts.ShowNowIndicator {
		if m, ok := now.Indicator(v, h, cols, clock); ok {
			f.Now = &m
		}
	}

	f.InitialScroll = initialScroll(f, opts, v, clock)

	appLog.Debug("timeline: composed",
		"days", len(f.Days),
		"events", f.EventCount(),
		"rejected", f.RejectedCount(),
		"scroll", f.InitialScroll,
	)
	return f, nil
}

// LayoutConfig converts the view configuration to the packer's. The hour
// label gutter is not part of the event area.
func LayoutConfig(opts config.TimelineConfig) layout.Config {
	return layout.Config{
		ScreenWidth:          opts.ScreenWidth - opts.LeftInset,
		DayStart:             opts.Start,
		DayEnd:               opts.End,
		HourBlockHeight:      opts.HourBlockHeight,
		OverlapEventsSpacing: opts.OverlapEventsSpacing,
		RightEdgeSpacing:     opts.RightEdgeSpacing,
		MinEventHeight:       opts.MinEventHeight,
	}
}

// ColumnDates returns exactly n dates, truncated to midnight.
func ColumnDates(dates []time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		if i < len(dates) {
			out[i] = model.StartOfDay(dates[i])
			continue
		}
		out[i] = model.StartOfDay(dates[0]).AddDate(0, 0, i)
	}
	return out
}

// initialScroll picks the first applicable target: now, the earliest
// event of the first day, then the configured initial time. A non-zero
// target is moved up one hour so the context above it is visible.
func initialScroll(f Frame, opts config.TimelineConfig, v coord.Vertical, clock now.Clock) float64 {
	pos := 0.0
	switch {
	case opts.ScrollToNow:
		pos = now.Offset(v, clock)
	case opts.ScrollToFirst && len(f.Days) > 0 && len(f.Days[0].Events) > 0:
		pos = math.Inf(1)
		for _, ev := range f.Days[0].Events {
			pos = math.Min(pos, ev.Top)
		}
	case opts.InitialTime != nil:
		pos = v.OffsetOf(opts.InitialTime.Hour, opts.InitialTime.Minutes)
	}
	if pos == 0 {
		return 0
	}
	return math.Max(0, pos-opts.HourBlockHeight)
}
