package layout

import (
	"math"
	"time"

	"timelinecal/internal/coord"
	"timelinecal/internal/model"
)

const (
	// DefaultHourBlockHeight is the pixel height of one hour row.
	DefaultHourBlockHeight = 100
	// DefaultMinEventHeight keeps one line of title text visible and the
	// block tappable, whatever the event's duration.
	DefaultMinEventHeight = 25
)

// Config controls how one day column of events is packed.
type Config struct {
	// ScreenWidth is the pixel width available to the day's events
	// (the hour label gutter already excluded). Must be > 0.
	ScreenWidth float64

	// DayStart / DayEnd bound the grid in whole hours; geometry is clamped
	// to them. Default 0 and 24.
	DayStart int
	DayEnd   int

	// HourBlockHeight is the pixel height of one hour. Default 100.
	HourBlockHeight float64

	// OverlapEventsSpacing is the horizontal gap between side-by-side
	// events of one cluster. Default 0.
	OverlapEventsSpacing float64

	// RightEdgeSpacing is kept free at the right edge of the column so the
	// background stays reachable for long-press. Default 0.
	RightEdgeSpacing float64

	// MinEventHeight is the height floor for short events. Zero selects
	// DefaultMinEventHeight.
	MinEventHeight float64
}

// DefaultConfig returns a full-day configuration for the given width.
func DefaultConfig(screenWidth float64) Config {
	return Config{
		ScreenWidth:     screenWidth,
		DayStart:        0,
		DayEnd:          24,
		HourBlockHeight: DefaultHourBlockHeight,
		MinEventHeight:  DefaultMinEventHeight,
	}
}

// Validate reports an OutOfRangeConfig error for parameters that cannot
// produce a layout.
func (c Config) Validate() error {
	if _, err := c.vertical(); err != nil {
		return err
	}
	if !(c.ScreenWidth > 0) || math.IsInf(c.ScreenWidth, 0) {
		return &model.ConfigError{Field: "screen_width", Value: c.ScreenWidth, Reason: "must be a positive number"}
	}
	if c.OverlapEventsSpacing < 0 {
		return &model.ConfigError{Field: "overlap_events_spacing", Value: c.OverlapEventsSpacing, Reason: "must not be negative"}
	}
	if c.RightEdgeSpacing < 0 || c.RightEdgeSpacing >= c.ScreenWidth {
		return &model.ConfigError{Field: "right_edge_spacing", Value: c.RightEdgeSpacing, Reason: "must be within [0, screen_width)"}
	}
	if c.MinEventHeight < 0 {
		return &model.ConfigError{Field: "min_event_height", Value: c.MinEventHeight, Reason: "must not be negative"}
	}
	return nil
}

func (c Config) vertical() (coord.Vertical, error) {
	return coord.NewVertical(c.HourBlockHeight, model.DayRange{Start: c.DayStart, End: c.DayEnd}, 0)
}

func (c Config) minHeight() float64 {
	if c.MinEventHeight == 0 {
		return DefaultMinEventHeight
	}
	return c.MinEventHeight
}

// minDuration is the time span covered by minHeight pixels.
func (c Config) minDuration() time.Duration {
	return time.Duration(c.minHeight() / c.HourBlockHeight * float64(time.Hour))
}
