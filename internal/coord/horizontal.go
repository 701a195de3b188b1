package coord

import (
	"errors"
	"math"
	"time"

	"timelinecal/internal/model"
)

// Horizontal maps an x offset to one of NumberOfDays equal-width columns
// laid out to the right of LeftInset (the hour label gutter).
type Horizontal struct {
	ScreenWidth  float64
	LeftInset    float64
	NumberOfDays int
}

// NewHorizontal validates the parameters and returns a ready mapper.
func NewHorizontal(screenWidth, leftInset float64, numberOfDays int) (Horizontal, error) {
	h := Horizontal{ScreenWidth: screenWidth, LeftInset: leftInset, NumberOfDays: numberOfDays}
	if err := h.Validate(); err != nil {
		return Horizontal{}, err
	}
	return h, nil
}

func (h Horizontal) Validate() error {
	if h.NumberOfDays <= 0 {
		return &model.ConfigError{Field: "number_of_days", Value: h.NumberOfDays, Reason: "must be positive"}
	}
	if !(h.ScreenWidth > 0) || math.IsInf(h.ScreenWidth, 0) {
		return &model.ConfigError{Field: "screen_width", Value: h.ScreenWidth, Reason: "must be a positive number"}
	}
	if h.LeftInset < 0 || h.LeftInset >= h.ScreenWidth {
		return &model.ConfigError{Field: "left_inset", Value: h.LeftInset, Reason: "must be within [0, screen_width)"}
	}
	return nil
}

// DayWidth is the width of a single day column.
func (h Horizontal) DayWidth() float64 {
	return (h.ScreenWidth - h.LeftInset) / float64(h.NumberOfDays)
}

// DayLeft is the x offset where column i starts.
func (h Horizontal) DayLeft(i int) float64 {
	return h.LeftInset + float64(i)*h.DayWidth()
}

// DayIndexAt returns the column under x, clamped to [0, NumberOfDays-1].
func (h Horizontal) DayIndexAt(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	idx := math.Floor((x - h.LeftInset) / h.DayWidth())
	idx = clamp(idx, 0, float64(h.NumberOfDays-1))
	return int(idx)
}

var errNoBaseDates = errors.New("coord: no base dates")

// DateAt returns the date of the column under x. baseDates[i] is the date
// of column i; if fewer dates than columns are given, missing columns
// continue day by day from baseDates[0].
func (h Horizontal) DateAt(x float64, baseDates []time.Time) (time.Time, error) {
	if len(baseDates) == 0 {
		return time.Time{}, errNoBaseDates
	}
	i := h.DayIndexAt(x)
	if i < len(baseDates) {
		return baseDates[i], nil
	}
	return baseDates[0].AddDate(0, 0, i), nil
}
