package grid

import (
	"fmt"

	"timelinecal/internal/coord"
	"timelinecal/internal/model"
)

// HourMark is one labelled row boundary of the grid.
type HourMark struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
	// Top is the y of the hour line; HalfTop the y of the half-hour line.
	Top     float64 `json:"top"`
	HalfTop float64 `json:"half_top"`
	// ShowLine is false for the first mark (the grid's top edge).
	ShowLine bool `json:"show_line"`
	// ShowHalf is false for the last mark, which has no row below it.
	ShowHalf bool `json:"show_half"`
}

// Hours returns one mark per hour from dayRange.Start to dayRange.End
// inclusive. The first mark carries no label.
func Hours(dayRange model.DayRange, hourBlockHeight float64, format24h bool) ([]HourMark, error) {
	v, err := coord.NewVertical(hourBlockHeight, dayRange, 0)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}

	marks := make([]HourMark, 0, dayRange.Hours()+1)
	for h := dayRange.Start; h <= dayRange.End; h++ {
		m := HourMark{
			Hour:     h,
			Top:      v.OffsetOf(h, 0),
			HalfTop:  v.OffsetOf(h, 30),
			ShowLine: h != dayRange.Start,
			ShowHalf: h != dayRange.End,
		}
		if h != dayRange.Start {
			m.Label = HourLabel(h, format24h)
		}
		marks = append(marks, m)
	}
	return marks, nil
}

// HourLabel formats a grid hour: "09:00" / "23:59" for 24 in 24h mode,
// "9 AM", "12 PM", "1 PM", "12 AM" in 12h mode.
func HourLabel(h int, format24h bool) string {
	if format24h {
		if h == 24 {
			return "23:59"
		}
		return fmt.Sprintf("%02d:00", h)
	}
	switch {
	case h == 0 || h == 24:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}

// DayDividers returns the x of each vertical line separating day columns
// (one per column boundary, including the right edge of the last day).
func DayDividers(h coord.Horizontal) []float64 {
	xs := make([]float64, 0, h.NumberOfDays)
	for i := 1; i <= h.NumberOfDays; i++ {
		xs = append(xs, h.DayLeft(i))
	}
	return xs
}
