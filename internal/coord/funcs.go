package coord

import (
	"fmt"
	"strings"
	"time"

	"timelinecal/internal/model"
)

var fullDay = model.DayRange{Start: 0, End: 24}

// TimeFromVerticalOffset is the one-shot form of Vertical.TimeAt.
func TimeFromVerticalOffset(y, hourBlockHeight float64, r model.DayRange, snapMinutes int) (model.TimeOfDay, error) {
	v, err := NewVertical(hourBlockHeight, r, snapMinutes)
	if err != nil {
		return model.TimeOfDay{}, err
	}
	return v.TimeAt(y), nil
}

// VerticalOffsetFromTime returns (hour + minutes/60) * hourBlockHeight on a
// grid that starts at midnight.
func VerticalOffsetFromTime(hour, minutes int, hourBlockHeight float64) (float64, error) {
	v, err := NewVertical(hourBlockHeight, fullDay, 0)
	if err != nil {
		return 0, err
	}
	return v.OffsetOf(hour, minutes), nil
}

// DateFromHorizontalOffset is the one-shot form of Horizontal.DateAt.
func DateFromHorizontalOffset(x, screenWidth, leftInset float64, numberOfDays int, baseDates []time.Time) (time.Time, error) {
	h, err := NewHorizontal(screenWidth, leftInset, numberOfDays)
	if err != nil {
		return time.Time{}, err
	}
	return h.DateAt(x, baseDates)
}

// FormatClock renders t as "HH:mm".
func FormatClock(t model.TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minutes)
}

// BuildTimeString renders "YYYY-MM-DD HH:mm:00", or just "HH:mm:00" when
// date is empty. This is the string handed to long-press callbacks.
func BuildTimeString(date string, t model.TimeOfDay) string {
	return strings.TrimSpace(fmt.Sprintf("%s %02d:%02d:00", date, t.Hour, t.Minutes))
}

// At returns the instant on day's date at t, in day's location.
func At(day time.Time, t model.TimeOfDay) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minutes, 0, 0, day.Location())
}
