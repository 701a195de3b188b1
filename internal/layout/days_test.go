package layout

import (
	"errors"
	"testing"
	"time"

	"timelinecal/internal/model"
)

func TestPackDaysSplitsWidth(t *testing.T) {
	d0 := day
	d1 := day.AddDate(0, 0, 1)
	events := []model.Event{
		ev("a", 9, 0, 10, 0),
		ev("b", 9, 30, 10, 30),
		{ID: "c", Start: d1.Add(14 * time.Hour), End: d1.Add(15 * time.Hour)},
		{ID: "far", Start: d1.AddDate(0, 0, 5), End: d1.AddDate(0, 0, 5).Add(time.Hour)},
	}
	c := cfg(600)
	c.OverlapEventsSpacing = 8
	c.RightEdgeSpacing = 20

	days, err := PackDays(events, []time.Time{d0, d1}, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days", len(days))
	}
	if !days[0].Date.Equal(d0) || len(days[0].Events) != 2 {
		t.Fatalf("day 0: %+v", days[0])
	}
	// Per day: width 300, right edge 10, spacing 4.
	for _, pe := range days[0].Events {
		if !approx(pe.Width, (300-10)/2.0-4) {
			t.Errorf("%s width=%v", pe.ID, pe.Width)
		}
	}
	if len(days[1].Events) != 1 || days[1].Events[0].ID != "c" {
		t.Fatalf("day 1: %+v", days[1].Events)
	}
	if got := days[1].Events[0]; !approx(got.Width, 300-10-4) || got.Top != 1400 {
		t.Fatalf("day 1 geometry: %+v", got)
	}
}

func TestPackDaysEmptyDay(t *testing.T) {
	days, err := PackDays(nil, []time.Time{day}, cfg(300))
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || len(days[0].Events) != 0 {
		t.Fatalf("got %+v", days)
	}
}

func TestPackDaysNoDates(t *testing.T) {
	_, err := PackDays(nil, nil, cfg(300))
	if !errors.Is(err, model.ErrOutOfRangeConfig) {
		t.Fatalf("want ErrOutOfRangeConfig, got %v", err)
	}
}

func TestGroupByDate(t *testing.T) {
	groups := GroupByDate([]model.Event{
		ev("a", 9, 0, 10, 0),
		{ID: "b", Start: day.AddDate(0, 0, 1), End: day.AddDate(0, 0, 1).Add(time.Hour)},
		ev("c", 11, 0, 12, 0),
	})
	if len(groups["2026-10-19"]) != 2 || groups["2026-10-19"][1].ID != "c" {
		t.Fatalf("groups=%+v", groups)
	}
	if len(groups["2026-10-20"]) != 1 {
		t.Fatalf("groups=%+v", groups)
	}
}
