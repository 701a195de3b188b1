package layout

import (
	"fmt"
	"time"

	appLog "timelinecal/internal/log"
	"timelinecal/internal/model"
)

// DayResult is the packed output for one displayed date.
type DayResult struct {
	Date     time.Time
	Events   []model.PackedEvent
	Rejected []*model.IntervalError
}

// GroupByDate buckets events by the calendar date of their start,
// preserving input order inside each bucket.
func GroupByDate(events []model.Event) map[string][]model.Event {
	out := make(map[string][]model.Event)
	for _, ev := range events {
		k := ev.DateKey()
		out[k] = append(out[k], ev)
	}
	return out
}

// PackDays packs a multi-day view. cfg.ScreenWidth is the width of all
// day columns together; it and both spacings are divided evenly between
// the dates. Events on dates that are not displayed are ignored.
func PackDays(events []model.Event, dates []time.Time, cfg Config) ([]DayResult, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("layout: %w", &model.ConfigError{Field: "number_of_days", Value: 0, Reason: "must be positive"})
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	n := float64(len(dates))
	dayCfg := cfg
	dayCfg.ScreenWidth = cfg.ScreenWidth / n
	dayCfg.OverlapEventsSpacing = cfg.OverlapEventsSpacing / n
	dayCfg.RightEdgeSpacing = cfg.RightEdgeSpacing / n

	groups := GroupByDate(events)
	out := make([]DayResult, 0, len(dates))
	used := 0

	for _, d := range dates {
		key := model.DateKey(d)
		res, err := Pack(groups[key], dayCfg)
		if err != nil {
			return nil, err
		}
		used += len(groups[key])
		out = append(out, DayResult{Date: d, Events: res.Events, Rejected: res.Rejected})
	}

	if skipped := len(events) - used; skipped > 0 {
		appLog.Debug("layout: events outside displayed dates", "count", skipped, "days", len(dates))
	}
	return out, nil
}
