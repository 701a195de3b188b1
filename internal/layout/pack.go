// Package layout turns a day's events into non-overlapping pixel blocks.
//
// Events are sorted, split into overlap clusters, and every cluster is
// colored greedily: an event takes the lowest column whose previous
// occupant has already ended, or opens a new one. All events of a cluster
// share the cluster's column count for their width. A later event never
// widens to reclaim space freed by an earlier neighbor.
package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"timelinecal/internal/coord"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/model"
)

// Result is the output of Pack. Events are in layout order and each
// Index equals its position in Events.
type Result struct {
	Events   []model.PackedEvent
	Rejected []*model.IntervalError
}

type item struct {
	ev  model.Event
	seq int

	// end is the effective end used for clustering. Zero-length events
	// get the span of the block's minimum height.
	end time.Time

	column  int
	columns int
}

// Pack lays out one day's events in a single column coordinate space.
//
// Events ending before they start are left out and reported in
// Result.Rejected; the rest still get a layout. Invalid configuration
// fails the whole call with an error wrapping model.ErrOutOfRangeConfig.
func Pack(events []model.Event, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("layout: %w", err)
	}
	v, _ := cfg.vertical()

	res := Result{Events: make([]model.PackedEvent, 0, len(events))}
	items := make([]item, 0, len(events))
	minDur := cfg.minDuration()

	for i, ev := range events {
		if err := model.CheckInterval(ev); err != nil {
			var ie *model.IntervalError
			if errors.As(err, &ie) {
				res.Rejected = append(res.Rejected, ie)
			}
			appLog.Error("layout: event rejected", err, "id", ev.ID, "title", ev.Title)
			continue
		}
		end := ev.End
		if end.Equal(ev.Start) {
			end = ev.Start.Add(minDur)
		}
		items = append(items, item{ev: ev, seq: i, end: end})
	}

	sortItems(items)
	assignColumns(items)

	minHeight := cfg.minHeight()
	gridHeight := v.Height()
	usable := cfg.ScreenWidth - cfg.RightEdgeSpacing

	for i, it := range items {
		width := usable/float64(it.columns) - cfg.OverlapEventsSpacing
		if width < 0 {
			width = 0
		}
		left := float64(it.column) * (width + cfg.OverlapEventsSpacing)

		startH := v.ClampDecimal(coord.HourDecimal(it.ev.Start))
		endH := v.ClampDecimal(coord.HoursSince(it.ev.Start, it.ev.End))
		top := v.OffsetOfDecimal(startH)
		height := math.Max((endH-startH)*cfg.HourBlockHeight, minHeight)
		// The floor never pushes a block past the bottom of the grid.
		height = math.Min(height, gridHeight-top)

		res.Events = append(res.Events, model.PackedEvent{
			Event:  it.ev,
			Index:  i,
			Left:   left,
			Top:    top,
			Width:  width,
			Height: height,
		})
	}

	return res, nil
}

// sortItems orders by start, then longer first, then by content so the
// result does not depend on input order.
func sortItems(items []item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.ev.Start.Equal(b.ev.Start) {
			return a.ev.Start.Before(b.ev.Start)
		}
		if !a.ev.End.Equal(b.ev.End) {
			return a.ev.End.After(b.ev.End)
		}
		if c := compareContent(a.ev, b.ev); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	})
}

func compareContent(a, b model.Event) int {
	if c := strings.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	if c := strings.Compare(a.Summary, b.Summary); c != 0 {
		return c
	}
	return strings.Compare(a.Color, b.Color)
}

// assignColumns sweeps sorted items, closing a cluster whenever an item
// starts at or after the cluster's furthest end.
func assignColumns(items []item) {
	var (
		cluster   []int
		colEnds   []time.Time
		activeEnd time.Time
	)

	flush := func() {
		for _, i := range cluster {
			items[i].columns = len(colEnds)
		}
		cluster = cluster[:0]
		colEnds = colEnds[:0]
	}

	for i := range items {
		it := &items[i]
		if len(cluster) > 0 && !it.ev.Start.Before(activeEnd) {
			flush()
		}
		if len(cluster) == 0 || it.end.After(activeEnd) {
			activeEnd = it.end
		}

		col := -1
		for c, end := range colEnds {
			if !end.After(it.ev.Start) {
				col = c
				break
			}
		}
		if col < 0 {
			col = len(colEnds)
			colEnds = append(colEnds, it.end)
		} else {
			colEnds[col] = it.end
		}

		it.column = col
		cluster = append(cluster, i)
	}
	flush()
}
