package layout

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"testing"
	"time"

	appLog "timelinecal/internal/log"
	"timelinecal/internal/model"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var day = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func ev(id string, sh, sm, eh, em int) model.Event {
	return model.Event{ID: id, Title: "event " + id, Start: at(sh, sm), End: at(eh, em)}
}

func cfg(width float64) Config {
	c := DefaultConfig(width)
	return c
}

func mustPack(t *testing.T, events []model.Event, c Config) Result {
	t.Helper()
	res, err := Pack(events, c)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	return res
}

func byID(res Result) map[string]model.PackedEvent {
	out := make(map[string]model.PackedEvent, len(res.Events))
	for _, pe := range res.Events {
		out[pe.ID] = pe
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPackSingleEvent(t *testing.T) {
	res := mustPack(t, []model.Event{ev("a", 9, 0, 10, 0)}, cfg(300))
	if len(res.Events) != 1 {
		t.Fatalf("got %d events", len(res.Events))
	}
	pe := res.Events[0]
	if pe.Top != 900 || pe.Height != 100 {
		t.Fatalf("top=%v height=%v want 900/100", pe.Top, pe.Height)
	}
	if pe.Left != 0 || pe.Width != 300 || pe.Index != 0 {
		t.Fatalf("left=%v width=%v index=%d", pe.Left, pe.Width, pe.Index)
	}
}

func TestPackTwoOverlapping(t *testing.T) {
	res := mustPack(t, []model.Event{ev("b", 9, 30, 10, 30), ev("a", 9, 0, 10, 0)}, cfg(300))
	got := byID(res)
	if got["a"].Width != 150 || got["b"].Width != 150 {
		t.Fatalf("widths a=%v b=%v want 150", got["a"].Width, got["b"].Width)
	}
	if got["a"].Left != 0 || got["b"].Left != 150 {
		t.Fatalf("lefts a=%v b=%v want 0/150", got["a"].Left, got["b"].Left)
	}
	if res.Events[0].ID != "a" || res.Events[0].Index != 0 || res.Events[1].Index != 1 {
		t.Fatalf("output should be in start order with matching indexes: %+v", res.Events)
	}
}

func TestPackColumnReuse(t *testing.T) {
	res := mustPack(t, []model.Event{
		ev("1", 9, 0, 11, 0),
		ev("2", 9, 30, 10, 0),
		ev("3", 10, 15, 10, 45),
	}, cfg(300))
	got := byID(res)
	for id, wantLeft := range map[string]float64{"1": 0, "2": 150, "3": 150} {
		if got[id].Width != 150 {
			t.Errorf("event %s width=%v want 150 (two columns)", id, got[id].Width)
		}
		if got[id].Left != wantLeft {
			t.Errorf("event %s left=%v want %v", id, got[id].Left, wantLeft)
		}
	}
}

func TestPackNonOverlappingGetFullWidth(t *testing.T) {
	c := cfg(400)
	c.OverlapEventsSpacing = 8
	c.RightEdgeSpacing = 24
	res := mustPack(t, []model.Event{
		ev("a", 8, 0, 9, 0),
		ev("b", 9, 0, 10, 0), // touching is not overlapping
		ev("c", 13, 0, 14, 30),
	}, c)
	for _, pe := range res.Events {
		if pe.Left != 0 || !approx(pe.Width, 400-24-8) {
			t.Errorf("%s: left=%v width=%v", pe.ID, pe.Left, pe.Width)
		}
	}
}

func TestPackAllMutuallyOverlapping(t *testing.T) {
	c := cfg(360)
	c.OverlapEventsSpacing = 4
	c.RightEdgeSpacing = 20
	const n = 6
	events := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, ev(fmt.Sprint(i), 9, i, 12, 0))
	}
	res := mustPack(t, events, c)

	want := (360.0-20)/n - 4
	lefts := map[float64]bool{}
	for _, pe := range res.Events {
		if !approx(pe.Width, want) {
			t.Errorf("%s width=%v want %v", pe.ID, pe.Width, want)
		}
		lefts[pe.Left] = true
	}
	if len(lefts) != n {
		t.Fatalf("expected %d distinct columns, got %d", n, len(lefts))
	}
}

func TestPackStableUnderShuffle(t *testing.T) {
	events := []model.Event{
		ev("a", 9, 0, 11, 0),
		ev("b", 9, 0, 11, 0),
		ev("c", 9, 0, 10, 0),
		ev("d", 9, 45, 12, 0),
		ev("e", 10, 30, 11, 15),
		ev("f", 13, 0, 14, 0),
		ev("g", 13, 30, 13, 30),
	}
	c := cfg(500)
	c.OverlapEventsSpacing = 6
	ref := byID(mustPack(t, events, c))

	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		shuffled := append([]model.Event(nil), events...)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := byID(mustPack(t, shuffled, c))
		for id, r := range ref {
			g := got[id]
			if g.Left != r.Left || g.Width != r.Width || g.Top != r.Top || g.Height != r.Height {
				t.Fatalf("round %d: %s geometry changed: %+v vs %+v", round, id, g, r)
			}
		}
	}
}

func TestPackIdenticalIntervalsGetDistinctColumns(t *testing.T) {
	res := mustPack(t, []model.Event{ev("x", 9, 0, 10, 0), ev("y", 9, 0, 10, 0)}, cfg(200))
	got := byID(res)
	if got["x"].Left == got["y"].Left {
		t.Fatalf("identical events share a column: %+v", res.Events)
	}
	if got["x"].Width != 100 || got["y"].Width != 100 {
		t.Fatalf("want width 100, got %v and %v", got["x"].Width, got["y"].Width)
	}
}

func TestPackZeroDuration(t *testing.T) {
	res := mustPack(t, []model.Event{ev("long", 9, 0, 10, 0), ev("point", 9, 0, 9, 0)}, cfg(200))
	got := byID(res)
	if got["point"].Height != DefaultMinEventHeight || got["point"].Top != 900 {
		t.Fatalf("point event geometry %+v", got["point"])
	}
	if got["point"].Left == got["long"].Left {
		t.Fatal("point event should sit beside the overlapping event")
	}

	// Two point events at the same instant still get their own columns.
	res = mustPack(t, []model.Event{ev("p", 12, 0, 12, 0), ev("q", 12, 0, 12, 0)}, cfg(200))
	got = byID(res)
	if got["p"].Left == got["q"].Left {
		t.Fatal("point events merged into one column")
	}
}

func TestPackBackToBackShortEventsKeepFullWidth(t *testing.T) {
	// Each block is floored to 25px, taller than its 10 minutes, but the
	// intervals only touch so no cluster forms.
	res := mustPack(t, []model.Event{
		ev("a", 9, 0, 9, 10),
		ev("b", 9, 10, 9, 20),
		ev("c", 9, 20, 9, 30),
	}, DefaultConfig(300))
	for _, pe := range res.Events {
		if pe.Left != 0 || pe.Width != 300 {
			t.Errorf("%s: left=%v width=%v, want 0 and 300", pe.ID, pe.Left, pe.Width)
		}
		if pe.Height != DefaultMinEventHeight {
			t.Errorf("%s: height=%v", pe.ID, pe.Height)
		}
	}
}

func TestPackLastSlotKeepsStartOffset(t *testing.T) {
	res := mustPack(t, []model.Event{ev("late", 23, 50, 23, 59)}, cfg(300))
	pe := res.Events[0]
	wantTop := (23 + 50.0/60) * 100
	if math.Abs(pe.Top-wantTop) > 1e-9 {
		t.Fatalf("top=%v want %v", pe.Top, wantTop)
	}
	if math.Abs(pe.Top+pe.Height-2400) > 1e-9 {
		t.Fatalf("block ends at %v, want grid bottom 2400", pe.Top+pe.Height)
	}
}

func TestPackClipsToDayRange(t *testing.T) {
	c := cfg(300)
	c.DayStart = 8
	c.DayEnd = 18
	res := mustPack(t, []model.Event{
		ev("early", 7, 0, 9, 0),
		ev("late", 17, 30, 20, 0),
		ev("after", 20, 0, 21, 0),
	}, c)
	got := byID(res)
	if len(got) != 3 {
		t.Fatalf("events dropped: %+v", res.Events)
	}
	if got["early"].Top != 0 || got["early"].Height != 100 {
		t.Errorf("early: %+v", got["early"])
	}
	if got["late"].Top != 950 || got["late"].Height != 50 {
		t.Errorf("late: %+v", got["late"])
	}
	if got["after"].Top != 1000 || got["after"].Height != 0 {
		t.Errorf("after: %+v", got["after"])
	}
}

func TestPackOvernightEventClampsAtMidnight(t *testing.T) {
	e := model.Event{ID: "night", Start: at(23, 0), End: at(23, 0).Add(2 * time.Hour)}
	res := mustPack(t, []model.Event{e}, cfg(300))
	if pe := res.Events[0]; pe.Top != 2300 || pe.Height != 100 {
		t.Fatalf("overnight geometry %+v", pe)
	}
}

func TestPackRejectsReversedInterval(t *testing.T) {
	res := mustPack(t, []model.Event{
		ev("ok1", 9, 0, 10, 0),
		ev("bad", 10, 0, 9, 0),
		ev("ok2", 9, 30, 10, 30),
	}, cfg(300))

	if len(res.Rejected) != 1 || res.Rejected[0].EventID != "bad" {
		t.Fatalf("rejected=%+v", res.Rejected)
	}
	if !errors.Is(res.Rejected[0], model.ErrInvalidInterval) {
		t.Fatal("rejection should wrap ErrInvalidInterval")
	}
	got := byID(res)
	if _, ok := got["bad"]; ok {
		t.Fatal("malformed event present in output")
	}
	if got["ok1"].Width != 150 || got["ok2"].Left != 150 {
		t.Fatalf("siblings laid out wrong: %+v", res.Events)
	}
}

func TestPackEmptyInput(t *testing.T) {
	res := mustPack(t, nil, cfg(300))
	if res.Events == nil || len(res.Events) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", res.Events)
	}
}

func TestPackConfigErrors(t *testing.T) {
	base := cfg(300)
	cases := map[string]func(c *Config){
		"zero hour height":   func(c *Config) { c.HourBlockHeight = 0 },
		"reversed day range": func(c *Config) { c.DayStart, c.DayEnd = 18, 8 },
		"zero width":         func(c *Config) { c.ScreenWidth = 0 },
		"negative spacing":   func(c *Config) { c.OverlapEventsSpacing = -1 },
		"right edge too big": func(c *Config) { c.RightEdgeSpacing = 300 },
		"negative min":       func(c *Config) { c.MinEventHeight = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			_, err := Pack([]model.Event{ev("a", 9, 0, 10, 0)}, c)
			if !errors.Is(err, model.ErrOutOfRangeConfig) {
				t.Fatalf("want ErrOutOfRangeConfig, got %v", err)
			}
		})
	}
}

func TestPackDoesNotMutateInput(t *testing.T) {
	events := []model.Event{ev("b", 10, 0, 11, 0), ev("a", 9, 0, 10, 0)}
	before := append([]model.Event(nil), events...)
	mustPack(t, events, cfg(300))
	for i := range events {
		if events[i] != before[i] {
			t.Fatalf("input changed at %d", i)
		}
	}
}
