package render

import (
	"encoding/xml"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"timelinecal/internal/config"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/model"
	"timelinecal/internal/now"
	"timelinecal/internal/timeline"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func packed(height float64, title, summary string) model.PackedEvent {
	start := time.Date(2026, 10, 19, 13, 5, 0, 0, time.UTC)
	return model.PackedEvent{
		Event: model.Event{
			Title:   title,
			Summary: summary,
			Start:   start,
			End:     start.Add(90 * time.Minute),
		},
		Height: height,
	}
}

func TestBlockLines(t *testing.T) {
	tests := []struct {
		name        string
		ev          model.PackedEvent
		format24h   bool
		wantLines   int
		wantTitle   string
		wantSummary int
		wantTimes   string
	}{
		{
			name:      "floor height shows title only",
			ev:        packed(25, "", "ignored"),
			format24h: true,
			wantLines: 1,
			wantTitle: DefaultTitle,
		},
		{
			name:        "two lines add summary",
			ev:          packed(34, "Standup", "daily sync"),
			format24h:   true,
			wantLines:   2,
			wantTitle:   "Standup",
			wantSummary: 1,
		},
		{
			name:        "three lines add times",
			ev:          packed(51, "Review", "code review"),
			format24h:   true,
			wantLines:   3,
			wantTitle:   "Review",
			wantSummary: 1,
			wantTimes:   "13:05 - 14:35",
		},
		{
			name:      "12h times",
			ev:        packed(150, "Lunch", ""),
			wantLines: 8,
			wantTitle: "Lunch",
			wantTimes: "01:05 PM - 02:35 PM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BlockLines(tt.ev, tt.format24h, 0)
			if b.Lines != tt.wantLines || b.Title != tt.wantTitle || len(b.Summary) != tt.wantSummary || b.Times != tt.wantTimes {
				t.Fatalf("got %+v", b)
			}
			if b.Color != DefaultEventColor {
				t.Fatalf("color=%q", b.Color)
			}
		})
	}
}

func TestBlockLinesWrapsSummary(t *testing.T) {
	ev := packed(100, "Planning", "quarterly planning with the whole team")
	ev.Color = "#ff0"
	b := BlockLines(ev, true, 10)
	// 5 lines: title, times, at most 3 summary lines.
	if len(b.Summary) != 3 {
		t.Fatalf("summary=%q", b.Summary)
	}
	for _, l := range b.Summary {
		if len(l) > 10 {
			t.Fatalf("line %q longer than wrap width", l)
		}
	}
	if b.Color != "#ff0" {
		t.Fatalf("color=%q", b.Color)
	}
}

func TestSVG(t *testing.T) {
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	opts := config.DefaultConfig().Timeline
	events := []model.Event{
		{ID: "a", Title: "Design <review>", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
		{ID: "b", Title: "Q&A", Start: day.Add(9*time.Hour + 30*time.Minute), End: day.Add(11 * time.Hour), Color: "#ffcc00"},
	}
	f, err := timeline.Compose(events, []time.Time{day}, opts, now.FixedClock{T: day.Add(14 * time.Hour)})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	out := SVG(f, DefaultOptions())
	s := string(out)

	if !strings.Contains(s, `data-ready="true"`) {
		t.Fatal("missing readiness marker")
	}
	if !strings.Contains(s, "Design &lt;review&gt;") || !strings.Contains(s, "Q&amp;A") {
		t.Fatalf("titles not escaped:\n%s", s)
	}
	if !strings.Contains(s, `fill="#ffcc00"`) || !strings.Contains(s, `fill="#add8e6"`) {
		t.Fatal("event colors missing")
	}
	if !strings.Contains(s, `class="now"`) {
		t.Fatal("now marker missing")
	}
	if !strings.Contains(s, ">23:59<") {
		t.Fatal("last hour label missing")
	}

	// Must be well-formed XML.
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("invalid XML: %v", err)
		}
	}
}

func TestCharsFor(t *testing.T) {
	if got := charsFor(100, 10); got != 16 {
		t.Fatalf("got %d", got)
	}
	if got := charsFor(-5, 12); got != 1 {
		t.Fatalf("got %d", got)
	}
}
