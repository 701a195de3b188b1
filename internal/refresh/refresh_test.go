package refresh

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"timelinecal/internal/ics"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/metrics"
	"timelinecal/internal/model"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func ev(id string, h int) model.Event {
	start := time.Date(2026, 10, 19, h, 0, 0, 0, time.UTC)
	return model.Event{ID: id, Title: id, Start: start, End: start.Add(time.Hour)}
}

type fakeLoader struct {
	events []model.Event
	err    error
	calls  int
}

func (f *fakeLoader) Load(context.Context) ([]model.Event, error) {
	f.calls++
	return f.events, f.err
}

func TestStoreBetween(t *testing.T) {
	s := NewStore()
	s.Set([]model.Event{ev("late", 15), ev("early", 8), ev("next-day", 9+24)}, nil)

	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	got := s.Between(from, from.AddDate(0, 0, 1))
	if len(got) != 2 || got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("got %+v", got)
	}
	if s.Len() != 3 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	in := []model.Event{ev("a", 9)}
	s.Set(in, nil)
	in[0].Title = "changed"

	out := s.Events()
	if out[0].Title != "a" {
		t.Fatalf("store aliased input: %q", out[0].Title)
	}
	out[0].Title = "changed"
	if s.Events()[0].Title != "a" {
		t.Fatal("store aliased output")
	}
}

func TestRunOnceKeepsEventsOnTotalFailure(t *testing.T) {
	s := NewStore()
	s.Set([]model.Event{ev("old", 9)}, nil)

	loader := &fakeLoader{err: errors.New("offline")}
	r, err := NewRunner(s, loader, "*/5 * * * *", metrics.New())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := s.Events(); len(got) != 1 || got[0].ID != "old" {
		t.Fatalf("events=%+v", got)
	}
	if _, lastErr := s.Status(); lastErr == nil {
		t.Fatal("last error not recorded")
	}
}

func TestRunOnceStoresPartialLoad(t *testing.T) {
	s := NewStore()
	loader := &fakeLoader{events: []model.Event{ev("new", 10)}, err: errors.New("one feed down")}
	r, _ := NewRunner(s, loader, "@every 1h", nil)

	_ = r.RunOnce(context.Background())
	if got := s.Events(); len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("events=%+v", got)
	}
}

func TestNewRunnerRejectsBadSchedule(t *testing.T) {
	if _, err := NewRunner(NewStore(), &fakeLoader{}, "every now and then", nil); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestStartSchedulesAndStops(t *testing.T) {
	s := NewStore()
	loader := &fakeLoader{events: []model.Event{ev("a", 9)}}
	r, err := NewRunner(s, loader, "0 0 1 1 *", nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if !r.Next().IsZero() {
		t.Fatal("next should be zero before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if loader.calls != 1 || s.Len() != 1 {
		t.Fatalf("initial load not run: calls=%d len=%d", loader.calls, s.Len())
	}
	if r.Next().Month() != time.January {
		t.Fatalf("next=%v", r.Next())
	}
}

func TestSourceLoader(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//timelinecal//test//EN",
		"BEGIN:VEVENT",
		"UID:feed-1",
		"DTSTAMP:20261001T000000Z",
		"DTSTART:20261019T120000Z",
		"DTEND:20261019T130000Z",
		"SUMMARY:Lunch",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n") + "\r\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down.ics" {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	bad := ev("bad", 9)
	bad.End = bad.Start.Add(-time.Minute)

	l := &SourceLoader{
		Static: []model.Event{ev("static", 8), bad},
		Sources: []ics.Source{
			{ID: "feed", URL: srv.URL + "/feed.ics"},
			{ID: "down", URL: srv.URL + "/down.ics"},
		},
		Fetcher: ics.NewFetcher(t.TempDir(), nil).WithClient(srv.Client()),
		Loc:     time.UTC,
	}

	events, err := l.Load(context.Background())
	if len(events) != 2 || events[0].ID != "static" || events[1].ID != "feed-1" {
		t.Fatalf("events=%+v", events)
	}
	if !errors.Is(err, model.ErrInvalidInterval) {
		t.Fatalf("err=%v should include the rejected static event", err)
	}
	if !strings.Contains(err.Error(), "down") {
		t.Fatalf("err=%v should mention the failed feed", err)
	}
}
