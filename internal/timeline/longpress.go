package timeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"timelinecal/internal/config"
	"timelinecal/internal/coord"
	"timelinecal/internal/model"
)

// NewEventTime is what a long-press on empty background resolves to.
type NewEventTime struct {
	model.TimeOfDay
	Date       string `json:"date"`
	TimeString string `json:"time_string"`

	day time.Time
}

// Start returns the instant the press points at.
func (n NewEventTime) Start() time.Time {
	return coord.At(n.day, n.TimeOfDay)
}

// DraftDuration is the length of an event created by long-press.
const DraftDuration = time.Hour

// DraftTitle is the placeholder title of an event created by long-press.
const DraftTitle = "New Event"

// DraftEvent builds the placeholder event for nt. An empty id gets a
// fresh UUID.
func DraftEvent(nt NewEventTime, id string) model.Event {
	if id == "" {
		id = uuid.NewString()
	}
	start := nt.Start()
	return model.Event{
		ID:    id,
		Start: start,
		End:   start.Add(DraftDuration),
		Title: DraftTitle,
	}
}

// LongPress tracks one press gesture over a frame. The zero value is not
// usable; build it with NewLongPress.
type LongPress struct {
	v     coord.Vertical
	h     coord.Horizontal
	dates []time.Time

	mu      sync.Mutex
	pending *NewEventTime
}

// NewLongPress binds a gesture tracker to the frame's grid.
func NewLongPress(f Frame) (*LongPress, error) {
	opts := f.Options
	v, err := coord.NewVertical(opts.HourBlockHeight, opts.DayRange(), opts.SnapMinutes)
	if err != nil {
		return nil, err
	}
	h, err := coord.NewHorizontal(opts.ScreenWidth, opts.LeftInset, opts.NumberOfDays)
	if err != nil {
		return nil, err
	}
	return &LongPress{v: v, h: h, dates: f.Dates()}, nil
}

// Resolve maps a content-space point (y already includes scroll) to a time
// and date without touching the gesture state.
func Resolve(opts config.TimelineConfig, dates []time.Time, x, y float64) (NewEventTime, error) {
	v, err := coord.NewVertical(opts.HourBlockHeight, opts.DayRange(), opts.SnapMinutes)
	if err != nil {
		return NewEventTime{}, err
	}
	h, err := coord.NewHorizontal(opts.ScreenWidth, opts.LeftInset, opts.NumberOfDays)
	if err != nil {
		return NewEventTime{}, err
	}
	return resolve(v, h, dates, x, y)
}

func resolve(v coord.Vertical, h coord.Horizontal, dates []time.Time, x, y float64) (NewEventTime, error) {
	day, err := h.DateAt(x, dates)
	if err != nil {
		return NewEventTime{}, err
	}
	t := v.TimeAt(y)
	date := model.DateKey(day)
	return NewEventTime{
		TimeOfDay:  t,
		Date:       date,
		TimeString: coord.BuildTimeString(date, t),
		day:        day,
	}, nil
}

// Press records the point under the pointer and returns its time.
func (lp *LongPress) Press(x, y float64) (NewEventTime, error) {
	nt, err := resolve(lp.v, lp.h, lp.dates, x, y)
	if err != nil {
		return NewEventTime{}, err
	}
	lp.mu.Lock()
	lp.pending = &nt
	lp.mu.Unlock()
	return nt, nil
}

// Release ends the gesture, returning the pressed time if there was one.
func (lp *LongPress) Release() (NewEventTime, bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.pending == nil {
		return NewEventTime{}, false
	}
	nt := *lp.pending
	lp.pending = nil
	return nt, true
}
