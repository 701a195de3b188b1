package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInterval marks an event whose End is before its Start.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrOutOfRangeConfig marks layout parameters that admit no sensible result.
	ErrOutOfRangeConfig = errors.New("config out of range")
)

// IntervalError describes one rejected event. It unwraps to ErrInvalidInterval.
type IntervalError struct {
	EventID string
	Title   string
	Start   time.Time
	End     time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval: event %q (%s) ends %s before it starts %s",
		e.EventID, e.Title, e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// ConfigError names the offending parameter. It unwraps to ErrOutOfRangeConfig.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config out of range: %s=%v %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrOutOfRangeConfig }

// CheckInterval returns an *IntervalError when ev.End is before ev.Start.
// Zero-length events are accepted; the layout gives them a height floor.
func CheckInterval(ev Event) error {
	if ev.End.Before(ev.Start) {
		return &IntervalError{EventID: ev.ID, Title: ev.Title, Start: ev.Start, End: ev.End}
	}
	return nil
}
