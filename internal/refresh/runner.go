package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"timelinecal/internal/config"
	"timelinecal/internal/ics"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/metrics"
	"timelinecal/internal/model"
)

// Loader produces the full event set. A non-nil error with events means a
// partial load (e.g. one feed failed).
type Loader interface {
	Load(ctx context.Context) ([]model.Event, error)
}

// SourceLoader loads the static config events plus every ICS feed.
type SourceLoader struct {
	Static  []model.Event
	Sources []ics.Source
	Fetcher *ics.Fetcher
	Loc     *time.Location
}

// NewSourceLoader wires a loader from configuration.
func NewSourceLoader(cfg *config.Config, m *metrics.Metrics) *SourceLoader {
	return &SourceLoader{
		Static:  cfg.Events,
		Sources: ics.SourcesFromConfig(cfg.ICS),
		Fetcher: ics.NewFetcher(cfg.CacheDir, m),
		Loc:     cfg.Location(),
	}
}

func (l *SourceLoader) Load(ctx context.Context) ([]model.Event, error) {
	events := make([]model.Event, 0, len(l.Static))
	var errs []error

	for _, ev := range l.Static {
		if err := model.CheckInterval(ev); err != nil {
			errs = append(errs, err)
			continue
		}
		if l.Loc != nil {
			ev.Start, ev.End = ev.Start.In(l.Loc), ev.End.In(l.Loc)
		}
		events = append(events, ev)
	}

	if len(l.Sources) == 0 || l.Fetcher == nil {
		return events, errors.Join(errs...)
	}

	results, fetchErrs := l.Fetcher.FetchAll(ctx, l.Sources)
	errs = append(errs, fetchErrs...)
	for _, res := range results {
		parsed, err := ics.ParseICS(res.Source, res.Body, l.Loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh: parse %s: %w", res.Source.ID, err))
			continue
		}
		events = append(events, parsed...)
	}
	return events, errors.Join(errs...)
}

// Runner reloads a Store from a Loader on a cron schedule.
type Runner struct {
	store    *Store
	loader   Loader
	metrics  *metrics.Metrics
	schedule string

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRunner validates schedule (standard 5-field cron) up front.
func NewRunner(store *Store, loader Loader, schedule string, m *metrics.Metrics) (*Runner, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("refresh: invalid schedule %q: %w", schedule, err)
	}
	return &Runner{store: store, loader: loader, metrics: m, schedule: schedule}, nil
}

// RunOnce performs a single reload. Events from a partial load replace
// the store; a load that produced nothing and failed keeps the old set.
func (r *Runner) RunOnce(ctx context.Context) error {
	start := time.Now()
	events, err := r.loader.Load(ctx)

	if err != nil && len(events) == 0 {
		r.store.SetError(err)
		r.metrics.Refresh(err, r.store.Len())
		appLog.Error("refresh failed; keeping previous events", err, "kept", r.store.Len())
		return err
	}

	r.store.Set(events, err)
	r.metrics.Refresh(err, len(events))
	if err != nil {
		appLog.Warn("refresh partially failed", "events", len(events), "err", err)
	} else {
		appLog.Info("refresh completed", "events", len(events), "elapsed", time.Since(start).String())
	}
	return err
}

// Start runs an initial reload and schedules the rest. The scheduler stops
// when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	_ = r.RunOnce(ctx)

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() { _ = r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("refresh: schedule: %w", err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", r.schedule)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// Next returns the next scheduled run, or the zero time before Start.
func (r *Runner) Next() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron == nil {
		return time.Time{}
	}
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
