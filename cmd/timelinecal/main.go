package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"timelinecal/internal/capture"
	"timelinecal/internal/config"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/metrics"
	"timelinecal/internal/model"
	"timelinecal/internal/now"
	"timelinecal/internal/refresh"
	"timelinecal/internal/render"
	"timelinecal/internal/timeline"
	"timelinecal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	out        string
	png        string
	date       string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("timelinecal starting", "version", "0.1.0")

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Location().String(),
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"static_events", len(conf.Events),
		"days", conf.Timeline.NumberOfDays,
		"hours", fmt.Sprintf("%d-%d", conf.Timeline.Start, conf.Timeline.End),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	store := refresh.NewStore()
	runner, err := refresh.NewRunner(store, refresh.NewSourceLoader(conf, m), conf.RefreshCron, m)
	if err != nil {
		appLog.Error("invalid refresh schedule", err)
		os.Exit(1)
	}
	srv := web.NewServer(conf, store, m, now.SystemClock{})

	if flags.once {
		if err := runOnce(ctx, conf, flags, runner, store, srv, m); err != nil {
			appLog.Error("single run failed", err)
			os.Exit(1)
		}
		return
	}

	if err := runner.Start(ctx); err != nil {
		appLog.Error("failed to start refresh scheduler", err)
		os.Exit(1)
	}
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("timelinecal exiting")
}

// runOnce loads events, writes the SVG and optionally a PNG capture.
func runOnce(ctx context.Context, conf *config.Config, flags flagConfig, runner *refresh.Runner, store *refresh.Store, srv *web.Server, m *metrics.Metrics) error {
	if err := runner.RunOnce(ctx); err != nil {
		appLog.Warn("continuing with partial events", "err", err)
	}

	loc := conf.Location()
	date := model.StartOfDay(time.Now().In(loc))
	if flags.date != "" {
		d, err := model.ParseDate(flags.date, loc)
		if err != nil {
			return fmt.Errorf("invalid -date %q: %w", flags.date, err)
		}
		date = d
	}
	days := conf.Timeline.NumberOfDays

	start := time.Now()
	frame, err := timeline.Compose(store.Between(date, date.AddDate(0, 0, days)), []time.Time{date}, conf.Timeline, now.SystemClock{})
	if err != nil {
		return err
	}
	m.ObserveCompose(time.Since(start), frame.EventCount(), frame.RejectedCount())
	for _, d := range frame.Days {
		for _, rej := range d.Rejected {
			appLog.Warn("event not shown", "date", d.Date, "err", rej)
		}
	}

	if flags.out != "" {
		if err := os.MkdirAll(filepath.Dir(flags.out), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(flags.out, render.SVG(frame, render.DefaultOptions()), 0o644); err != nil {
			return err
		}
		appLog.Info("svg written", "path", flags.out, "events", frame.EventCount())
	}

	if flags.png != "" {
		return capturePNG(ctx, conf, srv, date, days, flags.png)
	}
	return nil
}

// capturePNG serves the preview on a loopback port and screenshots it.
func capturePNG(ctx context.Context, conf *config.Config, srv *web.Server, date time.Time, days int, out string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv.PreviewHandler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = hs.Serve(ln) }()
	defer hs.Close()

	url := fmt.Sprintf("http://%s/preview.svg?date=%s&days=%d", ln.Addr().String(), model.DateKey(date), days)
	opts := capture.OptionsFromConfig(conf.Capture, url)
	opts.OutputPath = out
	if _, err := capture.CapturePNG(ctx, opts); err != nil {
		return err
	}
	appLog.Info("png written", "path", out)
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/timelinecal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load events, render once and exit")
	flag.StringVar(&cfg.out, "out", "./var/preview.svg", "SVG output path for -once (empty to skip)")
	flag.StringVar(&cfg.png, "png", "", "PNG capture path for -once (requires Chromium)")
	flag.StringVar(&cfg.date, "date", "", "First displayed day for -once, YYYY-MM-DD (default today)")

	flag.Parse()

	return cfg
}
