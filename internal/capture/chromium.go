package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"timelinecal/internal/config"
	appLog "timelinecal/internal/log"
)

// Default capture parameters; they match the default timeline canvas.
const (
	DefaultWidth      = 400
	DefaultHeight     = 1200
	DefaultTimeoutSec = 30
)

// readySelector matches the root element of /preview.svg once drawn.
const readySelector = `svg[data-ready="true"]`

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/preview.svg?date=2026-10-19".
	URL string

	// OutputPath, when set, is where the PNG is also written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation.
	Timeout time.Duration

	// ExecPath selects a Chromium binary; empty lets chromedp find one.
	ExecPath string
}

// OptionsFromConfig fills Options from the capture config section.
func OptionsFromConfig(c config.CaptureConfig, url string) Options {
	return Options{
		URL:        url,
		OutputPath: c.Output,
		Width:      c.Width,
		Height:     c.Height,
		Timeout:    time.Duration(c.TimeoutSec) * time.Second,
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, fmt.Errorf("capture: URL is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o, nil
}

// CapturePNG launches a headless Chromium via chromedp, navigates to
// opts.URL, waits until the SVG root reports data-ready="true" and returns
// a full-page PNG screenshot.
func CapturePNG(parentCtx context.Context, opts Options) ([]byte, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitReady(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	appLog.Info("capture completed", "bytes", len(png), "elapsed", time.Since(start).String())

	if opts.OutputPath != "" {
		if err := WriteFile(opts.OutputPath, png); err != nil {
			return png, err
		}
	}
	return png, nil
}

// WriteFile stores a capture, creating the parent directory.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
