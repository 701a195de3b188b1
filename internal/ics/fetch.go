package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"timelinecal/internal/config"
	appLog "timelinecal/internal/log"
	"timelinecal/internal/metrics"
)

// Source is one subscribed feed.
type Source struct {
	ID  string
	URL string
	// Color is applied to this source's events when they carry none.
	Color string
}

// SourcesFromConfig converts configured subscriptions, skipping entries
// without a URL.
func SourcesFromConfig(cfgs []config.ICSConfig) []Source {
	out := make([]Source, 0, len(cfgs))
	for i, c := range cfgs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("ics-%d", i)
		}
		out = append(out, Source{ID: id, URL: c.URL, Color: c.Color})
	}
	return out
}

// Outcome says where a fetched body came from.
type Outcome string

const (
	// Fresh is a 200 response.
	Fresh Outcome = "fresh"
	// NotModified is a 304 answered from the cache.
	NotModified Outcome = "not_modified"
	// Stale is a cached body served because the server could not be used.
	Stale Outcome = "stale"
)

// FetchResult is one feed body ready for ParseICS.
type FetchResult struct {
	Source    Source
	Body      []byte
	Outcome   Outcome
	FetchedAt time.Time
}

// FromCache reports whether Body was read from the on-disk cache.
func (r FetchResult) FromCache() bool { return r.Outcome != Fresh }

// Fetcher downloads ICS feeds with conditional GETs. The last good body
// of every feed is kept on disk and served when the server is down.
type Fetcher struct {
	client  *http.Client
	cache   feedCache
	metrics *metrics.Metrics
}

// NewFetcher returns a Fetcher caching under cacheDir
// (./var/ics-cache when empty). m may be nil.
func NewFetcher(cacheDir string, m *metrics.Metrics) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client:  &http.Client{Timeout: 15 * time.Second},
		cache:   feedCache{dir: cacheDir},
		metrics: m,
	}
}

// WithClient replaces the HTTP client, e.g. with an httptest server's.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchAll fetches sources in order. Results hold only the sources that
// produced a body; the rest are reported in the error slice.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne fetches a single source and records the outcome.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	res, err := f.fetch(ctx, src)
	if err != nil {
		f.metrics.ICSFetch(src.ID, "error")
		appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{}, fmt.Errorf("ics: fetch %s: %w", src.ID, err)
	}
	f.metrics.ICSFetch(src.ID, string(res.Outcome))
	appLog.Debug("ics fetched", "id", src.ID, "outcome", res.Outcome, "bytes", len(res.Body))
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("empty url")
	}
	cached, haveCache := f.cache.load(src.URL)

	fallback := func(cause error) (FetchResult, error) {
		if !haveCache {
			return FetchResult{}, cause
		}
		appLog.Warn("ics serving stale copy", "id", src.ID, "fetched_at", cached.FetchedAt, "cause", cause)
		return FetchResult{Source: src, Body: cached.Body, Outcome: Stale, FetchedAt: cached.FetchedAt}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalizeURL(src.URL), nil)
	if err != nil {
		return FetchResult{}, err
	}
	if haveCache {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveCache:
		return FetchResult{Source: src, Body: cached.Body, Outcome: NotModified, FetchedAt: cached.FetchedAt}, nil
	case resp.StatusCode != http.StatusOK:
		return fallback(fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallback(fmt.Errorf("read body: %w", err))
	}
	feed := cachedFeed{
		URL:          src.URL,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now().UTC(),
		Body:         body,
	}
	if err := f.cache.store(feed); err != nil {
		appLog.Error("ics cache write failed", err, "id", src.ID)
	}
	return FetchResult{Source: src, Body: body, Outcome: Fresh, FetchedAt: feed.FetchedAt}, nil
}

// redactURL keeps scheme and host only; feed paths often carry tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}

// normalizeURL maps webcal:// subscriptions onto https.
func normalizeURL(raw string) string {
	if rest, ok := strings.CutPrefix(raw, "webcal://"); ok {
		return "https://" + rest
	}
	return raw
}
