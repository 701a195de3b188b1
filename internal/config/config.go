package config

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	appLog "timelinecal/internal/log"
	"timelinecal/internal/model"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Color is applied to events from this source that carry none.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TimelineConfig is the view configuration handed to the layout core.
// Every field has a default applied by Normalize.
type TimelineConfig struct {
	// Start / End are the first and last visible hour (0..24). Default 0, 24.
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`

	// HourBlockHeight is the pixel height of one hour row. Default 100.
	HourBlockHeight float64 `yaml:"hour_block_height" json:"hour_block_height"`

	// ScreenWidth is the full canvas width including the label gutter. Default 400.
	ScreenWidth float64 `yaml:"screen_width" json:"screen_width"`

	// LeftInset is the width of the hour label gutter. Default 50.
	LeftInset float64 `yaml:"left_inset" json:"left_inset"`

	// NumberOfDays is how many day columns are shown side by side. Default 1.
	NumberOfDays int `yaml:"number_of_days" json:"number_of_days"`

	// OverlapEventsSpacing is the gap between overlapping events. Default 0.
	OverlapEventsSpacing float64 `yaml:"overlap_events_spacing" json:"overlap_events_spacing"`

	// RightEdgeSpacing keeps background free for long-press. Default 0.
	RightEdgeSpacing float64 `yaml:"right_edge_spacing" json:"right_edge_spacing"`

	// MinEventHeight is the block height floor. Default 25.
	MinEventHeight float64 `yaml:"min_event_height" json:"min_event_height"`

	// SnapMinutes is the long-press time granularity. Default 1.
	SnapMinutes int `yaml:"snap_minutes" json:"snap_minutes"`

	// Format24h selects "13:00" over "1 PM". Default true.
	Format24h *bool `yaml:"format_24h,omitempty" json:"format_24h,omitempty"`

	// ShowNowIndicator draws the current-time marker on today's column.
	ShowNowIndicator bool `yaml:"show_now_indicator" json:"show_now_indicator"`

	// Initial scroll, first match wins: now, first event, InitialTime.
	ScrollToNow   bool              `yaml:"scroll_to_now" json:"scroll_to_now"`
	ScrollToFirst bool              `yaml:"scroll_to_first" json:"scroll_to_first"`
	InitialTime   *model.TimeOfDay  `yaml:"initial_time,omitempty" json:"initial_time,omitempty"`
	Unavailable   []model.HourRange `yaml:"unavailable_hours" json:"unavailable_hours"`

	// UnavailableHoursColor fills unavailable blocks. Default "#f0f0f0".
	UnavailableHoursColor string `yaml:"unavailable_hours_color" json:"unavailable_hours_color"`

	// EventDefaultColor fills events without a color. Default "#add8e6".
	EventDefaultColor string `yaml:"event_default_color" json:"event_default_color"`
}

// CaptureConfig controls the headless-browser PNG capture.
type CaptureConfig struct {
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
	Output     string `yaml:"output" json:"output"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA display timezone; empty means the host's.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for reloading event sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// Events are static events shown alongside the ICS ones.
	Events []model.Event `yaml:"events" json:"events"`

	Timeline TimelineConfig `yaml:"timeline" json:"timeline"`
	Capture  CaptureConfig  `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Listen:      "127.0.0.1:8080",
		LogLevel:    "info",
		RefreshCron: "*/15 * * * *",
		CacheDir:    "./var/ics-cache",
		ICS:         []ICSConfig{},
		Events:      []model.Event{},
		Timeline: TimelineConfig{
			ShowNowIndicator: true,
			ScrollToFirst:    true,
			InitialTime:      &model.TimeOfDay{Hour: 9},
			Unavailable: []model.HourRange{
				{Start: 0, End: 6},
				{Start: 22, End: 24},
			},
		},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly. Values that are set
// but invalid are left for Validate to report.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Events == nil {
		c.Events = []model.Event{}
	}
	c.Timeline.Normalize()
	c.Capture.normalize()
}

// Normalize fills unset view parameters with their defaults.
func (t *TimelineConfig) Normalize() {
	// A zero pair means "unset"; a single zero End is never valid.
	if t.End == 0 {
		t.End = 24
	}
	if t.HourBlockHeight == 0 {
		t.HourBlockHeight = 100
	}
	if t.ScreenWidth == 0 {
		t.ScreenWidth = 400
	}
	if t.LeftInset == 0 {
		t.LeftInset = 50
	}
	if t.NumberOfDays == 0 {
		t.NumberOfDays = 1
	}
	if t.MinEventHeight == 0 {
		t.MinEventHeight = 25
	}
	if t.SnapMinutes == 0 {
		t.SnapMinutes = 1
	}
	if t.Format24h == nil {
		on := true
		t.Format24h = &on
	}
	if t.UnavailableHoursColor == "" {
		t.UnavailableHoursColor = "#f0f0f0"
	}
	if t.EventDefaultColor == "" {
		t.EventDefaultColor = "#add8e6"
	}
}

// Is24h reports the effective hour label format.
func (t TimelineConfig) Is24h() bool {
	return t.Format24h == nil || *t.Format24h
}

// DayRange returns the visible hour span.
func (t TimelineConfig) DayRange() model.DayRange {
	return model.DayRange{Start: t.Start, End: t.End}
}

// Validate reports the first out-of-range timeline parameter.
func (t TimelineConfig) Validate() error {
	if err := t.DayRange().Validate(); err != nil {
		return err
	}
	if t.HourBlockHeight <= 0 {
		return &model.ConfigError{Field: "hour_block_height", Value: t.HourBlockHeight, Reason: "must be positive"}
	}
	if t.NumberOfDays <= 0 {
		return &model.ConfigError{Field: "number_of_days", Value: t.NumberOfDays, Reason: "must be positive"}
	}
	if t.ScreenWidth <= 0 {
		return &model.ConfigError{Field: "screen_width", Value: t.ScreenWidth, Reason: "must be positive"}
	}
	if t.LeftInset < 0 || t.LeftInset >= t.ScreenWidth {
		return &model.ConfigError{Field: "left_inset", Value: t.LeftInset, Reason: "must be within [0, screen_width)"}
	}
	if t.SnapMinutes < 1 || t.SnapMinutes > 60 {
		return &model.ConfigError{Field: "snap_minutes", Value: t.SnapMinutes, Reason: "must be within [1,60]"}
	}
	if t.OverlapEventsSpacing < 0 {
		return &model.ConfigError{Field: "overlap_events_spacing", Value: t.OverlapEventsSpacing, Reason: "must not be negative"}
	}
	if t.RightEdgeSpacing < 0 || t.RightEdgeSpacing >= t.ScreenWidth-t.LeftInset {
		return &model.ConfigError{Field: "right_edge_spacing", Value: t.RightEdgeSpacing, Reason: "must leave room for events"}
	}
	if t.MinEventHeight < 0 {
		return &model.ConfigError{Field: "min_event_height", Value: t.MinEventHeight, Reason: "must not be negative"}
	}
	for _, r := range t.Unavailable {
		if math.IsNaN(r.Start) || math.IsNaN(r.End) || math.IsInf(r.Start, 0) || math.IsInf(r.End, 0) {
			return &model.ConfigError{Field: "unavailable_hours", Value: r, Reason: "bounds must be finite"}
		}
	}
	return nil
}

func (c *CaptureConfig) normalize() {
	if c.Width <= 0 {
		c.Width = 400
	}
	if c.Height <= 0 {
		c.Height = 1200
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 30
	}
	if c.Output == "" {
		c.Output = "./var/preview.png"
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Timeline.Validate(); err != nil {
		return err
	}
	for i, ev := range c.Events {
		if err := model.CheckInterval(ev); err != nil {
			return &model.ConfigError{Field: "events", Value: i, Reason: err.Error()}
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	return Parse(data)
}

// Parse decodes YAML bytes into a normalized, validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".timelinecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Location resolves Timezone, falling back to time.Local when it is
// empty or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
