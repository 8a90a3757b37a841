package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned by Load and Save for an empty path.
var ErrEmptyPath = errors.New("config path is empty")

// ICSConfig describes a single calendar subscription.
type ICSConfig struct {
	// ID is an internal identifier; it becomes part of every event id.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is an http(s) endpoint, a file:// URL or a local path.
	URL string `yaml:"url" json:"url"`
	// Color is applied to every event of the subscription.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// GridConfig places the grid on screen, in CSS pixels. WeekHeightPx is the
// height of one row of the month view.
type GridConfig struct {
	HourHeightPx   float64 `yaml:"hour_height_px" json:"hour_height_px"`
	OriginX        float64 `yaml:"origin_x" json:"origin_x"`
	OriginY        float64 `yaml:"origin_y" json:"origin_y"`
	DayWidthPx     float64 `yaml:"day_width_px" json:"day_width_px"`
	AllDayTopPx    float64 `yaml:"all_day_top_px" json:"all_day_top_px"`
	AllDayHeightPx float64 `yaml:"all_day_height_px" json:"all_day_height_px"`
	WeekHeightPx   float64 `yaml:"week_height_px" json:"week_height_px"`
}

// DragConfig tunes gestures.
type DragConfig struct {
	// MoveThresholdPx is the travel before a move or resize starts on the
	// week grid.
	MoveThresholdPx float64 `yaml:"move_threshold_px" json:"move_threshold_px"`
	// MonthMoveThresholdPx is the same for the month grid.
	MonthMoveThresholdPx float64 `yaml:"month_move_threshold_px" json:"month_move_threshold_px"`
	// CreateThresholdPx is the travel before a drag on empty grid creates
	// an item.
	CreateThresholdPx float64 `yaml:"create_threshold_px" json:"create_threshold_px"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone events are shown in (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// View is "week" (default), an hour grid per day, or "month", day cells
	// with no time axis.
	View string `yaml:"view" json:"view"`

	// RefreshCron is a cron spec (e.g. "*/15 * * * *") for periodic
	// authoritative refreshes.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is the number of days shown from the start of the week.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// Database is the SQLite file holding tasks.
	Database string `yaml:"database" json:"database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Grid GridConfig `yaml:"grid" json:"grid"`
	Drag DragConfig `yaml:"drag" json:"drag"`

	// ICS is the list of subscribed calendars.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.View != "month" {
		c.View = "week"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 7
	}
	if c.Database == "" {
		c.Database = "timegrid.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	g := &c.Grid
	if g.HourHeightPx <= 0 {
		g.HourHeightPx = 48
	}
	if g.DayWidthPx <= 0 {
		g.DayWidthPx = 140
	}
	if g.OriginX == 0 {
		g.OriginX = 56
	}
	if g.AllDayHeightPx <= 0 {
		g.AllDayHeightPx = 32
	}
	if g.OriginY == 0 {
		g.OriginY = g.AllDayTopPx + g.AllDayHeightPx + 8
	}
	if g.WeekHeightPx <= 0 {
		g.WeekHeightPx = 120
	}

	d := &c.Drag
	if d.MoveThresholdPx <= 0 {
		d.MoveThresholdPx = 5
	}
	if d.MonthMoveThresholdPx <= 0 {
		d.MonthMoveThresholdPx = 8
	}
	if d.CreateThresholdPx <= 0 {
		d.CreateThresholdPx = 5
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = fmt.Sprintf("ics%d", i+1)
		}
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStartDay is WeekStart as a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Load reads the YAML file at path and normalizes it. A missing file is
// created with the defaults (0600, parent directory 0700) and those are
// returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg := DefaultConfig()
		// The defaults are usable even when they cannot be written.
		return cfg, Save(path, cfg)
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save normalizes cfg and writes it to path atomically.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes data to a 0600 temp file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".timegrid-config-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, werr := tmp.Write(data)
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
