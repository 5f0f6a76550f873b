package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/glass/internal/gesture"
	"pkt.systems/glass/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int               `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string            `mapstructure:"state_dir" yaml:"state_dir"`
	Engine        EngineConfig      `mapstructure:"engine" yaml:"engine"`
	View          ViewConfig        `mapstructure:"view" yaml:"view"`
	Gesture       GestureConfig     `mapstructure:"gesture" yaml:"gesture"`
	History       HistoryConfig     `mapstructure:"history" yaml:"history"`
	Session       SessionConfig     `mapstructure:"session" yaml:"session"`
	Loop          LoopConfig        `mapstructure:"loop" yaml:"loop"`
	Shortcuts     map[string]string `mapstructure:"shortcuts" yaml:"shortcuts"`
	Logging       LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EngineConfig controls the headless Chrome engine.
type EngineConfig struct {
	// ChromePath overrides the browser executable. Empty searches PATH.
	ChromePath        string `mapstructure:"chrome_path" yaml:"chrome_path"`
	Headless          bool   `mapstructure:"headless" yaml:"headless"`
	UserDataDir       string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	DownloadDir       string `mapstructure:"download_dir" yaml:"download_dir"`
	ScreencastFormat  string `mapstructure:"screencast_format" yaml:"screencast_format"`
	ScreencastQuality int    `mapstructure:"screencast_quality" yaml:"screencast_quality"`
	// EveryNthFrame thins the screencast; 1 delivers every frame.
	EveryNthFrame  int  `mapstructure:"every_nth_frame" yaml:"every_nth_frame"`
	SharedSurfaces bool `mapstructure:"shared_surfaces" yaml:"shared_surfaces"`
}

// ViewConfig is the initial off-screen view geometry.
type ViewConfig struct {
	Width  int     `mapstructure:"width" yaml:"width"`
	Height int     `mapstructure:"height" yaml:"height"`
	Scale  float64 `mapstructure:"scale" yaml:"scale"`
}

// GestureConfig holds the swipe navigation thresholds.
type GestureConfig struct {
	AxisLock     float64 `mapstructure:"axis_lock" yaml:"axis_lock"`
	NavThreshold float64 `mapstructure:"nav_threshold" yaml:"nav_threshold"`
	CoolDownMS   int     `mapstructure:"cool_down_ms" yaml:"cool_down_ms"`
}

// HistoryConfig bounds the history store and search.
type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries"`
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`
}

// SessionConfig controls session persistence.
type SessionConfig struct {
	Restore        bool   `mapstructure:"restore" yaml:"restore"`
	SaveDebounceMS int    `mapstructure:"save_debounce_ms" yaml:"save_debounce_ms"`
	SearchURL      string `mapstructure:"search_url" yaml:"search_url"`
}

// LoopConfig paces the host loop.
type LoopConfig struct {
	TickMS int `mapstructure:"tick_ms" yaml:"tick_ms"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level              string `mapstructure:"level" yaml:"level"`
	DisableAuditTrails bool   `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	stateDir := filepath.Join(home, ".glass", "state")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      stateDir,
		Engine: EngineConfig{
			ChromePath:        "",
			Headless:          true,
			UserDataDir:       filepath.Join(stateDir, "profile"),
			DownloadDir:       filepath.Join(home, "Downloads"),
			ScreencastFormat:  "jpeg",
			ScreencastQuality: 80,
			EveryNthFrame:     1,
			SharedSurfaces:    false,
		},
		View: ViewConfig{
			Width:  schema.DefaultViewWidth,
			Height: schema.DefaultViewHeight,
			Scale:  schema.DefaultScaleFactor,
		},
		Gesture: GestureConfig{
			AxisLock:     gesture.DefaultAxisLock,
			NavThreshold: gesture.DefaultNavThreshold,
			CoolDownMS:   int(gesture.DefaultCoolDown / time.Millisecond),
		},
		History: HistoryConfig{
			MaxEntries: schema.DefaultHistoryMaxEntries,
			MaxResults: schema.DefaultHistoryMaxResults,
		},
		Session: SessionConfig{
			Restore:        true,
			SaveDebounceMS: int(schema.DefaultSaveDebounce / time.Millisecond),
			SearchURL:      schema.DefaultSearchURL,
		},
		Loop: LoopConfig{
			TickMS: 16,
		},
		Shortcuts: schema.DefaultShortcuts(),
		Logging: LoggingConfig{
			Level:              "info",
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".glass", "config.yaml"), nil
}

// BrowserConfig returns the core service settings.
func (c Config) BrowserConfig() schema.BrowserConfig {
	return schema.BrowserConfig{
		ViewWidth:         c.View.Width,
		ViewHeight:        c.View.Height,
		ScaleFactor:       c.View.Scale,
		HistoryMaxEntries: c.History.MaxEntries,
		HistoryMaxResults: c.History.MaxResults,
		SaveDebounce:      time.Duration(c.Session.SaveDebounceMS) * time.Millisecond,
		RestoreSession:    c.Session.Restore,
		SearchURL:         c.Session.SearchURL,
		DownloadDir:       c.Engine.DownloadDir,
		Shortcuts:         c.Shortcuts,
	}
}

// GestureSettings returns the navigator thresholds.
func (c Config) GestureSettings() gesture.Config {
	return gesture.Config{
		AxisLock:     c.Gesture.AxisLock,
		NavThreshold: c.Gesture.NavThreshold,
		CoolDown:     time.Duration(c.Gesture.CoolDownMS) * time.Millisecond,
	}
}

// TickInterval returns the host loop period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Loop.TickMS) * time.Millisecond
}
