package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("engine.chrome_path", cfg.Engine.ChromePath)
	v.SetDefault("engine.headless", cfg.Engine.Headless)
	v.SetDefault("engine.user_data_dir", cfg.Engine.UserDataDir)
	v.SetDefault("engine.download_dir", cfg.Engine.DownloadDir)
	v.SetDefault("engine.screencast_format", cfg.Engine.ScreencastFormat)
	v.SetDefault("engine.screencast_quality", cfg.Engine.ScreencastQuality)
	v.SetDefault("engine.every_nth_frame", cfg.Engine.EveryNthFrame)
	v.SetDefault("engine.shared_surfaces", cfg.Engine.SharedSurfaces)
	v.SetDefault("view.width", cfg.View.Width)
	v.SetDefault("view.height", cfg.View.Height)
	v.SetDefault("view.scale", cfg.View.Scale)
	v.SetDefault("gesture.axis_lock", cfg.Gesture.AxisLock)
	v.SetDefault("gesture.nav_threshold", cfg.Gesture.NavThreshold)
	v.SetDefault("gesture.cool_down_ms", cfg.Gesture.CoolDownMS)
	v.SetDefault("history.max_entries", cfg.History.MaxEntries)
	v.SetDefault("history.max_results", cfg.History.MaxResults)
	v.SetDefault("session.restore", cfg.Session.Restore)
	v.SetDefault("session.save_debounce_ms", cfg.Session.SaveDebounceMS)
	v.SetDefault("session.search_url", cfg.Session.SearchURL)
	v.SetDefault("loop.tick_ms", cfg.Loop.TickMS)
	v.SetDefault("shortcuts", cfg.Shortcuts)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Engine.ScreencastFormat {
	case "jpeg", "png":
	default:
		return fmt.Errorf("unsupported engine.screencast_format %q", cfg.Engine.ScreencastFormat)
	}
	if cfg.Engine.ScreencastQuality < 0 || cfg.Engine.ScreencastQuality > 100 {
		return fmt.Errorf("engine.screencast_quality must be within 0..100")
	}
	if cfg.View.Width <= 0 || cfg.View.Height <= 0 {
		return fmt.Errorf("view.width and view.height must be positive")
	}
	if cfg.View.Scale <= 0 {
		return fmt.Errorf("view.scale must be positive")
	}
	if cfg.Gesture.AxisLock <= 0 || cfg.Gesture.NavThreshold <= 0 {
		return fmt.Errorf("gesture thresholds must be positive")
	}
	if cfg.Gesture.AxisLock >= cfg.Gesture.NavThreshold {
		return fmt.Errorf("gesture.axis_lock must be below gesture.nav_threshold")
	}
	if cfg.Loop.TickMS <= 0 {
		return fmt.Errorf("loop.tick_ms must be positive")
	}
	searchURL := strings.TrimSpace(cfg.Session.SearchURL)
	if searchURL != "" {
		if strings.Count(searchURL, "%s") != 1 {
			return fmt.Errorf("session.search_url must contain exactly one %%s")
		}
		parsed, err := url.Parse(strings.Replace(searchURL, "%s", "q", 1))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("session.search_url must include scheme and host")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Engine.ChromePath = expandEnv(cfg.Engine.ChromePath)
	cfg.Engine.UserDataDir = expandEnv(cfg.Engine.UserDataDir)
	cfg.Engine.DownloadDir = expandEnv(cfg.Engine.DownloadDir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
