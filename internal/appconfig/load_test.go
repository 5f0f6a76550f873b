package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.ScreencastFormat != "jpeg" || cfg.History.MaxResults != 8 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesSections(t *testing.T) {
	t.Setenv("GLASS_STATE", "/var/lib/glass")
	path := writeConfig(t, `
config_version: 1
state_dir: $GLASS_STATE
engine:
  screencast_format: png
  headless: false
view:
  width: 1280
  height: 720
  scale: 2
gesture:
  nav_threshold: 200
session:
  restore: false
  save_debounce_ms: 250
shortcuts:
  ctrl+n: new_tab
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateDir != "/var/lib/glass" {
		t.Fatalf("expected env expansion, got %q", cfg.StateDir)
	}
	if cfg.Engine.ScreencastFormat != "png" || cfg.Engine.Headless {
		t.Fatalf("unexpected engine config %+v", cfg.Engine)
	}
	browser := cfg.BrowserConfig()
	if browser.ViewWidth != 1280 || browser.ScaleFactor != 2 || browser.RestoreSession {
		t.Fatalf("unexpected browser config %+v", browser)
	}
	if browser.SaveDebounce.Milliseconds() != 250 {
		t.Fatalf("unexpected debounce %v", browser.SaveDebounce)
	}
	if cfg.Gesture.NavThreshold != 200 || cfg.Gesture.AxisLock != 25 {
		t.Fatalf("unexpected gesture config %+v", cfg.Gesture)
	}
	if cfg.Shortcuts["ctrl+n"] != "new_tab" {
		t.Fatalf("expected custom shortcut, got %v", cfg.Shortcuts)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
state_dir: /tmp/glass
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"screencast_format": "engine:\n  screencast_format: webp\n",
		"view.width":        "view:\n  width: 0\n",
		"axis_lock":         "gesture:\n  axis_lock: 500\n",
		"search_url":        "session:\n  search_url: https://example.com/?q=\n",
		"tick_ms":           "loop:\n  tick_ms: -1\n",
	}
	for want, body := range cases {
		path := writeConfig(t, "config_version: 1\n"+body)
		if _, err := Load(path); err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: expected validation error, got %v", want, err)
		}
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("written default must load: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
