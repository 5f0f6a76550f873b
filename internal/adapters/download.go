package adapters

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pkt.systems/glass/internal/eventbridge"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// DownloadAdapter picks download destinations and forwards progress.
type DownloadAdapter struct {
	out *eventbridge.Producer
	dir string
	log pslog.Logger
}

// NewDownloadAdapter constructs a DownloadAdapter writing into dir.
func NewDownloadAdapter(out *eventbridge.Producer, dir string, logger pslog.Logger) *DownloadAdapter {
	return &DownloadAdapter{out: out, dir: dir, log: orDefault(logger)}
}

// Dir returns the download directory.
func (a *DownloadAdapter) Dir() string {
	return a.dir
}

// OnBeforeDownload returns a path in the download directory that does not exist yet.
func (a *DownloadAdapter) OnBeforeDownload(suggestedName, rawURL string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	name := downloadFileName(suggestedName, rawURL)
	target := UniqueDownloadPath(a.dir, name)
	a.log.Info("download starting", "url", rawURL, "path", target)
	return target, nil
}

// OnDownloadUpdated emits DownloadUpdated.
func (a *DownloadAdapter) OnDownloadUpdated(update schema.DownloadUpdate) {
	a.out.Send(schema.DownloadUpdated(update))
}

func downloadFileName(suggestedName, rawURL string) string {
	if name := strings.TrimSpace(suggestedName); name != "" {
		return name
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "download"
}

// UniqueDownloadPath returns dir/name, or dir/"stem (n).ext" for the first n not taken.
func UniqueDownloadPath(dir, name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "download"
	}
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem = "download"
	}
	for attempt := 1; ; attempt++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, attempt, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
