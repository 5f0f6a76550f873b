package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/glass"

const unknownVersion = "v0.0.0-unknown"

// buildVersion is set via -ldflags "-X pkt.systems/glass/internal/version.buildVersion=...".
var buildVersion = ""

// Build describes the running binary.
type Build struct {
	Module    string
	Version   string
	Revision  string
	Time      time.Time
	Modified  bool
	GoVersion string
}

// Current returns the best available version string without the dirty suffix.
func Current() string {
	return versionFrom(readBuildInfo(), false)
}

// CurrentWithDirty returns the version including a dirty suffix when the tree was modified.
func CurrentWithDirty() string {
	return versionFrom(readBuildInfo(), true)
}

// Module returns the module path from build info when available.
func Module() string {
	if info := readBuildInfo(); info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// Info returns everything known about the running binary.
func Info() Build {
	info := readBuildInfo()
	out := Build{
		Module:    Module(),
		Version:   versionFrom(info, true),
		GoVersion: runtime.Version(),
	}
	vcs := readVCS(info)
	out.Revision = vcs.revision
	out.Time = vcs.time
	out.Modified = vcs.modified
	return out
}

var readBuildInfo = func() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

func versionFrom(info *debug.BuildInfo, includeDirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return normalizeVersion(buildVersion, includeDirty)
	}
	if info != nil {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return normalizeVersion(v, includeDirty)
		}
		if v := pseudoFromBuildInfo(info, includeDirty); v != "" {
			return v
		}
	}
	return unknownVersion
}

func normalizeVersion(v string, includeDirty bool) string {
	value := strings.TrimSpace(v)
	if includeDirty {
		return value
	}
	return strings.TrimSuffix(value, "+dirty")
}

type vcsInfo struct {
	revision string
	time     time.Time
	modified bool
}

func readVCS(info *debug.BuildInfo) vcsInfo {
	var out vcsInfo
	if info == nil {
		return out
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				out.time = parsed.UTC()
			}
		case "vcs.modified":
			out.modified = setting.Value == "true"
		}
	}
	return out
}

// pseudoFromBuildInfo builds a Go pseudo-version from VCS stamps.
func pseudoFromBuildInfo(info *debug.BuildInfo, includeDirty bool) string {
	vcs := readVCS(info)
	if vcs.revision == "" || vcs.time.IsZero() {
		return ""
	}
	rev := vcs.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	ver := "v0.0.0-" + vcs.time.Format("20060102150405") + "-" + rev
	if vcs.modified && includeDirty {
		ver += "+dirty"
	}
	return ver
}
