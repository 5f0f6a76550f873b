package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func stubBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	old := readBuildInfo
	readBuildInfo = func() *debug.BuildInfo { return info }
	t.Cleanup(func() { readBuildInfo = old })
}

func vcsBuildInfo(modified bool) *debug.BuildInfo {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	mod := "false"
	if modified {
		mod = "true"
	}
	return &debug.BuildInfo{
		Main: debug.Module{Path: "pkt.systems/glass", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: mod},
		},
	}
}

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3+dirty"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version without dirty suffix, got %q", got)
	}
	if got := CurrentWithDirty(); got != "v1.2.3+dirty" {
		t.Fatalf("expected dirty build version, got %q", got)
	}
}

func TestPseudoFromBuildInfo(t *testing.T) {
	got := pseudoFromBuildInfo(vcsBuildInfo(true), true)
	if got != "v0.0.0-20250102030405-1234567890ab+dirty" {
		t.Fatalf("unexpected pseudo version %q", got)
	}
	if got := pseudoFromBuildInfo(vcsBuildInfo(true), false); strings.HasSuffix(got, "+dirty") {
		t.Fatalf("expected no dirty suffix, got %q", got)
	}
	if pseudoFromBuildInfo(nil, true) != "" {
		t.Fatalf("expected empty version for nil build info")
	}
}

func TestCurrentFallsBackToPseudoVersion(t *testing.T) {
	stubBuildInfo(t, vcsBuildInfo(false))
	if got := Current(); got != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected version %q", got)
	}
}

func TestInfoWithoutBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil)
	info := Info()
	if info.Version != unknownVersion || info.Module != defaultModule {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.GoVersion == "" {
		t.Fatalf("expected go version")
	}
}

func TestInfoReportsVCS(t *testing.T) {
	stubBuildInfo(t, vcsBuildInfo(true))
	info := Info()
	if info.Revision != "1234567890abcdef" || !info.Modified {
		t.Fatalf("unexpected vcs info %+v", info)
	}
	if info.Time.Year() != 2025 {
		t.Fatalf("unexpected build time %v", info.Time)
	}
}
