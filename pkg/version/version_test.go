package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Tests in this file mutate package state and must not run in parallel.

func resetVersion(t *testing.T) {
	t.Helper()

	v, c, d := Version, Commit, Date

	t.Cleanup(func() {
		Version, Commit, Date = v, c, d
	})

	Version, Commit, Date = "dev", "none", "unknown"
}

func TestApplyBuildInfo_FillsDefaults(t *testing.T) {
	resetVersion(t)

	applyBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	assert.Equal(t, "v1.4.0", Version)
	assert.Equal(t, "0123456789ab", Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", Date)
}

func TestApplyBuildInfo_KeepsLinkerValues(t *testing.T) {
	resetVersion(t)

	Version, Commit = "v2.0.0", "abc"

	applyBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})

	assert.Equal(t, "v2.0.0", Version)
	assert.Equal(t, "abc", Commit)
	assert.Equal(t, "unknown", Date)
}

func TestString(t *testing.T) {
	resetVersion(t)

	assert.Equal(t, "civu dev (commit: none, built: unknown)", String())
}
