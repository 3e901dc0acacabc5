// Package version reports the build identity of the rune binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X github.com/conneroisu/rune/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity.
type Info struct {
	Version   string    `json:"version"   yaml:"version"`
	GitCommit string    `json:"gitCommit" yaml:"gitCommit"`
	BuildTime time.Time `json:"buildTime" yaml:"buildTime"`
	GoVersion string    `json:"goVersion" yaml:"goVersion"`
	Platform  string    `json:"platform"  yaml:"platform"`
	Dirty     bool      `json:"dirty"     yaml:"dirty"`
}

// Get collects the build identity from linker flags, falling back to the
// module build info embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "unknown" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildTime.IsZero() {
					info.BuildTime = parseTime(s.Value)
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			}
		}
	}

	return info
}

// Short returns "v1.2.3 (abc1234)", "dev-abc1234" or the bare version.
func Short() string {
	return Get().Short()
}

// Short formats i for one-line display.
func (i Info) Short() string {
	if i.GitCommit == "unknown" || len(i.GitCommit) < 7 {
		return i.Version
	}
	commit := i.GitCommit[:7]
	if i.Version == "dev" {
		return "dev-" + commit
	}

	return fmt.Sprintf("%s (%s)", i.Version, commit)
}

// String formats i one field per line.
func (i Info) String() string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "unknown" {
		lines = append(lines, "Commit: "+i.GitCommit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)
	if i.Dirty {
		lines = append(lines, "Dirty: true")
	}

	return strings.Join(lines, "\n")
}

// IsRelease reports whether i names a tagged release.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !strings.HasPrefix(i.Version, "dev-")
}

func parseTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
