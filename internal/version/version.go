// Package version reports the VCS revision the binary was built from.
package version

import (
	"runtime/debug"
)

// Info is the build identity of the running binary.
type Info struct {
	Commit   string `json:"commit"`
	Time     string `json:"time"`
	Modified bool   `json:"modified"`
}

// Get reads the build info embedded by the Go toolchain.
func Get() Info {
	var v Info
	if info, ok := debug.ReadBuildInfo(); ok {
		v = fromSettings(info.Settings)
	}
	return v
}

func fromSettings(settings []debug.BuildSetting) Info {
	var v Info
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			v.Commit = setting.Value
		case "vcs.time":
			v.Time = setting.Value
		case "vcs.modified":
			v.Modified = setting.Value == "true"
		}
	}
	return v
}

// String returns a short human-readable version such as "1a2b3c4d (2026-01-02T10:00:00Z)".
func (v Info) String() string {
	if v.Commit == "" {
		return "devel"
	}
	s := v.Commit
	if len(s) > 8 {
		s = s[:8]
	}
	if v.Modified {
		s += "-dirty"
	}
	if v.Time != "" {
		s += " (" + v.Time + ")"
	}
	return s
}
