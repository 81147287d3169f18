// Package version holds build information for retriever.
package version

import "runtime"

// Overridden at build time:
// go build -ldflags "-X retriever/internal/version.Version=1.0.0 -X retriever/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Details is the structured form printed by `retriever version --format json`.
type Details struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get collects the current build details.
func Get() Details {
	return Details{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Info returns the version with a short commit suffix when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line form used by the version command.
func Full() string {
	d := Get()
	return "retriever version " + d.Version + "\n" +
		"Commit: " + d.Commit + "\n" +
		"Built: " + d.BuildDate + "\n" +
		"Go: " + d.GoVersion + " " + d.Platform
}
