package version

import "fmt"

// Version, Commit and BuildDate are set at build time, e.g.
// go build -ldflags "-X github.com/oukeidos/bisrt/internal/version.Version=0.2.0"
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

const Name = "bisrt"

// Info returns a multi-line version string for CLI output.
func Info() string {
	return fmt.Sprintf("%s %s\ncommit: %s\nbuild: %s", Name, Version, Commit, BuildDate)
}
