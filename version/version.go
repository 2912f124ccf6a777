package version

import "fmt"

// set via ldflags during release builds
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var FullVersion = fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
