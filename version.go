package storyline

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var rawVersion string

// Version is the release of the engine, read from the VERSION file at build time.
var Version = strings.TrimSpace(rawVersion)
