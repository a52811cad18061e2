package main

import (
	"github.com/okena-dev/okena/internal/cmd"
)

// version, commit, date and builtBy are overridden at build time via
// -ldflags "-X main.version=... -X main.commit=... -X main.date=... -X main.builtBy=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date, builtBy)
	cmd.Execute()
}
