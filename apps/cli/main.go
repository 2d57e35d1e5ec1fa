package main

import "github.com/abdul-hamid-achik/hitbatch/apps/cli/cmd"

// Set at build time via -ldflags "-X main.version=... -X main.buildTime=..."
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
