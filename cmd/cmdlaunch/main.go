package main

import (
	"github.com/Paintersrp/cmdlaunch/internal/cli"
	"github.com/Paintersrp/cmdlaunch/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
