package main

import (
	"github.com/groundctl/groundctl/internal/cli"
	"github.com/groundctl/groundctl/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
