package main

import (
	"context"
	"os"

	"github.com/depot-build/depot/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "0.3.0"

func main() {
	cfg := cli.NewConfig()
	cfg.Version = version

	err := cli.NewCLI(cfg).ExecuteContext(context.Background(), os.Args[1:])
	os.Exit(cli.ExitCode(err))
}
