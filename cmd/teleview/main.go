package main

import (
	"context"
	"fmt"
	"os"

	"github.com/buzzcola3/teleview/internal/cli"
	cliframework "github.com/urfave/cli/v3"
)

const version = "0.2.0"

func main() {
	app := &cliframework.Command{
		Name:    "teleview",
		Usage:   "Live telemetry view with OTLP ingest, web UI, and MCP access",
		Version: version,
		Commands: []*cliframework.Command{
			cli.ServeCommand(),
			cli.DemoCommand(),
			cli.DoctorCommand(version),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ error: %v\n", err)
		os.Exit(1)
	}
}
