package cli

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/buzzcola3/teleview/internal/filefeed"
	"github.com/buzzcola3/teleview/internal/mcpserver"
	"github.com/buzzcola3/teleview/internal/otlpingest"
	"github.com/buzzcola3/teleview/internal/service"
	"github.com/buzzcola3/teleview/internal/webui"
)

// ServeCommand returns the CLI command definition for the 'serve' subcommand.
// This command starts the telemetry service, the OTLP ingest endpoint, the
// web UI, and the MCP stdio server.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the telemetry service, OTLP ingest, web UI, and MCP server",
		Description: `Starts the in-process telemetry service plus its three frontends: an
OTLP gRPC metrics endpoint (ephemeral port by default), a web UI with a
live WebSocket stream, and an MCP server on stdio. Programs publish
values, graph samples, and structure trees; the service batches them
once per tick and publishes immutable snapshots for all readers.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a JSON config file (overrides project and global config)",
			},
			&cli.StringFlag{
				Name:  "window-title",
				Usage: "Title shown in the web UI",
			},
			&cli.StringFlag{
				Name:  "tick-interval",
				Usage: "Snapshot publish interval (e.g. 50ms)",
			},
			&cli.IntFlag{
				Name:  "graph-samples",
				Usage: "Default rolling-graph history length",
			},
			&cli.StringFlag{
				Name:  "otlp-host",
				Usage: "OTLP ingest bind address",
			},
			&cli.IntFlag{
				Name:  "otlp-port",
				Usage: "OTLP ingest port (0 for ephemeral)",
				Value: -1,
			},
			&cli.StringFlag{
				Name:  "webui-host",
				Usage: "Web UI bind address",
			},
			&cli.IntFlag{
				Name:  "webui-port",
				Usage: "Web UI port",
			},
			&cli.StringFlag{
				Name:  "feed-dir",
				Usage: "Directory of JSONL files to tail into the view",
			},
			&cli.StringFlag{
				Name:  "otel-config",
				Usage: "OTEL collector config to discover file-exporter directories from",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose logging",
			},
		},
		Action: runServe,
	}
}

// configFromCommand layers CLI flags on top of the effective file/env config.
func configFromCommand(cmd *cli.Command) (*Config, error) {
	cfg, err := LoadEffectiveConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	flags := &Config{
		WindowTitle:     cmd.String("window-title"),
		TickInterval:    cmd.String("tick-interval"),
		GraphMaxSamples: cmd.Int("graph-samples"),
		OTLPHost:        cmd.String("otlp-host"),
		WebUIHost:       cmd.String("webui-host"),
		WebUIPort:       cmd.Int("webui-port"),
		FeedDirectory:   cmd.String("feed-dir"),
		Verbose:         cmd.Bool("verbose"),
	}
	cfg = MergeConfigs(cfg, flags)

	// Port 0 is meaningful for OTLP (ephemeral), so the flag uses -1
	// as "not set" and is applied outside the zero-skipping merge.
	if p := cmd.Int("otlp-port"); p >= 0 {
		cfg.OTLPPort = p
	}

	return cfg, nil
}

// runServe is the action handler for the serve command. It wires
// together all components: the telemetry service, OTLP ingest, the
// file feed, the web UI, and the MCP server.
func runServe(cliCtx context.Context, cmd *cli.Command) error {
	cfg, err := configFromCommand(cmd)
	if err != nil {
		return err
	}

	svcOpts, err := cfg.ServiceOptions()
	if err != nil {
		return err
	}

	if cfg.Verbose {
		log.Println("🔧 Configuration:")
		log.Printf("  Default tile/tab: %s / %s\n", cfg.TileID, cfg.TabID)
		log.Printf("  Tick interval: %s\n", cfg.TickInterval)
		log.Printf("  Graph history: %d samples\n", cfg.GraphMaxSamples)
		log.Printf("  OTLP bind: %s:%d (tab %q)\n", cfg.OTLPHost, cfg.OTLPPort, cfg.OTLPTab)
		log.Printf("  Web UI bind: %s:%d\n", cfg.WebUIHost, cfg.WebUIPort)
		log.Println()
	}

	// 1. Start the telemetry service (owner goroutine + snapshot loop).
	svc := service.New()
	svc.Start(svcOpts)
	defer svc.Shutdown()

	if cfg.Verbose {
		log.Printf("✅ Telemetry service running (tick %s)\n", cfg.TickInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Start the OTLP ingest endpoint.
	ingestServer, err := otlpingest.NewServer(
		otlpingest.Config{
			Host:  cfg.OTLPHost,
			Port:  cfg.OTLPPort,
			TabID: cfg.OTLPTab,
		},
		svc,
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP ingest server: %w", err)
	}

	ingestErrChan := make(chan error, 1)
	go func() {
		ingestErrChan <- ingestServer.Start(ctx)
	}()

	endpoint := ingestServer.Endpoint()
	log.Printf("🌐 OTLP metrics ingest listening on %s\n", endpoint)
	if cfg.Verbose {
		log.Printf("   Programs can send metrics with: OTEL_EXPORTER_OTLP_ENDPOINT=http://%s\n", endpoint)
	}

	// 3. Tail feed directories, from the flag and/or a collector config.
	feedDirs := []string{}
	if cfg.FeedDirectory != "" {
		feedDirs = append(feedDirs, cfg.FeedDirectory)
	}
	if otelConfig := cmd.String("otel-config"); otelConfig != "" {
		dirs, err := ParseOtelConfig(otelConfig)
		if err != nil {
			return fmt.Errorf("failed to parse otel config: %w", err)
		}
		feedDirs = append(feedDirs, dirs...)
	}

	var feeds []*filefeed.FileSource
	for _, dir := range feedDirs {
		feed, err := filefeed.New(filefeed.Config{
			Directory:  dir,
			Verbose:    cfg.Verbose,
			MetricsTab: cfg.OTLPTab,
		}, svc)
		if err != nil {
			return fmt.Errorf("failed to create file feed for %s: %w", dir, err)
		}
		if err := feed.Start(ctx); err != nil {
			return fmt.Errorf("failed to start file feed for %s: %w", dir, err)
		}
		feeds = append(feeds, feed)
		log.Printf("📁 Tailing telemetry files in %s\n", dir)
	}
	defer func() {
		for _, feed := range feeds {
			feed.Stop()
		}
	}()

	// 4. Start the web UI.
	webuiAddr := net.JoinHostPort(cfg.WebUIHost, strconv.Itoa(cfg.WebUIPort))
	webuiServer := webui.New(svc)
	webuiErrChan := make(chan error, 1)
	go func() {
		webuiErrChan <- webuiServer.ListenAndServe(ctx, webuiAddr)
	}()
	log.Printf("🖥️  Web UI at http://%s/ui\n", webuiAddr)

	// 5. Create the MCP server.
	mcpServer, err := mcpserver.NewServer(svc, mcpserver.ServerOptions{
		Ingest:  ingestServer,
		Verbose: cfg.Verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if cfg.Verbose {
		log.Println("✅ MCP server created with 10 tools:")
		log.Println("   - get_status")
		log.Println("   - list_tiles")
		log.Println("   - get_tab")
		log.Println("   - get_graph")
		log.Println("   - get_structure")
		log.Println("   - publish_value")
		log.Println("   - publish_graph_sample")
		log.Println("   - clear_tab")
		log.Println("   - sync")
		log.Println("   - get_ingest_endpoint")
	}

	// 6. Setup graceful shutdown on SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		if cfg.Verbose {
			log.Printf("📡 Received signal %v, initiating graceful shutdown...\n", sig)
		}
		cancel()
		ingestServer.Stop()
	}()

	// 7. Run MCP server on stdio (blocks until stdin closes or context cancelled).
	log.Println("🎯 MCP server ready on stdio")
	log.Println("💡 Use MCP tools to inspect the live view, or open the web UI")
	log.Println()

	if err := mcpServer.Run(ctx); err != nil {
		select {
		case ingestErr := <-ingestErrChan:
			if ingestErr != nil {
				return fmt.Errorf("OTLP ingest error: %w", ingestErr)
			}
		default:
		}

		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
