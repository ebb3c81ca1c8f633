package cli

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/buzzcola3/teleview/internal/service"
	"github.com/buzzcola3/teleview/internal/telemetry"
	"github.com/buzzcola3/teleview/internal/webui"
)

// DemoCommand returns the CLI command definition for the 'demo'
// subcommand. It publishes synthetic telemetry into a local view so
// the web UI can be explored without instrumenting a real program.
func DemoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Serve the web UI fed with synthetic telemetry",
		Description: `Starts the telemetry service and web UI, then publishes a stream of
synthetic values, rolling graphs, and a structure tree. Useful for
trying out the UI and for eyeballing graph scaling behavior.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "webui-host",
				Usage: "Web UI bind address",
				Value: "127.0.0.1",
			},
			&cli.IntFlag{
				Name:  "webui-port",
				Usage: "Web UI port",
				Value: 4381,
			},
			&cli.DurationFlag{
				Name:  "publish-interval",
				Usage: "Delay between synthetic publishes",
				Value: 100 * time.Millisecond,
			},
		},
		Action: runDemo,
	}
}

func runDemo(cliCtx context.Context, cmd *cli.Command) error {
	svc := service.New()
	svc.Start(service.Options{WindowTitle: "Teleview Demo"})
	defer svc.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := net.JoinHostPort(cmd.String("webui-host"), strconv.Itoa(cmd.Int("webui-port")))
	webuiServer := webui.New(svc)
	webuiErrChan := make(chan error, 1)
	go func() {
		webuiErrChan <- webuiServer.ListenAndServe(ctx, addr)
	}()
	log.Printf("🖥️  Web UI at http://%s/ui\n", addr)
	log.Println("💡 Press Ctrl-C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interval := cmd.Duration("publish-interval")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fpsConfig := telemetry.GraphConfig{MaxSamples: 300, AutoScale: false, ManualMin: 0, ManualMax: 120}
	start := time.Now()
	frame := 0

	for {
		select {
		case sig := <-sigChan:
			log.Printf("📡 Received signal %v, shutting down\n", sig)
			return nil
		case err := <-webuiErrChan:
			if err != nil {
				return fmt.Errorf("web UI error: %w", err)
			}
			return nil
		case <-ticker.C:
		}

		frame++
		t := time.Since(start).Seconds()

		fps := 60 + 20*math.Sin(t/3) + rand.Float64()*4
		frameMs := 1000 / fps

		svc.PostValue("", "frame", telemetry.Int(int64(frame)))
		svc.PostValue("", "uptime", telemetry.Text(time.Since(start).Truncate(time.Second).String()))
		svc.PostValue("", "vsync", telemetry.Bool(frame%400 < 200))
		svc.PostGraphSample("", "fps", fps, fpsConfig)
		svc.PostGraphSample("", "frame_ms", frameMs)
		svc.PostGraphSample("perf", "heap_mb", 128+32*math.Sin(t/7))

		if frame%10 == 0 {
			entities := 100 + frame%50
			svc.PostStructure("", "scene", func(b telemetry.Builder) {
				b.Field("entities", telemetry.Int(int64(entities)))
				cam := b.Nested("camera")
				cam.Field("fov", telemetry.Float(72))
				cam.Field("x", telemetry.Float(10*math.Cos(t/5)))
				cam.Field("y", telemetry.Float(10*math.Sin(t/5)))
			})
		}
	}
}
