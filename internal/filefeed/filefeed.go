// Package filefeed tails JSONL files into the telemetry service, so
// processes that cannot (or should not) link the publisher API can
// still feed the live view by appending lines to a watched directory.
//
// Two file shapes are understood:
//
//	events.jsonl  - native event lines ({"kind":"value",...})
//	metrics.jsonl - OTLP MetricsData in protojson, one payload per line
//
// OTLP lines are routed through the same mapping the gRPC endpoint
// uses, so a collector's file exporter and a live exporter produce
// identical graphs.
package filefeed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"google.golang.org/protobuf/encoding/protojson"

	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"

	"github.com/buzzcola3/teleview/internal/otlpingest"
	"github.com/buzzcola3/teleview/internal/telemetry"
)

const (
	// Line scanning buffers. Structure events with deep trees can get
	// large, OTLP payload lines larger still.
	lineBufferInitial = 64 * 1024
	lineBufferMax     = 10 * 1024 * 1024
)

// Sink is where decoded events land. *service.Service satisfies it.
type Sink interface {
	PostValue(tabID, key string, value telemetry.Scalar)
	PostGraphSample(tabID, key string, sample float64, config ...telemetry.GraphConfig)
	PostGraphSamples(tabID, key string, samples []float64, config ...telemetry.GraphConfig)
	PostStructure(tabID, key string, build func(telemetry.Builder))
	PostClearTab(tabID string)
}

// Event is one native line of events.jsonl.
type Event struct {
	// Kind selects the operation: value, sample, samples, structure,
	// or clear.
	Kind string `json:"kind"`
	// Tab addresses the target tab; empty means the default tab.
	Tab string `json:"tab,omitempty"`
	// Key names the scalar, graph, or structure. Unused for clear.
	Key string `json:"key,omitempty"`

	Value   *telemetry.Scalar         `json:"value,omitempty"`
	Sample  *float64                  `json:"sample,omitempty"`
	Samples []float64                 `json:"samples,omitempty"`
	Nodes   []telemetry.StructureNode `json:"nodes,omitempty"`
}

// Config holds configuration for a FileSource.
type Config struct {
	Directory string // directory containing events.jsonl / metrics.jsonl
	Verbose   bool   // enable verbose logging
	// MetricsTab routes OTLP metric lines to a specific tab. Empty
	// routes to the default tab.
	MetricsTab string
}

// FileSource tails a directory of JSONL files into a sink. New lines
// appended to known files are picked up via fsnotify; whole files
// present at start are replayed once.
type FileSource struct {
	directory string
	sink      Sink
	verbose   bool
	ingester  *otlpingest.Ingester

	watcher *fsnotify.Watcher

	// Track per-file read positions so only new data is read.
	mu          sync.Mutex
	fileOffsets map[string]int64
	linesRead   uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a FileSource reading from the configured directory.
func New(cfg Config, sink Sink) (*FileSource, error) {
	if cfg.Directory == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}

	info, err := os.Stat(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %s: %w", cfg.Directory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cfg.Directory)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FileSource{
		directory:   cfg.Directory,
		sink:        sink,
		verbose:     cfg.Verbose,
		ingester:    &otlpingest.Ingester{Sink: sink, TabID: cfg.MetricsTab},
		watcher:     watcher,
		fileOffsets: make(map[string]int64),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start replays existing files and begins watching for appends. It
// returns after the initial replay completes; watching continues in
// the background.
func (fs *FileSource) Start(ctx context.Context) error {
	if fs.verbose {
		log.Printf("📁 filefeed: starting with directory %s\n", fs.directory)
	}

	if err := fs.watcher.Add(fs.directory); err != nil {
		return fmt.Errorf("could not watch %s: %w", fs.directory, err)
	}

	entries, err := os.ReadDir(fs.directory)
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(fs.directory, entry.Name())
		if !tailable(path) {
			continue
		}
		count, err := fs.readNewLines(ctx, path)
		if err != nil {
			log.Printf("⚠️  filefeed: error loading %s: %v\n", path, err)
			continue
		}
		if fs.verbose && count > 0 {
			log.Printf("📁 filefeed: replayed %d lines from %s\n", count, entry.Name())
		}
	}

	fs.wg.Add(1)
	go fs.watchLoop()

	return nil
}

// Stop stops the watcher and waits for the tail goroutine to finish.
func (fs *FileSource) Stop() {
	fs.cancel()
	fs.watcher.Close()
	fs.wg.Wait()
}

// Directory returns the directory being watched.
func (fs *FileSource) Directory() string {
	return fs.directory
}

func tailable(path string) bool {
	return strings.HasSuffix(path, ".jsonl")
}

// readNewLines reads a JSONL file from the last known offset. Returns
// the number of lines applied.
func (fs *FileSource) readNewLines(ctx context.Context, path string) (int, error) {
	fs.mu.Lock()
	offset := fs.fileOffsets[path]
	fs.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			// File may have been truncated and rewritten.
			offset = 0
		}
	}

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, lineBufferInitial)
	scanner.Buffer(buf, lineBufferMax)

	isMetrics := strings.HasPrefix(filepath.Base(path), "metrics")

	count := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var err error
		if isMetrics {
			err = fs.applyMetricsLine(line)
		} else {
			err = fs.applyEventLine(line)
		}
		if err != nil {
			// One bad line must not stop the tail.
			if fs.verbose {
				log.Printf("⚠️  filefeed: bad line in %s: %v\n", filepath.Base(path), err)
			}
			continue
		}
		count++
	}

	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading %s: %w", path, err)
	}

	newOffset, _ := file.Seek(0, io.SeekCurrent)
	fs.mu.Lock()
	fs.fileOffsets[path] = newOffset
	fs.linesRead += uint64(count)
	fs.mu.Unlock()

	return count, nil
}

// applyEventLine decodes one native event and posts it.
func (fs *FileSource) applyEventLine(line []byte) error {
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return fmt.Errorf("parse event JSON: %w", err)
	}

	switch ev.Kind {
	case "value":
		if ev.Key == "" || ev.Value == nil {
			return fmt.Errorf("value event needs key and value")
		}
		fs.sink.PostValue(ev.Tab, ev.Key, *ev.Value)
	case "sample":
		if ev.Key == "" || ev.Sample == nil {
			return fmt.Errorf("sample event needs key and sample")
		}
		fs.sink.PostGraphSample(ev.Tab, ev.Key, *ev.Sample)
	case "samples":
		if ev.Key == "" || len(ev.Samples) == 0 {
			return fmt.Errorf("samples event needs key and samples")
		}
		fs.sink.PostGraphSamples(ev.Tab, ev.Key, ev.Samples)
	case "structure":
		if ev.Key == "" {
			return fmt.Errorf("structure event needs key")
		}
		nodes := ev.Nodes
		fs.sink.PostStructure(ev.Tab, ev.Key, func(b telemetry.Builder) {
			buildNodes(b, nodes)
		})
	case "clear":
		fs.sink.PostClearTab(ev.Tab)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

// applyMetricsLine decodes one OTLP MetricsData payload and routes it
// through the shared OTLP mapping.
func (fs *FileSource) applyMetricsLine(line []byte) error {
	var data metricspb.MetricsData
	if err := protojson.Unmarshal(line, &data); err != nil {
		return fmt.Errorf("parse metrics JSON: %w", err)
	}
	fs.ingester.Ingest(data.ResourceMetrics)
	return nil
}

// buildNodes replays a decoded node list through a builder.
func buildNodes(b telemetry.Builder, nodes []telemetry.StructureNode) {
	for _, n := range nodes {
		if len(n.Children) > 0 {
			buildNodes(b.Nested(n.Label), n.Children)
			continue
		}
		if n.Value != nil {
			b.Field(n.Label, *n.Value)
		} else {
			b.Nested(n.Label)
		}
	}
}

// watchLoop reacts to writes and creates in the watched directory.
func (fs *FileSource) watchLoop() {
	defer fs.wg.Done()

	for {
		select {
		case <-fs.ctx.Done():
			return

		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !tailable(event.Name) {
				continue
			}

			count, err := fs.readNewLines(fs.ctx, event.Name)
			if err != nil {
				log.Printf("⚠️  filefeed: error reading %s: %v\n", event.Name, err)
			} else if fs.verbose && count > 0 {
				log.Printf("📁 filefeed: applied %d new lines from %s\n", count, filepath.Base(event.Name))
			}

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  filefeed: watcher error: %v\n", err)
		}
	}
}

// Stats describes the tail state.
type Stats struct {
	Directory    string `json:"directory"`
	FilesTracked int    `json:"files_tracked"`
	LinesRead    uint64 `json:"lines_read"`
}

// Stats returns current statistics.
func (fs *FileSource) Stats() Stats {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return Stats{
		Directory:    fs.directory,
		FilesTracked: len(fs.fileOffsets),
		LinesRead:    fs.linesRead,
	}
}
