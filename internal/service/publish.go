package service

import (
	"sync"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// Typed producers. Each wraps one store mutation in an Update and
// posts it, so call sites on producer goroutines stay one-liners. An
// empty tabID targets the configured default tab.

// PostValue sets a named scalar on a tab.
func (s *Service) PostValue(tabID, key string, value telemetry.Scalar) {
	s.Post(func(sess *Session) { sess.Tab(tabID).UpdateValue(key, value) })
}

// PostGraphSample appends one sample to a named rolling graph,
// creating the graph with the session's default config (or the given
// one) if absent.
func (s *Service) PostGraphSample(tabID, key string, sample float64, config ...telemetry.GraphConfig) {
	s.Post(func(sess *Session) {
		sess.Tab(tabID).PushGraphSample(key, sample, sess.graphConfig(config))
	})
}

// PostGraphSamples appends a batch of samples to a named rolling graph.
func (s *Service) PostGraphSamples(tabID, key string, samples []float64, config ...telemetry.GraphConfig) {
	buf := make([]float64, len(samples))
	copy(buf, samples)
	s.Post(func(sess *Session) {
		sess.Tab(tabID).AddGraphSamples(key, buf, sess.graphConfig(config))
	})
}

// PostStructure rebuilds a named structure tree on a tab. The build
// callback runs on the owner goroutine.
func (s *Service) PostStructure(tabID, key string, build func(telemetry.Builder)) {
	s.Post(func(sess *Session) { sess.Tab(tabID).UpdateStructure(key, build) })
}

// PostClearTab wipes all content from a tab, keeping the tab itself.
func (s *Service) PostClearTab(tabID string) {
	s.Post(func(sess *Session) { sess.Tab(tabID).Clear() })
}

// SetWindowTitle renames the default tile.
func (s *Service) SetWindowTitle(title string) {
	s.Post(func(sess *Session) { sess.DefaultTile().SetWindowTitle(title) })
}

// ShowWindow toggles visibility of the default tile.
func (s *Service) ShowWindow(visible bool) {
	s.Post(func(sess *Session) { sess.DefaultTile().SetVisible(visible) })
}

// Package-level forwarders over a lazily created process-wide default
// service, for hosts that want fire-and-forget instrumentation without
// threading a *Service through their code.

var (
	defaultMu      sync.Mutex
	defaultService *Service
)

// Default returns the process-wide service, creating it stopped on
// first use.
func Default() *Service {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultService == nil {
		defaultService = New()
	}
	return defaultService
}

// SetDefault replaces the process-wide service. The previous one is
// not shut down.
func SetDefault(s *Service) {
	defaultMu.Lock()
	defaultService = s
	defaultMu.Unlock()
}

// Start launches the process-wide service with the given options.
func Start(opts Options) { Default().Start(opts) }

// Shutdown stops the process-wide service and waits for it.
func Shutdown() { Default().Shutdown() }

// Running reports whether the process-wide service is cycling.
func Running() bool { return Default().Running() }

// Value sets a named scalar on the process-wide service.
func Value(tabID, key string, value telemetry.Scalar) { Default().PostValue(tabID, key, value) }

// GraphSample appends one sample on the process-wide service.
func GraphSample(tabID, key string, sample float64, config ...telemetry.GraphConfig) {
	Default().PostGraphSample(tabID, key, sample, config...)
}

// GraphSamples appends a batch of samples on the process-wide service.
func GraphSamples(tabID, key string, samples []float64, config ...telemetry.GraphConfig) {
	Default().PostGraphSamples(tabID, key, samples, config...)
}

// Structure rebuilds a structure tree on the process-wide service.
func Structure(tabID, key string, build func(telemetry.Builder)) {
	Default().PostStructure(tabID, key, build)
}

// ClearTab wipes a tab on the process-wide service.
func ClearTab(tabID string) { Default().PostClearTab(tabID) }

// SetWindowTitle renames the default tile on the process-wide service.
func SetWindowTitle(title string) { Default().SetWindowTitle(title) }

// ShowWindow toggles the default tile on the process-wide service.
func ShowWindow(visible bool) { Default().ShowWindow(visible) }
