package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// State describes where the owner goroutine is in its lifecycle.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Options configures a service at start. The zero value is usable:
// every field has a default.
type Options struct {
	// WindowTitle is the display title of the default tile.
	WindowTitle string
	// TileID addresses the default tile. Defaults to "Main".
	TileID string
	// TabID addresses the default tab on the default tile. Defaults
	// to "Telemetry".
	TabID string
	// GraphDefaults is the config applied to graphs created without an
	// explicit config.
	GraphDefaults telemetry.GraphConfig
	// TickInterval paces the owner loop. Defaults to 50ms.
	TickInterval time.Duration
	// OnFrame, when set, runs once per cycle on the owner goroutine
	// after the command queue has been drained. elapsed is time since
	// the loop started, delta since the previous cycle.
	OnFrame func(sess *Session, elapsed, delta time.Duration)
}

func (o Options) withDefaults() Options {
	if o.TileID == "" {
		o.TileID = "Main"
	}
	if o.TabID == "" {
		o.TabID = "Telemetry"
	}
	if o.WindowTitle == "" {
		o.WindowTitle = o.TileID
	}
	if o.GraphDefaults == (telemetry.GraphConfig{}) {
		o.GraphDefaults = telemetry.DefaultGraphConfig()
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 50 * time.Millisecond
	}
	return o
}

// Service owns a Session on a dedicated goroutine. Producers call Post
// (or the typed helpers in publish.go) from any goroutine; the owner
// drains the queue each cycle and applies every command exactly once,
// including commands still pending at shutdown. The goroutine starts
// lazily on first use and can be restarted after Shutdown.
type Service struct {
	mu      sync.Mutex
	opts    Options
	pending []Update
	done    chan struct{}

	started atomic.Bool
	running atomic.Bool
	stop    atomic.Bool
	state   atomic.Int32

	snap       atomic.Pointer[SessionSnapshot]
	generation atomic.Uint64

	subMu       sync.Mutex
	subscribers map[uint64]chan struct{}
	nextSubID   uint64
}

// New returns a stopped service. The owner goroutine starts on the
// first Post or an explicit Start.
func New() *Service {
	return &Service{subscribers: make(map[uint64]chan struct{})}
}

// Start records the options and launches the owner goroutine if it is
// not already running. Options are only read at launch; calling Start
// on a running service leaves the current run untouched.
func (s *Service) Start(opts Options) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	s.ensureStarted()
}

// Post enqueues a command for the owner goroutine, starting it if
// needed. The command runs on the next drained cycle. Nil commands are
// ignored.
func (s *Service) Post(update Update) {
	if update == nil {
		return
	}
	s.ensureStarted()
	s.mu.Lock()
	s.pending = append(s.pending, update)
	s.mu.Unlock()
}

// Sync blocks until every command posted before it has been applied,
// or the context expires. It works by riding the queue itself.
func (s *Service) Sync(ctx context.Context) error {
	applied := make(chan struct{})
	s.Post(func(*Session) { close(applied) })
	select {
	case <-applied:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown asks the owner goroutine to exit and waits for it. Every
// command posted before Shutdown is applied before the goroutine
// exits. A stopped service returns immediately.
func (s *Service) Shutdown() {
	if !s.started.Load() {
		return
	}
	s.stop.Store(true)
	s.mu.Lock()
	s.pending = append(s.pending, func(sess *Session) { sess.RequestClose() })
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the owner loop is actively cycling.
func (s *Service) Running() bool { return s.running.Load() }

// State returns the lifecycle state of the owner goroutine.
func (s *Service) State() State { return State(s.state.Load()) }

// Snapshot returns the most recently published per-cycle view, or nil
// if no cycle has completed yet.
func (s *Service) Snapshot() *SessionSnapshot { return s.snap.Load() }

// Generation returns the publish counter, monotonically increasing
// once per completed cycle.
func (s *Service) Generation() uint64 { return s.generation.Load() }

// Subscribe returns a channel that receives a signal whenever a new
// snapshot is published, plus an unsubscribe func. The channel is
// buffered and coalescing: slow consumers see at most one pending
// signal, never a backlog.
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subscribers == nil {
		s.subscribers = make(map[uint64]chan struct{})
	}
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch
	return ch, func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Service) notifySubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ensureStarted launches the owner goroutine once. Double-checked: an
// atomic fast path for the hot producer call sites, the mutex for the
// actual launch. If a previous run is mid-exit, the launcher waits for
// it so two owner goroutines never overlap.
func (s *Service) ensureStarted() {
	if s.started.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.Load() {
		return
	}
	if s.done != nil {
		<-s.done
	}
	s.stop.Store(false)
	s.state.Store(int32(StateStarting))
	done := make(chan struct{})
	s.done = done
	s.started.Store(true)
	go s.run(s.opts.withDefaults(), done)
}

// run is the owner loop. Per cycle: drain the queue, honor stop and
// close requests with a final drain, run the host frame callback,
// publish a snapshot, sleep. All session mutation happens here.
func (s *Service) run(opts Options, done chan struct{}) {
	defer close(done)
	sess := newSession(opts)
	ticker := time.NewTicker(opts.TickInterval)
	defer ticker.Stop()

	start := time.Now()
	last := start
	s.running.Store(true)
	s.state.Store(int32(StateRunning))
	for {
		s.applyPending(sess)
		if s.stop.Load() {
			sess.RequestClose()
		}
		if sess.closeRequested {
			// Final drain: commands that raced in behind the close
			// request still get applied exactly once.
			s.applyPending(sess)
			break
		}
		now := time.Now()
		if opts.OnFrame != nil {
			opts.OnFrame(sess, now.Sub(start), now.Sub(last))
		}
		last = now
		s.publish(sess)
		<-ticker.C
	}
	s.state.Store(int32(StateStopping))
	s.publish(sess)
	s.running.Store(false)
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.stop.Store(false)
	s.state.Store(int32(StateStopped))
	// Last store: ensureStarted relies on the queue being clear by the
	// time a relaunch can observe started == false.
	s.started.Store(false)
}

// applyPending swaps the queue out under the lock and applies it
// outside, so producers are never blocked behind command execution.
func (s *Service) applyPending(sess *Session) {
	s.mu.Lock()
	updates := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, update := range updates {
		update(sess)
	}
}

func (s *Service) publish(sess *Session) {
	snap := sess.snapshot(s.generation.Add(1))
	s.snap.Store(&snap)
	s.notifySubscribers()
}
