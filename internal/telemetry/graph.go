package telemetry

// GraphConfig controls the capacity and display range of a Graph.
type GraphConfig struct {
	MaxSamples int     `json:"max_samples"`
	AutoScale  bool    `json:"auto_scale"`
	ManualMin  float64 `json:"manual_min"`
	ManualMax  float64 `json:"manual_max"`
}

// DefaultGraphConfig returns the config applied when none is supplied:
// 240 samples of history with autoscaling.
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		MaxSamples: 240,
		AutoScale:  true,
		ManualMin:  0.0,
		ManualMax:  1.0,
	}
}

// Graph is a bounded FIFO buffer of numeric samples. Pushing beyond
// MaxSamples evicts from the front, oldest first. The latest sample is
// tracked independently of the buffer, so it survives trimming,
// including the MaxSamples==0 case, where the buffer keeps no history
// at all. That zero-capacity behavior is deliberate: it means "latest
// value only", not an error.
//
// Graph is owner-goroutine-only and performs no locking.
type Graph struct {
	config  GraphConfig
	samples []float64
	latest  float64
}

// NewGraph creates a graph with the given config.
func NewGraph(config GraphConfig) *Graph {
	return &Graph{config: config}
}

// Config returns the current configuration.
func (g *Graph) Config() GraphConfig { return g.config }

// Configure replaces the configuration and immediately re-trims the
// existing samples to the new capacity, discarding from the front.
func (g *Graph) Configure(config GraphConfig) *Graph {
	g.config = config
	g.trim()
	return g
}

// Push appends one sample, records it as the latest, and trims the
// buffer if it now exceeds capacity.
func (g *Graph) Push(sample float64) {
	g.latest = sample
	g.samples = append(g.samples, sample)
	g.trim()
}

// AddSamples pushes each sample in order. Trimming happens after every
// push, so the result is identical to calling Push in a loop.
func (g *Graph) AddSamples(samples []float64) {
	for _, sample := range samples {
		g.Push(sample)
	}
}

// Samples returns a copy of the buffered samples, oldest first.
func (g *Graph) Samples() []float64 {
	if len(g.samples) == 0 {
		return nil
	}
	out := make([]float64, len(g.samples))
	copy(out, g.samples)
	return out
}

// Len returns the number of buffered samples.
func (g *Graph) Len() int { return len(g.samples) }

// Latest returns the most recently pushed sample, regardless of
// whether it is still in the buffer.
func (g *Graph) Latest() float64 { return g.latest }

func (g *Graph) trim() {
	if g.config.MaxSamples <= 0 {
		g.samples = g.samples[:0]
		return
	}
	if excess := len(g.samples) - g.config.MaxSamples; excess > 0 {
		g.samples = append(g.samples[:0], g.samples[excess:]...)
	}
}
