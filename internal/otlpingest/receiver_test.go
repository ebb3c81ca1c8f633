package otlpingest

import (
	"context"
	"sync"
	"testing"
	"time"

	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// recordingSink captures what the ingester posts.
type recordingSink struct {
	mu         sync.Mutex
	samples    map[string][]float64
	structures map[string][]telemetry.StructureNode
	values     map[string]telemetry.Scalar
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		samples:    make(map[string][]float64),
		structures: make(map[string][]telemetry.StructureNode),
		values:     make(map[string]telemetry.Scalar),
	}
}

func (r *recordingSink) PostValue(tabID, key string, value telemetry.Scalar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

func (r *recordingSink) PostGraphSample(tabID, key string, sample float64, config ...telemetry.GraphConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[key] = append(r.samples[key], sample)
}

func (r *recordingSink) PostStructure(tabID, key string, build func(telemetry.Builder)) {
	var nodes []telemetry.StructureNode
	build(telemetry.NewBuilder(&nodes))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.structures[key] = nodes
}

func (r *recordingSink) graphSamples(key string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples[key]
}

func gaugeMetric(name string, value float64, attrs ...*commonpb.KeyValue) *metricspb.Metric {
	return &metricspb.Metric{
		Name: name,
		Data: &metricspb.Metric_Gauge{
			Gauge: &metricspb.Gauge{
				DataPoints: []*metricspb.NumberDataPoint{
					{
						TimeUnixNano: uint64(time.Now().UnixNano()),
						Value:        &metricspb.NumberDataPoint_AsDouble{AsDouble: value},
						Attributes:   attrs,
					},
				},
			},
		},
	}
}

func wrap(metrics ...*metricspb.Metric) []*metricspb.ResourceMetrics {
	return []*metricspb.ResourceMetrics{
		{
			Resource:     &resourcepb.Resource{},
			ScopeMetrics: []*metricspb.ScopeMetrics{{Metrics: metrics}},
		},
	}
}

func TestIngestGauge(t *testing.T) {
	sink := newRecordingSink()
	in := &Ingester{Sink: sink}

	in.Ingest(wrap(gaugeMetric("engine.fps", 59.7)))

	got := sink.graphSamples("engine.fps")
	if len(got) != 1 || got[0] != 59.7 {
		t.Errorf("samples = %v, want [59.7]", got)
	}
}

func TestIngestSumAsInt(t *testing.T) {
	sink := newRecordingSink()
	in := &Ingester{Sink: sink}

	metric := &metricspb.Metric{
		Name: "requests.total",
		Data: &metricspb.Metric_Sum{
			Sum: &metricspb.Sum{
				IsMonotonic:            true,
				AggregationTemporality: metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE,
				DataPoints: []*metricspb.NumberDataPoint{
					{Value: &metricspb.NumberDataPoint_AsInt{AsInt: 128}},
				},
			},
		},
	}
	in.Ingest(wrap(metric))

	got := sink.graphSamples("requests.total")
	if len(got) != 1 || got[0] != 128 {
		t.Errorf("samples = %v, want [128]", got)
	}
}

func TestIngestAttributesFormKey(t *testing.T) {
	sink := newRecordingSink()
	in := &Ingester{Sink: sink}

	attrs := []*commonpb.KeyValue{
		{Key: "zone", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "eu"}}},
		{Key: "host", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "a1"}}},
	}
	in.Ingest(wrap(gaugeMetric("cpu.load", 0.5, attrs...)))

	// Attributes are sorted, so wire order never splits a series.
	want := "cpu.load{host=a1,zone=eu}"
	if got := sink.graphSamples(want); len(got) != 1 {
		t.Errorf("no samples under %q, sink: %+v", want, sink.samples)
	}
}

func TestIngestHistogram(t *testing.T) {
	sink := newRecordingSink()
	in := &Ingester{Sink: sink}

	sum := 12.5
	metric := &metricspb.Metric{
		Name: "request.duration",
		Data: &metricspb.Metric_Histogram{
			Histogram: &metricspb.Histogram{
				DataPoints: []*metricspb.HistogramDataPoint{
					{
						Count:          10,
						Sum:            &sum,
						BucketCounts:   []uint64{4, 5, 1},
						ExplicitBounds: []float64{0.5, 1},
					},
				},
			},
		},
	}
	in.Ingest(wrap(metric))

	nodes := sink.structures["request.duration"]
	if len(nodes) == 0 {
		t.Fatal("no structure ingested")
	}
	if nodes[0].Label != "count" {
		t.Errorf("first field = %q, want count", nodes[0].Label)
	}
	var buckets *telemetry.StructureNode
	for i := range nodes {
		if nodes[i].Label == "buckets" {
			buckets = &nodes[i]
		}
	}
	if buckets == nil {
		t.Fatal("buckets group missing")
	}
	if len(buckets.Children) != 3 {
		t.Fatalf("bucket children = %d, want 3", len(buckets.Children))
	}
	if buckets.Children[2].Label != "le_inf" {
		t.Errorf("overflow bucket label = %q", buckets.Children[2].Label)
	}
}

func TestIngestSkipsNils(t *testing.T) {
	sink := newRecordingSink()
	in := &Ingester{Sink: sink}

	in.Ingest([]*metricspb.ResourceMetrics{
		nil,
		{ScopeMetrics: []*metricspb.ScopeMetrics{nil, {Metrics: []*metricspb.Metric{nil}}}},
	})

	if len(sink.samples) != 0 || len(sink.structures) != 0 {
		t.Errorf("nil payloads produced output: %+v %+v", sink.samples, sink.structures)
	}
}

func TestNewServerNilSink(t *testing.T) {
	_, err := NewServer(Config{Host: "127.0.0.1", Port: 0}, nil)
	if err == nil {
		t.Fatal("expected error for nil sink, got nil")
	}
}

// TestExportRoundTrip sends a gauge through a real gRPC connection and
// checks it lands in the sink.
func TestExportRoundTrip(t *testing.T) {
	sink := newRecordingSink()
	server, err := NewServer(Config{Host: "127.0.0.1", Port: 0}, sink)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := server.Start(ctx); err != nil {
			t.Logf("server error: %v", err)
		}
	}()
	defer server.StopWait()

	time.Sleep(100 * time.Millisecond)

	conn, err := grpc.NewClient(server.Endpoint(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to create grpc client: %v", err)
	}
	defer conn.Close()

	client := collectormetrics.NewMetricsServiceClient(conn)
	resp, err := client.Export(context.Background(), &collectormetrics.ExportMetricsServiceRequest{
		ResourceMetrics: wrap(gaugeMetric("test.gauge", 42)),
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if resp == nil {
		t.Fatal("response is nil")
	}

	got := sink.graphSamples("test.gauge")
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("samples = %v, want [42]", got)
	}
}
