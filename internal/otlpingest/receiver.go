// Package otlpingest runs an OTLP/gRPC metrics endpoint that feeds
// received data points into the telemetry service: numeric series
// become rolling graph samples, histograms become structure trees.
// It lets external processes publish into the same live view that
// in-process producers use.
package otlpingest

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	"google.golang.org/grpc"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// Sink is where decoded data points land. *service.Service satisfies
// it. Implementations must be safe for concurrent use; Export may be
// called from multiple gRPC handler goroutines.
type Sink interface {
	PostGraphSample(tabID, key string, sample float64, config ...telemetry.GraphConfig)
	PostStructure(tabID, key string, build func(telemetry.Builder))
}

// Config holds configuration for the OTLP metrics endpoint.
type Config struct {
	Host string // e.g., "127.0.0.1"
	Port int    // 0 for ephemeral port assignment
	// TabID is the tab all ingested metrics are routed to. Empty
	// routes to the service's default tab.
	TabID string
}

// Server is the OTLP gRPC server that receives metric data.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	stopOnce   sync.Once
	stopChan   chan struct{}
	stopDone   chan struct{}
}

// NewServer creates a metrics endpoint bound to the configured host
// and port (use port 0 for ephemeral). Decoded data points are posted
// to the sink.
func NewServer(cfg Config, sink Sink) (*Server, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	collectormetrics.RegisterMetricsServiceServer(grpcServer, &metricsServiceImpl{
		ingester: &Ingester{Sink: sink, TabID: cfg.TabID},
	})

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		stopChan:   make(chan struct{}),
		stopDone:   make(chan struct{}, 1),
	}, nil
}

// Start begins serving OTLP requests. This method blocks until Stop is
// called. It should typically be run in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopChan:
		}
	}()

	err := s.grpcServer.Serve(s.listener)
	s.stopDone <- struct{}{}
	return err
}

// Stop initiates graceful shutdown of the server. Safe to call
// multiple times.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.grpcServer.GracefulStop()
		close(s.stopChan)
	})
}

// StopWait stops the server and waits for shutdown to complete.
func (s *Server) StopWait() {
	s.Stop()
	<-s.stopDone
}

// Endpoint returns the actual listening address, useful with ephemeral
// ports. Format "host:port", e.g., "127.0.0.1:54321".
func (s *Server) Endpoint() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type metricsServiceImpl struct {
	collectormetrics.UnimplementedMetricsServiceServer
	ingester *Ingester
}

func (m *metricsServiceImpl) Export(
	ctx context.Context,
	req *collectormetrics.ExportMetricsServiceRequest,
) (*collectormetrics.ExportMetricsServiceResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	m.ingester.Ingest(req.ResourceMetrics)
	return &collectormetrics.ExportMetricsServiceResponse{}, nil
}

// Ingester maps OTLP metric payloads onto telemetry primitives.
type Ingester struct {
	Sink  Sink
	TabID string
}

// Ingest walks ResourceMetrics -> ScopeMetrics -> Metrics and posts
// each data point. Gauges and sums feed rolling graphs keyed by metric
// name plus sorted attributes; histograms and summaries feed structure
// trees carrying their aggregate fields.
func (in *Ingester) Ingest(rms []*metricspb.ResourceMetrics) {
	for _, rm := range rms {
		if rm == nil {
			continue
		}
		for _, sm := range rm.ScopeMetrics {
			if sm == nil {
				continue
			}
			for _, metric := range sm.Metrics {
				if metric != nil {
					in.ingestMetric(metric)
				}
			}
		}
	}
}

func (in *Ingester) ingestMetric(metric *metricspb.Metric) {
	switch data := metric.Data.(type) {
	case *metricspb.Metric_Gauge:
		in.ingestNumbers(metric.Name, data.Gauge.DataPoints)
	case *metricspb.Metric_Sum:
		in.ingestNumbers(metric.Name, data.Sum.DataPoints)
	case *metricspb.Metric_Histogram:
		for _, dp := range data.Histogram.DataPoints {
			in.ingestHistogram(metric.Name, dp)
		}
	case *metricspb.Metric_Summary:
		for _, dp := range data.Summary.DataPoints {
			in.ingestSummary(metric.Name, dp)
		}
	default:
		// Exponential histograms and future types are skipped rather
		// than guessed at.
	}
}

func (in *Ingester) ingestNumbers(name string, points []*metricspb.NumberDataPoint) {
	for _, dp := range points {
		if dp == nil {
			continue
		}
		key := seriesKey(name, dp.Attributes)
		in.Sink.PostGraphSample(in.TabID, key, numberValue(dp))
	}
}

func (in *Ingester) ingestHistogram(name string, dp *metricspb.HistogramDataPoint) {
	if dp == nil {
		return
	}
	key := seriesKey(name, dp.Attributes)
	in.Sink.PostStructure(in.TabID, key, func(b telemetry.Builder) {
		b.Field("count", telemetry.Int(int64(dp.Count)))
		if dp.Sum != nil {
			b.Field("sum", telemetry.Float(*dp.Sum))
		}
		if dp.Min != nil {
			b.Field("min", telemetry.Float(*dp.Min))
		}
		if dp.Max != nil {
			b.Field("max", telemetry.Float(*dp.Max))
		}
		if len(dp.BucketCounts) > 0 {
			buckets := b.Nested("buckets")
			for i, count := range dp.BucketCounts {
				buckets.Field(bucketLabel(dp.ExplicitBounds, i), telemetry.Int(int64(count)))
			}
		}
	})
}

func (in *Ingester) ingestSummary(name string, dp *metricspb.SummaryDataPoint) {
	if dp == nil {
		return
	}
	key := seriesKey(name, dp.Attributes)
	in.Sink.PostStructure(in.TabID, key, func(b telemetry.Builder) {
		b.Field("count", telemetry.Int(int64(dp.Count)))
		b.Field("sum", telemetry.Float(dp.Sum))
		if len(dp.QuantileValues) > 0 {
			quantiles := b.Nested("quantiles")
			for _, q := range dp.QuantileValues {
				if q != nil {
					quantiles.Field(fmt.Sprintf("p%g", q.Quantile*100), telemetry.Float(q.Value))
				}
			}
		}
	})
}

func numberValue(dp *metricspb.NumberDataPoint) float64 {
	switch v := dp.Value.(type) {
	case *metricspb.NumberDataPoint_AsDouble:
		return v.AsDouble
	case *metricspb.NumberDataPoint_AsInt:
		return float64(v.AsInt)
	default:
		return 0
	}
}

// seriesKey builds a stable graph key from the metric name and its
// data point attributes, sorted so attribute order on the wire never
// splits a series.
func seriesKey(name string, attrs []*commonpb.KeyValue) string {
	if len(attrs) == 0 {
		return name
	}
	pairs := make([]string, 0, len(attrs))
	for _, kv := range attrs {
		if kv == nil {
			continue
		}
		pairs = append(pairs, kv.Key+"="+attrString(kv.Value))
	}
	if len(pairs) == 0 {
		return name
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func attrString(v *commonpb.AnyValue) string {
	if v == nil {
		return ""
	}
	switch val := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_IntValue:
		return fmt.Sprintf("%d", val.IntValue)
	case *commonpb.AnyValue_DoubleValue:
		return fmt.Sprintf("%g", val.DoubleValue)
	case *commonpb.AnyValue_BoolValue:
		return fmt.Sprintf("%t", val.BoolValue)
	default:
		return v.String()
	}
}

func bucketLabel(bounds []float64, i int) string {
	if i < len(bounds) {
		return fmt.Sprintf("le_%g", bounds[i])
	}
	return "le_inf"
}
