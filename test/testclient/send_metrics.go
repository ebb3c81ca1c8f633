package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Simple program to send test metrics to a running teleview ingest
// endpoint. The gauge samples land as rolling graphs in the view.
// Usage: go run send_metrics.go <endpoint>
// Example: go run send_metrics.go 127.0.0.1:38279
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <endpoint>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s 127.0.0.1:38279\n", os.Args[0])
		os.Exit(1)
	}

	endpoint := os.Args[1]
	fmt.Printf("📡 Connecting to OTLP ingest endpoint: %s\n", endpoint)

	// Create gRPC connection
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create grpc client: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	client := collectormetrics.NewMetricsServiceClient(conn)

	resource := &resourcepb.Resource{
		Attributes: []*commonpb.KeyValue{
			{
				Key:   "service.name",
				Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "demo-metrics-client"}},
			},
		},
	}

	// Send 30 batches at 100ms intervals so the graphs visibly move.
	fmt.Println("🚀 Sending gauge samples (30 batches, 100ms apart)...")
	for i := 0; i < 30; i++ {
		t := float64(i) / 10

		_, err := client.Export(context.Background(), &collectormetrics.ExportMetricsServiceRequest{
			ResourceMetrics: []*metricspb.ResourceMetrics{
				{
					Resource: resource,
					ScopeMetrics: []*metricspb.ScopeMetrics{
						{
							Metrics: []*metricspb.Metric{
								{
									Name: "cpu.load",
									Data: &metricspb.Metric_Gauge{
										Gauge: &metricspb.Gauge{
											DataPoints: []*metricspb.NumberDataPoint{
												{
													TimeUnixNano: uint64(time.Now().UnixNano()),
													Value:        &metricspb.NumberDataPoint_AsDouble{AsDouble: 0.5 + 0.4*math.Sin(t)},
													Attributes: []*commonpb.KeyValue{
														{
															Key:   "core",
															Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: 0}},
														},
													},
												},
											},
										},
									},
								},
								{
									Name: "queue.depth",
									Data: &metricspb.Metric_Sum{
										Sum: &metricspb.Sum{
											DataPoints: []*metricspb.NumberDataPoint{
												{
													TimeUnixNano: uint64(time.Now().UnixNano()),
													Value:        &metricspb.NumberDataPoint_AsInt{AsInt: int64(10 + i%7)},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to export metrics: %v\n", err)
			os.Exit(1)
		}

		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("✅ Metrics exported successfully!")
	fmt.Println("📊 Series published:")
	fmt.Println("   - cpu.load{core=0} (sine wave gauge)")
	fmt.Println("   - queue.depth (sawtooth sum)")
}
