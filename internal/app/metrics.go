package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
)

// The tracer is a no-op until a tracer provider is installed. Metrics always
// go to an in-process provider whose manual reader backs the health report.
var tracer = otel.Tracer("sigsync.app")

// Link outcomes recorded by sigsync_link_total.
const (
	OutcomeApplied     = "applied"
	OutcomeAborted     = "aborted"
	OutcomeInvalidated = "invalidated"
	OutcomeSuperseded  = "superseded"
	OutcomeDormant     = "dormant"
)

const linkTotalName = "sigsync_link_total"

var (
	reader          *sdkmetric.ManualReader
	linkTotal       metric.Int64Counter
	resolveDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics installs the meter provider and creates the instruments. Safe
// to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		res := resource.NewWithAttributes("",
			attribute.String("service.name", "sigsync"),
		)
		reader = sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		meter := mp.Meter("sigsync.app")

		var err error

		linkTotal, err = meter.Int64Counter(
			linkTotalName,
			metric.WithDescription("Links by final outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolveDuration, err = meter.Float64Histogram(
			"sigsync_resolve_duration_seconds",
			metric.WithDescription("Duration of counterpart resolution"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordLink(ctx context.Context, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	linkTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordResolve(ctx context.Context, d time.Duration, found bool) {
	if err := initMetrics(); err != nil {
		return
	}
	resolveDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("found", found)))
}

// LinkCounts returns the number of links that ended with each outcome since
// the process started.
func LinkCounts(ctx context.Context) (map[string]int64, error) {
	if err := initMetrics(); err != nil {
		return nil, err
	}
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != linkTotalName {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	return counts, nil
}

// startResolveSpan creates a span for one background resolution.
func startResolveSpan(ctx context.Context, function, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Session.resolve",
		trace.WithAttributes(
			attribute.String("sigsync.function", function),
			attribute.String("sigsync.kind", kind),
		),
	)
}
