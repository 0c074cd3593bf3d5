package code_analyzer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "codai-impact.code_analyzer"

var tracer = otel.Tracer(instrumentationName)

// analyzerMetrics holds the instruments of one analyzer
type analyzerMetrics struct {
	analysisLatency metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	parseFailures   metric.Int64Counter
	skipped         metric.Int64Counter
}

func newAnalyzerMetrics(provider metric.MeterProvider) (*analyzerMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	var m analyzerMetrics
	var err error

	m.analysisLatency, err = meter.Float64Histogram(
		"dependency_analysis_duration_seconds",
		metric.WithDescription("Duration of dependency analysis invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheHits, err = meter.Int64Counter(
		"dependency_cache_hits_total",
		metric.WithDescription("Modules served from the dependency cache"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheMisses, err = meter.Int64Counter(
		"dependency_cache_misses_total",
		metric.WithDescription("Modules recomputed because the cache missed"),
	)
	if err != nil {
		return nil, err
	}

	m.parseFailures, err = meter.Int64Counter(
		"dependency_parse_failures_total",
		metric.WithDescription("Changed modules whose syntax tree could not be built"),
	)
	if err != nil {
		return nil, err
	}

	m.skipped, err = meter.Int64Counter(
		"dependency_analysis_skipped_total",
		metric.WithDescription("Invocations skipped by the change-set size guard"),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func startAnalysisSpan(ctx context.Context, projectRoot string, changed int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "DependencyAnalyzer.Analyze",
		trace.WithAttributes(
			attribute.String("analysis.project_root", projectRoot),
			attribute.Int("analysis.changed_files", changed),
		),
	)
}

func setAnalysisSpanResult(span trace.Span, analyzed, hits, misses int, skipped bool) {
	span.SetAttributes(
		attribute.Int("analysis.analyzed_files", analyzed),
		attribute.Int("analysis.cache_hits", hits),
		attribute.Int("analysis.cache_misses", misses),
		attribute.Bool("analysis.skipped", skipped),
	)
}

func (m *analyzerMetrics) record(ctx context.Context, duration time.Duration, hits, misses, parseFailures int, skipped bool) {
	if m == nil {
		return
	}
	if skipped {
		m.skipped.Add(ctx, 1)
		return
	}
	m.analysisLatency.Record(ctx, duration.Seconds())
	m.cacheHits.Add(ctx, int64(hits))
	m.cacheMisses.Add(ctx, int64(misses))
	m.parseFailures.Add(ctx, int64(parseFailures))
}
