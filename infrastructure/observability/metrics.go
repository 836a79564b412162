package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"totopool/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// MetricsProvider manages OpenTelemetry metrics for the round engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	couponsPlacedCounter         metric.Int64Counter
	variantsPlacedCounter        metric.Int64Counter
	roundTransitionsCounter      metric.Int64Counter
	roundsSettledCounter         metric.Int64Counter
	settlementDurationHist       metric.Float64Histogram
	resultSourceFailuresCounter  metric.Int64Counter
	jackpotGauge                 metric.Float64Gauge
	natsMessagesPublishedCounter metric.Int64Counter
	poolCacheLookupsCounter      metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var reader sdkmetric.Reader
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		reader = mp.periodicReader(exporter)
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		reader = mp.periodicReader(exporter)
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "prometheus":
		// registers with the default prometheus registry served on /metrics
		exporter, err := otelprometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter
		log.Info("Using prometheus metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("totopool")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) periodicReader(exporter sdkmetric.Exporter) sdkmetric.Reader {
	return sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.couponsPlacedCounter, err = mp.meter.Int64Counter(
		CouponsPlacedTotal,
		metric.WithDescription("Total number of coupons placed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create coupons placed counter: %w", err)
	}

	mp.variantsPlacedCounter, err = mp.meter.Int64Counter(
		VariantsPlacedTotal,
		metric.WithDescription("Total number of bet variants created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create variants placed counter: %w", err)
	}

	mp.roundTransitionsCounter, err = mp.meter.Int64Counter(
		RoundTransitionsTotal,
		metric.WithDescription("Total number of round status transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create round transitions counter: %w", err)
	}

	mp.roundsSettledCounter, err = mp.meter.Int64Counter(
		RoundsSettledTotal,
		metric.WithDescription("Total number of rounds settled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rounds settled counter: %w", err)
	}

	mp.settlementDurationHist, err = mp.meter.Float64Histogram(
		SettlementDuration,
		metric.WithDescription("Duration of round settlement in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement duration histogram: %w", err)
	}

	mp.resultSourceFailuresCounter, err = mp.meter.Int64Counter(
		ResultSourceFailuresTotal,
		metric.WithDescription("Total number of result source failures that fell back to local randomness"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create result source failures counter: %w", err)
	}

	mp.jackpotGauge, err = mp.meter.Float64Gauge(
		JackpotAmount,
		metric.WithDescription("Current jackpot carried between rounds"),
	)
	if err != nil {
		return fmt.Errorf("failed to create jackpot gauge: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.poolCacheLookupsCounter, err = mp.meter.Int64Counter(
		PoolCacheLookupsTotal,
		metric.WithDescription("Live pool cache lookups by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pool cache lookups counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordCouponPlaced records a coupon and the number of variants it expanded to
func (mp *MetricsProvider) RecordCouponPlaced(numVariants int) {
	if !mp.isEnabled() {
		return
	}

	mp.couponsPlacedCounter.Add(context.Background(), 1)
	mp.variantsPlacedCounter.Add(context.Background(), int64(numVariants))
}

// RecordRoundTransition records a round entering a new status
func (mp *MetricsProvider) RecordRoundTransition(status string) {
	if !mp.isEnabled() {
		return
	}

	mp.roundTransitionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelStatus, status),
		),
	)
}

// RecordSettlement records a finished settlement and how long it took
func (mp *MetricsProvider) RecordSettlement(policy string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelPolicy, policy),
	)
	mp.roundsSettledCounter.Add(context.Background(), 1, attrs)
	mp.settlementDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordResultSourceFailure records a failed call to the external result source
func (mp *MetricsProvider) RecordResultSourceFailure(reason string) {
	if !mp.isEnabled() {
		return
	}

	mp.resultSourceFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, reason),
		),
	)
}

// SetJackpot records the jackpot after a settlement
func (mp *MetricsProvider) SetJackpot(amount float64) {
	if !mp.isEnabled() {
		return
	}

	mp.jackpotGauge.Record(context.Background(), amount)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordPoolCacheLookup records a live pool cache hit or miss
func (mp *MetricsProvider) RecordPoolCacheLookup(result string) {
	if !mp.isEnabled() {
		return
	}

	mp.poolCacheLookupsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelResult, result),
		),
	)
}

// isEnabled checks if metrics are enabled and have instruments
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider. Recording on a nil
// provider is a no-op.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
