package xtimed

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xtimed"

	metricCallDuration = "xtimed.call.duration"
	metricCallTotal    = "xtimed.call.total"

	attrEvent = "event"

	microsPerSecond = 1e6
)

type otelConfig struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
	buckets             []float64
}

// OTelOption 定义 OTelSink 的配置选项。
type OTelOption func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称，空值被忽略。
func WithInstrumentationName(name string) OTelOption {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 时使用全局默认。
func WithMeterProvider(provider metric.MeterProvider) OTelOption {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// WithBuckets 设置耗时直方图的桶边界（单位秒），空切片被忽略。
// 边界必须严格递增且不含 NaN，否则 NewOTelSink 返回 [ErrInvalidBuckets]。
func WithBuckets(bounds []float64) OTelOption {
	return func(cfg *otelConfig) {
		if len(bounds) > 0 {
			cfg.buckets = bounds
		}
	}
}

// OTelSink 将事件记录到两支固定的 OpenTelemetry 指标：
//   - xtimed.call.duration（Float64Histogram，单位秒）
//   - xtimed.call.total（Int64Counter）
//
// 事件通道名以 "." 连接后作为 event 属性，元数据逐键转换为 OTel 属性。
// 元数据取值需要调用方自行保持有界，基数失控是指标后端的常见事故源。
type OTelSink struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// NewOTelSink 创建基于 OpenTelemetry 指标的 Sink。
func NewOTelSink(opts ...OTelOption) (*OTelSink, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if err := validateBuckets(cfg.buckets); err != nil {
		return nil, err
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	durationOpts := []metric.Float64HistogramOption{
		metric.WithDescription("timed call duration"),
		metric.WithUnit("s"),
	}
	if len(cfg.buckets) > 0 {
		durationOpts = append(durationOpts, metric.WithExplicitBucketBoundaries(cfg.buckets...))
	}
	duration, err := meter.Float64Histogram(metricCallDuration, durationOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	total, err := meter.Int64Counter(
		metricCallTotal,
		metric.WithDescription("timed calls total"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}

	return &OTelSink{duration: duration, total: total}, nil
}

func validateBuckets(bounds []float64) error {
	for i, b := range bounds {
		if math.IsNaN(b) {
			return fmt.Errorf("%w: bound %d is NaN", ErrInvalidBuckets, i)
		}
		if i > 0 && b <= bounds[i-1] {
			return fmt.Errorf("%w: bounds must be strictly increasing", ErrInvalidBuckets)
		}
	}
	return nil
}

// Emit 记录一条事件。nil 接收者安全返回。
//
// Sink 不接收调用方 context，统一使用 Background 记录，
// 指标写入不受任何请求取消或超时影响。
func (s *OTelSink) Emit(name Name, measurements Measurements, metadata Metadata) {
	if s == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, 1+len(metadata))
	attrs = append(attrs, attribute.String(attrEvent, name.String()))
	attrs = append(attrs, metadataToOTel(metadata)...)
	set := metric.WithAttributes(attrs...)

	ctx := context.Background()
	if call, ok := measurements[MeasurementCall]; ok {
		s.duration.Record(ctx, float64(call)/microsPerSecond, set)
	}
	s.total.Add(ctx, 1, set)
}

func metadataToOTel(metadata Metadata) []attribute.KeyValue {
	if len(metadata) == 0 {
		return nil
	}
	converted := make([]attribute.KeyValue, 0, len(metadata))
	for key, value := range metadata {
		if key == "" || value == nil {
			continue
		}
		converted = append(converted, metaToKeyValue(key, value))
	}
	return converted
}

func metaToKeyValue(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		if v <= math.MaxInt64 {
			return attribute.Int64(key, int64(v))
		}
		return attribute.String(key, fmt.Sprint(v))
	case float64:
		return attribute.Float64(key, v)
	case float32:
		return attribute.Float64(key, float64(v))
	case time.Duration:
		return attribute.Int64(key, v.Nanoseconds())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
