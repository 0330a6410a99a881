package xtimed

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	promCallDuration = "xtimed_call_duration_seconds"
	promCallTotal    = "xtimed_calls_total"

	promLabelEvent = "event"
)

type promConfig struct {
	registerer prometheus.Registerer
	buckets    []float64
}

// PromOption 定义 PromSink 的配置选项。
type PromOption func(*promConfig)

// WithRegisterer 设置指标注册目标，nil 时使用 prometheus.DefaultRegisterer。
func WithRegisterer(reg prometheus.Registerer) PromOption {
	return func(cfg *promConfig) {
		if reg != nil {
			cfg.registerer = reg
		}
	}
}

// WithPromBuckets 设置耗时直方图的桶边界（单位秒），空切片被忽略。
func WithPromBuckets(buckets []float64) PromOption {
	return func(cfg *promConfig) {
		if len(buckets) > 0 {
			cfg.buckets = buckets
		}
	}
}

// PromSink 将事件记录到两支 Prometheus 指标：
//   - xtimed_call_duration_seconds（Histogram）
//   - xtimed_calls_total（Counter）
//
// 事件通道名以 "." 连接后作为 event 标签。
// 元数据不映射为标签：元数据取值不受约束，映射会造成标签基数失控。
type PromSink struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewPromSink 创建基于 Prometheus 的 Sink 并注册指标。
// 重复注册（同名指标已存在）会返回 [ErrRegisterCollector] 包装的错误。
func NewPromSink(opts ...PromOption) (*PromSink, error) {
	cfg := &promConfig{
		registerer: prometheus.DefaultRegisterer,
		buckets:    prometheus.DefBuckets,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    promCallDuration,
		Help:    "Timed call duration in seconds.",
		Buckets: cfg.buckets,
	}, []string{promLabelEvent})

	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: promCallTotal,
		Help: "Total timed calls.",
	}, []string{promLabelEvent})

	for _, c := range []prometheus.Collector{duration, total} {
		if err := cfg.registerer.Register(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegisterCollector, err)
		}
	}

	return &PromSink{duration: duration, total: total}, nil
}

// Emit 记录一条事件。nil 接收者安全返回。元数据被忽略（见类型注释）。
func (s *PromSink) Emit(name Name, measurements Measurements, _ Metadata) {
	if s == nil {
		return
	}
	event := name.String()
	if call, ok := measurements[MeasurementCall]; ok {
		s.duration.WithLabelValues(event).Observe(float64(call) / microsPerSecond)
	}
	s.total.WithLabelValues(event).Inc()
}
