package xtimed

import (
	"slices"
	"sync"
	"time"
)

// Span 表示一次进行中的耗时观测。
//
// Span 覆盖泛型包装器之外的任意函数形态：Start 之后执行被测逻辑，
// 正常返回后调用 End 发射事件。被测逻辑 panic 时 End 不会执行，
// 也就不会发射任何事件，这正是期望的失败语义。
type Span struct {
	name  Name
	cfg   config
	start time.Time

	endOnce sync.Once // 保证 End 幂等，多次调用只发射一次
}

// Start 开始一次耗时观测并立即计时。
//
// name 需要满足 [Name] 的约定，否则 End 时不发射任何事件；
// name 无效而 WithName 提供了有效名称时使用后者。
// Start 永远返回非 nil 的 Span。
func Start(name Name, opts ...Option) *Span {
	cfg := newConfig(opts)
	if !name.IsValid() && cfg.name.IsValid() {
		name = cfg.name
	}
	return &Span{
		name:  slices.Clone(name),
		cfg:   cfg,
		start: time.Now(),
	}
}

// Name 返回本次观测的事件通道快照。
func (s *Span) Name() Name {
	if s == nil {
		return nil
	}
	return slices.Clone(s.name)
}

// End 结束观测并发射一条 {call: 微秒} 事件。
//
// End 是幂等的，多次调用只发射一次。
// meta 非 nil 时作为本条事件的元数据；为 nil 时使用
// WithMetadata / WithMetadataFunc 配置的元数据。
// nil Span 安全返回；名称无效时不发射。
func (s *Span) End(meta Metadata) {
	if s == nil {
		return
	}
	s.endOnce.Do(func() {
		elapsed := time.Since(s.start).Microseconds()
		if !s.name.IsValid() {
			return
		}
		if meta == nil {
			meta = s.cfg.metadata()
		}
		s.cfg.emitSink().Emit(s.name, Measurements{MeasurementCall: elapsed}, meta)
	})
}
