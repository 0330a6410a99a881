package xtimed

import "sync/atomic"

// Sink 接收已完成调用的指标事件。
//
// Emit 是即发即弃语义：实现不得有意义地阻塞调用方，
// 内部错误自行消化，不回传给发射方。
// 实现不得修改传入的 name、measurements 和 metadata。
type Sink interface {
	// Emit 发射一条事件。
	Emit(name Name, measurements Measurements, metadata Metadata)
}

// SinkFunc 将函数适配为 Sink。
type SinkFunc func(name Name, measurements Measurements, metadata Metadata)

// Emit 调用自身，nil 函数不做任何处理。
func (f SinkFunc) Emit(name Name, measurements Measurements, metadata Metadata) {
	if f == nil {
		return
	}
	f(name, measurements, metadata)
}

// NoopSink 是丢弃所有事件的空实现。
type NoopSink struct{}

// Emit 空实现，不做任何处理。
func (NoopSink) Emit(Name, Measurements, Metadata) {}

// sinkBox 包装 Sink 接口值，使其可以整体原子替换。
type sinkBox struct {
	sink Sink
}

var defaultSink atomic.Pointer[sinkBox]

func init() {
	defaultSink.Store(&sinkBox{sink: NoopSink{}})
}

// Default 返回进程级默认 Sink，初始为 [NoopSink]。
func Default() Sink {
	return defaultSink.Load().sink
}

// SetDefault 替换进程级默认 Sink，nil 会被忽略。
//
// 未通过 WithSink 显式指定 Sink 的包装器在每次发射时读取默认 Sink，
// 因此替换对已创建的包装器立即生效。
func SetDefault(s Sink) {
	if s == nil {
		return
	}
	defaultSink.Store(&sinkBox{sink: s})
}
