package xtimed

import (
	"slices"
	"sync"
)

// RecordedEvent 表示 RecorderSink 捕获的一条事件。
type RecordedEvent struct {
	Name         Name
	Measurements Measurements
	Metadata     Metadata
}

// RecorderSink 将事件记录在内存中，供测试与诊断检查。
// 零值即可使用，所有方法并发安全。
type RecorderSink struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// Emit 记录一条事件。
// 记录时对名称、测量值和元数据做浅拷贝，
// 后续检查不受发射方复用底层存储的影响。
func (r *RecorderSink) Emit(name Name, measurements Measurements, metadata Metadata) {
	if r == nil {
		return
	}
	ev := RecordedEvent{
		Name:         slices.Clone(name),
		Measurements: measurements.Clone(),
		Metadata:     metadata.Clone(),
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events 返回已记录事件的快照。
func (r *RecorderSink) Events() []RecordedEvent {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Len 返回已记录的事件数。
func (r *RecorderSink) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset 清空已记录的事件。
func (r *RecorderSink) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
