package xtimed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtimed/pkg/xtimed"
)

// ============================================================================
// Span 生命周期测试
// ============================================================================

func TestSpan_StartEnd(t *testing.T) {
	rec := &xtimed.RecorderSink{}

	span := xtimed.Start(xtimed.Name{"db", "query"}, xtimed.WithSink(rec))
	time.Sleep(time.Millisecond)
	span.End(nil)

	events := rec.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, xtimed.Name{"db", "query"}, ev.Name)
	call, ok := ev.Measurements[xtimed.MeasurementCall]
	require.True(t, ok)
	assert.GreaterOrEqual(t, call, time.Millisecond.Microseconds())
}

func TestSpan_EndIdempotent(t *testing.T) {
	rec := &xtimed.RecorderSink{}

	span := xtimed.Start(xtimed.DefaultName("load"), xtimed.WithSink(rec))
	span.End(nil)
	span.End(nil)
	span.End(xtimed.Metadata{"ignored": true})

	assert.Equal(t, 1, rec.Len())
}

func TestSpan_EndOnNil(t *testing.T) {
	var span *xtimed.Span
	assert.NotPanics(t, func() { span.End(nil) })
}

func TestSpan_InvalidName_NoEvent(t *testing.T) {
	rec := &xtimed.RecorderSink{}

	xtimed.Start(xtimed.Name{}, xtimed.WithSink(rec)).End(nil)
	xtimed.Start(xtimed.Name{"a", ""}, xtimed.WithSink(rec)).End(nil)

	assert.Zero(t, rec.Len())
}

func TestSpan_WithNameFallback(t *testing.T) {
	rec := &xtimed.RecorderSink{}

	// 位置参数无效时退回 WithName 指定的名字
	span := xtimed.Start(nil, xtimed.WithSink(rec), xtimed.WithName("x", "y"))
	span.End(nil)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, xtimed.Name{"x", "y"}, events[0].Name)
}

func TestSpan_PositionalNameWins(t *testing.T) {
	rec := &xtimed.RecorderSink{}

	span := xtimed.Start(xtimed.Name{"direct"}, xtimed.WithSink(rec), xtimed.WithName("x", "y"))
	span.End(nil)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, xtimed.Name{"direct"}, events[0].Name)
}

// ============================================================================
// Span 元数据测试
// ============================================================================

func TestSpan_EndMetadataOverridesOption(t *testing.T) {
	rec := &xtimed.RecorderSink{}

	span := xtimed.Start(xtimed.DefaultName("load"), xtimed.WithSink(rec),
		xtimed.WithMetadata(xtimed.Metadata{"from": "option"}))
	span.End(xtimed.Metadata{"from": "end"})

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "end", events[0].Metadata["from"])
}

func TestSpan_NilEndMetadata_UsesOption(t *testing.T) {
	rec := &xtimed.RecorderSink{}

	span := xtimed.Start(xtimed.DefaultName("load"), xtimed.WithSink(rec),
		xtimed.WithMetadata(xtimed.Metadata{"from": "option"}))
	span.End(nil)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "option", events[0].Metadata["from"])
}

func TestSpan_NameAccessor(t *testing.T) {
	span := xtimed.Start(xtimed.Name{"db", "query"})
	got := span.Name()
	assert.Equal(t, xtimed.Name{"db", "query"}, got)

	// 返回的是快照，修改不影响 Span 自身
	got[0] = "mutated"
	assert.Equal(t, xtimed.Name{"db", "query"}, span.Name())
}

func TestSpan_NameAccessorOnNil(t *testing.T) {
	var span *xtimed.Span
	assert.Nil(t, span.Name())
}
