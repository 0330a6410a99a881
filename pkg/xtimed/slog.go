package xtimed

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// SlogSink 将事件以结构化日志形式输出，适合开发调试或没有指标后端的环境。
//
// 每条事件输出一行 Info 日志，包含 event 属性和
// measurements / metadata 两个分组，组内键按字典序排列。
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink 创建基于 slog 的 Sink。logger 为 nil 时使用 slog.Default()。
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Emit 以 Info 级别输出一条事件。nil 接收者安全返回。
func (s *SlogSink) Emit(name Name, measurements Measurements, metadata Metadata) {
	if s == nil || s.logger == nil {
		return
	}

	attrs := make([]slog.Attr, 0, 3)
	attrs = append(attrs, slog.String(attrEvent, name.String()))
	if len(measurements) > 0 {
		group := make([]any, 0, len(measurements))
		for _, k := range slices.Sorted(maps.Keys(measurements)) {
			group = append(group, slog.Int64(k, measurements[k]))
		}
		attrs = append(attrs, slog.Group("measurements", group...))
	}
	if len(metadata) > 0 {
		group := make([]any, 0, len(metadata))
		for _, k := range slices.Sorted(maps.Keys(metadata)) {
			group = append(group, slog.Any(k, metadata[k]))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, "timed call", attrs...)
}
