package xtimed

import "slices"

// config 保存包装器的生效配置。
type config struct {
	sink     Sink
	name     Name
	meta     Metadata
	metaFunc func() Metadata
}

// Option 定义包装器和手动跨度的配置选项。
type Option func(*config)

// WithSink 指定事件发射目标。
// nil 会被忽略，此时每次发射读取进程级默认 Sink。
func WithSink(s Sink) Option {
	return func(c *config) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithName 指定事件通道名称。
// 没有段或含空段的名称会被忽略，保留默认通道。
func WithName(segments ...string) Option {
	return func(c *config) {
		name := Name(segments)
		if !name.IsValid() {
			return
		}
		c.name = slices.Clone(name)
	}
}

// WithMetadata 指定随每条事件发射的静态元数据。
// nil 或空映射会被忽略。映射按引用携带，包装后不应再修改。
func WithMetadata(meta Metadata) Option {
	return func(c *config) {
		if len(meta) == 0 {
			return
		}
		c.meta = meta
	}
}

// WithMetadataFunc 指定每次发射前重新求值的元数据函数。
// 与 WithMetadata 同时设置时以函数结果为准。nil 会被忽略。
func WithMetadataFunc(fn func() Metadata) Option {
	return func(c *config) {
		if fn != nil {
			c.metaFunc = fn
		}
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// metadata 解析本次发射使用的元数据。
func (c *config) metadata() Metadata {
	if c.metaFunc != nil {
		return c.metaFunc()
	}
	return c.meta
}

// emitSink 解析本次发射使用的 Sink。
func (c *config) emitSink() Sink {
	if c.sink != nil {
		return c.sink
	}
	return Default()
}
