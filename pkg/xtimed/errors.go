package xtimed

import "errors"

// Sink 构造函数返回的错误。
var (
	// ErrCreateCounter 表示创建 OTel Counter 失败。
	ErrCreateCounter = errors.New("xtimed: create counter failed")
	// ErrCreateHistogram 表示创建 OTel Histogram 失败。
	ErrCreateHistogram = errors.New("xtimed: create histogram failed")
	// ErrInvalidBuckets 表示直方图桶边界配置无效。
	ErrInvalidBuckets = errors.New("xtimed: invalid histogram buckets")
	// ErrRegisterCollector 表示注册 Prometheus collector 失败。
	ErrRegisterCollector = errors.New("xtimed: register collector failed")
)
