package xtimed

import "maps"

// MeasurementCall 是耗时测量值的规范键，取值为墙钟微秒数。
const MeasurementCall = "call"

// Measurements 表示一次事件携带的测量值集合。
type Measurements map[string]int64

// Clone 返回测量值的浅拷贝，nil 输入返回 nil。
func (m Measurements) Clone() Measurements {
	return maps.Clone(m)
}

// Metadata 表示一次事件携带的上下文元数据。
//
// 元数据在每次发射前求值，同一包装器的两次调用可以携带不同内容。
type Metadata map[string]any

// Clone 返回元数据的浅拷贝，nil 输入返回 nil。
func (m Metadata) Clone() Metadata {
	return maps.Clone(m)
}
