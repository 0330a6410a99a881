// Package xtimed 为函数调用提供墙钟耗时观测与指标事件发射。
//
// # 设计理念
//
// xtimed 只做一件事：包装一次函数调用，测量其墙钟耗时，并在正常返回后
// 以命名事件 {call: 微秒} 的形式发射到 Sink。事件的订阅、聚合与导出
// 由外部协作方负责，xtimed 不做任何传输、缓冲或重试。
//
// 包装器不改变被包装函数的输入输出契约，不跨调用保存状态，
// 调用路径上不加锁、不起 goroutine。
//
// # 使用示例
//
//	rec := &xtimed.RecorderSink{}
//	add := xtimed.Func2(func(a, b int) int { return a + b },
//		xtimed.WithSink(rec),
//		xtimed.WithName("math", "add"),
//	)
//	sum := add(1, 2) // sum == 3，同时在 ["math","add"] 上发射一条事件
//
// 泛型包装器未覆盖的函数形态使用手动跨度：
//
//	span := xtimed.Start(xtimed.DefaultName("load"))
//	load()
//	span.End(nil)
//
// # 事件命名
//
// 省略名称时使用默认通道 [DefaultMarker, 函数短名]，即 ["timing", "add"]。
//
// # 失败语义
//
// 被包装体 panic 时不发射任何事件，panic 原样向外传播；
// error 返回值属于正常返回，照常发射。
package xtimed
