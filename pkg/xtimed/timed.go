package xtimed

import "time"

// resolveName 在包装期确定事件通道：显式名称优先，
// 否则取函数短名派生的默认通道。函数名解析只在包装期执行一次。
func resolveName(cfg config, fn any) Name {
	if cfg.name.IsValid() {
		return cfg.name
	}
	return DefaultName(FuncName(fn))
}

// emit 发射一条 {call: 微秒} 事件。
func emit(cfg config, name Name, start time.Time) {
	cfg.emitSink().Emit(
		name,
		Measurements{MeasurementCall: time.Since(start).Microseconds()},
		cfg.metadata(),
	)
}

// Func0 包装无参函数。
//
// 返回的包装器与 fn 的输入输出契约完全一致：每次正常返回后发射
// 一条 {call: 微秒} 事件；fn panic 时不发射且 panic 原样传播。
// 未指定 WithName 时使用默认通道 [DefaultMarker, 函数短名]。
// 并发调用互不影响。nil fn 返回 nil。
func Func0[R any](fn func() R, opts ...Option) func() R {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func() R {
		start := time.Now()
		r := fn()
		emit(cfg, name, start)
		return r
	}
}

// Func1 包装单参函数，语义同 [Func0]。
func Func1[A, R any](fn func(A) R, opts ...Option) func(A) R {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func(a A) R {
		start := time.Now()
		r := fn(a)
		emit(cfg, name, start)
		return r
	}
}

// Func2 包装双参函数，语义同 [Func0]。
func Func2[A, B, R any](fn func(A, B) R, opts ...Option) func(A, B) R {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func(a A, b B) R {
		start := time.Now()
		r := fn(a, b)
		emit(cfg, name, start)
		return r
	}
}

// Func3 包装三参函数，语义同 [Func0]。
func Func3[A, B, C, R any](fn func(A, B, C) R, opts ...Option) func(A, B, C) R {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func(a A, b B, c C) R {
		start := time.Now()
		r := fn(a, b, c)
		emit(cfg, name, start)
		return r
	}
}

// Func0Err 包装返回 (R, error) 的无参函数，语义同 [Func0]。
// error 返回值属于正常返回，照常发射事件。
func Func0Err[R any](fn func() (R, error), opts ...Option) func() (R, error) {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func() (R, error) {
		start := time.Now()
		r, err := fn()
		emit(cfg, name, start)
		return r, err
	}
}

// Func1Err 包装返回 (R, error) 的单参函数，语义同 [Func0Err]。
func Func1Err[A, R any](fn func(A) (R, error), opts ...Option) func(A) (R, error) {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func(a A) (R, error) {
		start := time.Now()
		r, err := fn(a)
		emit(cfg, name, start)
		return r, err
	}
}

// Func2Err 包装返回 (R, error) 的双参函数，语义同 [Func0Err]。
func Func2Err[A, B, R any](fn func(A, B) (R, error), opts ...Option) func(A, B) (R, error) {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func(a A, b B) (R, error) {
		start := time.Now()
		r, err := fn(a, b)
		emit(cfg, name, start)
		return r, err
	}
}

// Func3Err 包装返回 (R, error) 的三参函数，语义同 [Func0Err]。
func Func3Err[A, B, C, R any](fn func(A, B, C) (R, error), opts ...Option) func(A, B, C) (R, error) {
	if fn == nil {
		return nil
	}
	cfg := newConfig(opts)
	name := resolveName(cfg, fn)
	return func(a A, b B, c C) (R, error) {
		start := time.Now()
		r, err := fn(a, b, c)
		emit(cfg, name, start)
		return r, err
	}
}
