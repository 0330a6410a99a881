package xtimed

import (
	"reflect"
	"runtime"
	"strings"
)

const (
	// DefaultMarker 是默认事件通道的首段。
	DefaultMarker = "timing"

	// unknownFunc 在无法解析函数短名时作为兜底段。
	unknownFunc = "unknown"
)

// Name 表示事件通道名称，由有序的段组成。
//
// 约定：至少一段，且每段非空。不满足约定的名称不会被发射。
type Name []string

// String 返回以 "." 连接的通道名称，用于日志输出和指标标签。
func (n Name) String() string {
	return strings.Join(n, ".")
}

// IsValid 报告名称是否可以发射：至少一段且每段非空。
func (n Name) IsValid() bool {
	if len(n) == 0 {
		return false
	}
	for _, seg := range n {
		if seg == "" {
			return false
		}
	}
	return true
}

// DefaultName 返回函数 fn 的默认通道 [DefaultMarker, fn]。
// fn 为空时使用 unknown 兜底。
func DefaultName(fn string) Name {
	if fn == "" {
		fn = unknownFunc
	}
	return Name{DefaultMarker, fn}
}

// FuncName 解析函数值的短名称，用于派生默认事件通道。
//
// 短名称不含包路径、泛型实例化标记和方法值后缀，
// 例如 main.add 返回 "add"，pkg.(*Calc).Add-fm 返回 "Add"。
// 匿名函数返回 runtime 赋予的名字（如 "func1"）。
// fn 为 nil 或非函数时返回空字符串。
func FuncName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}
	return shortFuncName(rf.Name())
}

// shortFuncName 将 runtime 返回的完整限定名裁剪为短名称。
//
// 裁剪顺序：去掉最后一个 "/" 之前的路径，去掉方法值的 "-fm" 后缀，
// 去掉 "[" 起始的泛型实例化部分，最后取末一个 "." 之后的段。
// 顺序不可调换：泛型实例化标记内部含 "."（如 go.shape.int）。
func shortFuncName(full string) string {
	s := full
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "-fm")
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
