package codegen

import "errors"

var (
	// ErrParseSource 表示源文件无法解析。
	ErrParseSource = errors.New("codegen: parse source")

	// ErrDirective 表示指令本身不合法。
	ErrDirective = errors.New("codegen: invalid directive")

	// ErrDirectivePlacement 表示指令没有紧贴包级函数声明。
	ErrDirectivePlacement = errors.New("codegen: directive not attached to a function declaration")

	// ErrMethodNotSupported 表示指令出现在方法上。
	ErrMethodNotSupported = errors.New("codegen: method not supported")

	// ErrDotImport 表示被处理的文件使用了点导入。
	ErrDotImport = errors.New("codegen: dot import not supported")

	// ErrNameConflict 表示包装器名称与现有声明冲突。
	ErrNameConflict = errors.New("codegen: wrapper name conflict")

	// ErrInvalidMeta 表示 meta 表达式无法解析。
	ErrInvalidMeta = errors.New("codegen: invalid metadata expression")

	// ErrFormatOutput 表示生成结果无法通过 gofmt，属于内部错误。
	ErrFormatOutput = errors.New("codegen: format generated source")
)
