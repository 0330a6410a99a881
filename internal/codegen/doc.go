// Package codegen 实现计时包装器的源码生成。
//
// # 指令语法
//
// 在包级函数的文档注释中写入指令即可为其生成计时包装器：
//
//	//xtimed:wrap [public|private] [as=<标识符>] [name=<段>[,<段>...]] [meta=<Go 表达式>]
//
// 各键含义：
//
//   - public / private：包装器可见性，默认 public。
//     包装器名称由实现函数名去掉 Impl 后缀并按可见性调整首字母得到。
//   - as=：显式指定包装器名称，首字母大小写必须与可见性一致。
//   - name=：显式指定事件通道，逗号分隔各段；缺省为 [timing, 包装器名]。
//   - meta=：随事件发射的元数据表达式，取指令行剩余全部内容，
//     可以引用包装器的参数；缺省发射 nil 元数据。
//
// # 生成规则
//
// 每个源文件的全部指令生成一个同目录的 <源文件名>_timed.go，
// 文件头带有标准的 Code generated 标记。包装器在调用前后计时，
// 正常返回后发射一条 {call: 微秒} 事件；实现函数 panic 时
// 不发射任何事件。
//
// 指令必须紧贴包级函数声明。方法、点导入文件、重复或无法解析的
// 指令都在生成期报错，而不是生成有问题的代码。
package codegen
