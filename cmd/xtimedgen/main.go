// xtimedgen 为带 //xtimed:wrap 指令的函数生成计时包装器源码。
//
// 用法:
//
//	xtimedgen [选项] [路径...]
//
// 路径可以是 Go 源文件或目录，目录会被递归处理；缺省处理当前目录。
// 每个含指令的源文件在同目录生成 <文件名>_timed.go，生成文件
// 内容未变化时不重写，便于接入构建缓存。
//
// 选项:
//
//	--suffix          生成文件的文件名后缀 (默认: _timed)
//	--impl-suffix     从实现函数名剥掉的后缀 (默认: Impl)
//	--marker          默认事件通道的首段 (默认: timing)
//	--runtime-import  计时运行时包的导入路径
//	--jobs, -j        并发处理的文件数 (默认: CPU 数)
//	--dry-run         只检查并列出将要生成的文件，不落盘
//	--watch, -w       监听目录变化持续生成
//	--debounce        watch 模式下的去抖间隔 (默认: 500ms)
//	--config, -c      配置文件路径 (.yaml/.yml/.json)
//	--verbose, -v     输出调试日志
//	--log-file        额外把日志写到该文件（JSON 格式，自动轮转）
//
// 退出码:
//
//	0: 全部文件处理成功
//	1: 任一文件生成或写入失败
//	2: 参数或配置错误
//
// 示例:
//
//	xtimedgen ./internal/calc                # 递归处理目录
//	xtimedgen --dry-run main.go              # 只检查单个文件
//	xtimedgen -w --debounce 300ms ./svc      # 监听模式
//	xtimedgen -c xtimedgen.yaml              # 从配置文件读取选项
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xtimed/internal/codegen"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// usageError 表示用户用法错误，统一映射到退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:      "xtimedgen",
		Usage:     "生成计时包装器源码",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		ArgsUsage: "[路径...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "suffix",
				Usage: "生成文件的文件名后缀",
				Value: defaultSuffix,
			},
			&cli.StringFlag{
				Name:  "impl-suffix",
				Usage: "从实现函数名剥掉的后缀",
				Value: codegen.DefaultImplSuffix,
			},
			&cli.StringFlag{
				Name:  "marker",
				Usage: "默认事件通道的首段",
				Value: codegen.DefaultMarker,
			},
			&cli.StringFlag{
				Name:  "runtime-import",
				Usage: "计时运行时包的导入路径",
				Value: codegen.DefaultRuntimeImport,
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "并发处理的文件数",
				Value:   defaultJobs(),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "只检查并列出将要生成的文件，不落盘",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "监听目录变化持续生成",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "watch 模式下的去抖间隔",
				Value: defaultDebounce,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径 (.yaml/.yml/.json)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "输出调试日志",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "额外把日志写到该文件",
			},
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		Action: runAction,
	}
}

// runAction 是根命令入口：合成配置后执行单次生成或进入监听模式。
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	logger, closeLog := newLogger(cfg)
	defer closeLog()

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	r := newRunner(cfg, logger)
	if cmd.Bool("watch") {
		return watchLoop(ctx, r, paths)
	}
	return r.runOnce(ctx, paths)
}

func run(args []string) int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := setupSignalHandler(cancel)
	defer stop()

	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		// CLI 框架产生的参数错误（未知 flag、未知命令）同样映射到退出码 2
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// setupSignalHandler 安装信号处理。
// 返回的 stop 须在进程收尾时调用一次，释放信号订阅并回收后台 goroutine。
func setupSignalHandler(cancel context.CancelFunc) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-done:
			return
		case <-sigCh:
			// 第一次信号: 优雅取消
			cancel()
		}
		select {
		case <-done:
			return
		case <-sigCh:
			// 第二次信号: 强制退出
			os.Exit(130)
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// isCLIUsageError 识别 CLI 框架自身产生的参数错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "flag provided but not defined") ||
		strings.Contains(msg, "unknown command") ||
		strings.Contains(msg, "No help topic for") ||
		strings.Contains(msg, "invalid value")
}
