package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtimed/internal/codegen"
)

// errReadSource 源文件读取失败。
// 监视模式据此判断是否值得重试（编辑器原子保存会让读取短暂失败）。
var errReadSource = errors.New("xtimedgen: 读取源文件失败")

// outcome 单个文件的处理结果分类，用于汇总统计。
type outcome int

const (
	outcomeSkipped   outcome = iota // 无包装指令
	outcomeUnchanged                // 产物与磁盘一致
	outcomeGenerated                // 已写入新产物
	outcomePlanned                  // 预演模式，仅打印计划
)

// runner 驱动一次完整的扫描与生成流程。
type runner struct {
	cfg    *settings
	logger *slog.Logger
}

func newRunner(cfg *settings, logger *slog.Logger) *runner {
	return &runner{cfg: cfg, logger: logger}
}

// runOnce 扫描 paths 下的 Go 源文件并为带指令的文件生成包装代码。
//
// 单个文件的失败不会中断其余文件的处理，所有失败都会记录日志，
// 最终以汇总错误返回。ctx 取消时尽快停止尚未开始的文件。
func (r *runner) runOnce(ctx context.Context, paths []string) error {
	files, err := r.discover(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.logger.Info("未发现待处理的 Go 源文件", "paths", paths)
		return nil
	}

	var generated, unchanged, skipped, planned, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Jobs)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := r.processFile(file)
			if err != nil {
				failed.Add(1)
				r.logger.Error("生成失败", "file", file, "error", err)
				return nil
			}
			switch result {
			case outcomeGenerated:
				generated.Add(1)
			case outcomeUnchanged:
				unchanged.Add(1)
			case outcomePlanned:
				planned.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("扫描完成",
		"files", len(files),
		"generated", generated.Load(),
		"unchanged", unchanged.Load(),
		"skipped", skipped.Load(),
		"planned", planned.Load(),
		"failed", failed.Load(),
	)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d 个文件生成失败", n)
	}
	return nil
}

// processFile 为单个源文件生成包装代码。
//
// 产物内容与磁盘上已有文件一致时跳过写入，保持文件 mtime 稳定，
// 避免触发下游构建工具的无谓重编译。
func (r *runner) processFile(path string) (outcome, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("%w: %v", errReadSource, err)
	}

	res, err := codegen.Generate(path, src, r.cfg.codegenOptions())
	if err != nil {
		return outcomeSkipped, err
	}
	if res == nil {
		r.logger.Debug("无包装指令，跳过", "file", path)
		return outcomeSkipped, nil
	}

	outPath := codegen.OutputPath(path, r.cfg.Suffix)
	if prev, err := os.ReadFile(outPath); err == nil && xxhash.Sum64(prev) == xxhash.Sum64(res.Source) {
		r.logger.Debug("产物未变化", "file", path, "output", outPath)
		return outcomeUnchanged, nil
	}

	if r.cfg.DryRun {
		r.logger.Info("预演，将生成", "file", path, "output", outPath, "wrappers", res.Wrappers)
		return outcomePlanned, nil
	}

	if err := writeFileAtomic(outPath, res.Source); err != nil {
		return outcomeSkipped, fmt.Errorf("写入生成文件失败: %w", err)
	}
	r.logger.Info("已生成", "file", path, "output", outPath, "wrappers", len(res.Wrappers))
	return outcomeGenerated, nil
}

// discover 把命令行参数展开为去重且排序后的源文件列表。
// 参数可以是目录（递归遍历）或单个 Go 源文件。
func (r *runner) discover(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("访问路径失败: %w", err)
		}
		if !info.IsDir() {
			if !strings.HasSuffix(p, ".go") {
				return nil, fmt.Errorf("%s 不是 Go 源文件", p)
			}
			if !isSourceFile(filepath.Base(p), r.cfg.Suffix) {
				r.logger.Debug("跳过不参与生成的文件", "file", p)
				continue
			}
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && !isSourceDir(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if isSourceFile(d.Name(), r.cfg.Suffix) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("遍历目录 %s 失败: %w", p, err)
		}
	}
	slices.Sort(files)
	return files, nil
}

// isSourceDir 判断目录是否参与扫描。隐藏目录、testdata 与 vendor 不进入。
func isSourceDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return name != "testdata" && name != "vendor"
}

// isSourceFile 判断文件名是否是待处理的 Go 源文件。
// 隐藏文件、测试文件和带生成后缀的文件不参与，后者避免工具消费自己的产物。
func isSourceFile(name, suffix string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !strings.HasSuffix(name, ".go") {
		return false
	}
	if strings.HasSuffix(name, "_test.go") {
		return false
	}
	return !strings.HasSuffix(name, suffix+".go")
}

// writeFileAtomic 先写同目录临时文件再重命名，避免读者看到半截内容。
// 临时文件名带随机成分，并发写同一目标时互不干扰。
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	return nil
}
