package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/omeyang/xtimed/internal/codegen"
)

const (
	// watchCacheSize 源文件内容指纹缓存的容量上限。
	watchCacheSize = 4096

	watchRetryAttempts = 3
	watchRetryDelay    = 50 * time.Millisecond
)

// watchLoop 监视 paths 下的源文件变更并增量重新生成。
//
// 监视目录而非单个文件，编辑器原子保存（写临时文件后 rename）
// 只会在目录层面产生稳定事件。变更按防抖窗口合并，窗口内对同一
// 文件的多次保存只处理一次。阻塞直到 ctx 取消。
func watchLoop(ctx context.Context, r *runner, paths []string) error {
	dirs, err := collectWatchDirs(paths)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监视器失败: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("监视目录 %s 失败: %w", dir, err)
		}
	}
	r.logger.Info("进入监视模式", "dirs", len(dirs), "debounce", r.cfg.Debounce)

	// 监视建立后先全量生成一次，覆盖启动之前的改动。
	// 初始扫描失败不退出监视，源文件修复后会自动重新生成。
	if err := r.runOnce(ctx, paths); err != nil {
		r.logger.Error("初始扫描失败", "error", err)
	}

	// 记录每个源文件最近一次成功生成时的内容指纹，
	// 编辑器保存动作往往触发多个事件，指纹一致就无需重新生成。
	seen := expirable.NewLRU[string, uint64](watchCacheSize, nil, 0)
	pending := make(map[string]struct{})

	debounce := time.NewTimer(r.cfg.Debounce)
	defer debounce.Stop()
	stopTimer(debounce)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("收到退出信号，停止监视")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if r.handleWatchEvent(ctx, watcher, event, pending) {
				stopTimer(debounce)
				debounce.Reset(r.cfg.Debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("监视器错误", "error", err)

		case <-debounce.C:
			r.flushPending(ctx, seen, pending)
		}
	}
}

// handleWatchEvent 处理单个文件系统事件，返回是否需要重置防抖计时器。
// 新建目录会被纳入监视范围并立即扫描一次，目录在 Add 之前写入的文件
// 不会再产生事件。
func (r *runner) handleWatchEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, pending map[string]struct{}) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !isSourceDir(filepath.Base(event.Name)) {
				return false
			}
			r.watchNewTree(ctx, watcher, event.Name)
			return false
		}
	}

	if !isSourceFile(filepath.Base(event.Name), r.cfg.Suffix) {
		return false
	}
	pending[event.Name] = struct{}{}
	return true
}

// watchNewTree 把新建目录及其子目录加入监视并扫描一次。
func (r *runner) watchNewTree(ctx context.Context, watcher *fsnotify.Watcher, root string) {
	dirs, err := collectWatchDirs([]string{root})
	if err != nil {
		r.logger.Error("遍历新目录失败", "dir", root, "error", err)
		return
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			r.logger.Error("监视新目录失败", "dir", dir, "error", err)
			continue
		}
		r.logger.Debug("监视新目录", "dir", dir)
	}
	if err := r.runOnce(ctx, []string{root}); err != nil {
		r.logger.Error("扫描新目录失败", "dir", root, "error", err)
	}
}

// flushPending 处理防抖窗口内积累的全部变更文件。
func (r *runner) flushPending(ctx context.Context, seen *expirable.LRU[string, uint64], pending map[string]struct{}) {
	for path := range pending {
		delete(pending, path)
		r.processWatched(ctx, seen, path)
	}
}

// processWatched 为一个变更文件重新生成包装代码。
func (r *runner) processWatched(ctx context.Context, seen *expirable.LRU[string, uint64], path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		// 防抖窗口内被删除，不算错误；已生成的产物保留
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("源文件已删除，跳过", "file", path)
			return
		}
		r.logger.Error("读取变更文件失败", "file", path, "error", err)
		return
	}
	digest := xxhash.Sum64(src)
	if prev, ok := seen.Get(path); ok && prev == digest {
		r.logger.Debug("内容未变化，跳过", "file", path)
		return
	}

	err = retry.New(
		retry.Context(ctx),
		retry.Attempts(watchRetryAttempts),
		retry.Delay(watchRetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// 原子保存过程中读取或解析会短暂失败，重试即可恢复；
			// 指令本身的语义错误是稳定的，重试没有意义。
			return errors.Is(err, errReadSource) || errors.Is(err, codegen.ErrParseSource)
		}),
	).Do(func() error {
		_, err := r.processFile(path)
		return err
	})
	if err != nil {
		r.logger.Error("生成失败", "file", path, "error", err)
		return
	}
	seen.Add(path, digest)
}

// collectWatchDirs 递归收集 paths 下需要监视的目录。
// 监视模式只接受目录参数。
func collectWatchDirs(paths []string) ([]string, error) {
	var dirs []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("访问路径失败: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("监视模式只接受目录参数: %s", p)
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != p && !isSourceDir(d.Name()) {
				return fs.SkipDir
			}
			dirs = append(dirs, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("遍历目录 %s 失败: %w", p, err)
		}
	}
	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}

// stopTimer 停住计时器并清空可能残留的触发信号，供 Reset 前调用。
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
