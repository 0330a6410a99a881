package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const directiveSource = `package calc

//xtimed:wrap
func addImpl(a, b int) int { return a + b }
`

const noDirectiveSource = `package calc

func plain(a int) int { return a }
`

// 方法不支持包装指令，生成必定失败。
const badDirectiveSource = `package calc

type Calc struct{}

//xtimed:wrap
func (c *Calc) addImpl(a, b int) int { return a + b }
`

func newTestRunner(t *testing.T, mutate func(*settings)) *runner {
	t.Helper()
	cfg := defaultSettings()
	cfg.Jobs = 2
	if mutate != nil {
		mutate(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newRunner(cfg, logger)
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("建目录失败: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写源文件失败: %v", err)
	}
	return path
}

func TestRunOnceGenerates(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "sample.go", directiveSource)

	r := newTestRunner(t, nil)
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dir, "sample_timed.go"))
	if err != nil {
		t.Fatalf("读取生成文件失败: %v", err)
	}
	got := string(out)

	if !strings.Contains(got, "// Code generated by xtimedgen from sample.go; DO NOT EDIT.") {
		t.Error("缺少生成文件头")
	}
	if !strings.Contains(got, "func Add(a int, b int) int") {
		t.Errorf("缺少包装函数:\n%s", got)
	}
	if !strings.Contains(got, `xtimed.Name{"timing", "Add"}`) {
		t.Errorf("缺少默认事件通道:\n%s", got)
	}
}

func TestRunOnceNoDirective(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "plain.go", noDirectiveSource)

	r := newTestRunner(t, nil)
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "plain_timed.go")); !os.IsNotExist(err) {
		t.Errorf("无指令的文件不应有产物, stat err = %v", err)
	}
}

func TestRunOnceUnchangedSkipsRewrite(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "sample.go", directiveSource)
	outPath := filepath.Join(dir, "sample_timed.go")

	r := newTestRunner(t, nil)
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("第一次 runOnce() error = %v", err)
	}
	first, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat 生成文件失败: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("第二次 runOnce() error = %v", err)
	}
	second, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat 生成文件失败: %v", err)
	}

	// 内容未变时不重写，mtime 保持稳定
	if !first.ModTime().Equal(second.ModTime()) {
		t.Errorf("产物被重写: %v -> %v", first.ModTime(), second.ModTime())
	}
}

func TestRunOnceRegeneratesOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "sample.go", directiveSource)

	r := newTestRunner(t, nil)
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	writeSource(t, dir, "sample.go", strings.ReplaceAll(directiveSource, "addImpl", "sumImpl"))
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dir, "sample_timed.go"))
	if err != nil {
		t.Fatalf("读取生成文件失败: %v", err)
	}
	if !strings.Contains(string(out), "func Sum(a int, b int) int") {
		t.Errorf("产物未随源文件更新:\n%s", out)
	}
}

func TestRunOnceDryRun(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "sample.go", directiveSource)

	r := newTestRunner(t, func(cfg *settings) { cfg.DryRun = true })
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "sample_timed.go")); !os.IsNotExist(err) {
		t.Errorf("预演模式不应落盘, stat err = %v", err)
	}
}

func TestRunOnceDirectiveErrorFails(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "bad.go", badDirectiveSource)
	writeSource(t, dir, "good.go", directiveSource)

	r := newTestRunner(t, nil)
	err := r.runOnce(context.Background(), []string{dir})
	if err == nil {
		t.Fatal("runOnce() 应返回错误")
	}
	if !strings.Contains(err.Error(), "生成失败") {
		t.Errorf("错误 %q 不含失败汇总", err.Error())
	}

	// 单个文件失败不影响其余文件
	if _, err := os.Stat(filepath.Join(dir, "good_timed.go")); err != nil {
		t.Errorf("其余文件应照常生成: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad_timed.go")); !os.IsNotExist(err) {
		t.Errorf("失败的文件不应有产物, stat err = %v", err)
	}
}

func TestRunOnceEmptyDir(t *testing.T) {
	r := newTestRunner(t, nil)
	if err := r.runOnce(context.Background(), []string{t.TempDir()}); err != nil {
		t.Errorf("空目录 runOnce() error = %v", err)
	}
}

func TestRunOnceNonexistentPath(t *testing.T) {
	r := newTestRunner(t, nil)
	err := r.runOnce(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatal("runOnce() 应返回错误")
	}
	if !strings.Contains(err.Error(), "访问路径失败") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunOnceExplicitFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "sample.go", directiveSource)

	r := newTestRunner(t, nil)
	if err := r.runOnce(context.Background(), []string{src}); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sample_timed.go")); err != nil {
		t.Errorf("产物缺失: %v", err)
	}
}

func TestRunOnceExplicitNonGoFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "notes.txt", "hello")

	r := newTestRunner(t, nil)
	err := r.runOnce(context.Background(), []string{path})
	if err == nil {
		t.Fatal("runOnce() 应返回错误")
	}
	if !strings.Contains(err.Error(), "不是 Go 源文件") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunOnceManyFiles(t *testing.T) {
	dir := t.TempDir()
	for i := range 20 {
		name := "f" + string(rune('a'+i)) + ".go"
		writeSource(t, dir, name, directiveSource)
	}

	r := newTestRunner(t, func(cfg *settings) { cfg.Jobs = 4 })
	if err := r.runOnce(context.Background(), []string{dir}); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var generated int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_timed.go") {
			generated++
		}
	}
	if generated != 20 {
		t.Errorf("生成了 %d 个产物, want 20", generated)
	}
}

func TestDiscoverSkipsSpecialPaths(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", noDirectiveSource)
	writeSource(t, dir, "a_test.go", noDirectiveSource)
	writeSource(t, dir, "b_timed.go", noDirectiveSource)
	writeSource(t, dir, ".hidden.go", noDirectiveSource)
	writeSource(t, dir, filepath.Join(".git", "c.go"), noDirectiveSource)
	writeSource(t, dir, filepath.Join("testdata", "d.go"), noDirectiveSource)
	writeSource(t, dir, filepath.Join("vendor", "e.go"), noDirectiveSource)
	writeSource(t, dir, filepath.Join("sub", "f.go"), noDirectiveSource)

	r := newTestRunner(t, nil)
	files, err := r.discover([]string{dir})
	if err != nil {
		t.Fatalf("discover() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.go"),
		filepath.Join(dir, "sub", "f.go"),
	}
	if len(files) != len(want) {
		t.Fatalf("discover() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestProcessFileOutcomes(t *testing.T) {
	dir := t.TempDir()
	plain := writeSource(t, dir, "plain.go", noDirectiveSource)
	sample := writeSource(t, dir, "sample.go", directiveSource)

	r := newTestRunner(t, nil)

	got, err := r.processFile(plain)
	if err != nil || got != outcomeSkipped {
		t.Errorf("processFile(plain) = (%v, %v), want (outcomeSkipped, nil)", got, err)
	}

	got, err = r.processFile(sample)
	if err != nil || got != outcomeGenerated {
		t.Errorf("processFile(sample) = (%v, %v), want (outcomeGenerated, nil)", got, err)
	}

	got, err = r.processFile(sample)
	if err != nil || got != outcomeUnchanged {
		t.Errorf("再次 processFile(sample) = (%v, %v), want (outcomeUnchanged, nil)", got, err)
	}

	dry := newTestRunner(t, func(cfg *settings) { cfg.DryRun = true })
	other := writeSource(t, dir, "other.go", strings.ReplaceAll(directiveSource, "addImpl", "mulImpl"))
	got, err = dry.processFile(other)
	if err != nil || got != outcomePlanned {
		t.Errorf("预演 processFile(other) = (%v, %v), want (outcomePlanned, nil)", got, err)
	}
}

func TestIsSourceFile(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		suffix string
		want   bool
	}{
		{"plain_go", "calc.go", "_timed", true},
		{"test_file", "calc_test.go", "_timed", false},
		{"generated", "calc_timed.go", "_timed", false},
		{"hidden", ".calc.go", "_timed", false},
		{"not_go", "calc.txt", "_timed", false},
		{"custom_suffix", "calc_timed.go", "_instr", true},
		{"custom_suffix_generated", "calc_instr.go", "_instr", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSourceFile(tt.file, tt.suffix); got != tt.want {
				t.Errorf("isSourceFile(%q, %q) = %v, want %v", tt.file, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestIsSourceDir(t *testing.T) {
	tests := []struct {
		dir  string
		want bool
	}{
		{"pkg", true},
		{"internal", true},
		{".git", false},
		{".idea", false},
		{"testdata", false},
		{"vendor", false},
	}

	for _, tt := range tests {
		if got := isSourceDir(tt.dir); got != tt.want {
			t.Errorf("isSourceDir(%q) = %v, want %v", tt.dir, got, tt.want)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.go")

	if err := writeFileAtomic(target, []byte("v1")); err != nil {
		t.Fatalf("writeFileAtomic() error = %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil || string(got) != "v1" {
		t.Fatalf("读回 = (%q, %v), want (v1, nil)", got, err)
	}

	// 覆盖已存在的目标
	if err := writeFileAtomic(target, []byte("v2")); err != nil {
		t.Fatalf("writeFileAtomic() 覆盖失败: %v", err)
	}
	got, _ = os.ReadFile(target)
	if string(got) != "v2" {
		t.Errorf("覆盖后内容 = %q, want v2", got)
	}

	// 不残留临时文件
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.go" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("目录残留异常文件: %v", names)
	}
}
