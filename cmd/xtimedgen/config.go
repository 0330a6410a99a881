package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xtimed/internal/codegen"
)

const (
	defaultSuffix   = "_timed"
	defaultDebounce = 500 * time.Millisecond

	// maxJobs 限制并发上限，防止配置错误耗尽文件描述符。
	maxJobs = 256
)

// settings 是一次运行的全部生效配置。
// 字段可以来自配置文件，命令行 flag 优先级更高。
type settings struct {
	Suffix        string        `koanf:"suffix"`
	ImplSuffix    string        `koanf:"impl_suffix"`
	Marker        string        `koanf:"marker"`
	RuntimeImport string        `koanf:"runtime_import"`
	Jobs          int           `koanf:"jobs"`
	Debounce      time.Duration `koanf:"debounce"`
	DryRun        bool          `koanf:"dry_run"`
	Verbose       bool          `koanf:"verbose"`
	LogFile       string        `koanf:"log_file"`
}

func defaultSettings() *settings {
	return &settings{
		Suffix:        defaultSuffix,
		ImplSuffix:    codegen.DefaultImplSuffix,
		Marker:        codegen.DefaultMarker,
		RuntimeImport: codegen.DefaultRuntimeImport,
		Jobs:          defaultJobs(),
		Debounce:      defaultDebounce,
	}
}

// defaultJobs 默认并发度取 CPU 数，至少为 1。
func defaultJobs() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// loadSettings 按"默认值 < 配置文件 < 命令行"的优先级合成配置。
func loadSettings(cmd flagSource) (*settings, error) {
	s := defaultSettings()

	if path := cmd.String("config"); path != "" {
		if err := loadConfigFile(s, path); err != nil {
			return nil, err
		}
	}

	applyFlags(s, cmd)

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// flagSource 抽象 flag 读取，便于测试时替换 CLI 框架。
type flagSource interface {
	String(name string) string
	Int(name string) int
	Bool(name string) bool
	Duration(name string) time.Duration
	IsSet(name string) bool
}

// loadConfigFile 读取并套用配置文件，格式按扩展名检测。
func loadConfigFile(s *settings, path string) error {
	parser, err := parserForExt(filepath.Ext(path))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("解析配置文件 %s: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("配置映射失败: %w", err)
	}
	return nil
}

// parserForExt 根据文件扩展名选择解析器。
func parserForExt(ext string) (koanf.Parser, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("不支持的配置格式 %q，仅支持 .yaml/.yml/.json", ext)
	}
}

// applyFlags 把显式给出的命令行 flag 覆盖到配置上。
func applyFlags(s *settings, cmd flagSource) {
	if cmd.IsSet("suffix") {
		s.Suffix = cmd.String("suffix")
	}
	if cmd.IsSet("impl-suffix") {
		s.ImplSuffix = cmd.String("impl-suffix")
	}
	if cmd.IsSet("marker") {
		s.Marker = cmd.String("marker")
	}
	if cmd.IsSet("runtime-import") {
		s.RuntimeImport = cmd.String("runtime-import")
	}
	if cmd.IsSet("jobs") {
		s.Jobs = cmd.Int("jobs")
	}
	if cmd.IsSet("debounce") {
		s.Debounce = cmd.Duration("debounce")
	}
	if cmd.IsSet("dry-run") {
		s.DryRun = cmd.Bool("dry-run")
	}
	if cmd.IsSet("verbose") {
		s.Verbose = cmd.Bool("verbose")
	}
	if cmd.IsSet("log-file") {
		s.LogFile = cmd.String("log-file")
	}
}

func (s *settings) validate() error {
	if s.Suffix == "" {
		return fmt.Errorf("suffix 不能为空")
	}
	if strings.ContainsAny(s.Suffix, `/\`) {
		return fmt.Errorf("suffix %q 不能包含路径分隔符", s.Suffix)
	}
	if s.Marker == "" {
		return fmt.Errorf("marker 不能为空")
	}
	if s.RuntimeImport == "" {
		return fmt.Errorf("runtime_import 不能为空")
	}
	if s.Jobs < 1 || s.Jobs > maxJobs {
		return fmt.Errorf("jobs 必须在 1 到 %d 之间，当前为 %d", maxJobs, s.Jobs)
	}
	if s.Debounce <= 0 {
		return fmt.Errorf("debounce 必须为正，当前为 %v", s.Debounce)
	}
	return nil
}

// codegenOptions 把生效配置转成生成器选项。
func (s *settings) codegenOptions() codegen.Options {
	return codegen.Options{
		ImplSuffix:    s.ImplSuffix,
		Marker:        s.Marker,
		RuntimeImport: s.RuntimeImport,
	}
}
