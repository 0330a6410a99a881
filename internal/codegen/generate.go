package codegen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// 默认生成参数。
const (
	DefaultImplSuffix    = "Impl"
	DefaultMarker        = "timing"
	DefaultRuntimeImport = "github.com/omeyang/xtimed/pkg/xtimed"
)

// Options 控制生成行为，零值字段取默认值。
type Options struct {
	// ImplSuffix 是派生包装器名时从实现函数名上剥掉的后缀。
	ImplSuffix string

	// Marker 是默认事件通道的首段。
	Marker string

	// RuntimeImport 是计时运行时包的导入路径。
	RuntimeImport string
}

func (o Options) withDefaults() Options {
	if o.ImplSuffix == "" {
		o.ImplSuffix = DefaultImplSuffix
	}
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.RuntimeImport == "" {
		o.RuntimeImport = DefaultRuntimeImport
	}
	return o
}

// Result 是一个源文件的生成产物。
type Result struct {
	// Source 是格式化完成的生成文件内容。
	Source []byte

	// Wrappers 按源文件顺序列出生成的包装器名。
	Wrappers []string
}

// wrapTarget 关联一条指令与它包装的函数。
type wrapTarget struct {
	directive *Directive
	fn        *ast.FuncDecl
	name      string   // 包装器名
	channel   []string // 事件通道
}

// Generate 处理一个源文件，产出其中全部指令对应的包装器代码。
//
// 文件中没有任何指令时返回 (nil, nil)。任何一条指令不合法时
// 整个文件都不产出，错误里带有源文件位置。
func Generate(filename string, src []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseSource, err)
	}

	targets, consumed, err := collectTargets(fset, file)
	if err != nil {
		return nil, err
	}
	if err := checkFloating(fset, file, consumed); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	for _, imp := range file.Imports {
		if imp.Name != nil && imp.Name.Name == "." {
			return nil, fmt.Errorf("%w: %s", ErrDotImport, fset.Position(imp.Pos()))
		}
	}

	if err := resolveNames(fset, file, targets, opts); err != nil {
		return nil, err
	}

	out, err := render(fset, file, targets, opts, filename)
	if err != nil {
		return nil, err
	}

	res := &Result{Source: out}
	for _, t := range targets {
		res.Wrappers = append(res.Wrappers, t.name)
	}
	return res, nil
}

// OutputPath 返回 src 对应的生成文件路径，例如 a/b.go 配合
// 后缀 _timed 得到 a/b_timed.go。
func OutputPath(src, suffix string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + suffix + ext
}

// collectTargets 扫描包级函数声明上的指令。
func collectTargets(fset *token.FileSet, file *ast.File) ([]*wrapTarget, map[*ast.Comment]bool, error) {
	consumed := make(map[*ast.Comment]bool)
	var targets []*wrapTarget

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}
		var d *Directive
		for _, c := range fn.Doc.List {
			if !isDirective(c) {
				continue
			}
			consumed[c] = true
			if d != nil {
				return nil, nil, fmt.Errorf("%w: %s: 函数 %s 上有多条指令",
					ErrDirective, fset.Position(c.Pos()), fn.Name.Name)
			}
			parsed, err := parseDirective(c)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", fset.Position(c.Pos()), err)
			}
			d = parsed
		}
		if d == nil {
			continue
		}
		if fn.Recv != nil {
			return nil, nil, fmt.Errorf("%w: %s: %s 是方法",
				ErrMethodNotSupported, fset.Position(d.pos), fn.Name.Name)
		}
		if fn.Name.Name == "init" {
			return nil, nil, fmt.Errorf("%w: %s: init 函数不能被包装",
				ErrDirective, fset.Position(d.pos))
		}
		targets = append(targets, &wrapTarget{directive: d, fn: fn})
	}
	return targets, consumed, nil
}

// checkFloating 拒绝没有挂在函数声明上的指令。
func checkFloating(fset *token.FileSet, file *ast.File, consumed map[*ast.Comment]bool) error {
	for _, group := range file.Comments {
		for _, c := range group.List {
			if isDirective(c) && !consumed[c] {
				return fmt.Errorf("%w: %s", ErrDirectivePlacement, fset.Position(c.Pos()))
			}
		}
	}
	return nil
}

// resolveNames 计算每个目标的包装器名与事件通道，并检查名称冲突。
func resolveNames(fset *token.FileSet, file *ast.File, targets []*wrapTarget, opts Options) error {
	taken := topLevelNames(file)
	for _, t := range targets {
		name, err := wrapperName(t.directive, t.fn.Name.Name, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", fset.Position(t.directive.pos), err)
		}
		if taken[name] {
			return fmt.Errorf("%w: %s: %s 已被占用，可用 as= 指定其他名字",
				ErrNameConflict, fset.Position(t.directive.pos), name)
		}
		taken[name] = true
		t.name = name

		if len(t.directive.Name) > 0 {
			t.channel = t.directive.Name
		} else {
			t.channel = []string{opts.Marker, name}
		}
	}
	return nil
}

func topLevelNames(file *ast.File) map[string]bool {
	names := make(map[string]bool)
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				names[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					names[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range s.Names {
						names[n.Name] = true
					}
				}
			}
		}
	}
	return names
}

func wrapperName(d *Directive, implName string, opts Options) (string, error) {
	if d.As != "" {
		return d.As, nil
	}
	base := strings.TrimSuffix(implName, opts.ImplSuffix)
	if base == "" {
		return "", fmt.Errorf("%w: 无法从 %s 派生包装器名，请用 as= 指定", ErrDirective, implName)
	}
	if d.Visibility == Public {
		return exportIdent(base), nil
	}
	return unexportIdent(base), nil
}

func exportIdent(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func unexportIdent(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

// render 拼装生成文件并交给 gofmt 收尾。
func render(fset *token.FileSet, file *ast.File, targets []*wrapTarget, opts Options, filename string) ([]byte, error) {
	alias := runtimeAlias(file, targets, opts)

	var buf bytes.Buffer
	if base := filepath.Base(filename); base != "." && base != "" {
		fmt.Fprintf(&buf, "// Code generated by xtimedgen from %s; DO NOT EDIT.\n\n", base)
	} else {
		buf.WriteString("// Code generated by xtimedgen; DO NOT EDIT.\n\n")
	}

	// 源文件的构建约束原样带到生成文件，避免跨平台破坏编译
	constrained := false
	for _, group := range file.Comments {
		if group.End() >= file.Package {
			break
		}
		for _, c := range group.List {
			if strings.HasPrefix(c.Text, "//go:build") || strings.HasPrefix(c.Text, "// +build") {
				buf.WriteString(c.Text + "\n")
				constrained = true
			}
		}
	}
	if constrained {
		// 构建约束与 package 子句之间必须隔一个空行
		buf.WriteByte('\n')
	}

	fmt.Fprintf(&buf, "package %s\n\n", file.Name.Name)

	if err := renderImports(&buf, file, targets, alias, opts); err != nil {
		return nil, err
	}
	for _, t := range targets {
		if err := renderWrapper(&buf, fset, t, alias); err != nil {
			return nil, err
		}
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatOutput, err)
	}
	return out, nil
}

// runtimeAlias 选出生成文件里运行时包的限定符。
//
// 源文件已经导入运行时包时沿用其限定符；否则挑一个不与
// 文件顶层声明、既有导入和包装器参数冲突的名字。
func runtimeAlias(file *ast.File, targets []*wrapTarget, opts Options) string {
	for _, imp := range file.Imports {
		if imp.Name != nil && imp.Name.Name == "_" {
			continue
		}
		if path, err := strconv.Unquote(imp.Path.Value); err == nil && path == opts.RuntimeImport {
			return importQualifier(imp)
		}
	}

	taken := topLevelNames(file)
	for _, imp := range file.Imports {
		if q := importQualifier(imp); q != "_" {
			taken[q] = true
		}
	}
	for _, t := range targets {
		taken[t.name] = true
		for _, fl := range []*ast.FieldList{t.fn.Type.TypeParams, t.fn.Type.Params} {
			if fl == nil {
				continue
			}
			for _, field := range fl.List {
				for _, n := range field.Names {
					taken[n.Name] = true
				}
			}
		}
	}
	return pickIdent("xtimed", taken)
}

func importQualifier(imp *ast.ImportSpec) string {
	if imp.Name != nil {
		return imp.Name.Name
	}
	path, err := strconv.Unquote(imp.Path.Value)
	if err != nil {
		return ""
	}
	return importBaseName(path)
}

// importBaseName 推断导入路径默认的包限定符。
// 不做类型检查，按惯例处理主版本尾段（…/v2）和 gopkg.in 风格（yaml.v3）。
func importBaseName(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if len(base) > 1 && base[0] == 'v' && isAllDigits(base[1:]) {
		rest := path[:len(path)-len(base)]
		rest = strings.TrimSuffix(rest, "/")
		if i := strings.LastIndexByte(rest, '/'); i >= 0 {
			rest = rest[i+1:]
		}
		if rest != "" {
			base = rest
		}
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func pickIdent(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s%d", base, i)
		if !taken[cand] {
			return cand
		}
	}
}

// renderImports 写出导入块：运行时包加上包装器签名和 meta
// 表达式引用到的源文件导入。
func renderImports(buf *bytes.Buffer, file *ast.File, targets []*wrapTarget, alias string, opts Options) error {
	quals := make(map[string]bool)
	for _, t := range targets {
		collectQualifiers(quals, t.fn.Type)
		if t.directive.metaExpr != nil {
			collectQualifiers(quals, t.directive.metaExpr)
		}
	}

	byQual := make(map[string]*ast.ImportSpec)
	for _, imp := range file.Imports {
		if q := importQualifier(imp); q != "" && q != "_" {
			byQual[q] = imp
		}
	}

	type importLine struct{ alias, path string }
	var lines []importLine
	seen := map[string]bool{opts.RuntimeImport: true}

	if alias == importBaseName(opts.RuntimeImport) {
		lines = append(lines, importLine{path: opts.RuntimeImport})
	} else {
		lines = append(lines, importLine{alias: alias, path: opts.RuntimeImport})
	}

	for qual := range quals {
		imp, ok := byQual[qual]
		if !ok {
			// 限定符可能是局部值的字段访问，留给编译器裁决
			continue
		}
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || seen[path] {
			continue
		}
		seen[path] = true
		line := importLine{path: path}
		if imp.Name != nil {
			line.alias = imp.Name.Name
		}
		lines = append(lines, line)
	}

	slices.SortFunc(lines, func(a, b importLine) int {
		return strings.Compare(a.path, b.path)
	})

	buf.WriteString("import (\n")
	for _, l := range lines {
		if l.alias != "" {
			fmt.Fprintf(buf, "\t%s %q\n", l.alias, l.path)
		} else {
			fmt.Fprintf(buf, "\t%q\n", l.path)
		}
	}
	buf.WriteString(")\n\n")
	return nil
}

func collectQualifiers(quals map[string]bool, node ast.Node) {
	ast.Inspect(node, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if ident, ok := sel.X.(*ast.Ident); ok {
				quals[ident.Name] = true
			}
		}
		return true
	})
}

type param struct {
	name string
	typ  string
}

// renderWrapper 写出一个包装器函数。
func renderWrapper(buf *bytes.Buffer, fset *token.FileSet, t *wrapTarget, alias string) error {
	taken := map[string]bool{alias: true, t.name: true, t.fn.Name.Name: true}

	typeParams, typeArgs, err := renderTypeParams(fset, t.fn.Type.TypeParams, taken)
	if err != nil {
		return err
	}

	params, variadic, err := flattenParams(fset, t.fn.Type.Params)
	if err != nil {
		return err
	}
	for _, p := range params {
		if p.name != "" && p.name != "_" {
			taken[p.name] = true
		}
	}
	// 缺名、下划线或与运行时限定符撞名的参数按位置补名，
	// 具名参数保持原样，meta 表达式才能引用它们
	for i := range params {
		if params[i].name == "" || params[i].name == "_" || params[i].name == alias {
			params[i].name = pickIdent(fmt.Sprintf("p%d", i), taken)
			taken[params[i].name] = true
		}
	}

	results, err := flattenResults(fset, t.fn.Type.Results)
	if err != nil {
		return err
	}

	spanVar := pickIdent("span", taken)
	taken[spanVar] = true
	resultVars := make([]string, 0, len(results))
	for i := range results {
		v := pickIdent(fmt.Sprintf("r%d", i), taken)
		taken[v] = true
		resultVars = append(resultVars, v)
	}

	quoted := make([]string, 0, len(t.channel))
	for _, seg := range t.channel {
		quoted = append(quoted, strconv.Quote(seg))
	}
	channelLit := fmt.Sprintf("%s.Name{%s}", alias, strings.Join(quoted, ", "))

	fmt.Fprintf(buf, "// %s 调用 %s 并计时，完成后向 %s 通道发射事件。\n",
		t.name, t.fn.Name.Name, strings.Join(t.channel, "."))

	buf.WriteString("func ")
	buf.WriteString(t.name)
	buf.WriteString(typeParams)
	buf.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(buf, "%s %s", p.name, p.typ)
	}
	buf.WriteByte(')')
	switch len(results) {
	case 0:
	case 1:
		buf.WriteString(" " + results[0])
	default:
		buf.WriteString(" (" + strings.Join(results, ", ") + ")")
	}
	buf.WriteString(" {\n")

	fmt.Fprintf(buf, "\t%s := %s.Start(%s)\n", spanVar, alias, channelLit)

	args := make([]string, 0, len(params))
	for i, p := range params {
		arg := p.name
		if variadic && i == len(params)-1 {
			arg += "..."
		}
		args = append(args, arg)
	}
	call := fmt.Sprintf("%s%s(%s)", t.fn.Name.Name, typeArgs, strings.Join(args, ", "))

	if len(resultVars) > 0 {
		fmt.Fprintf(buf, "\t%s := %s\n", strings.Join(resultVars, ", "), call)
	} else {
		fmt.Fprintf(buf, "\t%s\n", call)
	}

	meta := "nil"
	if t.directive.Meta != "" {
		meta = t.directive.Meta
	}
	fmt.Fprintf(buf, "\t%s.End(%s)\n", spanVar, meta)

	if len(resultVars) > 0 {
		fmt.Fprintf(buf, "\treturn %s\n", strings.Join(resultVars, ", "))
	}
	buf.WriteString("}\n\n")
	return nil
}

func renderTypeParams(fset *token.FileSet, fl *ast.FieldList, taken map[string]bool) (decl, args string, err error) {
	if fl == nil || len(fl.List) == 0 {
		return "", "", nil
	}
	var decls, names []string
	for _, field := range fl.List {
		constraint, err := exprString(fset, field.Type)
		if err != nil {
			return "", "", err
		}
		ns := make([]string, 0, len(field.Names))
		for _, n := range field.Names {
			ns = append(ns, n.Name)
			names = append(names, n.Name)
			taken[n.Name] = true
		}
		decls = append(decls, strings.Join(ns, ", ")+" "+constraint)
	}
	return "[" + strings.Join(decls, ", ") + "]", "[" + strings.Join(names, ", ") + "]", nil
}

// flattenParams 把参数列表摊平成一名一项，分组声明 (a, b int) 拆开。
func flattenParams(fset *token.FileSet, fl *ast.FieldList) ([]param, bool, error) {
	if fl == nil {
		return nil, false, nil
	}
	var params []param
	variadic := false
	for _, field := range fl.List {
		typ, err := exprString(fset, field.Type)
		if err != nil {
			return nil, false, err
		}
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			variadic = true
		}
		if len(field.Names) == 0 {
			params = append(params, param{typ: typ})
			continue
		}
		for _, n := range field.Names {
			params = append(params, param{name: n.Name, typ: typ})
		}
	}
	return params, variadic, nil
}

// flattenResults 返回摊平后的返回值类型，包装器不保留返回值名。
func flattenResults(fset *token.FileSet, fl *ast.FieldList) ([]string, error) {
	if fl == nil {
		return nil, nil
	}
	var types []string
	for _, field := range fl.List {
		typ, err := exprString(fset, field.Type)
		if err != nil {
			return nil, err
		}
		n := max(len(field.Names), 1)
		for i := 0; i < n; i++ {
			types = append(types, typ)
		}
	}
	return types, nil
}

func exprString(fset *token.FileSet, node ast.Node) (string, error) {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, node); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFormatOutput, err)
	}
	return buf.String(), nil
}
