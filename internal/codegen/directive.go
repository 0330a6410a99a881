package codegen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// DirectivePrefix 是指令注释的完整前缀，贴在 // 之后，中间没有空格。
const DirectivePrefix = "//xtimed:wrap"

// Visibility 表示包装器的可见性。
type Visibility int

const (
	// Public 生成导出的包装器。
	Public Visibility = iota
	// Private 生成不导出的包装器。
	Private
)

// Directive 是一条解析完成的包装指令。
type Directive struct {
	Visibility Visibility
	As         string    // 显式包装器名，空表示按后缀派生
	Name       []string  // 显式事件通道，空表示默认通道
	Meta       string    // 元数据表达式原文，空表示发射 nil
	metaExpr   ast.Expr  // 已解析的元数据表达式，用于收集导入限定符
	pos        token.Pos // 指令注释的位置，用于报错
}

// isDirective 报告一条注释是否是包装指令。
func isDirective(c *ast.Comment) bool {
	if !strings.HasPrefix(c.Text, DirectivePrefix) {
		return false
	}
	rest := c.Text[len(DirectivePrefix):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// parseDirective 解析一条指令注释。
//
// 键按空白分隔，meta= 例外：它消费行内剩余的全部内容，
// 因此表达式可以含空格，但也必须写在最后。
func parseDirective(c *ast.Comment) (*Directive, error) {
	d := &Directive{pos: c.Pos()}
	rest := strings.TrimSpace(c.Text[len(DirectivePrefix):])

	var (
		seenVisibility bool
		seenAs         bool
		seenName       bool
	)
	for rest != "" {
		if metaSrc, ok := strings.CutPrefix(rest, "meta="); ok {
			metaSrc = strings.TrimSpace(metaSrc)
			if metaSrc == "" {
				return nil, fmt.Errorf("%w: meta 表达式为空", ErrDirective)
			}
			expr, err := parser.ParseExpr(metaSrc)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidMeta, metaSrc, err)
			}
			d.Meta = metaSrc
			d.metaExpr = expr
			break
		}

		tok := rest
		if i := strings.IndexAny(rest, " \t"); i >= 0 {
			tok, rest = rest[:i], strings.TrimLeft(rest[i:], " \t")
		} else {
			rest = ""
		}

		switch {
		case tok == "public" || tok == "private":
			if seenVisibility {
				return nil, fmt.Errorf("%w: 可见性重复指定", ErrDirective)
			}
			seenVisibility = true
			if tok == "private" {
				d.Visibility = Private
			}
		case strings.HasPrefix(tok, "as="):
			if seenAs {
				return nil, fmt.Errorf("%w: as 重复指定", ErrDirective)
			}
			seenAs = true
			name := tok[len("as="):]
			if !token.IsIdentifier(name) {
				return nil, fmt.Errorf("%w: as=%q 不是合法标识符", ErrDirective, name)
			}
			d.As = name
		case strings.HasPrefix(tok, "name="):
			if seenName {
				return nil, fmt.Errorf("%w: name 重复指定", ErrDirective)
			}
			seenName = true
			segments := strings.Split(tok[len("name="):], ",")
			for _, seg := range segments {
				if seg == "" {
					return nil, fmt.Errorf("%w: name 含空段", ErrDirective)
				}
			}
			d.Name = segments
		default:
			return nil, fmt.Errorf("%w: 无法识别的键 %q", ErrDirective, tok)
		}
	}

	if d.As != "" && seenVisibility {
		exported := ast.IsExported(d.As)
		if exported != (d.Visibility == Public) {
			return nil, fmt.Errorf("%w: as=%s 与可见性声明矛盾", ErrDirective, d.As)
		}
	}
	if d.As != "" && !seenVisibility {
		// as= 自带可见性
		if ast.IsExported(d.As) {
			d.Visibility = Public
		} else {
			d.Visibility = Private
		}
	}
	return d, nil
}
