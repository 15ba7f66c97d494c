package renderer

import (
	"fmt"
	"strings"

	"sqlutil/internal/adapter"
	"sqlutil/internal/graph"
)

// MarkdownRenderer Markdown 依赖顺序报告渲染器
type MarkdownRenderer struct{}

// NewMarkdownRenderer 创建渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render 渲染为 Markdown 格式
func (m *MarkdownRenderer) Render(o *graph.Ordering) string {
	var sb strings.Builder

	sb.WriteString("# 表依赖顺序\n\n")
	sb.WriteString(fmt.Sprintf("共 %d 张表，最大层级 %d。", len(o.Tables), o.Depth()))
	if o.Degenerate {
		sb.WriteString("没有外键，按名称排序。")
	}
	sb.WriteString("\n\n")

	// 表头
	sb.WriteString("| 顺序 | 表 | 层级 | 依赖 | 外键数 | 自引用 | 估计行数 |\n")
	sb.WriteString("|------|----|------|------|--------|--------|----------|\n")

	for i, e := range o.Tables {
		self := ""
		if e.SelfReferencing {
			self = "✓"
		}
		rows := "-"
		if e.EstimatedRows > 0 {
			rows = fmt.Sprint(e.EstimatedRows)
		}
		sb.WriteString(fmt.Sprintf("| %d | `%s` | %d | %s | %d | %s | %s |\n",
			i+1,
			e.Table,
			e.Level,
			joinRefs(e.DependsOn),
			e.Constraints,
			self,
			rows,
		))
	}
	sb.WriteString("\n")

	m.renderWarnings(&sb, o)
	return sb.String()
}

// renderWarnings 渲染未解析的表和悬空外键
func (m *MarkdownRenderer) renderWarnings(sb *strings.Builder, o *graph.Ordering) {
	if len(o.Unresolved) > 0 {
		sb.WriteString("## 未解析的表\n\n")
		sb.WriteString("以下表处于循环依赖中或层级过深，排在最前：\n\n")
		for _, t := range o.Unresolved {
			sb.WriteString(fmt.Sprintf("- `%s`\n", t))
		}
		sb.WriteString("\n")
	}

	if len(o.Dangling) > 0 {
		sb.WriteString("## 忽略的外键\n\n")
		for _, fk := range o.Dangling {
			sb.WriteString(fmt.Sprintf("- **%s** `%s` → `%s`（被引用表不存在）\n", fk.Constraint, fk.From, fk.To))
		}
		sb.WriteString("\n")
	}
}

func joinRefs(refs []adapter.TableRef) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = "`" + r.String() + "`"
	}
	return strings.Join(names, ", ")
}
