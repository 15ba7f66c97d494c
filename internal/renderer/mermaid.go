package renderer

import (
	"fmt"
	"strings"

	"sqlutil/internal/adapter"
	"sqlutil/internal/graph"
)

// MermaidRenderer Mermaid ER 图渲染器
type MermaidRenderer struct{}

// NewMermaidRenderer 创建渲染器
func NewMermaidRenderer() *MermaidRenderer {
	return &MermaidRenderer{}
}

// Render 渲染为 Mermaid 格式，实体按依赖顺序输出
func (m *MermaidRenderer) Render(o *graph.Ordering) string {
	var sb strings.Builder

	sb.WriteString("erDiagram\n")

	for _, e := range o.Tables {
		sb.WriteString(fmt.Sprintf("    %s {\n", entityName(e.Table)))
		sb.WriteString(fmt.Sprintf("        int level \"%d\"\n", e.Level))
		sb.WriteString("    }\n")
	}

	sb.WriteString("\n")

	// 渲染关系
	for _, e := range o.Tables {
		for _, parent := range e.DependsOn {
			sb.WriteString(fmt.Sprintf("    %s ||--o{ %s : \"references\"\n",
				entityName(parent), entityName(e.Table)))
		}
		if e.SelfReferencing {
			name := entityName(e.Table)
			sb.WriteString(fmt.Sprintf("    %s ||..o{ %s : \"self\"\n", name, name)) // 虚线表示不参与排序
		}
	}

	return sb.String()
}

// entityName Mermaid 实体名只保留字母数字和下划线
func entityName(t adapter.TableRef) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, t.Schema+"_"+t.Name)
}
