package renderer

import (
	"fmt"
	"strings"

	"sqlutil/internal/graph"
)

// TextRenderer 纯文本渲染器，每行一张表
type TextRenderer struct{}

// NewTextRenderer 创建渲染器
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render 输出 "层级  表名"
func (r *TextRenderer) Render(o *graph.Ordering) string {
	var sb strings.Builder
	for _, e := range o.Tables {
		sb.WriteString(fmt.Sprintf("%3d  %s\n", e.Level, e.Table))
	}
	return sb.String()
}
