package graph

import "sqlutil/internal/adapter"

// EdgeType 边类型
type EdgeType string

const (
	EdgeTypeFK       EdgeType = "foreign_key"    // 表之间的外键依赖
	EdgeTypeSelf     EdgeType = "self_reference" // 自引用，不参与排序
	EdgeTypeDangling EdgeType = "dangling"       // 被引用表不在表集合内
)

// Edge 依赖边：From 引用 To，同一对表的多个约束合并为一条边
type Edge struct {
	ID          string           `json:"id"`
	Type        EdgeType         `json:"type"`
	From        string           `json:"from"` // 节点ID
	To          string           `json:"to"`   // 节点ID
	Target      adapter.TableRef `json:"target"`
	Constraints []string         `json:"constraints"`
}

// EdgeID 边标识
func EdgeID(from, to string) string {
	return from + "->" + to
}
