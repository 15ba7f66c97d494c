package graph

import "sqlutil/internal/adapter"

// Node 图节点，一个节点对应一张表
type Node struct {
	ID    string           `json:"id"`
	Table adapter.TableRef `json:"table"`
	Level int              `json:"level"`

	// DependsOn 被本表引用的表（不含自身）
	DependsOn []string `json:"depends_on,omitempty"`

	// SelfReferencing 存在指向自身的外键
	SelfReferencing bool `json:"self_referencing,omitempty"`
}

// NodeID 表在图中的标识
func NodeID(t adapter.TableRef) string {
	return t.Schema + "." + t.Name
}
