package graph

import (
	"sort"
	"sync"

	"sqlutil/internal/adapter"
)

// DependencyGraph 表依赖图
type DependencyGraph struct {
	mu    sync.RWMutex
	Nodes map[string]*Node `json:"nodes"`
	Edges map[string]*Edge `json:"edges"`
}

// NewDependencyGraph 创建新图
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		Nodes: make(map[string]*Node),
		Edges: make(map[string]*Edge),
	}
}

// Build 由表与外键构建依赖图；同一对表间的多个约束合并到一条边
func Build(tables []adapter.TableRef, fks []adapter.ForeignKey) *DependencyGraph {
	g := NewDependencyGraph()
	for _, t := range tables {
		g.AddNode(&Node{ID: NodeID(t), Table: t})
	}

	for _, fk := range fks {
		from, to := NodeID(fk.From), NodeID(fk.To)
		src := g.GetNode(from)
		if src == nil {
			continue
		}

		typ := EdgeTypeFK
		switch {
		case from == to:
			typ = EdgeTypeSelf
			src.SelfReferencing = true
		case g.GetNode(to) == nil:
			typ = EdgeTypeDangling
		}

		id := EdgeID(from, to)
		if e := g.GetEdge(id); e != nil {
			e.Constraints = append(e.Constraints, fk.Constraint)
			continue
		}
		g.AddEdge(&Edge{ID: id, Type: typ, From: from, To: to, Target: fk.To, Constraints: []string{fk.Constraint}})
		if typ == EdgeTypeFK {
			src.DependsOn = append(src.DependsOn, to)
		}
	}

	for _, n := range g.Nodes {
		sort.Strings(n.DependsOn)
	}
	return g
}

// AddNode 添加节点
func (g *DependencyGraph) AddNode(node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Nodes[node.ID] = node
}

// AddEdge 添加边
func (g *DependencyGraph) AddEdge(edge *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Edges[edge.ID] = edge
}

// GetNode 获取节点
func (g *DependencyGraph) GetNode(id string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Nodes[id]
}

// GetEdge 获取边
func (g *DependencyGraph) GetEdge(id string) *Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Edges[id]
}

// EdgesOfType 按 ID 排序返回指定类型的边
func (g *DependencyGraph) EdgesOfType(typ EdgeType) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Edge
	for _, e := range g.Edges {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
