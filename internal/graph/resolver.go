package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"sqlutil/internal/adapter"
)

// MaxLevel 依赖层级上限，超过的表视为未解析
const MaxLevel = 100

// Entry 排序结果中的一张表
type Entry struct {
	Table           adapter.TableRef   `json:"table"`
	Level           int                `json:"level"`
	DependsOn       []adapter.TableRef `json:"depends_on,omitempty"`
	Constraints     int                `json:"constraints"`
	SelfReferencing bool               `json:"self_referencing,omitempty"`

	// EstimatedRows 统计信息中的行数，适配器不支持时为 0
	EstimatedRows int64 `json:"estimated_rows,omitempty"`
}

// Ordering 依赖顺序：被引用的表总是排在引用它的表之前
type Ordering struct {
	Tables []Entry `json:"tables"`

	// Degenerate 没有任何外键，所有表同处 0 层
	Degenerate bool `json:"degenerate"`

	// Unresolved 处于环中或超过层级上限的表，保持 0 层并排在最前
	Unresolved []adapter.TableRef `json:"unresolved,omitempty"`

	// Dangling 被引用表不在表集合中的外键，不参与排序
	Dangling []adapter.ForeignKey `json:"dangling,omitempty"`
}

// Refs 按顺序返回表
func (o *Ordering) Refs() []adapter.TableRef {
	out := make([]adapter.TableRef, len(o.Tables))
	for i, e := range o.Tables {
		out[i] = e.Table
	}
	return out
}

// Reversed 逆序返回表，子表在前
func (o *Ordering) Reversed() []adapter.TableRef {
	out := make([]adapter.TableRef, len(o.Tables))
	for i, e := range o.Tables {
		out[len(o.Tables)-1-i] = e.Table
	}
	return out
}

// Depth 最大层级
func (o *Ordering) Depth() int {
	depth := 0
	for _, e := range o.Tables {
		if e.Level > depth {
			depth = e.Level
		}
	}
	return depth
}

// Resolve 计算表的依赖层级
//
// 没有外键的表为 1 层，其余表为 1 + 其被引用表的最大层级。
// 自引用不阻塞本表；指向集合外的外键被忽略。
func Resolve(tables []adapter.TableRef, fks []adapter.ForeignKey) *Ordering {
	g := Build(tables, fks)
	o := &Ordering{}
	for _, e := range g.EdgesOfType(EdgeTypeDangling) {
		for _, c := range e.Constraints {
			o.Dangling = append(o.Dangling, adapter.ForeignKey{Constraint: c, From: g.Nodes[e.From].Table, To: e.Target})
		}
	}

	// 表按 (schema, name) 编号，层级存放在下标对应的切片中
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Table.Less(nodes[j].Table) })
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	if len(fks) == 0 {
		o.Degenerate = true
		for _, n := range nodes {
			o.Tables = append(o.Tables, Entry{Table: n.Table})
		}
		return o
	}

	levels := make([]int, len(nodes))
	pending := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	var queue []int
	for i, n := range nodes {
		pending[i] = len(n.DependsOn)
		for _, to := range n.DependsOn {
			t := index[to]
			dependents[t] = append(dependents[t], i)
		}
		if pending[i] == 0 {
			levels[i] = 1
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, d := range dependents[i] {
			if levels[i]+1 > levels[d] {
				levels[d] = levels[i] + 1
			}
			pending[d]--
			if pending[d] > 0 {
				continue
			}
			if levels[d] > MaxLevel {
				levels[d] = 0
				continue
			}
			queue = append(queue, d)
		}
	}

	for i, n := range nodes {
		if pending[i] > 0 || levels[i] == 0 {
			levels[i] = 0
			o.Unresolved = append(o.Unresolved, n.Table)
		}
		e := Entry{Table: n.Table, Level: levels[i], SelfReferencing: n.SelfReferencing}
		for _, to := range n.DependsOn {
			e.DependsOn = append(e.DependsOn, nodes[index[to]].Table)
			e.Constraints += len(g.Edges[EdgeID(n.ID, to)].Constraints)
		}
		if n.SelfReferencing {
			e.Constraints += len(g.Edges[EdgeID(n.ID, n.ID)].Constraints)
		}
		o.Tables = append(o.Tables, e)
	}

	sort.SliceStable(o.Tables, func(i, j int) bool {
		if o.Tables[i].Level != o.Tables[j].Level {
			return o.Tables[i].Level < o.Tables[j].Level
		}
		return o.Tables[i].Table.Less(o.Tables[j].Table)
	})
	return o
}

// ResolveOrder 从数据库读取元数据并计算顺序；每次调用都重新读取
func ResolveOrder(ctx context.Context, db adapter.DBAdapter, log zerolog.Logger) (*Ordering, error) {
	tables, err := db.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	fks, err := db.ListForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	o := Resolve(tables, fks)
	if o.Degenerate {
		log.Warn().Int("tables", len(tables)).Msg("no foreign keys found, using lexical order")
	}
	for _, t := range o.Unresolved {
		log.Warn().Str("table", t.String()).Msg("dependency level unresolved (cycle or too deep), ordered first")
	}
	for _, fk := range o.Dangling {
		log.Warn().Str("table", fk.From.String()).Str("references", fk.To.String()).
			Str("constraint", fk.Constraint).Msg("foreign key target not found, ignored")
	}
	for _, e := range o.Tables {
		if e.SelfReferencing {
			log.Debug().Str("table", e.Table.String()).Msg("self-referencing foreign key ignored for ordering")
		}
	}
	log.Debug().Int("tables", len(o.Tables)).Int("depth", o.Depth()).Msg("dependency order resolved")
	return o, nil
}
