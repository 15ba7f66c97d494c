package adapter

import (
	"context"
	"fmt"
	"strings"

	"sqlutil/internal/codec"
)

// DBAdapter 数据库适配器接口
type DBAdapter interface {
	// Dialect 当前数据库的 SQL 方言
	Dialect() *Dialect

	// ListTables 列出所有基础表
	ListTables(ctx context.Context) ([]TableRef, error)

	// ListForeignKeys 列出所有外键约束（每个约束一行，已解析到被引用表）
	ListForeignKeys(ctx context.Context) ([]ForeignKey, error)

	// ListColumns 获取表的列信息，按 ordinal 顺序
	ListColumns(ctx context.Context, table TableRef) ([]Column, error)

	// CountRows 统计表行数
	CountRows(ctx context.Context, table TableRef) (int64, error)

	// StreamRows 逐行读取表数据，columns 决定 select 列表与值的顺序
	StreamRows(ctx context.Context, table TableRef, columns []Column, fn func(row []codec.Value) error) error

	// Exec 执行一条原始语句，返回受影响行数
	Exec(ctx context.Context, stmt string) (int64, error)

	// Ping 检查连接
	Ping(ctx context.Context) error

	// Close 关闭连接
	Close() error
}

// TableRef 表标识，(Schema, Name) 唯一
type TableRef struct {
	Catalog string `json:"catalog,omitempty"`
	Schema  string `json:"schema"`
	Name    string `json:"name"`
}

// Key 用作 map 键
func (t TableRef) Key() string {
	return t.Schema + "\x00" + t.Name
}

// Less 按 (Schema, Name) 字典序比较
func (t TableRef) Less(o TableRef) bool {
	if t.Schema != o.Schema {
		return t.Schema < o.Schema
	}
	return t.Name < o.Name
}

func (t TableRef) String() string {
	return "[" + t.Schema + "].[" + t.Name + "]"
}

// Column 列信息
type Column struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`
	Length       int     `json:"length,omitempty"`
	Precision    int     `json:"precision,omitempty"`
	Scale        int     `json:"scale,omitempty"`
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default,omitempty"`
	IsPrimaryKey bool    `json:"is_primary_key,omitempty"`
	IsIdentity   bool    `json:"is_identity,omitempty"`
	IsComputed   bool    `json:"is_computed,omitempty"`
}

// Declaration 组合出 "类型 + 可空 + 默认值" 子句
func (c Column) Declaration() string {
	var sb strings.Builder
	sb.WriteString(c.DataType)
	switch strings.ToLower(c.DataType) {
	case "nvarchar", "varchar", "char", "nchar", "varbinary", "binary":
		if c.Length == -1 {
			sb.WriteString("(max)")
		} else if c.Length > 0 {
			fmt.Fprintf(&sb, "(%d)", c.Length)
		}
	case "decimal", "numeric":
		if c.Precision > 0 {
			fmt.Fprintf(&sb, "(%d, %d)", c.Precision, c.Scale)
		}
	}
	if c.Nullable {
		sb.WriteString(" null")
	} else {
		sb.WriteString(" not null")
	}
	if c.Default != nil {
		sb.WriteString(" default ")
		sb.WriteString(*c.Default)
	}
	return sb.String()
}

// Writable 是否可以出现在 insert 列表中
func (c Column) Writable() bool {
	return !c.IsComputed
}

// ForeignKey 外键约束
type ForeignKey struct {
	Constraint string   `json:"constraint"`
	From       TableRef `json:"from"`
	To         TableRef `json:"to"`
}

// HasIdentity 列表中是否存在自增列
func HasIdentity(columns []Column) bool {
	for _, c := range columns {
		if c.IsIdentity {
			return true
		}
	}
	return false
}

// WritableColumns 过滤掉计算列
func WritableColumns(columns []Column) []Column {
	out := make([]Column, 0, len(columns))
	for _, c := range columns {
		if c.Writable() {
			out = append(out, c)
		}
	}
	return out
}

// RowEstimator 能从统计信息估算行数的适配器
type RowEstimator interface {
	EstimateRowCount(ctx context.Context, table TableRef) (int64, error)
}
