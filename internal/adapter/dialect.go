package adapter

import (
	"strings"

	"sqlutil/internal/codec"
)

// Dialect SQL 方言：标识符引用与字面量写法
type Dialect struct {
	Name          string
	DefaultSchema string

	openQuote  string
	closeQuote string

	// Encoder 值编码规则
	Encoder codec.Encoder

	// identityInsert 是否需要 set identity_insert 包裹
	identityInsert bool

	// StrictComments "--" 之后必须跟空白才算注释（MySQL），导入时去掉纯注释行
	StrictComments bool
}

// Quote 引用一个标识符，转义其中的结束符
func (d *Dialect) Quote(name string) string {
	return d.openQuote + strings.ReplaceAll(name, d.closeQuote, d.closeQuote+d.closeQuote) + d.closeQuote
}

// QualifiedName schema.table 全限定名
func (d *Dialect) QualifiedName(t TableRef) string {
	if t.Schema == "" {
		return d.Quote(t.Name)
	}
	return d.Quote(t.Schema) + "." + d.Quote(t.Name)
}

// ColumnList "[a], [b], [c]"
func (d *Dialect) ColumnList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// IdentityInsert 返回写入自增列前后需要执行的语句；方言不需要时都为空
func (d *Dialect) IdentityInsert(t TableRef, columns []Column) (on, off string) {
	if !d.identityInsert || !HasIdentity(columns) {
		return "", ""
	}
	name := d.QualifiedName(t)
	return "set identity_insert " + name + " on;", "set identity_insert " + name + " off;"
}

// SQLServer 方言
var SQLServer = &Dialect{
	Name:           TypeSQLServer,
	DefaultSchema:  "dbo",
	openQuote:      "[",
	closeQuote:     "]",
	identityInsert: true,
}

// MySQL 方言
var MySQL = &Dialect{
	Name:           TypeMySQL,
	openQuote:      "`",
	closeQuote:     "`",
	StrictComments: true,
}

// Postgres 方言
var Postgres = &Dialect{
	Name:          TypePostgres,
	DefaultSchema: "public",
	openQuote:     `"`,
	closeQuote:    `"`,
	Encoder:       codec.Encoder{True: "true", False: "false", Binary: codec.BinaryEscapedHex},
}

// SQLite 方言；SQLite 接受 [name] 形式的标识符
var SQLite = &Dialect{
	Name:          TypeSQLite,
	DefaultSchema: "main",
	openQuote:     "[",
	closeQuote:    "]",
	Encoder:       codec.Encoder{Binary: codec.BinaryQuotedHex},
}
