package adapter

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter SQLite 适配器，只处理 main 库
type SQLiteAdapter struct {
	sqlBase
}

// NewSQLiteAdapter 创建 SQLite 适配器；默认打开外键约束检查
func NewSQLiteAdapter(ctx context.Context, path string) (*SQLiteAdapter, error) {
	dsn := path
	if !strings.Contains(dsn, "foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}
	db, err := openDB(ctx, "sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// 单连接，避免 :memory: 库在多个连接间不可见
	db.SetMaxOpenConns(1)
	return &SQLiteAdapter{sqlBase{db: db, dialect: SQLite}}, nil
}

// ListTables 列出用户表
func (a *SQLiteAdapter) ListTables(ctx context.Context) ([]TableRef, error) {
	query := `
		SELECT 'main', name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	return a.queryTables(ctx, query)
}

// ListForeignKeys 获取外键约束；SQLite 的约束没有名称，用 fk_<表>_<id> 代替
func (a *SQLiteAdapter) ListForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	query := `
		SELECT
			'fk_' || m.name || '_' || p.id,
			'main', m.name,
			'main', p."table"
		FROM sqlite_master m
		JOIN pragma_foreign_key_list(m.name) p
		WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, p.id
	`
	return a.queryForeignKeys(ctx, query)
}

// ListColumns 获取列信息，hidden 为 2/3 的是生成列
func (a *SQLiteAdapter) ListColumns(ctx context.Context, table TableRef) ([]Column, error) {
	query := `
		SELECT name, type, "notnull", dflt_value, pk, hidden
		FROM pragma_table_xinfo(?)
		ORDER BY cid
	`
	rows, err := a.db.QueryContext(ctx, query, table.Name)
	if err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		var def sql.NullString
		var notNull, pk, hidden int
		if err := rows.Scan(&c.Name, &c.DataType, &notNull, &def, &pk, &hidden); err != nil {
			return nil, &MetadataError{Query: query, Err: err}
		}
		c.Nullable = notNull == 0
		c.IsPrimaryKey = pk > 0
		c.IsComputed = hidden == 2 || hidden == 3
		if def.Valid {
			c.Default = &def.String
		}
		if hidden == 1 {
			// 虚拟表的隐藏列
			continue
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	return columns, nil
}
