package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sqlutil/internal/codec"
)

// sqlBase 各适配器共用的 database/sql 操作
type sqlBase struct {
	db      *sql.DB
	dialect *Dialect
}

func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &ConnectError{Descriptor: driver + " " + Redact(dsn), Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectError{Descriptor: driver + " " + Redact(dsn), Err: err}
	}
	return db, nil
}

// Dialect 当前方言
func (b *sqlBase) Dialect() *Dialect {
	return b.dialect
}

// Exec 执行原始语句
func (b *sqlBase) Exec(ctx context.Context, stmt string) (int64, error) {
	res, err := b.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, &StatementError{SQL: stmt, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		// 部分驱动对 DDL 不返回影响行数
		return 0, nil
	}
	return n, nil
}

// CountRows 统计行数
func (b *sqlBase) CountRows(ctx context.Context, table TableRef) (int64, error) {
	query := "select count(*) from " + b.dialect.QualifiedName(table)
	var n int64
	if err := b.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, &MetadataError{Query: query, Err: err}
	}
	return n, nil
}

// StreamRows 逐行读取并归类
func (b *sqlBase) StreamRows(ctx context.Context, table TableRef, columns []Column, fn func([]codec.Value) error) error {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	query := "select " + b.dialect.ColumnList(names) + " from " + b.dialect.QualifiedName(table)
	if len(columns) == 0 {
		query = "select * from " + b.dialect.QualifiedName(table)
	}

	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return &StatementError{SQL: query, Err: err}
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return &StatementError{SQL: query, Err: err}
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = t.DatabaseTypeName()
		// SQLite 的计算结果列没有声明类型，退回到表元数据
		if typeNames[i] == "" && i < len(columns) {
			typeNames[i] = strings.ToUpper(columns[i].DataType)
		}
	}

	raw := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return &StatementError{SQL: query, Err: err}
		}
		values := make([]codec.Value, len(raw))
		for i, v := range raw {
			values[i], err = codec.FromDriver(v, typeNames[i])
			if err != nil {
				return fmt.Errorf("%s column %s: %w", table, types[i].Name(), err)
			}
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &StatementError{SQL: query, Err: err}
	}
	return nil
}

// Ping 检查连接
func (b *sqlBase) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close 关闭连接
func (b *sqlBase) Close() error {
	return b.db.Close()
}

// queryTables 执行返回 (schema, name) 两列的查询
func (b *sqlBase) queryTables(ctx context.Context, query string, args ...any) ([]TableRef, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	defer rows.Close()

	var tables []TableRef
	for rows.Next() {
		var t TableRef
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, &MetadataError{Query: query, Err: err}
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	return tables, nil
}

// queryForeignKeys 执行返回 (constraint, from_schema, from_table, to_schema, to_table) 的查询；
// 多列外键会产生重复行，按约束去重
func (b *sqlBase) queryForeignKeys(ctx context.Context, query string, args ...any) ([]ForeignKey, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Constraint, &fk.From.Schema, &fk.From.Name, &fk.To.Schema, &fk.To.Name); err != nil {
			return nil, &MetadataError{Query: query, Err: err}
		}
		key := fk.From.Key() + "\x00" + fk.Constraint + "\x00" + fk.To.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	return fks, nil
}
