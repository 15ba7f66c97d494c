package adapter

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresAdapter PostgreSQL 适配器
type PostgresAdapter struct {
	sqlBase
}

// NewPostgresAdapter 创建 PostgreSQL 适配器
func NewPostgresAdapter(ctx context.Context, connStr string) (*PostgresAdapter, error) {
	db, err := openDB(ctx, "pgx", connStr)
	if err != nil {
		return nil, err
	}
	return &PostgresAdapter{sqlBase{db: db, dialect: Postgres}}, nil
}

// ListTables 列出基础表，忽略系统 schema
func (a *PostgresAdapter) ListTables(ctx context.Context) ([]TableRef, error) {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name
	`
	return a.queryTables(ctx, query)
}

// ListForeignKeys 获取外键约束
func (a *PostgresAdapter) ListForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	query := `
		SELECT
			c.conname,
			fn.nspname, f.relname,
			tn.nspname, t.relname
		FROM pg_constraint c
		JOIN pg_class f ON f.oid = c.conrelid
		JOIN pg_namespace fn ON fn.oid = f.relnamespace
		JOIN pg_class t ON t.oid = c.confrelid
		JOIN pg_namespace tn ON tn.oid = t.relnamespace
		WHERE c.contype = 'f'
		ORDER BY fn.nspname, f.relname, c.conname
	`
	return a.queryForeignKeys(ctx, query)
}

// ListColumns 获取列信息
func (a *PostgresAdapter) ListColumns(ctx context.Context, table TableRef) ([]Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			COALESCE(c.character_maximum_length, 0),
			COALESCE(c.numeric_precision, 0),
			COALESCE(c.numeric_scale, 0),
			c.is_nullable = 'YES',
			c.column_default,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage ku
					ON tc.constraint_name = ku.constraint_name
					AND tc.table_schema = ku.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND ku.table_schema = c.table_schema
					AND ku.table_name = c.table_name
					AND ku.column_name = c.column_name
			),
			c.is_identity = 'YES',
			c.is_generated = 'ALWAYS'
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`
	rows, err := a.db.QueryContext(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		var def sql.NullString
		if err := rows.Scan(&c.Name, &c.DataType, &c.Length, &c.Precision, &c.Scale,
			&c.Nullable, &def, &c.IsPrimaryKey, &c.IsIdentity, &c.IsComputed); err != nil {
			return nil, &MetadataError{Query: query, Err: err}
		}
		if def.Valid {
			c.Default = &def.String
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	return columns, nil
}

// EstimateRowCount 取 pg_class.reltuples；未 analyze 的表为 -1，按 0 处理
func (a *PostgresAdapter) EstimateRowCount(ctx context.Context, table TableRef) (int64, error) {
	query := `
		SELECT c.reltuples::bigint
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
	`
	var count int64
	if err := a.db.QueryRowContext(ctx, query, table.Schema, table.Name).Scan(&count); err != nil {
		return 0, &MetadataError{Query: query, Err: err}
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}
