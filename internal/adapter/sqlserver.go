package adapter

import (
	"context"
	"database/sql"

	_ "github.com/denisenkom/go-mssqldb"
)

// SQLServerAdapter SQL Server 适配器
type SQLServerAdapter struct {
	sqlBase
}

// NewSQLServerAdapter 创建 SQL Server 适配器
func NewSQLServerAdapter(ctx context.Context, connStr string) (*SQLServerAdapter, error) {
	db, err := openDB(ctx, "sqlserver", connStr)
	if err != nil {
		return nil, err
	}
	return &SQLServerAdapter{sqlBase{db: db, dialect: SQLServer}}, nil
}

// ListTables 列出基础表
func (a *SQLServerAdapter) ListTables(ctx context.Context) ([]TableRef, error) {
	query := `
		SELECT TABLE_SCHEMA, TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`
	return a.queryTables(ctx, query)
}

// ListForeignKeys 获取外键约束，被引用方可以是主键也可以是唯一约束
func (a *SQLServerAdapter) ListForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	query := `
		SELECT
			fk.name,
			OBJECT_SCHEMA_NAME(fk.parent_object_id) as from_schema,
			OBJECT_NAME(fk.parent_object_id) as from_table,
			OBJECT_SCHEMA_NAME(fk.referenced_object_id) as to_schema,
			OBJECT_NAME(fk.referenced_object_id) as to_table
		FROM sys.foreign_keys fk
		ORDER BY from_schema, from_table, fk.name
	`
	return a.queryForeignKeys(ctx, query)
}

// ListColumns 获取列信息
func (a *SQLServerAdapter) ListColumns(ctx context.Context, table TableRef) ([]Column, error) {
	query := `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			COALESCE(c.CHARACTER_MAXIMUM_LENGTH, 0) as LENGTH,
			COALESCE(c.NUMERIC_PRECISION, 0) as PRECISION,
			COALESCE(c.NUMERIC_SCALE, 0) as SCALE,
			CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END as NULLABLE,
			c.COLUMN_DEFAULT,
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END as IS_PK,
			COALESCE(COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity'), 0) as IS_IDENTITY,
			COALESCE(COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsComputed'), 0) as IS_COMPUTED
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
				ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
				AND tc.TABLE_SCHEMA = ku.TABLE_SCHEMA
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		) pk ON c.TABLE_SCHEMA = pk.TABLE_SCHEMA
			AND c.TABLE_NAME = pk.TABLE_NAME
			AND c.COLUMN_NAME = pk.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
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
		var nullable, isPK, isIdentity, isComputed int
		if err := rows.Scan(&c.Name, &c.DataType, &c.Length, &c.Precision, &c.Scale,
			&nullable, &def, &isPK, &isIdentity, &isComputed); err != nil {
			return nil, &MetadataError{Query: query, Err: err}
		}
		c.Nullable = nullable == 1
		c.IsPrimaryKey = isPK == 1
		c.IsIdentity = isIdentity == 1
		// rowversion 由服务器生成，不能显式写入
		c.IsComputed = isComputed == 1 || c.DataType == "timestamp" || c.DataType == "rowversion"
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

// EstimateRowCount 根据分区统计估算行数
func (a *SQLServerAdapter) EstimateRowCount(ctx context.Context, table TableRef) (int64, error) {
	query := `
		SELECT SUM(p.rows)
		FROM sys.partitions p
		JOIN sys.tables t ON p.object_id = t.object_id
		WHERE SCHEMA_NAME(t.schema_id) = @p1 AND t.name = @p2 AND p.index_id IN (0,1)
	`
	var count sql.NullInt64
	if err := a.db.QueryRowContext(ctx, query, table.Schema, table.Name).Scan(&count); err != nil {
		return 0, &MetadataError{Query: query, Err: err}
	}
	if !count.Valid {
		return 0, nil
	}
	return count.Int64, nil
}
