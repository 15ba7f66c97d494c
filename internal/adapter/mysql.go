package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQLAdapter MySQL 适配器，schema 即连接串中的数据库名
type MySQLAdapter struct {
	sqlBase
	schema string
}

// NewMySQLAdapter 创建 MySQL 适配器
func NewMySQLAdapter(ctx context.Context, connStr string) (*MySQLAdapter, error) {
	cfg, err := mysqlConfig(connStr)
	if err != nil {
		return nil, &ConnectError{Descriptor: "mysql " + Redact(connStr), Err: err}
	}

	db, err := openDB(ctx, "mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	return &MySQLAdapter{sqlBase: sqlBase{db: db, dialect: MySQL}, schema: cfg.DBName}, nil
}

// mysqlConfig 解析连接串并设置会话参数
func mysqlConfig(connStr string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return nil, err
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("no database selected")
	}
	// 时间列扫描为 time.Time，多语句用于 identity 之类的批处理
	cfg.ParseTime = true
	cfg.MultiStatements = true
	// 字面量里的反斜杠按普通字符处理，与只转义单引号的编码一致
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["sql_mode"] = "CONCAT(@@sql_mode, ',NO_BACKSLASH_ESCAPES')"
	return cfg, nil
}

// ListTables 列出基础表
func (a *MySQLAdapter) ListTables(ctx context.Context) ([]TableRef, error) {
	query := `
		SELECT TABLE_SCHEMA, TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`
	return a.queryTables(ctx, query, a.schema)
}

// ListForeignKeys 获取外键约束
func (a *MySQLAdapter) ListForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	query := `
		SELECT
			rc.CONSTRAINT_NAME,
			rc.CONSTRAINT_SCHEMA,
			rc.TABLE_NAME,
			rc.UNIQUE_CONSTRAINT_SCHEMA,
			rc.REFERENCED_TABLE_NAME
		FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		WHERE rc.CONSTRAINT_SCHEMA = ?
		ORDER BY rc.TABLE_NAME, rc.CONSTRAINT_NAME
	`
	return a.queryForeignKeys(ctx, query, a.schema)
}

// ListColumns 获取列信息
func (a *MySQLAdapter) ListColumns(ctx context.Context, table TableRef) ([]Column, error) {
	query := `
		SELECT
			COLUMN_NAME,
			DATA_TYPE,
			COALESCE(CHARACTER_MAXIMUM_LENGTH, 0),
			COALESCE(NUMERIC_PRECISION, 0),
			COALESCE(NUMERIC_SCALE, 0),
			IS_NULLABLE = 'YES',
			COLUMN_DEFAULT,
			COLUMN_KEY = 'PRI',
			EXTRA
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := a.db.QueryContext(ctx, query, a.schema, table.Name)
	if err != nil {
		return nil, &MetadataError{Query: query, Err: err}
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		var def sql.NullString
		var extra string
		if err := rows.Scan(&c.Name, &c.DataType, &c.Length, &c.Precision, &c.Scale,
			&c.Nullable, &def, &c.IsPrimaryKey, &extra); err != nil {
			return nil, &MetadataError{Query: query, Err: err}
		}
		extra = strings.ToLower(extra)
		c.IsIdentity = strings.Contains(extra, "auto_increment")
		c.IsComputed = strings.Contains(extra, "generated") && !strings.Contains(extra, "default_generated")
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

// EstimateRowCount 估算行数
func (a *MySQLAdapter) EstimateRowCount(ctx context.Context, table TableRef) (int64, error) {
	query := `
		SELECT TABLE_ROWS
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	`
	var count sql.NullInt64
	if err := a.db.QueryRowContext(ctx, query, a.schema, table.Name).Scan(&count); err != nil {
		return 0, &MetadataError{Query: query, Err: err}
	}
	if !count.Valid {
		return 0, nil
	}
	return count.Int64, nil
}
