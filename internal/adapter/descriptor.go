package adapter

import (
	"context"
	"fmt"
	"strings"
)

// 支持的数据库类型
const (
	TypeSQLServer = "sqlserver"
	TypeMySQL     = "mysql"
	TypePostgres  = "postgres"
	TypeSQLite    = "sqlite"
)

// Descriptor 连接描述：数据库类型 + 驱动连接串
type Descriptor struct {
	Type string
	DSN  string
}

func (d Descriptor) String() string {
	return d.Type + " " + Redact(d.DSN)
}

// ParseDescriptor 根据前缀识别数据库类型；无法识别时使用 defaultType
//
//	sqlserver://...            SQL Server（URL 原样交给驱动）
//	mysql://user:pw@tcp(h)/db  MySQL（去掉前缀）
//	postgres://, postgresql:// PostgreSQL
//	sqlite:path, file:path     SQLite
//	*.db, *.sqlite             SQLite 文件
func ParseDescriptor(s, defaultType string) (Descriptor, error) {
	if d, ok := detect(s); ok {
		return d, nil
	}

	if defaultType == "" {
		defaultType = TypeSQLServer
	}
	switch defaultType {
	case TypeSQLServer, TypeMySQL, TypePostgres, TypeSQLite:
		return Descriptor{Type: defaultType, DSN: s}, nil
	}
	return Descriptor{}, fmt.Errorf("unsupported database type: %s", defaultType)
}

// Recognized 是否带有可识别的驱动前缀或 SQLite 文件后缀
func Recognized(s string) bool {
	_, ok := detect(s)
	return ok
}

func detect(s string) (Descriptor, bool) {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "sqlserver://"):
		return Descriptor{Type: TypeSQLServer, DSN: s}, true
	case strings.HasPrefix(lower, "mysql://"):
		return Descriptor{Type: TypeMySQL, DSN: s[len("mysql://"):]}, true
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Descriptor{Type: TypePostgres, DSN: s}, true
	case strings.HasPrefix(lower, "sqlite:"):
		return Descriptor{Type: TypeSQLite, DSN: strings.TrimPrefix(s[len("sqlite:"):], "//")}, true
	case strings.HasPrefix(lower, "file:"):
		return Descriptor{Type: TypeSQLite, DSN: s}, true
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return Descriptor{Type: TypeSQLite, DSN: s}, true
	}
	return Descriptor{}, false
}

// Open 按描述创建适配器并验证连接
func Open(ctx context.Context, d Descriptor) (DBAdapter, error) {
	switch d.Type {
	case TypeSQLServer:
		return NewSQLServerAdapter(ctx, d.DSN)
	case TypeMySQL:
		return NewMySQLAdapter(ctx, d.DSN)
	case TypePostgres:
		return NewPostgresAdapter(ctx, d.DSN)
	case TypeSQLite:
		return NewSQLiteAdapter(ctx, d.DSN)
	}
	return nil, fmt.Errorf("unsupported database type: %s", d.Type)
}
