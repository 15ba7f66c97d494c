package adapter

import (
	"context"
	"os"
	"strings"
	"testing"

	"sqlutil/internal/codec"
)

// 服务器数据库的集成测试，连接串从环境变量读取，未设置或无法连接时跳过
var integrationTargets = []struct {
	env    string
	typ    string
	schema string
	ddl    []string
	drop   []string
}{
	{
		env: "SQLUTIL_TEST_SQLSERVER",
		typ: TypeSQLServer,
		ddl: []string{
			"create table dbo.it_parent (id int identity(1,1) primary key, name nvarchar(50) not null, stamp rowversion)",
			"create table dbo.it_child (id int primary key, parent_id int not null references dbo.it_parent(id), total as (id * 2))",
		},
		drop: []string{"drop table if exists dbo.it_child", "drop table if exists dbo.it_parent"},
	},
	{
		env: "SQLUTIL_TEST_MYSQL",
		typ: TypeMySQL,
		ddl: []string{
			"create table it_parent (id int auto_increment primary key, name varchar(50) not null)",
			"create table it_child (id int primary key, parent_id int not null, total int as (id * 2), foreign key (parent_id) references it_parent(id))",
		},
		drop: []string{"drop table if exists it_child", "drop table if exists it_parent"},
	},
	{
		env:    "SQLUTIL_TEST_POSTGRES",
		typ:    TypePostgres,
		schema: "public",
		ddl: []string{
			"create table it_parent (id int generated always as identity primary key, name varchar(50) not null)",
			"create table it_child (id int primary key, parent_id int not null references it_parent(id), total int generated always as (id * 2) stored)",
		},
		drop: []string{"drop table if exists it_child", "drop table if exists it_parent"},
	},
}

func TestIntegrationMetadata(t *testing.T) {
	for _, tt := range integrationTargets {
		t.Run(tt.typ, func(t *testing.T) {
			dsn := os.Getenv(tt.env)
			if dsn == "" {
				t.Skipf("%s not set", tt.env)
			}
			ctx := context.Background()
			d, err := ParseDescriptor(dsn, tt.typ)
			if err != nil {
				t.Fatalf("ParseDescriptor: %v", err)
			}
			db, err := Open(ctx, d)
			if err != nil {
				t.Skipf("%s not available: %v", tt.typ, err)
			}
			defer db.Close()

			for _, stmt := range append(append([]string{}, tt.drop...), tt.ddl...) {
				if _, err := db.Exec(ctx, stmt); err != nil {
					t.Fatalf("setup %q: %v", stmt, err)
				}
			}
			defer func() {
				for _, stmt := range tt.drop {
					db.Exec(ctx, stmt)
				}
			}()

			fks, err := db.ListForeignKeys(ctx)
			if err != nil {
				t.Fatalf("ListForeignKeys: %v", err)
			}
			schema := ""
			for _, fk := range fks {
				if fk.From.Name == "it_child" && fk.To.Name == "it_parent" {
					schema = fk.From.Schema
				}
			}
			if schema == "" {
				t.Fatalf("expected it_child -> it_parent in %v", fks)
			}
			if tt.schema != "" && schema != tt.schema {
				t.Errorf("expected schema %s, got %s", tt.schema, schema)
			}
			parent := TableRef{Schema: schema, Name: "it_parent"}
			child := TableRef{Schema: schema, Name: "it_child"}

			cols, err := db.ListColumns(ctx, parent)
			if err != nil {
				t.Fatalf("ListColumns: %v", err)
			}
			if !HasIdentity(cols) {
				t.Error("expected identity column on it_parent")
			}
			writable := WritableColumns(cols)
			if len(writable) != 2 {
				t.Errorf("expected id and name to be writable, got %v", writable)
			}

			childCols, err := db.ListColumns(ctx, child)
			if err != nil {
				t.Fatalf("ListColumns: %v", err)
			}
			for _, c := range WritableColumns(childCols) {
				if c.Name == "total" {
					t.Error("computed column must not be writable")
				}
			}

			names := []string{"O'Brien", `a\b`, `ends\`}
			enc := db.Dialect().Encoder
			for _, name := range names {
				insert := "insert into " + db.Dialect().QualifiedName(parent) + " (" + db.Dialect().ColumnList([]string{"name"}) +
					") values (" + enc.Encode(codec.TextValue(name)) + ")"
				if _, err := db.Exec(ctx, insert); err != nil {
					t.Fatalf("insert %q: %v", name, err)
				}
			}
			got := map[string]bool{}
			var tuples []string
			err = db.StreamRows(ctx, parent, writable, func(v []codec.Value) error {
				tuples = append(tuples, enc.Row(v))
				got[v[1].Text] = true
				return nil
			})
			if err != nil {
				t.Fatalf("StreamRows: %v", err)
			}
			if len(tuples) != len(names) || !strings.Contains(strings.Join(tuples, "\n"), "'O''Brien'") {
				t.Errorf("unexpected rows %v", tuples)
			}
			for _, name := range names {
				if !got[name] {
					t.Errorf("expected %q to survive the literal round trip, got %v", name, got)
				}
			}
		})
	}
}
