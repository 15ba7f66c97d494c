package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sqlutil/internal/adapter"
	"sqlutil/internal/storage"
)

const schemaSQL = `
create table customer (id integer primary key, name text not null);
create table orders (
	id integer primary key,
	customer_id integer not null references customer(id),
	parent_id integer references orders(id),
	note text
);
create table line (
	id integer primary key,
	order_id integer not null references orders(id),
	amount real
);
`

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(nil, storage.New(0), zerolog.Nop())
}

func newDatabase(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := adapter.NewSQLiteAdapter(context.Background(), path)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer db.Close()
	if _, err := db.Exec(context.Background(), schemaSQL); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return path
}

func seed(t *testing.T, path string, customers, orders int) {
	t.Helper()
	ctx := context.Background()
	db, err := adapter.NewSQLiteAdapter(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for i := 1; i <= customers; i++ {
		stmt := fmt.Sprintf("insert into customer (id, name) values (%d, 'cust''%d')", i, i)
		if _, err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed customer: %v", err)
		}
	}
	for i := 1; i <= orders; i++ {
		parent := "null"
		if i > 1 {
			parent = fmt.Sprint(i - 1)
		}
		stmt := fmt.Sprintf("insert into orders (id, customer_id, parent_id, note) values (%d, 1, %s, 'n%d')", i, parent, i)
		if _, err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed order: %v", err)
		}
		stmt = fmt.Sprintf("insert into line (id, order_id, amount) values (%d, %d, %d.5)", i, i, i)
		if _, err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed line: %v", err)
		}
	}
}

func counts(t *testing.T, path string) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	db, err := adapter.NewSQLiteAdapter(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	out := map[string]int64{}
	for _, name := range []string{"customer", "orders", "line"} {
		n, err := db.CountRows(ctx, adapter.TableRef{Schema: "main", Name: name})
		if err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		out[name] = n
	}
	return out
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 99, 100, 101, 250} {
		t.Run(fmt.Sprintf("rows_%d", n), func(t *testing.T) {
			ctx := context.Background()
			s := newService(t)
			src := newDatabase(t, "src.db")
			dst := newDatabase(t, "dst.db")
			customers := 1
			if n == 0 {
				customers = 0
			}
			seed(t, src, customers, n)

			file := filepath.Join(t.TempDir(), "snapshot.sql")
			exported, err := s.Export(ctx, src, file)
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			if exported.Tables != 3 {
				t.Errorf("expected 3 tables, got %d", exported.Tables)
			}

			imported, err := s.Import(ctx, file, dst)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if imported.Digest != exported.Digest {
				t.Errorf("digest mismatch: %s != %s", imported.Digest, exported.Digest)
			}

			want := map[string]int64{"customer": int64(customers), "orders": int64(n), "line": int64(n)}
			got := counts(t, dst)
			for table, c := range want {
				if got[table] != c {
					t.Errorf("%s: expected %d rows, got %d", table, c, got[table])
				}
			}
		})
	}
}

// quoted 返回查询结果的第一列，每行一个字符串
func quoted(t *testing.T, path, query string) []string {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}

func TestExportImportPreservesValues(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	const docSQL = `create table doc (id integer primary key, body text, data blob, ratio real);`
	src := filepath.Join(t.TempDir(), "src.db")
	dst := filepath.Join(t.TempDir(), "dst.db")
	for _, path := range []string{src, dst} {
		db, err := adapter.NewSQLiteAdapter(ctx, path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := db.Exec(ctx, docSQL); err != nil {
			t.Fatalf("create: %v", err)
		}
		db.Close()
	}

	values := []string{
		"(1, 'it''s', X'0001FF', 0.1)",
		"(2, 'line one\nGO -- SQL_BATCH --\nline three', X'41', 1e-7)",
		"(3, '-- Begin table: [main].[doc]', null, -2.5)",
		"(4, '/* not a comment', X'2F2A', 3)",
		"(5, 'héllo 世界 🎉', X'00', null)",
		"(6, null, null, null)",
		"(7, '', X'27', 0)",
	}
	db, err := adapter.NewSQLiteAdapter(ctx, src)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(ctx, "insert into doc values "+strings.Join(values, ", ")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	db.Close()

	file := filepath.Join(t.TempDir(), "doc.sql")
	if _, err := s.Export(ctx, src, file); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := s.Import(ctx, file, dst); err != nil {
		t.Fatalf("Import: %v", err)
	}

	const query = "select quote(id) || ',' || quote(body) || ',' || quote(data) || ',' || quote(ratio) from doc order by id"
	expected := quoted(t, src, query)
	got := quoted(t, dst, query)
	if len(expected) != len(values) {
		t.Fatalf("expected %d source rows, got %d", len(values), len(expected))
	}
	if strings.Join(got, "\n") != strings.Join(expected, "\n") {
		t.Errorf("values changed after round trip:\nexpected %q\ngot      %q", expected, got)
	}
}

func TestExportOverwritesExistingFile(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	src := newDatabase(t, "src.db")
	seed(t, src, 1, 2)

	file := filepath.Join(t.TempDir(), "snapshot.sql")
	if err := os.WriteFile(file, []byte(strings.Repeat("stale\n", 10000)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stats, err := s.Export(ctx, src, file)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("expected stale content to be replaced")
	}
	if int64(len(data)) != stats.Bytes {
		t.Errorf("expected %d bytes, file has %d", stats.Bytes, len(data))
	}
}

func TestExportParentsBeforeChildren(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	src := newDatabase(t, "src.db")
	seed(t, src, 1, 1)

	file := filepath.Join(t.TempDir(), "snapshot.sql")
	if _, err := s.Export(ctx, src, file); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, _ := os.ReadFile(file)
	text := string(data)
	c := strings.Index(text, "-- Begin table: [main].[customer]")
	o := strings.Index(text, "-- Begin table: [main].[orders]")
	l := strings.Index(text, "-- Begin table: [main].[line]")
	if c < 0 || o < 0 || l < 0 || !(c < o && o < l) {
		t.Errorf("unexpected table order: customer=%d orders=%d line=%d", c, o, l)
	}
}

func TestImportMissingFileFailsBeforeConnecting(t *testing.T) {
	s := newService(t)
	s.Open = func(ctx context.Context, d adapter.Descriptor) (adapter.DBAdapter, error) {
		t.Fatal("connect must not be attempted")
		return nil, nil
	}
	_, err := s.Import(context.Background(), filepath.Join(t.TempDir(), "missing.sql"), "sqlite:x.db")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// recordingDB 记录执行过的语句
type recordingDB struct {
	adapter.DBAdapter
	executed []string
}

func (r *recordingDB) Exec(ctx context.Context, stmt string) (int64, error) {
	r.executed = append(r.executed, stmt)
	return r.DBAdapter.Exec(ctx, stmt)
}

func TestWipeDeletesChildrenFirst(t *testing.T) {
	ctx := context.Background()
	path := newDatabase(t, "wipe.db")
	seed(t, path, 3, 5)

	db, err := adapter.NewSQLiteAdapter(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	rec := &recordingDB{DBAdapter: db}

	stats, err := Wipe(ctx, rec, zerolog.Nop())
	if err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	expected := []string{
		"delete from [main].[line]",
		"delete from [main].[orders]",
		"delete from [main].[customer]",
	}
	if strings.Join(rec.executed, "\n") != strings.Join(expected, "\n") {
		t.Errorf("unexpected statements:\n%s", strings.Join(rec.executed, "\n"))
	}
	if stats.Tables != 3 || stats.Rows != 13 {
		t.Errorf("unexpected stats %+v", stats)
	}
	for table, n := range counts(t, path) {
		if n != 0 {
			t.Errorf("%s: expected empty, got %d", table, n)
		}
	}
}

func TestWipeEmptyDatabase(t *testing.T) {
	s := newService(t)
	path := filepath.Join(t.TempDir(), "empty.db")
	stats, err := s.Wipe(context.Background(), path)
	if err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if stats.Tables != 0 {
		t.Errorf("expected no tables, got %d", stats.Tables)
	}
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	src := newDatabase(t, "src.db")
	dst := newDatabase(t, "dst.db")
	seed(t, src, 2, 120)
	// 目标里已有的数据会被清掉
	seed(t, dst, 5, 7)

	stats, err := s.Copy(ctx, src, dst)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if stats.Export.Rows != 242 {
		t.Errorf("expected 242 exported rows, got %d", stats.Export.Rows)
	}
	if stats.Wipe.Rows != 19 {
		t.Errorf("expected 19 wiped rows, got %d", stats.Wipe.Rows)
	}

	want, got := counts(t, src), counts(t, dst)
	for table, n := range want {
		if got[table] != n {
			t.Errorf("%s: expected %d rows, got %d", table, n, got[table])
		}
	}
}

func TestCopyStopsWhenTargetUnreachable(t *testing.T) {
	s := newService(t)
	src := newDatabase(t, "src.db")
	_, err := s.Copy(context.Background(), src, "mysql://nobody@tcp(127.0.0.1:1)/none?timeout=1s")
	if err == nil || !strings.HasPrefix(err.Error(), "target:") {
		t.Fatalf("expected target connection error, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	path := filepath.Join(t.TempDir(), "upload.db")

	file := filepath.Join(t.TempDir(), "price list.csv")
	content := "sku,price,added\nA1,9.99,2024-01-31\nB2,12.5,2024-02-01\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	stats, err := s.Upload(ctx, file, path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if stats.Table.Name != "price list" || stats.Rows != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	db, err := adapter.NewSQLiteAdapter(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if n, _ := db.CountRows(ctx, stats.Table); n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}
}

func TestResolve(t *testing.T) {
	s := newService(t)
	tests := []struct {
		input    string
		expected string
	}{
		{"sqlite:/tmp/a.db", adapter.TypeSQLite},
		{"postgres://u@h/db", adapter.TypePostgres},
		{"Server=.;Database=x", adapter.TypeSQLServer},
	}

	for _, tt := range tests {
		d, err := s.Resolve(tt.input)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.input, err)
			continue
		}
		if d.Type != tt.expected {
			t.Errorf("Resolve(%q): expected %s, got %s", tt.input, tt.expected, d.Type)
		}
	}
}
