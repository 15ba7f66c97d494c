package snapshot

import (
	"context"
	"fmt"
	"strconv"

	"sqlutil/internal/adapter"
	"sqlutil/internal/codec"
)

// fakeDB 内存中的表与语句记录
type fakeDB struct {
	dialect  *adapter.Dialect
	columns  map[string][]adapter.Column
	rows     map[string][][]codec.Value
	executed []string
	failOn   int
}

func newFakeDB(d *adapter.Dialect) *fakeDB {
	return &fakeDB{
		dialect: d,
		columns: make(map[string][]adapter.Column),
		rows:    make(map[string][][]codec.Value),
		failOn:  -1,
	}
}

// addTable 生成 n 行 (id, name)
func (f *fakeDB) addTable(t adapter.TableRef, n int) {
	f.columns[t.Key()] = []adapter.Column{
		{Name: "id", DataType: "int", IsPrimaryKey: true},
		{Name: "name", DataType: "nvarchar", Nullable: true},
	}
	var rows [][]codec.Value
	for i := 1; i <= n; i++ {
		rows = append(rows, []codec.Value{codec.IntegerValue(strconv.Itoa(i)), codec.TextValue(fmt.Sprintf("name %d", i))})
	}
	f.rows[t.Key()] = rows
}

func (f *fakeDB) Dialect() *adapter.Dialect { return f.dialect }

func (f *fakeDB) ListTables(ctx context.Context) ([]adapter.TableRef, error) { return nil, nil }

func (f *fakeDB) ListForeignKeys(ctx context.Context) ([]adapter.ForeignKey, error) {
	return nil, nil
}

func (f *fakeDB) ListColumns(ctx context.Context, t adapter.TableRef) ([]adapter.Column, error) {
	return f.columns[t.Key()], nil
}

func (f *fakeDB) CountRows(ctx context.Context, t adapter.TableRef) (int64, error) {
	return int64(len(f.rows[t.Key()])), nil
}

func (f *fakeDB) StreamRows(ctx context.Context, t adapter.TableRef, columns []adapter.Column, fn func([]codec.Value) error) error {
	for _, r := range f.rows[t.Key()] {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDB) Exec(ctx context.Context, stmt string) (int64, error) {
	if len(f.executed) == f.failOn {
		return 0, &adapter.StatementError{SQL: stmt, Err: fmt.Errorf("boom")}
	}
	f.executed = append(f.executed, stmt)
	return 0, nil
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }

func (f *fakeDB) Close() error { return nil }
