package loader

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"sqlutil/internal/adapter"
	"sqlutil/internal/codec"
)

func openSQLite(t *testing.T) *adapter.SQLiteAdapter {
	t.Helper()
	a, err := adapter.NewSQLiteAdapter(context.Background(), filepath.Join(t.TempDir(), "load.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func readRows(t *testing.T, a adapter.DBAdapter, table adapter.TableRef) [][]codec.Value {
	t.Helper()
	ctx := context.Background()
	cols, err := a.ListColumns(ctx, table)
	if err != nil {
		t.Fatalf("ListColumns: %v", err)
	}
	var rows [][]codec.Value
	err = a.StreamRows(ctx, table, cols, func(v []codec.Value) error {
		rows = append(rows, v)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	return rows
}

func TestLoadCSV(t *testing.T) {
	a := openSQLite(t)
	input := "[id],name,active,guid\n" +
		"1,O'Brien,true,6F9619FF-8B86-D011-B42D-00C04FC964FF\n" +
		"2,Smith,no,\n" +
		"3\n"

	stats, err := NewLoader(a, zerolog.Nop()).Load(context.Background(), "people", NewCSVSource(strings.NewReader(input), 0))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", stats.Rows)
	}

	expectedTypes := []Type{TypeInteger, TypeText, TypeBoolean, TypeIdentifier}
	for i, c := range stats.Columns {
		if c.Type != expectedTypes[i] {
			t.Errorf("column %s: expected %s, got %s", c.Name, expectedTypes[i], c.Type)
		}
	}
	if stats.Columns[0].Name != "id" {
		t.Errorf("expected brackets stripped, got %s", stats.Columns[0].Name)
	}

	table := adapter.TableRef{Schema: "main", Name: "people"}
	rows := readRows(t, a, table)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows in table, got %d", len(rows))
	}
	if got := codec.Encode(rows[0][1]); got != "'O''Brien'" {
		t.Errorf("expected 'O''Brien', got %s", got)
	}
	if got := codec.Encode(rows[0][2]); got != "1" {
		t.Errorf("expected true stored as 1, got %s", got)
	}
	if got := codec.Encode(rows[1][2]); got != "0" {
		t.Errorf("expected no stored as 0, got %s", got)
	}
	if got := codec.Encode(rows[1][3]); got != "null" {
		t.Errorf("expected empty field stored as null, got %s", got)
	}
	for i := 1; i < 4; i++ {
		if rows[2][i].Kind != codec.KindNull {
			t.Errorf("short row column %d: expected null, got %s", i, codec.Encode(rows[2][i]))
		}
	}
}

func TestLoadReplacesExistingTable(t *testing.T) {
	a := openSQLite(t)
	ctx := context.Background()
	if _, err := a.Exec(ctx, "create table [main].[items] (old text)"); err != nil {
		t.Fatalf("exec: %v", err)
	}

	src := NewCSVSource(strings.NewReader("sku\tqty\nA1\t5\n"), '\t')
	if _, err := NewLoader(a, zerolog.Nop()).Load(ctx, "items", src); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cols, err := a.ListColumns(ctx, adapter.TableRef{Schema: "main", Name: "items"})
	if err != nil {
		t.Fatalf("ListColumns: %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "sku" || cols[1].DataType != "bigint" {
		t.Errorf("unexpected columns %+v", cols)
	}
}

func TestLoadHeaderOnly(t *testing.T) {
	a := openSQLite(t)
	stats, err := NewLoader(a, zerolog.Nop()).Load(context.Background(), "empty", NewCSVSource(strings.NewReader("a,b\n"), 0))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Rows != 0 || stats.Columns != nil {
		t.Errorf("unexpected stats %+v", stats)
	}

	if _, err := NewLoader(a, zerolog.Nop()).Load(context.Background(), "none", NewCSVSource(strings.NewReader(""), 0)); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestXLSXSource(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]interface{}{"id", "name"})
	f.SetSheetRow(sheet, "A2", &[]interface{}{1, "widget"})
	f.SetSheetRow(sheet, "A3", &[]interface{}{2, "gadget"})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	src, err := OpenSource(bytes.NewReader(buf.Bytes()), "products.xlsx", 0)
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer src.Close()

	a := openSQLite(t)
	stats, err := NewLoader(a, zerolog.Nop()).Load(context.Background(), "products", src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", stats.Rows)
	}
	if stats.Columns[0].Type != TypeInteger || stats.Columns[1].Type != TypeText {
		t.Errorf("unexpected columns %+v", stats.Columns)
	}
}
