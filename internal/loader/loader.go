package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"sqlutil/internal/adapter"
	"sqlutil/internal/codec"
)

// Column 由表头和首行数据推断出的列
type Column struct {
	Name        string     `json:"name"`
	Type        Type       `json:"type"`
	Kind        codec.Kind `json:"kind"`
	Declaration string     `json:"declaration"`
}

// LoadStats 装载统计
type LoadStats struct {
	Table   adapter.TableRef `json:"table"`
	Columns []Column         `json:"columns"`
	Rows    int64            `json:"rows"`
}

// Loader 把无类型的分隔文本装入一张新建的表
type Loader struct {
	DB adapter.DBAdapter

	// Schema 目标 schema，为空时使用方言默认值
	Schema string

	Log zerolog.Logger
}

// NewLoader 创建装载器
func NewLoader(db adapter.DBAdapter, log zerolog.Logger) *Loader {
	return &Loader{DB: db, Log: log}
}

// Load 首行是列名，第二行决定列类型；表先删除再创建，每行一条 insert，不分批
func (l *Loader) Load(ctx context.Context, tableName string, src Source) (*LoadStats, error) {
	d := l.DB.Dialect()
	schema := l.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}
	table := adapter.TableRef{Schema: schema, Name: tableName}
	name := d.QualifiedName(table)
	stats := &LoadStats{Table: table}

	header, err := src.Next()
	if errors.Is(err, io.EOF) {
		return stats, fmt.Errorf("%s: no header row", tableName)
	}
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.NewReplacer("[", "", "]", "").Replace(h)
	}

	var kinds []codec.Kind
	var insert string
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", stats.Rows+2, err)
		}

		if kinds == nil {
			stats.Columns = inferColumns(d.Name, names, row)
			kinds = make([]codec.Kind, len(stats.Columns))
			for i, c := range stats.Columns {
				kinds[i] = c.Kind
			}
			if err := l.createTable(ctx, name, stats.Columns); err != nil {
				return stats, err
			}
			l.Log.Info().Str("table", name).Int("columns", len(stats.Columns)).Msg("created table")
			insert = "insert into " + name + " (" + d.ColumnList(names) + ") values ("
		}

		values := d.Encoder.DecodeRow(row, kinds)
		if _, err := l.DB.Exec(ctx, insert+strings.Join(values, ", ")+")"); err != nil {
			return stats, fmt.Errorf("insert row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++
		if stats.Rows%100 == 0 {
			l.Log.Info().Str("table", name).Int64("rows", stats.Rows).Msg("inserted rows")
		}
	}

	if kinds == nil {
		l.Log.Warn().Str("table", name).Msg("no data rows, table not created")
	}
	return stats, nil
}

// inferColumns 样本行比表头短时缺失字段按空值推断
func inferColumns(dialect string, names, sample []string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		var v string
		if i < len(sample) {
			v = sample[i]
		}
		t := Infer(v)
		cols[i] = Column{Name: n, Type: t, Kind: t.Kind(), Declaration: Declaration(dialect, t)}
	}
	return cols
}

func (l *Loader) createTable(ctx context.Context, name string, cols []Column) error {
	if _, err := l.DB.Exec(ctx, "drop table if exists "+name); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := l.DB.Exec(ctx, CreateTableStatement(l.DB.Dialect(), name, cols)); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	return nil
}

// CreateTableStatement 生成 create table 语句
func CreateTableStatement(d *adapter.Dialect, name string, cols []Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = "    " + d.Quote(c.Name) + " " + c.Declaration
	}
	return "create table " + name + " (\n" + strings.Join(defs, ",\n") + "\n)"
}
