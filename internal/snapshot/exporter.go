package snapshot

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"sqlutil/internal/adapter"
	"sqlutil/internal/codec"
)

// ExportStats 导出统计
type ExportStats struct {
	Tables  int    `json:"tables"`
	Rows    int64  `json:"rows"`
	Batches int    `json:"batches"`
	Bytes   int64  `json:"bytes"`
	Digest  string `json:"digest"`
}

// Exporter 按给定顺序把每张表的数据写成快照
type Exporter struct {
	DB  adapter.DBAdapter
	Log zerolog.Logger
}

// NewExporter 创建导出器
func NewExporter(db adapter.DBAdapter, log zerolog.Logger) *Exporter {
	return &Exporter{DB: db, Log: log}
}

// Export 依次导出 tables；出错时已写出的部分保留在 w 中
func (e *Exporter) Export(ctx context.Context, tables []adapter.TableRef, w io.Writer) (*ExportStats, error) {
	out := NewWriter(w)
	stats := &ExportStats{}

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			out.Flush()
			return stats, err
		}
		tw, err := e.exportTable(ctx, out, t)
		if tw != nil {
			stats.Rows += tw.Total()
			stats.Batches += tw.Batches()
		}
		if err != nil {
			out.Flush()
			return stats, err
		}
		stats.Tables++
	}

	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("write snapshot: %w", err)
	}
	stats.Bytes = out.Bytes()
	stats.Digest = fmt.Sprintf("%016x", out.Digest())
	return stats, nil
}

func (e *Exporter) exportTable(ctx context.Context, out *Writer, t adapter.TableRef) (*TableWriter, error) {
	d := e.DB.Dialect()
	name := d.QualifiedName(t)
	log := e.Log.With().Str("table", name).Logger()
	log.Info().Msg("begin export")

	columns, err := e.DB.ListColumns(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}
	columns = adapter.WritableColumns(columns)
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	count, err := e.DB.CountRows(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", name, err)
	}
	log.Info().Int64("rows", count).Msg("found rows to export")

	insert := "insert into " + name + " (" + d.ColumnList(names) + ") values "
	on, off := d.IdentityInsert(t, columns)
	tw := out.BeginTable(name, insert, on, off)

	if count > 0 && len(columns) > 0 {
		err = e.DB.StreamRows(ctx, t, columns, func(values []codec.Value) error {
			if err := tw.Row(d.Encoder.Row(values)); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			if tw.Total()%BatchSize == 0 {
				log.Debug().Int64("rows", tw.Total()).Msg("exported")
			}
			return nil
		})
		if err != nil {
			return tw, err
		}
	}

	if err := tw.End(); err != nil {
		return tw, fmt.Errorf("write snapshot: %w", err)
	}
	if tw.Total() == 0 {
		log.Info().Msg("no rows to export")
	} else {
		log.Info().Int64("rows", tw.Total()).Msg("exported a total of rows")
	}
	return tw, nil
}
