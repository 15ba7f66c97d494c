package transfer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sqlutil/internal/adapter"
	"sqlutil/internal/graph"
)

// WipeStats 清空统计
type WipeStats struct {
	Tables int   `json:"tables"`
	Rows   int64 `json:"rows"`
}

// Wipe 子表在前逐表 delete；没有跨表事务，失败时前面的表已被清空
func Wipe(ctx context.Context, db adapter.DBAdapter, log zerolog.Logger) (*WipeStats, error) {
	order, err := graph.ResolveOrder(ctx, db, log)
	if err != nil {
		return nil, err
	}
	tables := order.Reversed()
	log.Info().Int("tables", len(tables)).Msg("found tables to delete")

	d := db.Dialect()
	stats := &WipeStats{}
	for _, t := range tables {
		name := d.QualifiedName(t)
		log.Info().Str("table", name).Msg("deleting")
		n, err := db.Exec(ctx, "delete from "+name)
		if err != nil {
			return stats, fmt.Errorf("wipe %s: %w", name, err)
		}
		stats.Tables++
		stats.Rows += n
	}
	return stats, nil
}
