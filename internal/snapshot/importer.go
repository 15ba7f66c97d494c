package snapshot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"sqlutil/internal/adapter"
)

// ImportStats 导入统计
type ImportStats struct {
	Tables     int    `json:"tables"`
	Statements int    `json:"statements"`
	Bytes      int64  `json:"bytes"`
	Digest     string `json:"digest"`
}

// Importer 逐行读取快照，遇到批次标记就把累积的文本作为一条语句执行
type Importer struct {
	DB  adapter.DBAdapter
	Log zerolog.Logger
}

// NewImporter 创建导入器
func NewImporter(db adapter.DBAdapter, log zerolog.Logger) *Importer {
	return &Importer{DB: db, Log: log}
}

// Import 单遍扫描 r；语句原样交给数据库执行，不做解析
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportStats, error) {
	h := xxh3.New()
	br := bufio.NewReader(io.TeeReader(r, h))
	stats := &ImportStats{}
	strict := im.DB.Dialect().StrictComments

	var (
		sb    strings.Builder
		lex   Scanner
		table string
		batch int
		read  int64
	)

	flush := func(summary string) error {
		defer func() {
			sb.Reset()
			lex.Reset()
		}()
		if !lex.HasCode() {
			return nil
		}
		if _, err := im.DB.Exec(ctx, sb.String()); err != nil {
			return fmt.Errorf("import %s: %w", table, err)
		}
		stats.Statements++
		im.Log.Info().Str("table", table).Int("rows", batch*BatchSize).Str("batch", summary).Msg("wrote rows")
		return nil
	}

	for {
		line, err := br.ReadString('\n')
		read += int64(len(line))
		if len(line) > 0 {
			neutral := lex.Neutral()
			switch {
			case neutral && strings.HasPrefix(line, BeginMarker):
				table = TableName(line)
				batch = 0
				stats.Tables++
				im.Log.Info().Str("table", table).Msg("begin data import")
				lex.Feed(line)
				if !strict {
					sb.WriteString(line)
				}
			case neutral && strings.HasPrefix(line, BatchMarker):
				summary := strings.TrimSpace(strings.TrimPrefix(line, BatchMarker))
				if ferr := flush(summary); ferr != nil {
					return stats, ferr
				}
				batch++
			default:
				code := lex.Feed(line)
				if !strict || code || !neutral {
					sb.WriteString(line)
				}
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read snapshot: %w", err)
		}
		if cerr := ctx.Err(); cerr != nil {
			return stats, cerr
		}
	}

	// 文件末尾没有批次标记的内容也要执行
	if err := flush("end of file"); err != nil {
		return stats, err
	}

	stats.Bytes = read
	stats.Digest = fmt.Sprintf("%016x", h.Sum64())
	return stats, nil
}
