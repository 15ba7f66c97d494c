package transfer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"sqlutil/internal/adapter"
	"sqlutil/internal/connstore"
	"sqlutil/internal/graph"
	"sqlutil/internal/loader"
	"sqlutil/internal/snapshot"
	"sqlutil/internal/storage"
)

// ConnectTimeout 连接测试的超时时间
const ConnectTimeout = 30 * time.Second

// OpenFunc 按描述打开数据库
type OpenFunc func(ctx context.Context, d adapter.Descriptor) (adapter.DBAdapter, error)

// Service 对外提供的数据搬运操作；每个操作自己打开并关闭连接
type Service struct {
	// Store 命名连接，为空时只接受字面连接串
	Store *connstore.Store

	Storage *storage.Storage

	// DefaultType 无法从前缀识别时使用的数据库类型
	DefaultType string

	// Schema 批量装载的目标 schema
	Schema string

	// Delimiter 批量装载的分隔符，0 为逗号
	Delimiter rune

	Log  zerolog.Logger
	Open OpenFunc
}

// NewService 创建服务
func NewService(store *connstore.Store, st *storage.Storage, log zerolog.Logger) *Service {
	if st == nil {
		st = storage.New(0)
	}
	return &Service{Store: store, Storage: st, Log: log, Open: adapter.Open}
}

// Resolve 把命名连接或字面连接串解析为描述
func (s *Service) Resolve(dbRef string) (adapter.Descriptor, error) {
	raw := dbRef
	if s.Store != nil && !connstore.IsLiteral(dbRef) {
		v, err := s.Store.Get(dbRef)
		switch {
		case err == nil:
			raw = v
		case !adapter.Recognized(dbRef):
			return adapter.Descriptor{}, err
		}
	}
	return adapter.ParseDescriptor(raw, s.DefaultType)
}

// Connect 解析并打开连接
func (s *Service) Connect(ctx context.Context, dbRef string) (adapter.DBAdapter, error) {
	d, err := s.Resolve(dbRef)
	if err != nil {
		return nil, err
	}
	open := s.Open
	if open == nil {
		open = adapter.Open
	}
	return open(ctx, d)
}

// TestConnection 打开连接并 ping 一次
func (s *Service) TestConnection(ctx context.Context, dbRef string) error {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	db, err := s.Connect(ctx, dbRef)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return &adapter.ConnectError{Descriptor: dbRef, Err: err}
	}
	s.Log.Info().Str("database", db.Dialect().Name).Msg("connection ok")
	return nil
}

// Order 按外键依赖列出表；适配器支持时附带估计行数
func (s *Service) Order(ctx context.Context, dbRef string) (*graph.Ordering, error) {
	db, err := s.Connect(ctx, dbRef)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	o, err := graph.ResolveOrder(ctx, db, s.Log)
	if err != nil {
		return nil, err
	}
	if est, ok := db.(adapter.RowEstimator); ok {
		for i := range o.Tables {
			n, err := est.EstimateRowCount(ctx, o.Tables[i].Table)
			if err != nil {
				s.Log.Debug().Err(err).Str("table", o.Tables[i].Table.String()).Msg("row estimate unavailable")
				continue
			}
			o.Tables[i].EstimatedRows = n
		}
	}
	return o, nil
}

// Export 把整个库导出到 location；已存在的目标先删除
func (s *Service) Export(ctx context.Context, dbRef, location string) (*snapshot.ExportStats, error) {
	db, err := s.Connect(ctx, dbRef)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	s.Log.Info().Msg("getting list of tables in foreign key order")
	order, err := graph.ResolveOrder(ctx, db, s.Log)
	if err != nil {
		return nil, err
	}

	w, err := s.Storage.Create(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", location, err)
	}
	stats, err := snapshot.NewExporter(db, s.Log).Export(ctx, order.Refs(), w)
	if cerr := w.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", location, cerr)
	}
	if err != nil {
		return stats, err
	}
	s.Log.Info().Int("tables", stats.Tables).Int64("rows", stats.Rows).Str("digest", stats.Digest).
		Str("location", location).Msg("export complete")
	return stats, nil
}

// Import 回放快照；先确认文件存在再连接数据库
func (s *Service) Import(ctx context.Context, location, dbRef string) (*snapshot.ImportStats, error) {
	if err := s.Storage.Exists(ctx, location); err != nil {
		return nil, err
	}

	db, err := s.Connect(ctx, dbRef)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	r, err := s.Storage.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	stats, err := snapshot.NewImporter(db, s.Log).Import(ctx, r)
	if err != nil {
		return stats, err
	}
	s.Log.Info().Int("tables", stats.Tables).Int("statements", stats.Statements).Str("digest", stats.Digest).
		Msg("import complete")
	return stats, nil
}

// Wipe 按依赖逆序清空所有表
func (s *Service) Wipe(ctx context.Context, dbRef string) (*WipeStats, error) {
	db, err := s.Connect(ctx, dbRef)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return Wipe(ctx, db, s.Log)
}

// CopyStats 复制统计
type CopyStats struct {
	Export *snapshot.ExportStats `json:"export"`
	Wipe   *WipeStats            `json:"wipe"`
	Import *snapshot.ImportStats `json:"import"`
}

// Copy 先测试两端连接，再导出到临时文件、清空目标、导入；临时文件最后删除
func (s *Service) Copy(ctx context.Context, srcRef, tgtRef string) (*CopyStats, error) {
	if err := s.TestConnection(ctx, srcRef); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := s.TestConnection(ctx, tgtRef); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	f, err := os.CreateTemp("", "sqlutil-*.sql")
	if err != nil {
		return nil, err
	}
	tmp := f.Name()
	f.Close()
	defer func() {
		if err := s.Storage.Remove(context.Background(), tmp); err != nil {
			s.Log.Warn().Err(err).Str("file", tmp).Msg("failed to remove temp file")
		}
	}()

	stats := &CopyStats{}
	if stats.Export, err = s.Export(ctx, srcRef, tmp); err != nil {
		return stats, err
	}
	if stats.Wipe, err = s.Wipe(ctx, tgtRef); err != nil {
		return stats, err
	}
	if stats.Import, err = s.Import(ctx, tmp, tgtRef); err != nil {
		return stats, err
	}
	return stats, nil
}

// Upload 把分隔文本或工作簿装入以文件名命名的新表
func (s *Service) Upload(ctx context.Context, location, dbRef string) (*loader.LoadStats, error) {
	if err := s.Storage.Exists(ctx, location); err != nil {
		return nil, err
	}

	db, err := s.Connect(ctx, dbRef)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	r, err := s.Storage.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	src, err := loader.OpenSource(r, location, s.Delimiter)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	l := loader.NewLoader(db, s.Log)
	l.Schema = s.Schema
	stats, err := l.Load(ctx, loader.TableName(location), src)
	if err != nil {
		return stats, err
	}
	s.Log.Info().Str("table", stats.Table.String()).Int64("rows", stats.Rows).Msg("upload complete")
	return stats, nil
}
