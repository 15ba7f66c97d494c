package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrNotFound 位置不存在
var ErrNotFound = errors.New("not found")

// Storage 快照文件的读写位置：本地路径或 s3://bucket/key，以 .zst 结尾时透明压缩
type Storage struct {
	// Level zstd 压缩级别（1-22），0 为默认
	Level int

	mu sync.Mutex
	s3 *s3Backend
}

// New 创建存储
func New(level int) *Storage {
	return &Storage{Level: level}
}

// IsRemote 是否为 S3 位置
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

func compressed(location string) bool {
	return strings.HasSuffix(strings.ToLower(location), ".zst")
}

// Exists 检查位置是否存在
func (s *Storage) Exists(ctx context.Context, location string) error {
	if IsRemote(location) {
		b, err := s.remote(ctx)
		if err != nil {
			return err
		}
		return b.exists(ctx, location)
	}
	st, err := os.Stat(location)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", location)
	}
	return nil
}

// Open 打开读取
func (s *Storage) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if IsRemote(location) {
		b, err := s.remote(ctx)
		if err != nil {
			return nil, err
		}
		if rc, err = b.open(ctx, location); err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(location)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		rc = f
	}

	if !compressed(location) {
		return rc, nil
	}
	dec, err := zstd.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &decompressReader{dec: dec, src: rc}, nil
}

// Create 创建或覆盖；本地文件先删除再创建
func (s *Storage) Create(ctx context.Context, location string) (io.WriteCloser, error) {
	var wc io.WriteCloser
	if IsRemote(location) {
		b, err := s.remote(ctx)
		if err != nil {
			return nil, err
		}
		wc = b.create(ctx, location)
	} else {
		if err := os.Remove(location); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		f, err := os.Create(location)
		if err != nil {
			return nil, err
		}
		wc = f
	}

	if !compressed(location) {
		return wc, nil
	}
	opts := []zstd.EOption{}
	if s.Level > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(s.Level)))
	}
	enc, err := zstd.NewWriter(wc, opts...)
	if err != nil {
		wc.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &compressWriter{enc: enc, dst: wc}, nil
}

// Remove 删除；不存在时不报错
func (s *Storage) Remove(ctx context.Context, location string) error {
	if IsRemote(location) {
		b, err := s.remote(ctx)
		if err != nil {
			return err
		}
		return b.remove(ctx, location)
	}
	if err := os.Remove(location); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Storage) remote(ctx context.Context) (*s3Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.s3 != nil {
		return s.s3, nil
	}
	b, err := newS3Backend(ctx)
	if err != nil {
		return nil, err
	}
	s.s3 = b
	return b, nil
}

type decompressReader struct {
	dec *zstd.Decoder
	src io.Closer
}

func (r *decompressReader) Read(p []byte) (int, error) { return r.dec.Read(p) }

func (r *decompressReader) Close() error {
	r.dec.Close()
	return r.src.Close()
}

type compressWriter struct {
	enc *zstd.Encoder
	dst io.Closer
}

func (w *compressWriter) Write(p []byte) (int, error) { return w.enc.Write(p) }

func (w *compressWriter) Close() error {
	err := w.enc.Close()
	if cerr := w.dst.Close(); err == nil {
		err = cerr
	}
	return err
}
