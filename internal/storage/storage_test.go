package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAll(t *testing.T, s *Storage, location, content string) {
	t.Helper()
	w, err := s.Create(context.Background(), location)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func readAll(t *testing.T, s *Storage, location string) string {
	t.Helper()
	r, err := s.Open(context.Background(), location)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestLocalRoundTrip(t *testing.T) {
	s := New(0)
	path := filepath.Join(t.TempDir(), "snap.sql")
	writeAll(t, s, path, "first version, longer than the second")
	writeAll(t, s, path, "second")

	if got := readAll(t, s, path); got != "second" {
		t.Errorf("expected overwrite, got %q", got)
	}
	if err := s.Exists(context.Background(), path); err != nil {
		t.Errorf("Exists: %v", err)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	s := New(3)
	path := filepath.Join(t.TempDir(), "snap.sql.zst")
	content := strings.Repeat("insert into [dbo].[t] ([id]) values (1) ,\n", 500)
	writeAll(t, s, path, content)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Error("expected zstd frame magic")
	}
	if len(raw) >= len(content) {
		t.Errorf("expected compression, got %d >= %d bytes", len(raw), len(content))
	}
	if got := readAll(t, s, path); got != content {
		t.Error("decompressed content differs")
	}
}

func TestMissingLocation(t *testing.T) {
	s := New(0)
	path := filepath.Join(t.TempDir(), "missing.sql")

	if err := s.Exists(context.Background(), path); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Open(context.Background(), path); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Remove(context.Background(), path); err != nil {
		t.Errorf("removing a missing file must succeed: %v", err)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		key      string
		wantErr  bool
	}{
		{"s3://backups/shop/2024.sql.zst", "backups", "shop/2024.sql.zst", false},
		{"s3://backups", "", "", true},
		{"s3:///key", "", "", true},
		{"/tmp/file.sql", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			bucket, key, err := ParseLocation(tt.location)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("expected %s/%s, got %s/%s", tt.bucket, tt.key, bucket, key)
			}
		})
	}

	if !IsRemote("s3://b/k") || IsRemote("./s3://b") {
		t.Error("unexpected IsRemote result")
	}
}
