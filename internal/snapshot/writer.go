package snapshot

import (
	"bufio"
	"io"

	"github.com/zeebo/xxh3"
)

// Writer 快照文本输出，同时计算写出内容的摘要
type Writer struct {
	buf    *bufio.Writer
	hasher *xxh3.Hasher
	bytes  int64
	err    error
}

// NewWriter 包装一个输出流
func NewWriter(w io.Writer) *Writer {
	h := xxh3.New()
	return &Writer{buf: bufio.NewWriter(io.MultiWriter(w, h)), hasher: h}
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	n, err := w.buf.WriteString(s)
	w.bytes += int64(n)
	w.err = err
}

// Flush 刷新缓冲区
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.buf.Flush()
	return w.err
}

// Bytes 已写出字节数
func (w *Writer) Bytes() int64 { return w.bytes }

// Digest 已写出内容的 xxh3 摘要
func (w *Writer) Digest() uint64 { return w.hasher.Sum64() }

// TableWriter 一张表的分段输出
type TableWriter struct {
	w      *Writer
	name   string
	insert string
	on     string
	off    string

	rowNumber int
	total     int64
	batches   int
}

// BeginTable 写出表头；insert 为 "insert into X (cols) values " 前缀，
// on/off 为可选的 identity_insert 语句
func (w *Writer) BeginTable(name, insert, on, off string) *TableWriter {
	w.write(beginTable(name))
	return &TableWriter{w: w, name: name, insert: insert, on: on, off: off}
}

// Row 写出一行 "(v1, v2) "，每 BatchSize 行开始一条新的 insert
func (t *TableWriter) Row(tuple string) error {
	if t.rowNumber%BatchSize == 0 {
		t.w.write("\n")
		if t.rowNumber > 0 {
			t.closeIdentity()
			t.w.write(fullBatch(t.rowNumber))
			t.batches++
		}
		t.rowNumber = 0
		if t.on != "" {
			t.w.write(t.on + "\n")
		}
		t.w.write(t.insert + "\n")
	} else {
		t.w.write(",\n")
	}
	t.w.write(tuple)
	t.rowNumber++
	t.total++
	return t.w.err
}

func (t *TableWriter) closeIdentity() {
	if t.off != "" {
		t.w.write(t.off + "\n")
	}
}

// End 写出表尾；没有任何行时写出空表段
func (t *TableWriter) End() error {
	if t.total == 0 {
		t.w.write(emptyTable(t.name))
		t.batches++
		return t.w.err
	}
	t.w.write("\n")
	t.closeIdentity()
	t.w.write("\n")
	t.w.write(endTable(t.name))
	t.w.write(lastBatch(t.rowNumber, t.total))
	t.batches++
	return t.w.err
}

// Total 已写出的行数
func (t *TableWriter) Total() int64 { return t.total }

// Batches 已结束的批次数
func (t *TableWriter) Batches() int { return t.batches }
