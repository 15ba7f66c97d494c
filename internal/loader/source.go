package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Source 按行返回字段；结束时返回 io.EOF
type Source interface {
	Next() ([]string, error)
	Close() error
}

// CSVSource 分隔文本
type CSVSource struct {
	r *csv.Reader
}

// NewCSVSource 创建分隔文本读取器；delimiter 为 0 时使用逗号
func NewCSVSource(r io.Reader, delimiter rune) *CSVSource {
	cr := csv.NewReader(r)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	// 行长度不一致时按缺失字段处理
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &CSVSource{r: cr}
}

func (s *CSVSource) Next() ([]string, error) {
	return s.r.Read()
}

func (s *CSVSource) Close() error { return nil }

// XLSXSource Excel 工作簿的一个工作表
type XLSXSource struct {
	f    *excelize.File
	rows *excelize.Rows
}

// NewXLSXSource 打开工作簿；sheet 为空时读取第一个工作表
func NewXLSXSource(r io.Reader, sheet string) (*XLSXSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return &XLSXSource{f: f, rows: rows}, nil
}

func (s *XLSXSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return s.rows.Columns()
}

func (s *XLSXSource) Close() error {
	s.rows.Close()
	return s.f.Close()
}

// OpenSource 按扩展名选择读取器；.tsv 默认使用制表符
func OpenSource(r io.Reader, name string, delimiter rune) (Source, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(name, ".zst"))) {
	case ".xlsx", ".xlsm":
		return NewXLSXSource(r, "")
	case ".tsv":
		if delimiter == 0 {
			delimiter = '\t'
		}
	}
	return NewCSVSource(r, delimiter), nil
}

// TableName 文件名去掉目录和扩展名即为表名
func TableName(path string) string {
	base := filepath.Base(strings.TrimSuffix(path, ".zst"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
