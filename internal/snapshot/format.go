package snapshot

import (
	"fmt"
	"strings"
)

// BatchSize 每条 insert 语句包含的行数
const BatchSize = 100

// 导入端只识别这两个前缀，其余行都是 SQL 或注释
const (
	BeginMarker = "-- Begin table:"
	BatchMarker = "GO -- SQL_BATCH --"
	EndMarker   = "-- End table:"
)

var rule = strings.Repeat("-", 78)

func beginTable(name string) string {
	return "\n" + rule + "\n" + BeginMarker + " " + name + "\n" + rule + "\n"
}

func endTable(name string) string {
	return rule + "\n" + EndMarker + " " + name + "\n" + rule + "\n"
}

func emptyTable(name string) string {
	return "-- No data in source table, skipping.\n\n" + endTable(name) + BatchMarker + " No rows in table\n\n"
}

func fullBatch(rows int) string {
	return fmt.Sprintf("%s %d rows in batch\n", BatchMarker, rows)
}

func lastBatch(rows int, total int64) string {
	return fmt.Sprintf("%s %d rows in batch, %d total rows\n\n", BatchMarker, rows, total)
}

// TableName 从 "-- Begin table:" 行中取出表名
func TableName(line string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), BeginMarker))
}
