package loader

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"sqlutil/internal/adapter"
	"sqlutil/internal/codec"
)

// Type 由样本值推断出的列类型
type Type int

const (
	TypeIdentifier Type = iota
	TypeBoolean
	TypeInteger
	TypeDate
	TypeTime
	TypeDateTime
	TypeDecimal
	TypeText
)

var typeNames = [...]string{
	TypeIdentifier: "identifier",
	TypeBoolean:    "boolean",
	TypeInteger:    "integer",
	TypeDate:       "date",
	TypeTime:       "time",
	TypeDateTime:   "datetime",
	TypeDecimal:    "decimal",
	TypeText:       "text",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// Kind 对应的值类别
func (t Type) Kind() codec.Kind {
	switch t {
	case TypeIdentifier:
		return codec.KindIdentifier
	case TypeBoolean:
		return codec.KindBoolean
	case TypeInteger:
		return codec.KindInteger
	case TypeDate, TypeTime, TypeDateTime:
		return codec.KindTemporal
	case TypeDecimal:
		return codec.KindDecimal
	}
	return codec.KindText
}

var dateLayouts = []string{"01/02/2006", "1/2/2006", "2006/01/02", "02-Jan-2006", "Jan 2, 2006"}

var timeLayouts = []string{"15:04", "3:04 PM", "3:04:05 PM", "15:04:05.999999999"}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05.999999999 -07:00",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
}

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Infer 按固定顺序试探：标识符、布尔、整数、日期、时间、日期时间、小数，都不是则为文本
func Infer(sample string) Type {
	s := strings.TrimSpace(sample)
	switch {
	case isIdentifier(s):
		return TypeIdentifier
	case strings.EqualFold(s, "true"), strings.EqualFold(s, "false"):
		return TypeBoolean
	case isInteger(s):
		return TypeInteger
	case isDate(s):
		return TypeDate
	case isTime(s):
		return TypeTime
	case isDateTime(s):
		return TypeDateTime
	case decimalPattern.MatchString(s):
		return TypeDecimal
	}
	return TypeText
}

// isIdentifier 只接受带连字符的 36 位形式，可带花括号
func isIdentifier(s string) bool {
	switch {
	case len(s) == 36:
	case len(s) == 38 && s[0] == '{' && s[37] == '}':
	default:
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isDate(s string) bool {
	if _, err := civil.ParseDate(s); err == nil {
		return true
	}
	return matchesAny(s, dateLayouts)
}

func isTime(s string) bool {
	if _, err := civil.ParseTime(s); err == nil {
		return true
	}
	return matchesAny(s, timeLayouts)
}

func isDateTime(s string) bool {
	if _, err := civil.ParseDateTime(s); err == nil {
		return true
	}
	return matchesAny(s, dateTimeLayouts)
}

func matchesAny(s string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// sqlTypes 各方言下推断类型对应的列类型
var sqlTypes = map[string]map[Type]string{
	adapter.TypeSQLServer: {
		TypeIdentifier: "uniqueidentifier",
		TypeBoolean:    "bit",
		TypeInteger:    "bigint",
		TypeDate:       "date",
		TypeTime:       "time",
		TypeDateTime:   "datetime2",
		TypeDecimal:    "decimal(25, 10)",
		TypeText:       "nvarchar(max)",
	},
	adapter.TypeMySQL: {
		TypeIdentifier: "char(36)",
		TypeBoolean:    "tinyint(1)",
		TypeInteger:    "bigint",
		TypeDate:       "date",
		TypeTime:       "time(6)",
		TypeDateTime:   "datetime(6)",
		TypeDecimal:    "decimal(25, 10)",
		TypeText:       "longtext",
	},
	adapter.TypePostgres: {
		TypeIdentifier: "uuid",
		TypeBoolean:    "boolean",
		TypeInteger:    "bigint",
		TypeDate:       "date",
		TypeTime:       "time",
		TypeDateTime:   "timestamp",
		TypeDecimal:    "numeric(25, 10)",
		TypeText:       "text",
	},
	adapter.TypeSQLite: {
		TypeIdentifier: "uniqueidentifier",
		TypeBoolean:    "boolean",
		TypeInteger:    "bigint",
		TypeDate:       "date",
		TypeTime:       "time",
		TypeDateTime:   "datetime",
		TypeDecimal:    "decimal(25, 10)",
		TypeText:       "text",
	},
}

// Declaration 列声明中的 "类型 null" 部分；推断出的列总是可空
func Declaration(dialect string, t Type) string {
	types, ok := sqlTypes[dialect]
	if !ok {
		types = sqlTypes[adapter.TypeSQLServer]
	}
	return types[t] + " null"
}
