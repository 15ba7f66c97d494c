package codec

import (
	"encoding/hex"
	"strings"
	"time"
)

// Kind 标量值的类别
type Kind int

const (
	KindNull Kind = iota
	KindIdentifier
	KindBoolean
	KindInteger
	KindDecimal
	KindTemporal
	KindText
	KindBinary
)

var kindNames = [...]string{
	KindNull:       "null",
	KindIdentifier: "identifier",
	KindBoolean:    "boolean",
	KindInteger:    "integer",
	KindDecimal:    "decimal",
	KindTemporal:   "temporal",
	KindText:       "text",
	KindBinary:     "binary",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Value 一个已分类的标量值
//
// Text 保存 Identifier/Integer/Decimal/Temporal/Text 的文本形式，
// Bool 与 Bytes 分别用于 Boolean 与 Binary。
type Value struct {
	Kind  Kind
	Text  string
	Bool  bool
	Bytes []byte
}

// Null 空值
func Null() Value { return Value{Kind: KindNull} }

// TextValue 文本值
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// IdentifierValue 唯一标识值（GUID/UUID）
func IdentifierValue(s string) Value { return Value{Kind: KindIdentifier, Text: s} }

// BoolValue 布尔值
func BoolValue(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// IntegerValue 整数值，s 为其十进制文本
func IntegerValue(s string) Value { return Value{Kind: KindInteger, Text: s} }

// DecimalValue 小数值，s 为其十进制文本
func DecimalValue(s string) Value { return Value{Kind: KindDecimal, Text: s} }

// TemporalValue 日期/时间值，s 为已格式化的文本
func TemporalValue(s string) Value { return Value{Kind: KindTemporal, Text: s} }

// BinaryValue 二进制值
func BinaryValue(b []byte) Value { return Value{Kind: KindBinary, Bytes: b} }

// BinaryStyle 二进制字面量写法
type BinaryStyle int

const (
	// BinaryHex 0xABCD（SQL Server / MySQL）
	BinaryHex BinaryStyle = iota
	// BinaryQuotedHex X'ABCD'（SQLite）
	BinaryQuotedHex
	// BinaryEscapedHex '\xabcd'（PostgreSQL bytea）
	BinaryEscapedHex
)

// Encoder 把 Value 编码为可直接放入 INSERT 语句的字面量
//
// 零值即 SQL Server 的写法：布尔为 1/0，二进制为 0x 前缀。
type Encoder struct {
	True   string
	False  string
	Binary BinaryStyle
}

// Encode 用默认 Encoder 编码
func Encode(v Value) string {
	return Encoder{}.Encode(v)
}

// Encode 编码单个值
func (e Encoder) Encode(v Value) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindIdentifier, KindTemporal, KindText:
		return Literal(v.Text)
	case KindBoolean:
		return e.boolean(v.Bool)
	case KindInteger, KindDecimal:
		return v.Text
	case KindBinary:
		return e.binary(v.Bytes)
	}
	panic("codec: unhandled kind " + v.Kind.String())
}

func (e Encoder) boolean(b bool) string {
	t, f := e.True, e.False
	if t == "" {
		t = "1"
	}
	if f == "" {
		f = "0"
	}
	if b {
		return t
	}
	return f
}

func (e Encoder) binary(b []byte) string {
	switch e.Binary {
	case BinaryQuotedHex:
		return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'"
	case BinaryEscapedHex:
		return `'\x` + hex.EncodeToString(b) + "'"
	default:
		return "0x" + strings.ToUpper(hex.EncodeToString(b))
	}
}

// Row 编码一整行为 "(v1, v2, ...) "，与快照文件的行格式一致
func (e Encoder) Row(values []Value) string {
	if len(values) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Encode(v))
	}
	sb.WriteString(") ")
	return sb.String()
}

// Literal 单引号包裹，内部单引号加倍
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Unquote 是 Literal 的逆操作；不是合法字面量时 ok 为 false
func Unquote(lit string) (s string, ok bool) {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", false
	}
	inner := lit[1 : len(lit)-1]
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\'' {
			if i+1 >= len(inner) || inner[i+1] != '\'' {
				return "", false
			}
			i++
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}

// 时间格式
const (
	LayoutDateTime       = "2006-01-02 15:04:05.9999999"
	LayoutDateTimeOffset = "2006-01-02 15:04:05.9999999 -07:00"
	LayoutDate           = "2006-01-02"
	LayoutTime           = "15:04:05.9999999"
)

// FormatTime 根据列的数据库类型名格式化时间
func FormatTime(t time.Time, databaseTypeName string) string {
	switch strings.ToUpper(databaseTypeName) {
	case "DATE":
		return t.Format(LayoutDate)
	case "TIME", "TIMETZ":
		return t.Format(LayoutTime)
	case "DATETIMEOFFSET", "TIMESTAMPTZ":
		return t.Format(LayoutDateTimeOffset)
	default:
		return t.Format(LayoutDateTime)
	}
}
