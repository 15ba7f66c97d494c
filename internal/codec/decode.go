package codec

import "strings"

var truthy = map[string]bool{"true": true, "y": true, "yes": true, "1": true}

// ParseField 把分隔文本中的一个字段按已推断的类别转为 Value
//
// 数值字段原样保留、不做校验：推断阶段已用同一类别检验过样本行。
func ParseField(field string, kind Kind) Value {
	if field == "" {
		return Null()
	}
	switch kind {
	case KindBoolean:
		return BoolValue(truthy[strings.ToLower(field)])
	case KindInteger:
		return IntegerValue(field)
	case KindDecimal:
		return DecimalValue(field)
	case KindIdentifier:
		return IdentifierValue(field)
	case KindTemporal:
		return TemporalValue(field)
	case KindNull, KindText, KindBinary:
		return TextValue(field)
	}
	panic("codec: unhandled kind " + kind.String())
}

// Decode 字段直接转为 SQL 字面量（默认写法）
func Decode(field string, kind Kind) string {
	return Encode(ParseField(field, kind))
}

// DecodeRow 用默认写法解码一整行
func DecodeRow(fields []string, kinds []Kind) []string {
	return Encoder{}.DecodeRow(fields, kinds)
}

// DecodeRow 解码一整行；fields 比 kinds 短时缺失的字段按 null 处理
func (e Encoder) DecodeRow(fields []string, kinds []Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		if i < len(fields) {
			out[i] = e.Encode(ParseField(fields[i], k))
		} else {
			out[i] = "null"
		}
	}
	return out
}
