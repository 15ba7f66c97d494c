package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
)

// 各驱动 DatabaseTypeName 的归类
var (
	identifierTypes = map[string]bool{"UNIQUEIDENTIFIER": true, "UUID": true}
	decimalTypes    = map[string]bool{
		"DECIMAL": true, "NUMERIC": true, "MONEY": true, "SMALLMONEY": true,
	}
	integerTypes = map[string]bool{
		"TINYINT": true, "SMALLINT": true, "MEDIUMINT": true, "INT": true, "INTEGER": true,
		"BIGINT": true, "INT2": true, "INT4": true, "INT8": true,
		"UNSIGNED TINYINT": true, "UNSIGNED SMALLINT": true, "UNSIGNED MEDIUMINT": true,
		"UNSIGNED INT": true, "UNSIGNED BIGINT": true, "YEAR": true,
	}
	floatTypes = map[string]bool{
		"FLOAT": true, "REAL": true, "DOUBLE": true, "FLOAT4": true, "FLOAT8": true,
	}
	binaryTypes = map[string]bool{
		"BINARY": true, "VARBINARY": true, "IMAGE": true, "BLOB": true, "TINYBLOB": true,
		"MEDIUMBLOB": true, "LONGBLOB": true, "BYTEA": true,
	}
	boolTypes = map[string]bool{"BIT": true, "BOOL": true, "BOOLEAN": true}
)

// FromDriver 把 database/sql 扫描到 any 中的值归类为 Value
//
// databaseTypeName 来自 sql.ColumnType.DatabaseTypeName()，驱动不提供时可为空。
func FromDriver(v any, databaseTypeName string) (Value, error) {
	typ := strings.ToUpper(databaseTypeName)

	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return BoolValue(x), nil
	case int64:
		if boolTypes[typ] {
			return BoolValue(x != 0), nil
		}
		return IntegerValue(strconv.FormatInt(x, 10)), nil
	case int32:
		return IntegerValue(strconv.FormatInt(int64(x), 10)), nil
	case int:
		return IntegerValue(strconv.Itoa(x)), nil
	case uint64:
		return IntegerValue(strconv.FormatUint(x, 10)), nil
	case float64:
		return floatValue(x, 64)
	case float32:
		return floatValue(float64(x), 32)
	case time.Time:
		return TemporalValue(FormatTime(x, typ)), nil
	case string:
		return fromText(x, typ), nil
	case []byte:
		return fromBytes(x, typ)
	case fmt.Stringer:
		return TextValue(x.String()), nil
	}
	return Value{}, fmt.Errorf("codec: unsupported driver value %T for column type %q", v, databaseTypeName)
}

func floatValue(f float64, bits int) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("codec: %v has no SQL literal", f)
	}
	return DecimalValue(strconv.FormatFloat(f, 'g', -1, bits)), nil
}

func fromText(s, typ string) Value {
	switch {
	case identifierTypes[typ]:
		return IdentifierValue(s)
	case decimalTypes[typ]:
		return DecimalValue(s)
	case integerTypes[typ]:
		return IntegerValue(s)
	}
	return TextValue(s)
}

func fromBytes(b []byte, typ string) (Value, error) {
	switch {
	case typ == "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return Value{}, fmt.Errorf("codec: uniqueidentifier: %w", err)
		}
		return IdentifierValue(id.String()), nil
	case binaryTypes[typ]:
		return BinaryValue(append([]byte(nil), b...)), nil
	case typ == "BIT" && len(b) == 1:
		return BoolValue(b[0] != 0), nil
	case decimalTypes[typ], floatTypes[typ]:
		return DecimalValue(string(b)), nil
	case integerTypes[typ]:
		return IntegerValue(string(b)), nil
	}
	return fromText(string(b), typ), nil
}
