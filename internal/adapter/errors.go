package adapter

import (
	"net/url"
	"regexp"
	"strings"
)

// ConnectError 无法连接或认证
type ConnectError struct {
	Descriptor string
	Err        error
}

func (e *ConnectError) Error() string {
	return "connect to " + e.Descriptor + ": " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }

// MetadataError 元数据查询失败
type MetadataError struct {
	Query string
	Err   error
}

func (e *MetadataError) Error() string {
	return e.Err.Error() + "\nMetadata SQL: " + strings.TrimSpace(e.Query)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// StatementError 生成的语句在目标库执行失败
type StatementError struct {
	SQL string
	Err error
}

func (e *StatementError) Error() string {
	return e.Err.Error() + "\nSource SQL: " + e.SQL
}

func (e *StatementError) Unwrap() error { return e.Err }

var passwordPattern = regexp.MustCompile(`(?i)\b(password|pwd)\s*=\s*[^;]*`)

// Redact 隐藏连接串中的密码
func Redact(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil && u.User != nil {
			dsn = u.Redacted()
		}
	}
	if i := strings.Index(dsn, "@tcp("); i > 0 {
		if j := strings.Index(dsn[:i], ":"); j >= 0 {
			dsn = dsn[:j+1] + "xxxxx" + dsn[i:]
		}
	}
	return passwordPattern.ReplaceAllString(dsn, "$1=xxxxx")
}
