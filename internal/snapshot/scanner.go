package snapshot

// lexState 词法状态
type lexState int

// 依次为：代码、'...'、[...]、"..."、`...`、/* ... */
const (
	stateCode lexState = iota
	stateString
	stateBracket
	stateQuoted
	stateBacktick
	stateBlockComment
)

// Scanner 跨行跟踪引号与注释状态，用来判断一行是否处于字面量之外
//
// 引号内成对的结束符（'' "" ``）表现为先退出再进入，不需要单独处理；]] 单独跳过。
type Scanner struct {
	state   lexState
	hasCode bool
}

// Neutral 当前位置是否在字面量、标识符和块注释之外
func (s *Scanner) Neutral() bool {
	return s.state == stateCode
}

// HasCode 自上次 Reset 以来是否出现过注释以外的内容
func (s *Scanner) HasCode() bool {
	return s.hasCode
}

// Reset 清空代码标记，保留词法状态
func (s *Scanner) Reset() {
	s.hasCode = false
}

// Feed 消费一行，返回该行是否含有注释和空白以外的内容
func (s *Scanner) Feed(line string) bool {
	code := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch s.state {
		case stateCode:
			switch {
			case c == '-' && i+1 < len(line) && line[i+1] == '-':
				// 行注释到行尾
				i = len(line)
				continue
			case c == '/' && i+1 < len(line) && line[i+1] == '*':
				s.state = stateBlockComment
				i++
				continue
			case c == ' ' || c == '\t' || c == '\r' || c == '\n':
				continue
			case c == '\'':
				s.state = stateString
			case c == '[':
				s.state = stateBracket
			case c == '"':
				s.state = stateQuoted
			case c == '`':
				s.state = stateBacktick
			}
			code = true
		case stateString:
			code = true
			if c == '\'' {
				s.state = stateCode
			}
		case stateBracket:
			code = true
			if c == ']' {
				if i+1 < len(line) && line[i+1] == ']' {
					i++
					continue
				}
				s.state = stateCode
			}
		case stateQuoted:
			code = true
			if c == '"' {
				s.state = stateCode
			}
		case stateBacktick:
			code = true
			if c == '`' {
				s.state = stateCode
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				s.state = stateCode
				i++
			}
		}
	}
	if code {
		s.hasCode = true
	}
	return code
}
