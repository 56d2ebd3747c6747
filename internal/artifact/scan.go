package artifact

// codeMask marks every byte of src that is code, as opposed to the inside
// of a string literal, template literal text or comment. Expressions
// inside ${...} are code. The second result is false when src ends inside
// a literal or comment.
func codeMask(src string) ([]bool, bool) {
	const (
		code = iota
		single
		double
		template
		lineComment
		blockComment
	)

	mask := make([]bool, len(src))
	state := code
	// Each entry is the brace depth of a ${ expression waiting to return to
	// its template literal.
	var exprs []int
	depth := 0

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case code:
			switch {
			case c == '\'':
				state = single
			case c == '"':
				state = double
			case c == '`':
				state = template
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = lineComment
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = blockComment
				i++
			case c == '{':
				depth++
				mask[i] = true
			case c == '}':
				if n := len(exprs); n > 0 && exprs[n-1] == depth {
					exprs = exprs[:n-1]
					state = template
					continue
				}
				depth--
				mask[i] = true
			default:
				mask[i] = true
			}
		case single, double:
			quote := byte('\'')
			if state == double {
				quote = '"'
			}
			switch c {
			case '\\':
				i++
			case quote:
				state = code
			case '\n':
				// Unterminated single-line string; resync at the newline.
				state = code
				mask[i] = true
			}
		case template:
			switch {
			case c == '\\':
				i++
			case c == '`':
				state = code
			case c == '$' && i+1 < len(src) && src[i+1] == '{':
				exprs = append(exprs, depth)
				state = code
				i++
			}
		case lineComment:
			if c == '\n' {
				state = code
				mask[i] = true
			}
		case blockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = code
				i++
			}
		}
	}
	return mask, state == code || state == lineComment
}

// balance is the open-minus-close count of each bracket kind in code.
type balance struct {
	square, curly, paren int
}

func bracketBalance(src string, mask []bool) balance {
	var b balance
	for i := 0; i < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case '[':
			b.square++
		case ']':
			b.square--
		case '{':
			b.curly++
		case '}':
			b.curly--
		case '(':
			b.paren++
		case ')':
			b.paren--
		}
	}
	return b
}

// matchBracket returns the index of the bracket closing the one at open,
// counting only code bytes, or -1.
func matchBracket(src string, mask []bool, open int) int {
	var closer byte
	switch src[open] {
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	case '(':
		closer = ')'
	default:
		return -1
	}
	opener := src[open]
	depth := 0
	for i := open; i < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
