package resp

// SplitCommand tokenizes a shell-style command line into its arguments.
// Runs of unquoted spaces and tabs separate arguments; leading and trailing
// whitespace is ignored.
//
// A segment wrapped in single or double quotes forms one argument on its
// own, so `get ''key` yields the three arguments "get", "" and "key".
// Inside quotes, a backslash escapes the quote character that is currently
// open (\' inside '...' yields a literal ', \" inside "..." yields a
// literal "); every other backslash sequence passes through unchanged.
// An empty quoted pair yields an explicit zero-length argument.
//
// An unterminated quote returns ErrUnterminatedQuote.
func SplitCommand(cmd string) ([][]byte, error) {
	var args [][]byte
	i, n := 0, len(cmd)
	for i < n {
		for i < n && isCommandSpace(cmd[i]) {
			i++
		}
		if i >= n {
			break
		}
		if c := cmd[i]; c == '\'' || c == '"' {
			arg, next, err := scanQuoted(cmd, i)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			i = next
			continue
		}
		start := i
		for i < n && !isCommandSpace(cmd[i]) && cmd[i] != '\'' && cmd[i] != '"' {
			i++
		}
		args = append(args, []byte(cmd[start:i]))
	}
	return args, nil
}

func isCommandSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// scanQuoted consumes one quoted segment starting at the opening quote and
// returns the unescaped argument plus the index just past the closing quote.
func scanQuoted(cmd string, start int) ([]byte, int, error) {
	quote := cmd[start]
	arg := []byte{}
	i := start + 1
	for i < len(cmd) {
		switch {
		case cmd[i] == '\\' && i+1 < len(cmd) && cmd[i+1] == quote:
			// Escape is only recognized for the quote type currently open;
			// \" inside '...' stays the two literal bytes.
			arg = append(arg, quote)
			i += 2
		case cmd[i] == quote:
			return arg, i + 1, nil
		default:
			arg = append(arg, cmd[i])
			i++
		}
	}
	return nil, 0, ErrUnterminatedQuote
}
