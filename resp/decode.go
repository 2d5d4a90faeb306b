package resp

import (
	"bytes"
	"fmt"
)

const (
	// maxBulkLen caps the declared length of a single bulk string.
	maxBulkLen = 64 << 20
	// maxArrayLen caps the declared element count of a single array.
	maxArrayLen = 1 << 20
	// maxDepth caps array nesting to keep the recursive decoder bounded.
	maxDepth = 32
)

// Decode parses one complete top-level value from data into a node owned by
// arena. It returns the value and the number of bytes consumed.
//
// When data holds only a prefix of a value, Decode returns (nil, 0,
// ErrIncomplete): nothing was consumed and the caller retries once more
// bytes arrive. Malformed input returns (nil, 0, *ParseError). A successful
// decode always consumes exactly one value's worth of bytes.
func Decode(data []byte, arena *Arena) (*Value, int, error) {
	v := arena.NewValue()
	n, err := decodeInto(v, data, arena, 0)
	if err != nil {
		return nil, 0, err
	}
	return v, n, nil
}

func decodeInto(v *Value, data []byte, arena *Arena, depth int) (int, error) {
	if len(data) == 0 {
		return 0, ErrIncomplete
	}
	switch data[0] {
	case '+':
		return decodeLine(v, data, KindStatus, arena)
	case '-':
		return decodeLine(v, data, KindError, arena)
	case ':':
		return decodeInteger(v, data)
	case '$':
		return decodeBulk(v, data, arena)
	case '*':
		return decodeArray(v, data, arena, depth)
	default:
		return 0, &ParseError{Message: fmt.Sprintf("unexpected leading byte %q", data[0])}
	}
}

// splitLine locates the first CRLF-terminated line in data, excluding the
// leading type byte. It returns the line content (without the marker byte
// or the CRLF) and the total number of bytes through the terminator.
func splitLine(data []byte) (line []byte, n int, err error) {
	idx := bytes.Index(data, crlf)
	if idx < 0 {
		return nil, 0, ErrIncomplete
	}
	return data[1:idx], idx + 2, nil
}

func decodeLine(v *Value, data []byte, kind Kind, arena *Arena) (int, error) {
	line, n, err := splitLine(data)
	if err != nil {
		return 0, err
	}
	*v = Value{kind: kind, text: arena.copyBytes(line)}
	if v.text == nil {
		v.text = emptyBytes
	}
	return n, nil
}

func decodeInteger(v *Value, data []byte) (int, error) {
	line, n, err := splitLine(data)
	if err != nil {
		return 0, err
	}
	i, err := parseInt(line)
	if err != nil {
		return 0, err
	}
	*v = Value{kind: KindInteger, integer: i}
	return n, nil
}

func decodeBulk(v *Value, data []byte, arena *Arena) (int, error) {
	line, n, err := splitLine(data)
	if err != nil {
		return 0, err
	}
	length, err := parseLength(line, maxBulkLen, "bulk string")
	if err != nil {
		return 0, err
	}
	if length < 0 {
		// $-1: absent bulk string, no body follows.
		*v = Value{}
		return n, nil
	}
	// Body plus its CRLF terminator must be fully buffered.
	if len(data) < n+length+2 {
		return 0, ErrIncomplete
	}
	body := data[n : n+length]
	if data[n+length] != '\r' || data[n+length+1] != '\n' {
		return 0, &ParseError{Message: "bulk string body not terminated by CRLF"}
	}
	*v = Value{kind: KindString, text: arena.copyBytes(body)}
	if v.text == nil {
		v.text = emptyBytes
	}
	return n + length + 2, nil
}

func decodeArray(v *Value, data []byte, arena *Arena, depth int) (int, error) {
	if depth >= maxDepth {
		return 0, &ParseError{Message: "array nesting too deep"}
	}
	line, n, err := splitLine(data)
	if err != nil {
		return 0, err
	}
	count, err := parseLength(line, maxArrayLen, "array")
	if err != nil {
		return 0, err
	}
	if count < 0 {
		// *-1: absent array. Reads as nil, re-encodes as *-1.
		*v = Value{fromNilArray: true}
		return n, nil
	}
	elems := arena.newValues(count)
	consumed := n
	for i := 0; i < count; i++ {
		en, err := decodeInto(&elems[i], data[consumed:], arena, depth+1)
		if err != nil {
			// Incomplete anywhere inside the array means the whole array
			// consumed nothing; malformed propagates as-is.
			return 0, err
		}
		consumed += en
	}
	*v = Value{kind: KindArray, elems: elems, arena: arena}
	return consumed, nil
}

// parseInt parses a signed decimal integer, rejecting empty input and any
// non-digit byte.
func parseInt(line []byte) (int64, error) {
	if len(line) == 0 {
		return 0, &ParseError{Message: "empty integer line"}
	}
	neg := false
	i := 0
	if line[0] == '-' {
		neg = true
		i++
		if i == len(line) {
			return 0, &ParseError{Message: "integer line holds only a sign"}
		}
	}
	var n int64
	for ; i < len(line); i++ {
		d := line[i] - '0'
		if d > 9 {
			return 0, &ParseError{Message: fmt.Sprintf("invalid byte %q in integer line", line[i])}
		}
		n = n*10 + int64(d)
		if n < 0 {
			return 0, &ParseError{Message: "integer line overflows int64"}
		}
	}
	if neg {
		n = -n
	}
	return n, nil
}

// parseLength parses a bulk or array length line. The only negative length
// on the wire is -1 (the absent form); anything else negative, or anything
// above the cap, is malformed.
func parseLength(line []byte, max int64, what string) (int, error) {
	n, err := parseInt(line)
	if err != nil {
		return 0, err
	}
	if n == -1 {
		return -1, nil
	}
	if n < 0 {
		return 0, &ParseError{Message: fmt.Sprintf("negative %s length %d", what, n)}
	}
	if n > max {
		return 0, &ParseError{Message: fmt.Sprintf("%s length %d exceeds limit", what, n)}
	}
	return int(n), nil
}
