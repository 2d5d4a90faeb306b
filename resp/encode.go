package resp

import (
	"bytes"
	"errors"
	"io"
	"strconv"
)

var crlf = []byte("\r\n")

// ErrUnencodableText is returned when a status or error payload contains a
// CR or LF, which cannot be framed in a single-line reply.
var ErrUnencodableText = errors.New("resp: status or error text contains CR or LF")

// AppendValue appends the wire encoding of v to dst and returns the
// extended buffer. Encoding is recursive for arrays.
func AppendValue(dst []byte, v *Value) ([]byte, error) {
	switch v.kind {
	case KindNil:
		if v.fromNilArray {
			return append(dst, "*-1\r\n"...), nil
		}
		return append(dst, "$-1\r\n"...), nil
	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.integer, 10)
		return append(dst, crlf...), nil
	case KindStatus, KindError:
		if bytes.ContainsAny(v.text, "\r\n") {
			return dst, ErrUnencodableText
		}
		if v.kind == KindStatus {
			dst = append(dst, '+')
		} else {
			dst = append(dst, '-')
		}
		dst = append(dst, v.text...)
		return append(dst, crlf...), nil
	case KindString:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.text)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, v.text...)
		return append(dst, crlf...), nil
	case KindArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.elems)), 10)
		dst = append(dst, crlf...)
		var err error
		for i := range v.elems {
			if dst, err = AppendValue(dst, &v.elems[i]); err != nil {
				return dst, err
			}
		}
		return dst, nil
	default:
		return dst, errors.New("resp: cannot encode unknown kind")
	}
}

// WriteValue writes the wire encoding of v to w.
func WriteValue(w io.Writer, v *Value) error {
	buf, err := AppendValue(nil, v)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// appendBulk appends one bulk string frame ($<len>\r\n<bytes>\r\n).
// Shared with the request builder, which frames commands without going
// through a Value tree.
func appendBulk(dst []byte, b []byte) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, crlf...)
	dst = append(dst, b...)
	return append(dst, crlf...)
}

// AppendCommand appends the array-of-bulk-strings framing of one command
// (one bulk string per argument) to dst.
func AppendCommand(dst []byte, args [][]byte) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, crlf...)
	for _, arg := range args {
		dst = appendBulk(dst, arg)
	}
	return dst
}
