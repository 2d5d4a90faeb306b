package resp

import (
	"bytes"
	"fmt"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindInteger
	KindStatus // single-line reply: +OK\r\n
	KindString // bulk string: $5\r\nhello\r\n
	KindError  // error reply: -ERR ...\r\n
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInteger:
		return "integer"
	case KindStatus:
		return "status"
	case KindString:
		return "string"
	case KindError:
		return "error"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one node of a RESP reply or command tree. The zero value is a
// nil reply. Variable-length payloads are owned by the Arena passed to the
// Set mutators; a Value must not outlive that arena.
//
// Reading an accessor under the wrong kind is a programming error and
// panics. Callers check Kind (or the Is helpers) first.
type Value struct {
	kind Kind

	// fromNilArray records that a KindNil value was decoded from (or set
	// as) the absent-array form, so it re-encodes as *-1 instead of $-1.
	fromNilArray bool

	integer int64
	text    []byte  // status/string/error payload, arena-owned
	elems   []Value // array elements, arena-owned slab
	arena   *Arena  // set by SetArray, used by At to auto-extend
}

// Kind returns the variant tag of the value.
func (v *Value) Kind() Kind { return v.kind }

// IsNil reports whether the value is a nil reply, including the absent
// bulk-string ($-1) and absent-array (*-1) wire forms.
func (v *Value) IsNil() bool { return v.kind == KindNil }

// IsInteger reports whether the value is an integer reply.
func (v *Value) IsInteger() bool { return v.kind == KindInteger }

// IsStatus reports whether the value is a status reply.
func (v *Value) IsStatus() bool { return v.kind == KindStatus }

// IsString reports whether the value is a bulk string.
func (v *Value) IsString() bool { return v.kind == KindString }

// IsError reports whether the value is an error reply.
func (v *Value) IsError() bool { return v.kind == KindError }

// IsArray reports whether the value is an array reply.
func (v *Value) IsArray() bool { return v.kind == KindArray }

func (v *Value) mustKind(op string, kinds ...Kind) {
	for _, k := range kinds {
		if v.kind == k {
			return
		}
	}
	panic(fmt.Sprintf("resp: %s called on %s value", op, v.kind))
}

// Integer returns the payload of an integer reply.
func (v *Value) Integer() int64 {
	v.mustKind("Integer", KindInteger)
	return v.integer
}

// Bytes returns the payload of a status, bulk-string, or error reply.
// The returned slice is arena-owned; callers copy it if they need it past
// the arena's lifetime.
func (v *Value) Bytes() []byte {
	v.mustKind("Bytes", KindStatus, KindString, KindError)
	return v.text
}

// Text returns the payload of a status, bulk-string, or error reply as a
// string copy.
func (v *Value) Text() string {
	v.mustKind("Text", KindStatus, KindString, KindError)
	return string(v.text)
}

// Len returns the element count of an array reply.
func (v *Value) Len() int {
	v.mustKind("Len", KindArray)
	return len(v.elems)
}

// Elem returns the i-th element of an array for reading. Indexing past the
// end returns a shared nil value, mirroring how absent elements read as nil.
func (v *Value) Elem(i int) *Value {
	v.mustKind("Elem", KindArray)
	if i < 0 || i >= len(v.elems) {
		return &nilValue
	}
	return &v.elems[i]
}

// nilValue backs out-of-range Elem reads. Never mutated.
var nilValue Value

// SetNil resets the value to a nil reply (encodes as $-1).
func (v *Value) SetNil() {
	*v = Value{}
}

// SetInteger makes the value an integer reply.
func (v *Value) SetInteger(n int64) {
	*v = Value{kind: KindInteger, integer: n}
}

// SetStatus makes the value a status reply. The text is copied into the
// arena. Text containing \r or \n cannot be framed and fails at encode time.
func (v *Value) SetStatus(text string, arena *Arena) {
	*v = Value{kind: KindStatus, text: arena.copyString(text)}
}

// SetError makes the value an error reply. The text is copied into the arena.
func (v *Value) SetError(text string, arena *Arena) {
	*v = Value{kind: KindError, text: arena.copyString(text)}
}

// SetString makes the value a bulk string holding a copy of b. An empty
// (non-nil-encoded) bulk string is b of length zero; use SetNilString for
// the absent form.
func (v *Value) SetString(b []byte, arena *Arena) {
	text := arena.copyBytes(b)
	if text == nil {
		text = emptyBytes
	}
	*v = Value{kind: KindString, text: text}
}

// emptyBytes distinguishes a present zero-length bulk string from nil.
var emptyBytes = []byte{}

// SetNilString makes the value the absent bulk string ($-1).
func (v *Value) SetNilString() {
	*v = Value{}
}

// SetArray makes the value an array of n nil elements backed by the arena.
// The elements are then filled in via At.
func (v *Value) SetArray(n int, arena *Arena) {
	*v = Value{kind: KindArray, elems: arena.newValues(n), arena: arena}
}

// SetNilArray makes the value the absent array (*-1).
func (v *Value) SetNilArray() {
	*v = Value{fromNilArray: true}
}

// At returns a mutable reference to element i of an array being built,
// auto-extending the array with nil placeholders through index i. This
// supports out-of-order construction (filling index 2 before index 1).
func (v *Value) At(i int) *Value {
	v.mustKind("At", KindArray)
	if i < 0 {
		panic(fmt.Sprintf("resp: At(%d) with negative index", i))
	}
	if i >= len(v.elems) {
		grown := v.arena.newValues(i + 1)
		copy(grown, v.elems)
		v.elems = grown
	}
	return &v.elems[i]
}

// Equal reports structural equality of two value trees. Nil replies compare
// equal regardless of which absent wire form produced them, matching how
// they read through the accessors.
func Equal(a, b *Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindInteger:
		return a.integer == b.integer
	case KindStatus, KindString, KindError:
		return bytes.Equal(a.text, b.text)
	case KindArray:
		if len(a.elems) != len(b.elems) {
			return false
		}
		for i := range a.elems {
			if !Equal(&a.elems[i], &b.elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
