package resp

import (
	"strconv"
	"strings"
)

// Kind identifies the RESP type of a reply.
type Kind uint8

const (
	// KindSimple is a status line, e.g. "+OK".
	KindSimple Kind = iota + 1
	// KindError is a server-reported error, e.g. "-ERR unknown command".
	KindError
	// KindInteger is a signed 64-bit integer.
	KindInteger
	// KindBulk is a binary-safe string, possibly nil.
	KindBulk
	// KindArray is a sequence of nested replies, possibly nil.
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Reply is a decoded RESP value. It is immutable once constructed.
//
// The zero Reply is invalid and is what failed operations return alongside
// their error.
type Reply struct {
	kind  Kind
	null  bool
	str   []byte
	num   int64
	elems []Reply
}

// Simple returns a status reply.
func Simple(s string) Reply {
	return Reply{kind: KindSimple, str: []byte(s)}
}

// Error returns a server error reply.
func Error(s string) Reply {
	return Reply{kind: KindError, str: []byte(s)}
}

// Integer returns an integer reply.
func Integer(n int64) Reply {
	return Reply{kind: KindInteger, num: n}
}

// Bulk returns a bulk string reply. A nil slice produces a nil bulk string.
func Bulk(b []byte) Reply {
	if b == nil {
		return NilBulk()
	}
	return Reply{kind: KindBulk, str: b}
}

// BulkString returns a bulk string reply holding s.
func BulkString(s string) Reply {
	return Reply{kind: KindBulk, str: []byte(s)}
}

// NilBulk returns the RESP nil bulk string ($-1).
func NilBulk() Reply {
	return Reply{kind: KindBulk, null: true}
}

// Array returns an array reply. Calling Array with no elements produces an
// empty array, not a nil one.
func Array(elems ...Reply) Reply {
	if elems == nil {
		elems = []Reply{}
	}
	return Reply{kind: KindArray, elems: elems}
}

// NilArray returns the RESP nil array (*-1).
func NilArray() Reply {
	return Reply{kind: KindArray, null: true}
}

// Kind returns the reply type.
func (r Reply) Kind() Kind { return r.kind }

// IsValid reports whether r was produced by a constructor or a decoder.
func (r Reply) IsValid() bool { return r.kind != 0 }

// IsNil reports whether r is a nil bulk string or a nil array.
func (r Reply) IsNil() bool { return r.null }

// IsError reports whether r is a server error.
func (r Reply) IsError() bool { return r.kind == KindError }

// IsStatus reports whether r is a status line.
func (r Reply) IsStatus() bool { return r.kind == KindSimple }

// IsOK reports whether r is the status line "OK".
func (r Reply) IsOK() bool {
	return r.kind == KindSimple && string(r.str) == "OK"
}

// Str returns the text of a status, error or bulk reply.
func (r Reply) Str() string {
	switch r.kind {
	case KindSimple, KindError, KindBulk:
		return string(r.str)
	case KindInteger:
		return strconv.FormatInt(r.num, 10)
	default:
		return ""
	}
}

// Bytes returns the raw payload of a status, error or bulk reply.
// The returned slice must not be modified.
func (r Reply) Bytes() []byte {
	switch r.kind {
	case KindSimple, KindError, KindBulk:
		return r.str
	default:
		return nil
	}
}

// Int returns the value of an integer reply, or 0 for other kinds.
func (r Reply) Int() int64 {
	if r.kind == KindInteger {
		return r.num
	}
	return 0
}

// Elems returns the children of an array reply.
// The returned slice must not be modified.
func (r Reply) Elems() []Reply {
	if r.kind == KindArray {
		return r.elems
	}
	return nil
}

// Len returns the element count of an array or the byte length of a bulk
// string. It returns -1 for nil values and for other kinds.
func (r Reply) Len() int {
	if r.null {
		return -1
	}
	switch r.kind {
	case KindArray:
		return len(r.elems)
	case KindBulk:
		return len(r.str)
	default:
		return -1
	}
}

// Err returns the server error carried by an error reply, or nil.
func (r Reply) Err() error {
	if r.kind != KindError {
		return nil
	}
	return &ServerError{Message: string(r.str)}
}

// String renders r compactly for logs and debugging.
func (r Reply) String() string {
	var sb strings.Builder
	r.writeTo(&sb)
	return sb.String()
}

func (r Reply) writeTo(sb *strings.Builder) {
	if r.null {
		sb.WriteString("(nil)")
		return
	}
	switch r.kind {
	case KindSimple:
		sb.Write(r.str)
	case KindError:
		sb.WriteString("(error) ")
		sb.Write(r.str)
	case KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(r.num, 10))
	case KindBulk:
		sb.WriteString(strconv.Quote(string(r.str)))
	case KindArray:
		sb.WriteByte('[')
		for i, e := range r.elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.writeTo(sb)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString("(invalid)")
	}
}

// ServerError is an error reply returned by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Prefix returns the error code, the first word of the message
// (e.g. "ERR", "WRONGTYPE", "NOAUTH").
func (e *ServerError) Prefix() string {
	if i := strings.IndexByte(e.Message, ' '); i > 0 {
		return e.Message[:i]
	}
	return e.Message
}
