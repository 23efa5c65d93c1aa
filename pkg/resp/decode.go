package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Protocol limits. A server that declares larger values is treated as
// broken rather than waited on.
const (
	// MaxBulkLen matches the default proto-max-bulk-len of Redis (512MB).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxArrayLen limits the declared element count of a single array.
	MaxArrayLen = 64 * 1024 * 1024

	// MaxHeaderLen limits the length line of integer, bulk and array
	// frames. A signed 64-bit integer needs at most 20 characters.
	MaxHeaderLen = 32
)

var (
	// ErrIncomplete means the buffer holds a valid prefix of a reply and
	// more bytes are needed. It is not a failure.
	ErrIncomplete = errors.New("resp: incomplete reply")

	// ErrProtocol means the bytes can never form a valid reply.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded means a declared length exceeds the protocol limits.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Decode parses the reply at the start of b and returns it along with the
// number of bytes it occupies. Bytes after the reply are left untouched.
//
// Decode returns ErrIncomplete when b ends before the reply does, and an
// error wrapping ErrProtocol or ErrLimitExceeded when b cannot be a reply.
// Decoded payloads never alias b.
func Decode(b []byte) (Reply, int, error) {
	if len(b) == 0 {
		return Reply{}, 0, ErrIncomplete
	}

	switch b[0] {
	case '+':
		return decodeLine(b, KindSimple)
	case '-':
		return decodeLine(b, KindError)
	case ':':
		return decodeInteger(b)
	case '$':
		return decodeBulk(b)
	case '*':
		return decodeArray(b)
	default:
		return Reply{}, 0, fmt.Errorf("%w: unknown reply type %q", ErrProtocol, b[0])
	}
}

// DecodeAll decodes back-to-back replies from b until it is exhausted.
//
// It returns every complete reply together with the number of bytes they
// occupy. When b ends with a partial reply the error is ErrIncomplete and
// the returned replies are still valid; the caller keeps b[n:] and retries
// once more bytes arrive.
func DecodeAll(b []byte) ([]Reply, int, error) {
	var out []Reply
	off := 0
	for off < len(b) {
		r, n, err := Decode(b[off:])
		if err != nil {
			return out, off, err
		}
		out = append(out, r)
		off += n
	}
	return out, off, nil
}

func decodeLine(b []byte, kind Kind) (Reply, int, error) {
	i := bytes.Index(b[1:], crlf)
	if i < 0 {
		return Reply{}, 0, ErrIncomplete
	}
	text := make([]byte, i)
	copy(text, b[1:1+i])
	return Reply{kind: kind, str: text}, 1 + i + 2, nil
}

func decodeInteger(b []byte) (Reply, int, error) {
	n, next, err := readHeader(b)
	if err != nil {
		return Reply{}, 0, err
	}
	return Integer(n), next, nil
}

func decodeBulk(b []byte) (Reply, int, error) {
	n, next, err := readHeader(b)
	if err != nil {
		return Reply{}, 0, err
	}
	if n < 0 {
		return NilBulk(), next, nil
	}
	if n > MaxBulkLen {
		return Reply{}, 0, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	end := next + int(n)
	if len(b) < end {
		return Reply{}, 0, ErrIncomplete
	}
	tail := b[end:]
	if len(tail) > 0 && tail[0] != '\r' || len(tail) > 1 && tail[1] != '\n' {
		return Reply{}, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	if len(tail) < 2 {
		return Reply{}, 0, ErrIncomplete
	}

	payload := make([]byte, n)
	copy(payload, b[next:end])
	return Reply{kind: KindBulk, str: payload}, end + 2, nil
}

func decodeArray(b []byte) (Reply, int, error) {
	n, next, err := readHeader(b)
	if err != nil {
		return Reply{}, 0, err
	}
	if n < 0 {
		return NilArray(), next, nil
	}
	if n > MaxArrayLen {
		return Reply{}, 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	elems := make([]Reply, 0, min(n, 1024))
	off := next
	for int64(len(elems)) < n {
		if off >= len(b) {
			return Reply{}, 0, ErrIncomplete
		}
		child, used, err := Decode(b[off:])
		if err != nil {
			return Reply{}, 0, err
		}
		elems = append(elems, child)
		off += used
	}
	return Reply{kind: KindArray, elems: elems}, off, nil
}

// readHeader parses "<tag><int>\r\n" and returns the value and the offset
// just past the CRLF.
func readHeader(b []byte) (int64, int, error) {
	i := bytes.Index(b[1:], crlf)
	if i < 0 {
		if len(b)-1 > MaxHeaderLen {
			return 0, 0, fmt.Errorf("%w: %q header exceeds %d bytes", ErrProtocol, b[0], MaxHeaderLen)
		}
		return 0, 0, ErrIncomplete
	}
	if i > MaxHeaderLen {
		return 0, 0, fmt.Errorf("%w: %q header exceeds %d bytes", ErrProtocol, b[0], MaxHeaderLen)
	}
	n, err := strconv.ParseInt(string(b[1:1+i]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid %q header %q", ErrProtocol, b[0], b[1:1+i])
	}
	return n, 1 + i + 2, nil
}
