package resp

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// ErrInvalidArgument is returned by Validate for arguments that are neither
// strings nor byte slices.
var ErrInvalidArgument = errors.New("resp: invalid argument")

var crlf = []byte("\r\n")

// Encode serializes a command into a RESP array of bulk strings.
//
// Arguments must be string or []byte. Any other value is logged and
// skipped; the array header counts only the arguments actually written.
// Encode returns nil for an empty command.
func Encode(args ...any) []byte {
	if len(args) == 0 {
		return nil
	}

	frames := make([][]byte, 0, len(args))
	size := 16
	for i, arg := range args {
		b, ok := argBytes(arg)
		if !ok {
			slog.Default().Warn("resp: skipping unsupported argument",
				"index", i,
				"type", fmt.Sprintf("%T", arg),
			)
			continue
		}
		frames = append(frames, b)
		size += len(b) + 16
	}
	if len(frames) == 0 {
		return nil
	}

	return AppendCommand(make([]byte, 0, size), frames)
}

// Validate reports the first argument Encode would skip.
func Validate(args ...any) error {
	for i, arg := range args {
		if _, ok := argBytes(arg); !ok {
			return fmt.Errorf("%w: argument %d has type %T", ErrInvalidArgument, i, arg)
		}
	}
	return nil
}

func argBytes(arg any) ([]byte, bool) {
	switch v := arg.(type) {
	case string:
		return []byte(v), true
	case []byte:
		if v == nil {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

// AppendCommand appends a request frame for args to dst.
func AppendCommand(dst []byte, args [][]byte) []byte {
	dst = appendHeader(dst, '*', int64(len(args)))
	for _, arg := range args {
		dst = appendBulk(dst, arg)
	}
	return dst
}

// AppendReply appends the wire form of r to dst.
func AppendReply(dst []byte, r Reply) []byte {
	switch r.kind {
	case KindSimple:
		dst = append(dst, '+')
		dst = append(dst, r.str...)
		return append(dst, crlf...)
	case KindError:
		dst = append(dst, '-')
		dst = append(dst, r.str...)
		return append(dst, crlf...)
	case KindInteger:
		return appendHeader(dst, ':', r.num)
	case KindBulk:
		if r.null {
			return append(dst, "$-1\r\n"...)
		}
		return appendBulk(dst, r.str)
	case KindArray:
		if r.null {
			return append(dst, "*-1\r\n"...)
		}
		dst = appendHeader(dst, '*', int64(len(r.elems)))
		for _, e := range r.elems {
			dst = AppendReply(dst, e)
		}
		return dst
	default:
		return dst
	}
}

func appendHeader(dst []byte, tag byte, n int64) []byte {
	dst = append(dst, tag)
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, crlf...)
}

func appendBulk(dst, b []byte) []byte {
	dst = appendHeader(dst, '$', int64(len(b)))
	dst = append(dst, b...)
	return append(dst, crlf...)
}
