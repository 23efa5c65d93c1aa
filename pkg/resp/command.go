package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Request limits for ReadCommand.
const (
	// MaxCommandArgs limits the number of arguments in one request.
	MaxCommandArgs = 1024

	// MaxInlineLen limits inline command line length (4KB).
	MaxInlineLen = 4 * 1024
)

// ReadCommand reads one request (a RESP array of bulk strings, or an inline
// command such as "PING\r\n") from r. It returns nil args for an empty
// request.
func ReadCommand(r *bufio.Reader) ([][]byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	if b[0] != '*' {
		line, err := readLine(r, MaxInlineLen)
		if err != nil {
			return nil, err
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			return nil, nil
		}
		out := make([][]byte, 0, len(parts))
		for _, p := range parts {
			out = append(out, []byte(p))
		}
		return out, nil
	}

	line, err := readLine(r, MaxHeaderLen+1)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid array length", ErrProtocol)
	}
	if n <= 0 {
		return nil, nil
	}
	if n > MaxCommandArgs {
		return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxCommandArgs)
	}

	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := readBulkArg(r)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func readBulkArg(r *bufio.Reader) ([]byte, error) {
	line, err := readLine(r, MaxHeaderLen+1)
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[0] != '$' {
		return nil, fmt.Errorf("%w: expected bulk string", ErrProtocol)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n > MaxBulkLen {
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, crlf) {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return "", err
		}
		if len(buf) > maxLen+2 {
			return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
	}

	if len(buf) > maxLen+2 {
		return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	if !bytes.HasSuffix(buf, crlf) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}
