package connection

import (
	"context"
	"net"
)

// Stream is a plain TCP connection.
type Stream struct {
	*socket
}

// NewStream creates an unconnected TCP connection to host:port.
func NewStream(host string, port int, opts ...Option) *Stream {
	o := buildOptions(opts)
	s := &Stream{socket: newSocket(KindStream, host, port, o.logger)}
	dialer := &net.Dialer{KeepAlive: o.keepAlive}
	s.dial = func(ctx context.Context) (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp", s.address())
	}
	return s
}
