package connection

import (
	"context"
	"net"
)

// Local is a unix domain socket connection.
type Local struct {
	*socket
}

// NewLocal creates an unconnected connection to the socket at path.
func NewLocal(path string, opts ...Option) *Local {
	o := buildOptions(opts)
	l := &Local{socket: newSocket(KindLocal, path, 0, o.logger)}
	var dialer net.Dialer
	l.dial = func(ctx context.Context) (net.Conn, error) {
		return dialer.DialContext(ctx, "unix", l.host)
	}
	return l
}

// Path returns the socket path.
func (l *Local) Path() string {
	return l.host
}
