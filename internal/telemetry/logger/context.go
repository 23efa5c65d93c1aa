package logger

import "context"

type contextKey string

const (
	loggerKey  contextKey = "rediswire.logger"
	addressKey contextKey = "rediswire.address"
	profileKey contextKey = "rediswire.profile"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context, or returns Default.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithAddress records the server address the current operation talks to.
func WithAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, addressKey, addr)
}

// AddressFromContext extracts the server address from context.
func AddressFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(addressKey).(string)
	return addr
}

// WithProfile records the CLI profile name in use.
func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

// ProfileFromContext extracts the CLI profile name from context.
func ProfileFromContext(ctx context.Context) string {
	p, _ := ctx.Value(profileKey).(string)
	return p
}

// L is FromContext with the profile and address carried by ctx added as
// attributes.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if p := ProfileFromContext(ctx); p != "" {
		l = l.With("profile", p)
	}
	if addr := AddressFromContext(ctx); addr != "" {
		l = l.With("address", addr)
	}
	return l
}
