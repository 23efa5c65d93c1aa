// Package buildinfo exposes version information injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/rediswire/internal/infra/buildinfo.Version=v0.3.0 \
//	  -X github.com/yndnr/rediswire/internal/infra/buildinfo.Commit=abc123"
//
// Fields that were not injected fall back to the module build info
// recorded by the Go toolchain.
package buildinfo
