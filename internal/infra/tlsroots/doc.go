// Package tlsroots builds client TLS configuration for Redis connections.
//
//   - roots.go: system and custom CA pools, client tls.Config construction
//   - watcher.go: client certificate hot reload via fsnotify
//
// The Secure connection variant uses a Pool to verify the server and,
// for mutual TLS, a Watcher to present a client certificate that can be
// rotated on disk without reconnecting.
package tlsroots
