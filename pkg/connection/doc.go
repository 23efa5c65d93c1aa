// Package connection provides byte-stream connections to a Redis server.
//
// Three variants share one contract, Conn:
//
//   - Stream: plain TCP (stream.go)
//   - Secure: TLS over TCP (secure.go)
//   - Local: unix domain socket (local.go)
//
// Every variant runs a background reader that appends incoming bytes to an
// internal buffer. Callers either block in WaitForData or select on Ready,
// then drain the buffer with Read. Bytes that belong to a later consumer can
// be handed back with Unread.
package connection
