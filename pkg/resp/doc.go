// Package resp implements the Redis serialization protocol (RESP2) codec.
//
// This package is pure: it maps argument vectors to request bytes and
// reply bytes to typed values without performing any I/O.
//
//   - reply.go: Reply value type and constructors
//   - encode.go: request encoding and wire writers
//   - decode.go: prefix-consuming reply decoding
//   - command.go: server-side request reader (used by test servers)
//
// Decoding never assumes a buffer holds exactly one reply. Decode reports
// how many bytes it consumed so callers can keep a cursor over pipelined
// replies or batches of pushed messages, and it distinguishes "need more
// bytes" (ErrIncomplete) from bytes that can never form a reply
// (ErrProtocol).
package resp
