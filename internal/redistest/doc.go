// Package redistest runs an in-process RESP server for tests.
//
// The server speaks enough of the Redis command set for client tests
// (connection, keyspace and pub/sub commands), listens on TCP, TLS or a
// unix socket, records every request, and lets tests override commands or
// inject raw push frames.
package redistest
