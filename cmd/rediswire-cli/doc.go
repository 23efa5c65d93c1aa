// Package main provides the entry point for rediswire-cli.
//
// rediswire-cli is a Redis command-line client built on the rediswire
// client stack. It supports:
//
//   - One-shot commands and repeated commands
//   - An interactive session with history and completion
//   - Channel, pattern and shard channel subscriptions
//   - Plain TCP, TLS and unix socket connections
//   - Named connection profiles with encrypted passwords
//
// Usage:
//
//	rediswire-cli GET mykey
//	rediswire-cli -u redis://localhost:6379/2 exec -r 5 -i 1s INCR counter
//	rediswire-cli subscribe --metrics-addr :9121 news
//	rediswire-cli config profile set --host cache.internal --password s3cret prod
//	rediswire-cli -P prod
package main
