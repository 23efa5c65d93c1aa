// Package command provides the rediswire-cli command definitions.
//
// The commands are built with urfave/cli/v2:
//
//   - root.go: application, global flags, default action
//   - env.go: per-invocation state, profile selection and flag overrides
//   - exec.go: one-shot commands
//   - server.go: ping, info, publish, spublish, version
//   - pubsub.go: subscribe, psubscribe, ssubscribe
//   - repl.go: interactive session
//   - bench.go: load generator
//   - config.go: configuration and profile management
//
// Every command reads its configuration, printer and client from the Env
// that the root Before hook stores in the application metadata.
package command
