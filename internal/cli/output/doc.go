// Package output renders rediswire-cli results.
//
// Replies are printed the way redis-cli prints them in text mode, as bare
// values in raw mode, and as JSON or YAML documents for scripting:
//
//   - formatter.go: Format parsing and the Formatter factory
//   - reply.go: Printer for replies and pub/sub messages
//   - table.go: aligned tables for profiles, INFO sections and bench results
//   - json.go: JSON and YAML formatters
//   - progress.go: progress bar for bench runs
package output
