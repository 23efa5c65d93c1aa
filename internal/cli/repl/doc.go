// Package repl provides the interactive mode of rediswire-cli.
//
// Lines are split like redis-cli splits them, so quoted arguments and
// \xHH escapes work, and are sent as one command each. A leading count
// repeats a command ("3 INCR hits"). The REPL answers help, history,
// clear, exit and quit itself and keeps a history that never records
// AUTH or other commands carrying credentials.
package repl
